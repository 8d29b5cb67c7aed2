package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
)

const (
	joinCodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength      = 6
	joinCodeMaxAttempts = 20
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
}

type authFamilyRepository interface {
	FindByJoinCode(ctx context.Context, code string) (*models.Family, error)
	JoinCodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, family *models.Family) error
	AddMember(ctx context.Context, familyID, userID string) error
}

// JoinCodeGenerator returns a candidate join code.
type JoinCodeGenerator func() (string, error)

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService handles joining families and session tokens.
type AuthService struct {
	users     authUserRepository
	families  authFamilyRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	codes     JoinCodeGenerator
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, families authFamilyRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 30 * 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		families:  families,
		validator: validate,
		logger:    logger,
		config:    config,
		codes:     RandomJoinCode,
		now:       time.Now,
	}
}

// WithJoinCodeGenerator overrides join code generation. Intended for tests.
func (s *AuthService) WithJoinCodeGenerator(gen JoinCodeGenerator) *AuthService {
	s.codes = gen
	return s
}

// RandomJoinCode draws six characters from an alphabet without 0/O and 1/I.
func RandomJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	var b strings.Builder
	b.Grow(joinCodeLength)
	for i := 0; i < joinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// JoinFamily joins the family owning req.JoinCode, or creates a new family
// when no code is given, and issues a session token for the member.
func (s *AuthService) JoinFamily(ctx context.Context, req models.JoinFamilyRequest) (*models.JoinFamilyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid join family payload")
	}
	memberName := strings.TrimSpace(req.MemberName)
	if memberName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "member name is required")
	}

	family, err := s.resolveFamily(ctx, req, memberName)
	if err != nil {
		return nil, err
	}

	user, err := s.upsertMember(ctx, memberName, req.Email, req.Color)
	if err != nil {
		return nil, err
	}

	if err := s.families.AddMember(ctx, family.ID, user.ID); err != nil {
		return nil, appErrors.Internal(err, "failed to join family")
	}

	token, expiresAt, err := s.generateToken(user.ID, family.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create session token")
	}

	s.logger.Info("member joined family", zap.String("family_id", family.ID), zap.String("user_id", user.ID))

	return &models.JoinFamilyResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Family:    family.Info(),
		User:      *user,
	}, nil
}

func (s *AuthService) resolveFamily(ctx context.Context, req models.JoinFamilyRequest, memberName string) (*models.Family, error) {
	if code := strings.ToUpper(strings.TrimSpace(req.JoinCode)); code != "" {
		family, err := s.families.FindByJoinCode(ctx, code)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrFamilyNotFound, "family code not found")
			}
			return nil, appErrors.Internal(err, "failed to look up family")
		}
		return family, nil
	}

	name := strings.TrimSpace(req.FamilyName)
	if name == "" {
		name = memberName + "'s family"
	}
	code, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return nil, err
	}
	family := &models.Family{ID: uuid.NewString(), Name: name, JoinCode: code}
	if err := s.families.Create(ctx, family); err != nil {
		return nil, appErrors.Internal(err, "failed to create family")
	}
	return family, nil
}

func (s *AuthService) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < joinCodeMaxAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return "", appErrors.Internal(err, "failed to generate join code")
		}
		taken, err := s.families.JoinCodeExists(ctx, code)
		if err != nil {
			return "", appErrors.Internal(err, "failed to check join code")
		}
		if !taken {
			return code, nil
		}
	}
	return "", appErrors.Internal(fmt.Errorf("no free join code after %d attempts", joinCodeMaxAttempts), "failed to generate join code")
}

// upsertMember reuses the user registered under email, renaming it and
// replacing the colour when one is given. Without an email a new user is
// created every time.
func (s *AuthService) upsertMember(ctx context.Context, name, email, color string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	color = strings.TrimSpace(color)

	if email != "" {
		existing, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			existing.Name = name
			if color != "" {
				existing.Color = &color
			}
			if err := s.users.UpdateProfile(ctx, existing); err != nil {
				return nil, appErrors.Internal(err, "failed to update member")
			}
			return existing, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Internal(err, "failed to look up member")
		}
	}

	user := &models.User{ID: uuid.NewString(), Name: name, Email: optionalString(email), Color: optionalString(color)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create member")
	}
	return user, nil
}

// ValidateToken parses and validates a session token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.FamilyID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateToken(userID, familyID string) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID:   userID,
		FamilyID: familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
