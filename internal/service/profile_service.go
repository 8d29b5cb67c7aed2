package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
)

type profileUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListMembers(ctx context.Context, familyID string) ([]models.Member, error)
}

type profileFamilyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Family, error)
}

// ProfileService resolves the caller and their family.
type ProfileService struct {
	users    profileUserRepository
	families profileFamilyRepository
	logger   *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(users profileUserRepository, families profileFamilyRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, families: families, logger: logger}
}

// Me returns the caller, their family and its members ordered by name.
func (s *ProfileService) Me(ctx context.Context, userID, familyID string) (*models.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	family, err := s.families.FindByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Internal(err, "failed to load family")
	}

	members, err := s.users.ListMembers(ctx, familyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load members")
	}
	if members == nil {
		members = []models.Member{}
	}

	return &models.Profile{User: *user, Family: family.Info(), Members: members}, nil
}
