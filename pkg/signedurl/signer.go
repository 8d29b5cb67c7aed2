package signedurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// FeedKeyInfo separates feed signing keys from other keys derived from the same secret.
const FeedKeyInfo = "family-calendar/feeds"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Signer creates and validates expiring HMAC-SHA256 tokens bound to a subject.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: secret, ttl: ttl, now: time.Now}
}

// DeriveKey stretches a shared secret into a 32 byte key for one purpose.
func DeriveKey(secret, info string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret missing")
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// FeedSigner picks the dedicated feed secret when set and otherwise derives
// one from the JWT secret.
func FeedSigner(feedSecret, jwtSecret string, ttl time.Duration) (*Signer, error) {
	if feedSecret != "" {
		return NewSigner([]byte(feedSecret), ttl), nil
	}
	key, err := DeriveKey(jwtSecret, FeedKeyInfo)
	if err != nil {
		return nil, err
	}
	return NewSigner(key, ttl), nil
}

// WithClock replaces the time source. Intended for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// TTL reports how long issued tokens stay valid.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Generate returns a signed token for subject under scope.
func (s *Signer) Generate(scope, subject string) (string, time.Time, error) {
	if scope == "" || subject == "" {
		return "", time.Time{}, fmt.Errorf("scope and subject required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(subject))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encoded, exp, s.sign(scope, encoded, exp)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token issued for scope and returns its subject.
func (s *Signer) Parse(scope, token string) (subject string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, ErrInvalidToken
	}
	encoded, exp, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(scope, encoded, exp)), []byte(signature)) {
		return "", time.Time{}, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", expiresAt, ErrExpiredToken
	}
	return string(raw), expiresAt, nil
}

func (s *Signer) sign(scope, encoded, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(scope + "|" + encoded + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
