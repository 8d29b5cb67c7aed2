package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
)

type pushSubscriptionStore interface {
	SetPushSubscription(ctx context.Context, userID, subscription string) error
}

// PushService manages browser push subscriptions.
type PushService struct {
	store     pushSubscriptionStore
	publicKey string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPushService constructs a PushService. An empty publicKey disables push.
func NewPushService(store pushSubscriptionStore, publicKey string, validate *validator.Validate, logger *zap.Logger) *PushService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushService{store: store, publicKey: publicKey, validator: validate, logger: logger}
}

// Configured reports whether a VAPID public key is available.
func (s *PushService) Configured() bool {
	return s.publicKey != ""
}

// PublicKey returns the VAPID application server key browsers subscribe with.
func (s *PushService) PublicKey() (string, error) {
	if !s.Configured() {
		return "", appErrors.Clone(appErrors.ErrPushNotConfigured, "push notifications are not configured")
	}
	return s.publicKey, nil
}

// Subscribe stores the browser subscription on the user, replacing any
// previous one.
func (s *PushService) Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) error {
	if req.Subscription == nil {
		return appErrors.Clone(appErrors.ErrValidation, "subscription is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid push subscription")
	}

	raw, err := json.Marshal(req.Subscription)
	if err != nil {
		return appErrors.Internal(err, "failed to encode subscription")
	}
	if err := s.store.SetPushSubscription(ctx, userID, string(raw)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to store subscription")
	}

	s.logger.Info("push subscription stored", zap.String("user_id", userID))
	return nil
}
