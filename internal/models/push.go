package models

import (
	"encoding/json"
	"time"
)

// PushSubscription is the browser PushSubscription JSON.
type PushSubscription struct {
	Endpoint       string               `json:"endpoint" validate:"required,url"`
	ExpirationTime *int64               `json:"expirationTime,omitempty"`
	Keys           PushSubscriptionKeys `json:"keys" validate:"required"`
}

// PushSubscriptionKeys carries the client encryption keys.
type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// SubscribeRequest wraps the subscription as sent by the service worker.
type SubscribeRequest struct {
	Subscription *PushSubscription `json:"subscription" validate:"required"`
}

// PushPayload is what the service worker shows as a notification.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// PushMessage is queued on the outbox for the delivery worker.
type PushMessage struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	FamilyID     string          `json:"family_id"`
	UserID       string          `json:"user_id"`
	Subscription json.RawMessage `json:"subscription"`
	Payload      PushPayload     `json:"payload"`
	QueuedAt     time.Time       `json:"queued_at"`
}
