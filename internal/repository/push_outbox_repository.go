package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/family-calendar-api/internal/models"
)

// DefaultOutboxKey is the Redis list drained by the push delivery worker.
const DefaultOutboxKey = "push:outbox"

// PushOutboxRepository appends push messages to a Redis list.
type PushOutboxRepository struct {
	client *redis.Client
	key    string
}

// NewPushOutboxRepository constructs the outbox writer.
func NewPushOutboxRepository(client *redis.Client, key string) *PushOutboxRepository {
	if key == "" {
		key = DefaultOutboxKey
	}
	return &PushOutboxRepository{client: client, key: key}
}

// Push appends one message to the tail of the outbox.
func (r *PushOutboxRepository) Push(ctx context.Context, msg models.PushMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", r.key, err)
	}
	return nil
}
