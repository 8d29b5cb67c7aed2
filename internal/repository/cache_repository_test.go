package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
)

// unreachableRedis points at a closed local port so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheRepositoryWithoutClientIsEmpty(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "events:fam:x", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "events:fam:x", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "events:fam:*"))
	assert.NoError(t, repo.Ping(ctx))
}

func TestCacheRepositoryWrapsRedisErrors(t *testing.T) {
	repo := NewCacheRepository(unreachableRedis(t), nil)
	ctx := context.Background()

	err := repo.Set(ctx, "events:fam:x", []int{1}, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set events:fam:x")

	err = repo.DeleteByPattern(ctx, "events:fam:*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis scan pattern events:fam:*")

	assert.Error(t, repo.Ping(ctx))
}

func TestPushOutboxRepository(t *testing.T) {
	repo := NewPushOutboxRepository(unreachableRedis(t), "")
	assert.Equal(t, DefaultOutboxKey, repo.key)

	err := repo.Push(context.Background(), models.PushMessage{ID: "m1", Kind: "morning"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis rpush push:outbox")
}
