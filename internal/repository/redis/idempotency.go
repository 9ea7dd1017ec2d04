package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedPrefix = "event:processed:"

// IdempotencyStore remembers processed event ids in Redis. It satisfies
// kafka.IdempotencyStore.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a new Redis-backed idempotency store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// MarkProcessed claims eventID. It returns false when the id was already claimed.
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, processedPrefix+eventID, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx processed event: %w", err)
	}
	return ok, nil
}

// Forget releases eventID so a failed delivery can be retried.
func (s *IdempotencyStore) Forget(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, processedPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("redis del processed event: %w", err)
	}
	return nil
}
