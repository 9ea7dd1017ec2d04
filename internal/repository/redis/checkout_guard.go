package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	checkoutGuardPrefix = "checkout:idem:"
	pendingMarker       = "pending"

	// CheckoutGuardTTL is how long a checkout idempotency key is remembered.
	CheckoutGuardTTL = 30 * time.Minute
)

// ErrCheckoutPending means another request holding the same key is still
// creating its session.
var ErrCheckoutPending = errors.New("checkout session creation in progress")

// CheckoutGuard maps checkout idempotency keys to the session URL they
// produced.
type CheckoutGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckoutGuard creates a new Redis-backed checkout guard.
func NewCheckoutGuard(client *redis.Client, ttl time.Duration) *CheckoutGuard {
	if ttl <= 0 {
		ttl = CheckoutGuardTTL
	}
	return &CheckoutGuard{client: client, ttl: ttl}
}

func guardKey(scope, key string) string {
	return checkoutGuardPrefix + scope + ":" + key
}

// Reserve claims key within scope. When the key already produced a session
// its URL is returned with reserved false. ErrCheckoutPending is returned
// while the first holder is still working.
func (g *CheckoutGuard) Reserve(ctx context.Context, scope, key string) (url string, reserved bool, err error) {
	k := guardKey(scope, key)

	ok, err := g.client.SetNX(ctx, k, pendingMarker, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx checkout guard: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := g.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; try once more.
			return g.Reserve(ctx, scope, key)
		}
		return "", false, fmt.Errorf("redis get checkout guard: %w", err)
	}
	if val == pendingMarker {
		return "", false, ErrCheckoutPending
	}
	return val, false, nil
}

// Complete records the URL produced for a reserved key.
func (g *CheckoutGuard) Complete(ctx context.Context, scope, key, url string) error {
	if err := g.client.Set(ctx, guardKey(scope, key), url, g.ttl).Err(); err != nil {
		return fmt.Errorf("redis set checkout guard: %w", err)
	}
	return nil
}

// Release forgets a reserved key so the request can be retried.
func (g *CheckoutGuard) Release(ctx context.Context, scope, key string) error {
	if err := g.client.Del(ctx, guardKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis del checkout guard: %w", err)
	}
	return nil
}
