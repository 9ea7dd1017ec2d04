// Package redis implements caches and short-lived guards on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/pwerioflow/link/internal/domain"
)

const storefrontPrefix = "storefront:"

// StorefrontLoader reads a storefront from the source of truth.
type StorefrontLoader func(ctx context.Context, username string) (*domain.Storefront, error)

// StorefrontCache is a read-through cache of public storefronts. Concurrent
// misses for the same username share one load.
type StorefrontCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewStorefrontCache creates a new Redis-backed storefront cache.
func NewStorefrontCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StorefrontCache {
	return &StorefrontCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached storefront for username or loads and caches it.
// Redis failures degrade to calling load directly.
func (c *StorefrontCache) Get(ctx context.Context, username string, load StorefrontLoader) (*domain.Storefront, error) {
	key := storefrontPrefix + username

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var sf domain.Storefront
		if err := json.Unmarshal(data, &sf); err == nil {
			return &sf, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt storefront cache entry", slog.String("username", username))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "storefront cache read failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		sf, err := load(ctx, username)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, sf)
		return sf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Storefront), nil
}

func (c *StorefrontCache) store(ctx context.Context, key string, sf *domain.Storefront) {
	data, err := json.Marshal(sf)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "storefront cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate drops the cached storefront for username.
func (c *StorefrontCache) Invalidate(ctx context.Context, username string) error {
	if err := c.client.Del(ctx, storefrontPrefix+username).Err(); err != nil {
		return fmt.Errorf("redis del storefront: %w", err)
	}
	return nil
}
