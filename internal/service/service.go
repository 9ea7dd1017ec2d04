// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/domain"
	redisrepo "github.com/pwerioflow/link/internal/repository/redis"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// StorefrontCache caches public storefronts by username.
type StorefrontCache interface {
	Get(ctx context.Context, username string, load redisrepo.StorefrontLoader) (*domain.Storefront, error)
	Invalidate(ctx context.Context, username string) error
}

// CheckoutGuard deduplicates checkout session creation by idempotency key.
type CheckoutGuard interface {
	Reserve(ctx context.Context, scope, key string) (url string, reserved bool, err error)
	Complete(ctx context.Context, scope, key, url string) error
	Release(ctx context.Context, scope, key string) error
}

// CheckoutInitiator hands the cart carried by ctx (see cart.NewContext) to
// the checkout session endpoint.
type CheckoutInitiator interface {
	Initiate(ctx context.Context, username string) checkout.Outcome
}

// normalizeUsername is how usernames are compared and stored.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
