package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/pkg/database"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// SubscriptionRepository implements repository.SubscriptionRepository using PostgreSQL.
type SubscriptionRepository struct {
	pool database.DBTX
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(pool database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// GetByProfile returns the profile's plan, or apperrors.ErrNotFound.
func (r *SubscriptionRepository) GetByProfile(ctx context.Context, profileID string) (_ *domain.Subscription, err error) {
	query := `
		SELECT profile_id, COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''), status,
		       current_period_start, current_period_end, trial_end, plan_name, plan_price, created_at, updated_at
		FROM subscriptions
		WHERE profile_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetSubscriptionByProfile", query)
	defer func() { end(err) }()

	var s domain.Subscription
	err = r.pool.QueryRow(ctx, query, profileID).Scan(
		&s.ProfileID,
		&s.CustomerID,
		&s.SubscriptionID,
		&s.Status,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.TrialEnd,
		&s.PlanName,
		&s.PlanPriceCents,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &s, nil
}

// SetCustomerID records the billing customer created for the profile.
func (r *SubscriptionRepository) SetCustomerID(ctx context.Context, profileID, customerID string) error {
	query := `
		INSERT INTO subscriptions (profile_id, stripe_customer_id)
		VALUES ($1, $2)
		ON CONFLICT (profile_id) DO UPDATE
		SET stripe_customer_id = EXCLUDED.stripe_customer_id, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, profileID, customerID); err != nil {
		return fmt.Errorf("set customer id: %w", err)
	}
	return nil
}

// ActivateByCustomer marks the plan billed to customerID active.
func (r *SubscriptionRepository) ActivateByCustomer(ctx context.Context, customerID, subscriptionID string, period repository.SubscriptionPeriod) error {
	query := `
		UPDATE subscriptions
		SET stripe_subscription_id = $1, status = $2, current_period_start = $3,
		    current_period_end = $4, updated_at = NOW()
		WHERE stripe_customer_id = $5`

	ct, err := r.pool.Exec(ctx, query, subscriptionID, domain.SubscriptionActive, period.Start, period.End, customerID)
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("subscription for customer", customerID)
	}
	return nil
}

// UpdateBySubscriptionID sets the status and, when both bounds are known,
// the billing period.
func (r *SubscriptionRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID, status string, period repository.SubscriptionPeriod) error {
	query := `
		UPDATE subscriptions
		SET status = $1,
		    current_period_start = COALESCE($2, current_period_start),
		    current_period_end = COALESCE($3, current_period_end),
		    updated_at = NOW()
		WHERE stripe_subscription_id = $4`

	ct, err := r.pool.Exec(ctx, query, status, period.Start, period.End, subscriptionID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("subscription", subscriptionID)
	}
	return nil
}
