package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/provider"
	"github.com/pwerioflow/link/internal/repository"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// MsgNoSubscription is returned when canceling without a provider plan.
const MsgNoSubscription = "No active subscription found"

// PlanProductName labels the platform plan on the hosted checkout.
const PlanProductName = "Pwerlink - Plano Básico"

// MetaUserID tags platform customers and plan checkouts with the seller.
const MetaUserID = "user_id"

// SubscriptionService manages the seller's platform plan.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	profiles      repository.ProfileRepository
	provider      provider.Provider
	siteURL       string
	priceCents    int64
	logger        *slog.Logger
	now           func() time.Time
}

// NewSubscriptionService creates a new subscription service billing
// priceCents a month. A non-positive price falls back to the plan default.
func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	profiles repository.ProfileRepository,
	prov provider.Provider,
	siteURL string,
	priceCents int64,
	logger *slog.Logger,
) *SubscriptionService {
	if priceCents <= 0 {
		priceCents = domain.PlanPriceCents
	}
	return &SubscriptionService{
		subscriptions: subscriptions,
		profiles:      profiles,
		provider:      prov,
		siteURL:       strings.TrimRight(siteURL, "/"),
		priceCents:    priceCents,
		logger:        logger,
		now:           time.Now,
	}
}

// Access reports whether the seller may currently sell.
func (s *SubscriptionService) Access(ctx context.Context, sellerID string) (domain.Access, error) {
	sub, err := s.subscriptions.GetByProfile(ctx, sellerID)
	if err != nil && !isNotFound(err) {
		return domain.Access{}, fmt.Errorf("get subscription: %w", err)
	}
	return domain.CheckAccess(sub, s.now()), nil
}

// Subscribe returns a hosted checkout for the monthly plan, creating the
// billing customer on first use.
func (s *SubscriptionService) Subscribe(ctx context.Context, sellerID string) (string, error) {
	sub, err := s.subscriptions.GetByProfile(ctx, sellerID)
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("get subscription: %w", err)
	}

	customerID := ""
	if sub != nil {
		customerID = sub.CustomerID
	}
	if customerID == "" {
		profile, err := s.profiles.GetByID(ctx, sellerID)
		if err != nil {
			return "", fmt.Errorf("get profile: %w", err)
		}
		customerID, err = s.provider.CreateCustomer(ctx, profile.Email, map[string]string{MetaUserID: sellerID})
		if err != nil {
			return "", fmt.Errorf("create customer: %w", err)
		}
		if err := s.subscriptions.SetCustomerID(ctx, sellerID, customerID); err != nil {
			return "", fmt.Errorf("save customer id: %w", err)
		}
	}

	sess, err := s.provider.CreateSubscriptionCheckout(ctx, &provider.SubscriptionCheckoutInput{
		CustomerID:  customerID,
		ProductName: PlanProductName,
		UnitAmount:  s.priceCents,
		Currency:    domain.PlanCurrency,
		Interval:    "month",
		SuccessURL:  s.siteURL + "/admin?subscription=success",
		CancelURL:   s.siteURL + "/admin?subscription=cancel",
		Metadata:    map[string]string{MetaUserID: sellerID},
	})
	if err != nil {
		return "", fmt.Errorf("create subscription checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription checkout created",
		slog.String("seller_id", sellerID),
		slog.String("session_id", sess.ID),
	)
	return sess.URL, nil
}

// Cancel schedules the plan to end with the current period. The local
// status changes when the provider reports it.
func (s *SubscriptionService) Cancel(ctx context.Context, sellerID string) error {
	sub, err := s.subscriptions.GetByProfile(ctx, sellerID)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil || sub.SubscriptionID == "" {
		return apperrors.NotFound("subscription", sellerID).WithMessage(MsgNoSubscription)
	}

	if err := s.provider.CancelAtPeriodEnd(ctx, sub.SubscriptionID); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription cancellation scheduled",
		slog.String("seller_id", sellerID),
		slog.String("subscription_id", sub.SubscriptionID),
	)
	return nil
}
