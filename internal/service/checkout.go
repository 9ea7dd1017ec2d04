package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pwerioflow/link/internal/cart"
	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/event"
	"github.com/pwerioflow/link/internal/provider"
	"github.com/pwerioflow/link/internal/repository"
	redisrepo "github.com/pwerioflow/link/internal/repository/redis"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// Messages returned by the checkout session endpoint. Shoppers see them
// verbatim.
const (
	MsgInvalidItems       = "Invalid items"
	MsgSellerNotFound     = "Seller not found"
	MsgSellerNotPayable   = "Seller not configured for payments"
	MsgSubscriptionNeeded = "Seller subscription is not active"
	MsgProductsNotFound   = "Some products not found"
	MsgCheckoutPending    = "Checkout already in progress"
)

// Metadata keys attached to storefront checkout sessions.
const (
	MetaSellerID       = "seller_id"
	MetaSellerUsername = "seller_username"
)

// CheckoutService creates hosted payment sessions for storefront carts.
type CheckoutService struct {
	profiles      repository.ProfileRepository
	subscriptions repository.SubscriptionRepository
	products      repository.ProductRepository
	provider      provider.Provider
	guard         CheckoutGuard
	producer      *event.Producer
	siteURL       string
	logger        *slog.Logger
	now           func() time.Time
}

// NewCheckoutService creates a new checkout service. guard may be nil, in
// which case idempotency keys are only forwarded to the provider.
func NewCheckoutService(
	profiles repository.ProfileRepository,
	subscriptions repository.SubscriptionRepository,
	products repository.ProductRepository,
	prov provider.Provider,
	guard CheckoutGuard,
	producer *event.Producer,
	siteURL string,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		profiles:      profiles,
		subscriptions: subscriptions,
		products:      products,
		provider:      prov,
		guard:         guard,
		producer:      producer,
		siteURL:       strings.TrimRight(siteURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

// CheckoutProductRef identifies a product in a checkout request. Any other
// product fields the client sends are ignored.
type CheckoutProductRef struct {
	ID string `json:"id"`
}

// CheckoutItem is one requested line.
type CheckoutItem struct {
	Product  CheckoutProductRef `json:"product"`
	Quantity int                `json:"quantity"`
}

// CreateSessionInput is the body of a checkout request.
type CreateSessionInput struct {
	Items          []CheckoutItem `json:"items"`
	Username       string         `json:"username"`
	IdempotencyKey string         `json:"-"`
}

// CreateSession validates the request and returns the hosted checkout URL.
func (s *CheckoutService) CreateSession(ctx context.Context, input *CreateSessionInput) (string, error) {
	if len(input.Items) == 0 {
		return "", apperrors.InvalidInput(MsgInvalidItems)
	}

	username := normalizeUsername(input.Username)
	profile, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return "", apperrors.NotFound("seller", username).WithMessage(MsgSellerNotFound)
		}
		return "", fmt.Errorf("get seller: %w", err)
	}

	if !profile.CanAcceptPayments() {
		return "", apperrors.InvalidInput(MsgSellerNotPayable)
	}

	if err := s.checkSubscription(ctx, profile.ID); err != nil {
		return "", err
	}

	lineItems, amount, err := s.lineItems(ctx, profile.ID, input.Items)
	if err != nil {
		return "", err
	}

	key := input.IdempotencyKey
	guarded := false
	if key != "" && s.guard != nil {
		existing, reserved, gerr := s.guard.Reserve(ctx, profile.ID, key)
		switch {
		case errors.Is(gerr, redisrepo.ErrCheckoutPending):
			return "", apperrors.Conflict(MsgCheckoutPending)
		case gerr != nil:
			s.logger.WarnContext(ctx, "checkout guard unavailable, continuing without it",
				slog.String("error", gerr.Error()),
			)
		case !reserved:
			s.logger.InfoContext(ctx, "checkout session reused",
				slog.String("seller_id", profile.ID),
				slog.String("idempotency_key", key),
			)
			return existing, nil
		default:
			guarded = true
		}
	}

	base := s.siteURL + "/" + url.PathEscape(username)
	sess, err := s.provider.CreateCheckoutSession(ctx, &provider.CheckoutInput{
		AccountID:  profile.Payments.AccountID,
		LineItems:  lineItems,
		SuccessURL: base + "?checkout=success",
		CancelURL:  base + "?checkout=cancel",
		Metadata: map[string]string{
			MetaSellerID:       profile.ID,
			MetaSellerUsername: username,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		if guarded {
			s.releaseGuard(ctx, profile.ID, key)
		}
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	if guarded {
		if cerr := s.guard.Complete(ctx, profile.ID, key, sess.URL); cerr != nil {
			s.logger.WarnContext(ctx, "failed to record checkout session for idempotency key",
				slog.String("error", cerr.Error()),
			)
		}
	}

	if perr := s.producer.PublishCheckoutSessionCreated(ctx, event.CheckoutSessionCreatedData{
		SellerID:       profile.ID,
		Username:       username,
		SessionID:      sess.ID,
		AmountTotal:    amount,
		Currency:       domain.Currency,
		ItemCount:      len(lineItems),
		IdempotencyKey: key,
	}); perr != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.session_created event",
			slog.String("session_id", sess.ID),
			slog.String("error", perr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout session created",
		slog.String("seller_id", profile.ID),
		slog.String("session_id", sess.ID),
		slog.Int64("amount_total", amount),
	)
	return sess.URL, nil
}

func (s *CheckoutService) checkSubscription(ctx context.Context, profileID string) error {
	sub, err := s.subscriptions.GetByProfile(ctx, profileID)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("get seller subscription: %w", err)
	}
	if !domain.CheckAccess(sub, s.now()).HasAccess {
		return apperrors.InvalidInput(MsgSubscriptionNeeded)
	}
	return nil
}

// lineItems prices the request from the database. Client prices are never
// trusted.
func (s *CheckoutService) lineItems(ctx context.Context, profileID string, items []CheckoutItem) ([]provider.LineItem, int64, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Product.ID == "" || it.Quantity < 1 || it.Quantity > cart.MaxQuantity {
			return nil, 0, apperrors.InvalidInput(MsgInvalidItems)
		}
		if _, dup := seen[it.Product.ID]; !dup {
			seen[it.Product.ID] = struct{}{}
			ids = append(ids, it.Product.ID)
		}
	}

	products, err := s.products.GetActiveByIDs(ctx, profileID, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("get checkout products: %w", err)
	}
	byID := make(map[string]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	if len(byID) != len(ids) {
		return nil, 0, apperrors.NotFound("products", strings.Join(ids, ",")).WithMessage(MsgProductsNotFound)
	}

	out := make([]provider.LineItem, 0, len(items))
	var total int64
	for _, it := range items {
		p := byID[it.Product.ID]
		unit := p.UnitAmountCents()
		out = append(out, provider.LineItem{
			Name:        p.Name,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			UnitAmount:  unit,
			Currency:    domain.Currency,
			Quantity:    int64(it.Quantity),
		})
		total += unit * int64(it.Quantity)
	}
	return out, total, nil
}

func (s *CheckoutService) releaseGuard(ctx context.Context, scope, key string) {
	if err := s.guard.Release(ctx, scope, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release checkout guard",
			slog.String("idempotency_key", key),
			slog.String("error", err.Error()),
		)
	}
}
