package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/event"
	"github.com/pwerioflow/link/internal/provider"
	"github.com/pwerioflow/link/internal/repository"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// MsgInvalidSignature is returned for webhooks that fail verification.
const MsgInvalidSignature = "Invalid signature"

// WebhookService verifies provider notifications and applies their effects.
// Verified events go through the bus when a producer is configured so the
// consumer can apply them once per event id; otherwise they are applied
// inline.
type WebhookService struct {
	provider      provider.Provider
	subscriptions repository.SubscriptionRepository
	profiles      repository.ProfileRepository
	orders        repository.OrderRepository
	producer      *event.Producer
	logger        *slog.Logger
	now           func() time.Time
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	prov provider.Provider,
	subscriptions repository.SubscriptionRepository,
	profiles repository.ProfileRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		provider:      prov,
		subscriptions: subscriptions,
		profiles:      profiles,
		orders:        orders,
		producer:      producer,
		logger:        logger,
		now:           time.Now,
	}
}

// Receive verifies payload and hands the event on.
func (s *WebhookService) Receive(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidSignature) {
			return apperrors.InvalidInput(MsgInvalidSignature)
		}
		return apperrors.InvalidInput(fmt.Sprintf("invalid webhook payload: %v", err))
	}

	s.logger.InfoContext(ctx, "webhook received",
		slog.String("event_id", evt.ID),
		slog.String("event_type", evt.Type),
	)

	if s.producer.Enabled() {
		err := s.producer.PublishWebhookReceived(ctx, evt)
		if err == nil {
			return nil
		}
		s.logger.ErrorContext(ctx, "failed to publish webhook, applying inline",
			slog.String("event_id", evt.ID),
			slog.String("error", err.Error()),
		)
	}

	return s.Apply(ctx, evt)
}

// Apply performs the side effects of evt. Events that refer to rows this
// service does not know are logged and dropped.
func (s *WebhookService) Apply(ctx context.Context, evt *provider.WebhookEvent) error {
	var err error
	switch evt.Type {
	case provider.EventCheckoutCompleted:
		err = s.checkoutCompleted(ctx, evt)
	case provider.EventSubscriptionUpdated:
		err = s.subscriptionChanged(ctx, evt, "")
	case provider.EventSubscriptionDeleted:
		err = s.subscriptionChanged(ctx, evt, domain.SubscriptionCanceled)
	case provider.EventInvoicePaymentFailed:
		err = s.invoiceFailed(ctx, evt)
	case provider.EventAccountUpdated:
		err = s.accountUpdated(ctx, evt)
	default:
		s.logger.InfoContext(ctx, "unhandled webhook event", slog.String("event_type", evt.Type))
		return nil
	}

	if isNotFound(err) {
		s.logger.WarnContext(ctx, "webhook refers to unknown record",
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}

func (s *WebhookService) checkoutCompleted(ctx context.Context, evt *provider.WebhookEvent) error {
	sess := evt.Session
	if sess == nil {
		return fmt.Errorf("%s without session payload", evt.Type)
	}

	if sess.Mode == provider.ModeSubscription {
		if sess.SubscriptionID == "" || sess.CustomerID == "" {
			return nil
		}
		sub, err := s.provider.GetSubscription(ctx, sess.SubscriptionID)
		if err != nil {
			return fmt.Errorf("get subscription: %w", err)
		}
		period := repository.SubscriptionPeriod{Start: sub.PeriodStart, End: sub.PeriodEnd}
		if err := s.subscriptions.ActivateByCustomer(ctx, sess.CustomerID, sub.ID, period); err != nil {
			return fmt.Errorf("activate subscription: %w", err)
		}
		s.logger.InfoContext(ctx, "subscription activated",
			slog.String("customer_id", sess.CustomerID),
			slog.String("subscription_id", sub.ID),
		)
		return nil
	}

	sellerID := sess.Metadata[MetaSellerID]
	if sellerID == "" {
		s.logger.WarnContext(ctx, "completed checkout without seller", slog.String("session_id", sess.ID))
		return nil
	}

	currency := sess.Currency
	if currency == "" {
		currency = domain.Currency
	}
	order := &domain.Order{
		ID:                uuid.NewString(),
		ProfileID:         sellerID,
		ProviderSessionID: sess.ID,
		AmountTotalCents:  sess.AmountTotal,
		Currency:          currency,
		Status:            domain.OrderPaid,
		CustomerEmail:     sess.CustomerEmail,
		CreatedAt:         s.now().UTC(),
	}
	inserted, err := s.orders.Create(ctx, order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if !inserted {
		return nil
	}

	if err := s.producer.PublishOrderPaid(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order paid event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// subscriptionChanged stores the reported status, or status when set.
func (s *WebhookService) subscriptionChanged(ctx context.Context, evt *provider.WebhookEvent, status string) error {
	sub := evt.Subscription
	if sub == nil {
		return fmt.Errorf("%s without subscription payload", evt.Type)
	}
	if status == "" {
		status = sub.Status
	}
	period := repository.SubscriptionPeriod{Start: sub.PeriodStart, End: sub.PeriodEnd}
	if err := s.subscriptions.UpdateBySubscriptionID(ctx, sub.ID, status, period); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

func (s *WebhookService) invoiceFailed(ctx context.Context, evt *provider.WebhookEvent) error {
	if evt.InvoiceSubID == "" {
		return nil
	}
	err := s.subscriptions.UpdateBySubscriptionID(ctx, evt.InvoiceSubID, domain.SubscriptionPastDue, repository.SubscriptionPeriod{})
	if err != nil {
		return fmt.Errorf("mark subscription past due: %w", err)
	}
	return nil
}

func (s *WebhookService) accountUpdated(ctx context.Context, evt *provider.WebhookEvent) error {
	if evt.Account == nil {
		return fmt.Errorf("%s without account payload", evt.Type)
	}
	if err := s.profiles.SyncPaymentAccount(ctx, paymentsFromAccount(evt.Account)); err != nil {
		return fmt.Errorf("sync payment account: %w", err)
	}
	return nil
}
