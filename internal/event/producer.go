package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/provider"
	pkgkafka "github.com/pwerioflow/link/pkg/kafka"
	"github.com/pwerioflow/link/pkg/logger"
)

// Kafka topics produced by the service.
var (
	TopicCheckoutSessionCreated = pkgkafka.Topic("checkout", "session_created")
	TopicQRScanned              = pkgkafka.Topic("storefront", "qr_scanned")
	TopicOrderPaid              = pkgkafka.Topic("order", "paid")
	TopicWebhookReceived        = pkgkafka.Topic("payment", "webhook_received")
)

// Aggregate type constants.
const (
	AggregateTypeProfile = "profile"
	AggregateTypeOrder   = "order"
	AggregateTypeWebhook = "payment_webhook"
)

// SourceLinkbio identifies events originating from this service.
const SourceLinkbio = "linkbio"

// CheckoutSessionCreatedData is the payload for a checkout.session_created event.
type CheckoutSessionCreatedData struct {
	SellerID       string `json:"seller_id"`
	Username       string `json:"username"`
	SessionID      string `json:"session_id"`
	AmountTotal    int64  `json:"amount_total"`
	Currency       string `json:"currency"`
	ItemCount      int    `json:"item_count"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// QRScannedData is the payload for a storefront.qr_scanned event.
type QRScannedData struct {
	ProfileID string    `json:"profile_id"`
	Username  string    `json:"username"`
	ScannedAt time.Time `json:"scanned_at"`
}

// OrderPaidData is the payload for an order.paid event.
type OrderPaidData struct {
	ID                string `json:"id"`
	ProfileID         string `json:"profile_id"`
	ProviderSessionID string `json:"provider_session_id"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	CustomerEmail     string `json:"customer_email,omitempty"`
}

// Publisher is the part of *pkgkafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes linkbio domain events. A Producer with a nil Publisher
// drops every event, which is how the service runs without Kafka.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. publisher may be nil.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enabled reports whether events actually reach a broker.
func (p *Producer) Enabled() bool {
	return p != nil && p.publisher != nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any, opts ...func(*pkgkafka.Event)) error {
	if !p.Enabled() {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceLinkbio, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	for _, opt := range opts {
		opt(evt)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCheckoutSessionCreated publishes a checkout.session_created event.
func (p *Producer) PublishCheckoutSessionCreated(ctx context.Context, data CheckoutSessionCreatedData) error {
	return p.publish(ctx, TopicCheckoutSessionCreated, data.SellerID, AggregateTypeProfile, data)
}

// PublishQRScanned publishes a storefront.qr_scanned event.
func (p *Producer) PublishQRScanned(ctx context.Context, profile *domain.Profile, at time.Time) error {
	data := QRScannedData{
		ProfileID: profile.ID,
		Username:  profile.Username,
		ScannedAt: at.UTC(),
	}
	return p.publish(ctx, TopicQRScanned, profile.ID, AggregateTypeProfile, data)
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, order *domain.Order) error {
	data := OrderPaidData{
		ID:                order.ID,
		ProfileID:         order.ProfileID,
		ProviderSessionID: order.ProviderSessionID,
		AmountTotal:       order.AmountTotalCents,
		Currency:          order.Currency,
		CustomerEmail:     order.CustomerEmail,
	}
	return p.publish(ctx, TopicOrderPaid, order.ID, AggregateTypeOrder, data)
}

// PublishWebhookReceived forwards a verified provider event to the webhook
// consumer. The envelope reuses the provider's event id so redeliveries of
// the same notification deduplicate downstream.
func (p *Producer) PublishWebhookReceived(ctx context.Context, evt *provider.WebhookEvent) error {
	return p.publish(ctx, TopicWebhookReceived, evt.ID, AggregateTypeWebhook, evt,
		func(e *pkgkafka.Event) {
			e.WithEventID(evt.ID).WithMetadata("provider_event_type", evt.Type)
		},
	)
}
