package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pwerioflow/link/internal/provider"
	pkgkafka "github.com/pwerioflow/link/pkg/kafka"
)

// WebhookApplier applies a verified provider event to local state.
type WebhookApplier interface {
	Apply(ctx context.Context, evt *provider.WebhookEvent) error
}

// WebhookHandler decodes webhook_received envelopes and hands them to an
// applier.
type WebhookHandler struct {
	applier WebhookApplier
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook event handler.
func NewWebhookHandler(applier WebhookApplier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		applier: applier,
		logger:  logger,
	}
}

// Handle processes one envelope. Envelopes of other types are skipped.
func (h *WebhookHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.EventType != TopicWebhookReceived {
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var evt provider.WebhookEvent
	if err := event.UnmarshalData(&evt); err != nil {
		return fmt.Errorf("decode webhook event %s: %w", event.EventID, err)
	}

	return h.applier.Apply(ctx, &evt)
}

// NewWebhookConsumer creates the consumer for the webhook_received topic.
// Each provider event is applied at most once per store TTL.
func NewWebhookConsumer(brokers []string, group string, handler *WebhookHandler, store pkgkafka.IdempotencyStore, dlq pkgkafka.DeadLetterPublisher, logger *slog.Logger) *pkgkafka.Consumer {
	cfg := pkgkafka.ConsumerConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    TopicWebhookReceived,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	return pkgkafka.NewConsumer(cfg, pkgkafka.IdempotentHandler(store, handler.Handle, logger), dlq, logger)
}
