package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdempotencyStore remembers processed event IDs.
type IdempotencyStore interface {
	// MarkProcessed records eventID and reports whether this call was the
	// first to do so.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget removes eventID so a later delivery is processed again.
	Forget(ctx context.Context, eventID string) error
}

// MemoryIdempotencyStore is a single-process IdempotencyStore with TTL.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryIdempotencyStore creates a store whose entries expire after ttl.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// MarkProcessed implements IdempotencyStore.
func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ts, ok := s.entries[eventID]; ok && now.Sub(ts) <= s.ttl {
		return false, nil
	}
	s.entries[eventID] = now
	return true, nil
}

// Forget implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Forget(_ context.Context, eventID string) error {
	s.mu.Lock()
	delete(s.entries, eventID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IdempotentHandler skips events whose ID was already processed. The ID is
// claimed before inner runs and released again if inner fails, so a retry
// or redelivery gets another chance. Store errors fall through to inner.
func IdempotentHandler(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			return inner(ctx, event)
		}

		first, err := store.MarkProcessed(ctx, event.EventID)
		if err != nil {
			logger.WarnContext(ctx, "idempotency store unavailable, processing anyway",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return inner(ctx, event)
		}
		if !first {
			consumerMessagesDuplicate.WithLabelValues(event.EventType).Inc()
			logger.DebugContext(ctx, "skipping duplicate event",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			if fErr := store.Forget(ctx, event.EventID); fErr != nil {
				logger.WarnContext(ctx, "failed to release event id",
					slog.String("event_id", event.EventID),
					slog.String("error", fErr.Error()),
				)
			}
			return err
		}
		return nil
	}
}
