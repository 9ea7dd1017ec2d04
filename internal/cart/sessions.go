package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	store    *Store
	lastSeen time.Time
}

// Sessions maps cart ids to stores for live storefront pages and forgets
// carts idle for longer than ttl.
type Sessions struct {
	mu    sync.Mutex
	carts map[string]*session
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions returns an empty registry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		carts: make(map[string]*session),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create mints a fresh empty cart for sellerID.
func (s *Sessions) Create(sellerID string) *Store {
	store := NewStore(uuid.NewString(), sellerID)

	s.mu.Lock()
	s.carts[store.ID()] = &session{store: store, lastSeen: s.now()}
	s.mu.Unlock()
	return store
}

// Get returns the cart for id and refreshes its idle timer.
func (s *Sessions) Get(id string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.carts[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.store, true
}

// Discard drops the cart for id.
func (s *Sessions) Discard(id string) {
	s.mu.Lock()
	delete(s.carts, id)
	s.mu.Unlock()
}

// Len is the number of live carts.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Sessions) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.carts {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.carts, id)
		}
	}
}

// Run evicts idle carts until ctx is canceled.
func (s *Sessions) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}
