// Package cart holds a shopper's in-progress order for one storefront page.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pwerioflow/link/internal/domain"
)

// Item is one product line in the cart. Product is a snapshot taken when
// the item was first added.
type Item struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MaxQuantity is the largest quantity one line can hold.
const MaxQuantity = 999

// Store is the cart state container. Every operation is total: unknown
// product ids are ignored. Insertion order is display order.
type Store struct {
	mu          sync.Mutex
	id          string
	sellerID    string
	items       []Item
	isOpen      bool
	revision    uint64
	checkingOut bool
}

// NewStore returns an empty, closed cart.
func NewStore(id, sellerID string) *Store {
	return &Store{id: id, sellerID: sellerID}
}

// ID is the opaque cart id.
func (s *Store) ID() string { return s.id }

// SellerID is the storefront the cart was minted for.
func (s *Store) SellerID() string { return s.sellerID }

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of p or appends it with quantity 1. A
// line already at MaxQuantity is left alone.
func (s *Store) AddItem(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		if s.items[i].Quantity >= MaxQuantity {
			return
		}
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, Item{Product: p, Quantity: 1})
	}
	s.revision++
}

// RemoveItem deletes the line for productID.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

func (s *Store) removeLocked(productID string) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.revision++
}

// UpdateQuantity sets the quantity for productID, capped at MaxQuantity. A
// quantity of zero or less removes the line.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items[i].Quantity = min(quantity, MaxQuantity)
	s.revision++
}

// Clear empties the cart. The drawer stays as it was.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return
	}
	s.items = nil
	s.revision++
}

// TotalItems is the sum of all quantities.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity over every line.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Open shows the drawer.
func (s *Store) Open() {
	s.mu.Lock()
	s.isOpen = true
	s.mu.Unlock()
}

// Close hides the drawer.
func (s *Store) Close() {
	s.mu.Lock()
	s.isOpen = false
	s.mu.Unlock()
}

// IsOpen reports whether the drawer is shown.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Revision changes every time the items change. Together with the cart id
// it identifies one exact cart content.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot returns the items and the revision they belong to.
func (s *Store) Snapshot() ([]Item, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, s.revision
}

func (s *Store) drawerState() ([]Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, s.isOpen
}

// BeginCheckout claims the in-flight checkout flag. It returns false when
// another checkout for this cart is already running.
func (s *Store) BeginCheckout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return false
	}
	s.checkingOut = true
	return true
}

// EndCheckout releases the flag taken by BeginCheckout.
func (s *Store) EndCheckout() {
	s.mu.Lock()
	s.checkingOut = false
	s.mu.Unlock()
}

type contextKey struct{}

// NewContext returns ctx carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, store)
}

// FromContext returns the store carried by ctx, or nil.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(contextKey{}).(*Store)
	return s
}
