package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pwerioflow/link/internal/cart"
	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/repository"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/logger"
)

// MsgOutOfStock is returned when a sold-out product is added to a cart.
const MsgOutOfStock = "Product is out of stock"

// CartService drives the carts minted by storefront page renders.
type CartService struct {
	sessions  *cart.Sessions
	products  repository.ProductRepository
	profiles  repository.ProfileRepository
	initiator CheckoutInitiator
	logger    *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	sessions *cart.Sessions,
	products repository.ProductRepository,
	profiles repository.ProfileRepository,
	initiator CheckoutInitiator,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		sessions:  sessions,
		products:  products,
		profiles:  profiles,
		initiator: initiator,
		logger:    logger,
	}
}

// CartView is the drawer together with the floating button.
type CartView struct {
	Drawer cart.DrawerView  `json:"drawer"`
	Button *cart.ButtonView `json:"button"`
}

func newCartView(store *cart.Store) *CartView {
	return &CartView{Drawer: cart.Drawer(store), Button: cart.Button(store)}
}

func (s *CartService) store(cartID string) (*cart.Store, error) {
	store, ok := s.sessions.Get(cartID)
	if !ok {
		return nil, apperrors.NotFound("cart", cartID)
	}
	return store, nil
}

// Get returns the current cart state.
func (s *CartService) Get(_ context.Context, cartID string) (*CartView, error) {
	store, err := s.store(cartID)
	if err != nil {
		return nil, err
	}
	return newCartView(store), nil
}

// AddItem adds one unit of a product from the cart's seller. The item
// snapshots the live product record.
func (s *CartService) AddItem(ctx context.Context, cartID, productID string) (*CartView, error) {
	store, err := s.store(cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, store.SellerID(), productID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product for cart: %w", err)
	}
	if !product.IsActive {
		return nil, apperrors.NotFound("product", productID)
	}
	if product.OutOfStock() {
		return nil, apperrors.InvalidInput(MsgOutOfStock)
	}

	store.AddItem(*product)
	return newCartView(store), nil
}

// UpdateQuantity applies the raw text of the drawer's quantity field.
func (s *CartService) UpdateQuantity(_ context.Context, cartID, productID, raw string) (*CartView, error) {
	store, err := s.store(cartID)
	if err != nil {
		return nil, err
	}
	store.UpdateQuantity(productID, cart.ParseQuantity(raw))
	return newCartView(store), nil
}

// RemoveItem drops a product from the cart.
func (s *CartService) RemoveItem(_ context.Context, cartID, productID string) (*CartView, error) {
	store, err := s.store(cartID)
	if err != nil {
		return nil, err
	}
	store.RemoveItem(productID)
	return newCartView(store), nil
}

// Clear empties the cart.
func (s *CartService) Clear(_ context.Context, cartID string) (*CartView, error) {
	store, err := s.store(cartID)
	if err != nil {
		return nil, err
	}
	store.Clear()
	return newCartView(store), nil
}

// SetOpen opens or closes the drawer.
func (s *CartService) SetOpen(_ context.Context, cartID string, open bool) (*CartView, error) {
	store, err := s.store(cartID)
	if err != nil {
		return nil, err
	}
	if open {
		store.Open()
	} else {
		store.Close()
	}
	return newCartView(store), nil
}

// Checkout hands the cart to the payment flow. The cart is discarded only
// when the shopper is redirected; any alert leaves it intact.
func (s *CartService) Checkout(ctx context.Context, cartID string) (checkout.Outcome, error) {
	store, err := s.store(cartID)
	if err != nil {
		return checkout.Outcome{}, err
	}

	profile, err := s.profiles.GetByID(ctx, store.SellerID())
	if err != nil {
		if isNotFound(err) {
			return checkout.Outcome{}, apperrors.NotFound("seller", store.SellerID())
		}
		return checkout.Outcome{}, fmt.Errorf("get cart seller: %w", err)
	}

	ctx = logger.WithCartID(ctx, cartID)
	outcome := s.initiator.Initiate(cart.NewContext(ctx, store), profile.Username)
	if outcome.Redirected() {
		s.sessions.Discard(cartID)
		s.logger.InfoContext(ctx, "cart handed to checkout", slog.String("cart_id", cartID))
	}
	return outcome, nil
}
