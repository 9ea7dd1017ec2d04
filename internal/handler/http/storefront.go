package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/validator"
)

// StorefrontHandler serves public storefront pages and the carts they mint.
type StorefrontHandler struct {
	storefronts *service.StorefrontService
	carts       *service.CartService
	logger      *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(storefronts *service.StorefrontService, carts *service.CartService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		storefronts: storefronts,
		carts:       carts,
		logger:      logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the body of POST /carts/{cartID}/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// UpdateQuantityRequest is the body of PATCH /carts/{cartID}/items/{productID}.
// Quantity is the raw text of the drawer's input and may be a JSON string
// or number.
type UpdateQuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

func (req UpdateQuantityRequest) raw() string {
	var s string
	if err := json.Unmarshal(req.Quantity, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(req.Quantity))
}

// --- Handlers ---

// GetPage handles GET /api/v1/storefront/{username}.
func (h *StorefrontHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.storefronts.Page(r.Context(), chi.URLParam(r, "username"), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// GetCart handles GET /api/v1/carts/{cartID}.
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartID"))
	h.writeCart(w, r, view, err)
}

// AddItem handles POST /api/v1/carts/{cartID}/items.
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	view, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "cartID"), req.ProductID)
	h.writeCart(w, r, view, err)
}

// UpdateQuantity handles PATCH /api/v1/carts/{cartID}/items/{productID}.
func (h *StorefrontHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	view, err := h.carts.UpdateQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"), req.raw())
	h.writeCart(w, r, view, err)
}

// RemoveItem handles DELETE /api/v1/carts/{cartID}/items/{productID}.
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"))
	h.writeCart(w, r, view, err)
}

// ClearCart handles DELETE /api/v1/carts/{cartID}.
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Clear(r.Context(), chi.URLParam(r, "cartID"))
	h.writeCart(w, r, view, err)
}

// OpenDrawer handles POST /api/v1/carts/{cartID}/open.
func (h *StorefrontHandler) OpenDrawer(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.SetOpen(r.Context(), chi.URLParam(r, "cartID"), true)
	h.writeCart(w, r, view, err)
}

// CloseDrawer handles POST /api/v1/carts/{cartID}/close.
func (h *StorefrontHandler) CloseDrawer(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.SetOpen(r.Context(), chi.URLParam(r, "cartID"), false)
	h.writeCart(w, r, view, err)
}

// CheckoutCart handles POST /api/v1/carts/{cartID}/checkout. The outcome is
// always 200; alerts are part of the body.
func (h *StorefrontHandler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.carts.Checkout(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

func (h *StorefrontHandler) writeCart(w http.ResponseWriter, r *http.Request, view *service.CartView, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}
