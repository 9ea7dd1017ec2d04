package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/service"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/httputil"
)

// CheckoutHandler serves the checkout session endpoint.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// CheckoutResponse carries the hosted payment page.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// CreateSession handles POST /api/v1/checkout.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input service.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(service.MsgInvalidItems), h.logger)
		return
	}
	input.IdempotencyKey = r.Header.Get(checkout.IdempotencyHeader)

	url, err := h.service.CreateSession(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}
