package http

import (
	"log/slog"
	"net/http"

	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/middleware"
)

// PaymentsHandler serves payment-account onboarding and the seller's own
// subscription.
type PaymentsHandler struct {
	connect       *service.ConnectService
	subscriptions *service.SubscriptionService
	logger        *slog.Logger
}

// NewPaymentsHandler creates a new payments HTTP handler.
func NewPaymentsHandler(connect *service.ConnectService, subscriptions *service.SubscriptionService, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		connect:       connect,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RedirectResponse points the browser at a hosted provider page.
type RedirectResponse struct {
	URL string `json:"url"`
}

// SuccessResponse acknowledges an action without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Connect handles POST /api/v1/admin/connect.
func (h *PaymentsHandler) Connect(w http.ResponseWriter, r *http.Request) {
	url, err := h.connect.Connect(r.Context(), middleware.SellerIDFromContext(r.Context()))
	h.writeRedirect(w, r, url, err)
}

// Refresh handles POST /api/v1/admin/connect/refresh.
func (h *PaymentsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	url, err := h.connect.Refresh(r.Context(), middleware.SellerIDFromContext(r.Context()))
	h.writeRedirect(w, r, url, err)
}

// Status handles GET /api/v1/admin/connect/status.
func (h *PaymentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.connect.Status(r.Context(), middleware.SellerIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// Subscription handles GET /api/v1/admin/subscription.
func (h *PaymentsHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	access, err := h.subscriptions.Access(r.Context(), middleware.SellerIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, access)
}

// Subscribe handles POST /api/v1/admin/subscription.
func (h *PaymentsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	url, err := h.subscriptions.Subscribe(r.Context(), middleware.SellerIDFromContext(r.Context()))
	h.writeRedirect(w, r, url, err)
}

// CancelSubscription handles POST /api/v1/admin/subscription/cancel.
func (h *PaymentsHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.subscriptions.Cancel(r.Context(), middleware.SellerIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *PaymentsHandler) writeRedirect(w http.ResponseWriter, r *http.Request, url string, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RedirectResponse{URL: url})
}
