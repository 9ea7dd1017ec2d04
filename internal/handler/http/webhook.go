package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/pwerioflow/link/internal/service"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/httputil"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

const maxWebhookBody = 512 << 10

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	service *service.WebhookService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(svc *service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{service: svc, logger: logger}
}

// ReceivedResponse acknowledges a webhook.
type ReceivedResponse struct {
	Received bool `json:"received"`
}

// Receive handles POST /api/v1/webhooks/stripe. The raw body is verified
// against the signature before anything is parsed.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("failed to read body"), h.logger)
		return
	}

	if err := h.service.Receive(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReceivedResponse{Received: true})
}
