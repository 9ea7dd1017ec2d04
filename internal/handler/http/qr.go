package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/middleware"
)

// QRHandler serves the seller's storefront QR code and its scan counter.
type QRHandler struct {
	service *service.QRService
	logger  *slog.Logger
}

// NewQRHandler creates a new QR HTTP handler.
func NewQRHandler(svc *service.QRService, logger *slog.Logger) *QRHandler {
	return &QRHandler{service: svc, logger: logger}
}

// Info handles GET /api/v1/admin/qr.
func (h *QRHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context(), middleware.SellerIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// PNG handles GET /api/v1/admin/qr.png?size=N.
func (h *QRHandler) PNG(w http.ResponseWriter, r *http.Request) {
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	png, err := h.service.PNG(r.Context(), middleware.SellerIDFromContext(r.Context()), size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="qrcode.png"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write qr code", slog.String("error", err.Error()))
	}
}

// Reset handles POST /api/v1/admin/qr/reset.
func (h *QRHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context(), middleware.SellerIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
