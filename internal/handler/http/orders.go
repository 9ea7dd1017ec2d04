package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pwerioflow/link/internal/export"
	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/middleware"
	"github.com/pwerioflow/link/pkg/pagination"
)

// OrderHandler lists and exports the seller's paid orders.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/admin/orders?page=&per_page=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), middleware.SellerIDFromContext(r.Context()), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Export handles GET /api/v1/admin/orders/export. The workbook is built in
// memory so a failure can still be reported as JSON.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	filename, err := h.service.Export(r.Context(), middleware.SellerIDFromContext(r.Context()), &buf)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export", slog.String("error", err.Error()))
	}
}
