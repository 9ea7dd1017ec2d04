package http

import (
	"log/slog"
	"net/http"

	"github.com/pwerioflow/link/internal/service"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/middleware"
)

// MediaHandler accepts image and download uploads from the editor.
type MediaHandler struct {
	service *service.MediaService
	logger  *slog.Logger
}

// NewMediaHandler creates a new media HTTP handler.
func NewMediaHandler(svc *service.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{service: svc, logger: logger}
}

// UploadResponse is the stored file's key and public URL.
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload handles POST /api/v1/admin/uploads?bucket=logos|products|downloads
// (multipart/form-data, field "file").
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+(1<<20))

	if err := r.ParseMultipartForm(maxSize); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("failed to parse multipart form: "+err.Error()), h.logger)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("file is required"), h.logger)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.service.Upload(r.Context(), &service.UploadInput{
		SellerID:    middleware.SellerIDFromContext(r.Context()),
		Bucket:      r.URL.Query().Get("bucket"),
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, UploadResponse{Key: result.Key, URL: result.URL})
}
