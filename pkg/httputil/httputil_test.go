package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/logger"
	"github.com/pwerioflow/link/pkg/validator"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]string{"url": "https://checkout.example/s/1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"url":"https://checkout.example/s/1"}`, rec.Body.String())
}

func TestWriteError_AppErrorMessageIsVerbatim(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-1"))

	WriteError(rec, req, apperrors.InvalidInput("Seller not configured for payments"), slog.Default())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Seller not configured for payments", body.Error)
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.Equal(t, "corr-1", body.RequestID)
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("insert: %w", apperrors.ErrAlreadyExists), http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("parse: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{fmt.Errorf("call: %w", apperrors.ErrServiceUnavail), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, slog.Default())
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.code, decodeBody(t, rec).Code)
	}
}

func TestWriteError_UnknownIsInternalAndLogged(t *testing.T) {
	var buf bytes.Buffer
	fallback := logger.NewWithWriter("test", "error", &buf)

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: boom"), fallback)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec).Error)
	assert.Contains(t, buf.String(), "pq: boom")
}

func TestWriteError_PrefersContextLogger(t *testing.T) {
	var ctxBuf, fallbackBuf bytes.Buffer
	ctxLogger := logger.NewWithWriter("ctx", "error", &ctxBuf)
	fallback := logger.NewWithWriter("fallback", "error", &fallbackBuf)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.NewContext(req.Context(), ctxLogger))

	WriteError(httptest.NewRecorder(), req, apperrors.Internal(errors.New("disk full")), fallback)

	assert.Contains(t, ctxBuf.String(), "disk full")
	assert.Empty(t, fallbackBuf.String())
}

func TestWriteValidationError(t *testing.T) {
	type req struct {
		Color string `json:"button_color" validate:"required"`
	}
	err := validator.Validate(req{})

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "is required", body.Fields["button_color"])

	rec = httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: EOF"))
	assert.Equal(t, "decode request body: EOF", decodeBody(t, rec).Error)
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "4b3a2c1d-0000-4000-8000-000000000001")
	assert.True(t, ok)
	assert.Equal(t, "4b3a2c1d-0000-4000-8000-000000000001", id.String())

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "nope")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeBody(t, rec).Code)
}
