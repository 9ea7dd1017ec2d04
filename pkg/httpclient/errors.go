package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// errorBody is the {"error": "..."} shape every API in this module returns.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ParseResponseError consumes and closes a non-2xx response and returns an
// *apperrors.AppError carrying the server's status and its message verbatim.
// Bodies without an "error" string fall back to a generic message that
// names service.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil && strings.TrimSpace(body.Error) != "" {
		code := body.Code
		if code == "" {
			code = codeForStatus(resp.StatusCode)
		}
		return &apperrors.AppError{
			Code:    code,
			Message: body.Error,
			Status:  resp.StatusCode,
			Err:     sentinelForStatus(resp.StatusCode),
		}
	}

	return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, strings.TrimSpace(string(raw)))
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "UPSTREAM_ERROR"
}

func sentinelForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail
	}
	if status >= 500 {
		return apperrors.ErrInternal
	}
	return nil
}
