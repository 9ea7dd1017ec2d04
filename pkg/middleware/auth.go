package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/logger"
)

type contextKey string

const usernameKey contextKey = "username"

// Claims is what a validated admin token asserts.
type Claims struct {
	SellerID string
	Username string
}

// TokenValidator validates a bearer token.
type TokenValidator func(token string) (*Claims, error)

// Auth rejects requests without a valid bearer token and stores the
// seller's identity in the context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, r, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeAuthError(w, r, "invalid authorization header format")
				return
			}

			claims, err := validate(token)
			if err != nil {
				writeAuthError(w, r, "invalid or expired token")
				return
			}

			ctx := logger.WithSellerID(r.Context(), claims.SellerID)
			ctx = context.WithValue(ctx, usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SellerIDFromContext returns the authenticated seller ID.
func SellerIDFromContext(ctx context.Context) string {
	return logger.SellerIDFromContext(ctx)
}

// UsernameFromContext returns the username the token was issued for.
func UsernameFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(usernameKey).(string); ok {
		return u
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorBody{
		Error:     message,
		Code:      "UNAUTHORIZED",
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}
