// Package checkout hands a cart over to the hosted payment flow.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pwerioflow/link/internal/cart"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/httpclient"
	"github.com/pwerioflow/link/pkg/logger"
)

// Shopper-facing messages.
const (
	MsgEmptyCart       = "cart is empty"
	MsgInProgress      = "checkout already in progress"
	MsgProcessingError = "Error processing checkout"
)

// IdempotencyHeader carries the cart id and revision so that resubmitting
// the same cart reuses the same payment session.
const IdempotencyHeader = "Idempotency-Key"

// ForwardedForHeader carries the shopper's address to the endpoint.
const ForwardedForHeader = "X-Forwarded-For"

// HTTPDoer sends a request. *httpclient.Client satisfies it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Request is the body posted to the checkout session endpoint.
type Request struct {
	Items    []cart.Item `json:"items"`
	Username string      `json:"username"`
}

type response struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Outcome is what the shopper sees after clicking checkout: either a
// redirect target or an alert. ServerReported marks alerts whose text came
// from the checkout endpoint.
type Outcome struct {
	RedirectURL    string `json:"redirect_url,omitempty"`
	Alert          string `json:"alert,omitempty"`
	ServerReported bool   `json:"server_reported,omitempty"`
}

// Redirected reports whether the shopper is being sent to the payment page.
func (o Outcome) Redirected() bool {
	return o.RedirectURL != ""
}

// Initiator posts cart contents to the checkout session endpoint.
type Initiator struct {
	client   HTTPDoer
	endpoint string
	logger   *slog.Logger
}

// NewInitiator creates an Initiator posting to endpoint.
func NewInitiator(client HTTPDoer, endpoint string, logger *slog.Logger) *Initiator {
	return &Initiator{client: client, endpoint: endpoint, logger: logger}
}

// Initiate sends one checkout request for the cart carried by ctx (see
// cart.NewContext) on behalf of the seller named username. The store is
// only read; its items survive any failure. A ctx without a cart is treated
// as an empty cart.
func (in *Initiator) Initiate(ctx context.Context, username string) Outcome {
	store := cart.FromContext(ctx)
	if store == nil {
		return Outcome{Alert: MsgEmptyCart}
	}
	items, revision := store.Snapshot()
	if len(items) == 0 {
		return Outcome{Alert: MsgEmptyCart}
	}
	if !store.BeginCheckout() {
		return Outcome{Alert: MsgInProgress}
	}
	defer store.EndCheckout()

	log := logger.WithContext(ctx, in.logger).With(
		slog.String("cart_id", store.ID()),
		slog.String("username", username),
	)

	payload, err := json.Marshal(Request{Items: items, Username: username})
	if err != nil {
		log.ErrorContext(ctx, "encode checkout request", slog.String("error", err.Error()))
		return Outcome{Alert: MsgProcessingError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.ErrorContext(ctx, "build checkout request", slog.String("error", err.Error()))
		return Outcome{Alert: MsgProcessingError}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, IdempotencyKey(store.ID(), revision))
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	// The endpoint rate limits per shopper, not per calling server.
	if ip := logger.ClientIPFromContext(ctx); ip != "" {
		req.Header.Set(ForwardedForHeader, ip)
	}

	resp, err := in.client.Do(ctx, req)
	if err != nil {
		log.WarnContext(ctx, "checkout request failed", slog.String("error", err.Error()))
		return Outcome{Alert: MsgProcessingError}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return in.rejected(ctx, log, httpclient.ParseResponseError(resp, "checkout"), resp.StatusCode)
	}
	defer func() { _ = resp.Body.Close() }()

	var body response
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || json.Unmarshal(raw, &body) != nil {
		log.WarnContext(ctx, "unreadable checkout response", slog.Int("status", resp.StatusCode))
		return Outcome{Alert: MsgProcessingError}
	}

	if body.URL != "" {
		log.InfoContext(ctx, "checkout session ready")
		return Outcome{RedirectURL: body.URL}
	}
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return in.rejected(ctx, log, apperrors.InvalidInput(body.Error), resp.StatusCode)
	}

	log.WarnContext(ctx, "checkout response without url", slog.Int("status", resp.StatusCode))
	return Outcome{Alert: MsgProcessingError}
}

// rejected turns an endpoint error into an alert. Only structured errors
// carry a message meant for the shopper.
func (in *Initiator) rejected(ctx context.Context, log *slog.Logger, err error, status int) Outcome {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		log.InfoContext(ctx, "checkout rejected",
			slog.Int("status", status),
			slog.String("reason", appErr.Message),
		)
		return Outcome{Alert: appErr.Message, ServerReported: true}
	}
	log.WarnContext(ctx, "unexpected checkout response",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	return Outcome{Alert: MsgProcessingError}
}

// IdempotencyKey identifies one exact cart content.
func IdempotencyKey(cartID string, revision uint64) string {
	return cartID + ":" + strconv.FormatUint(revision, 10)
}
