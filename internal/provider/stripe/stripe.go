// Package stripe implements provider.Provider on Stripe Connect.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/pwerioflow/link/internal/provider"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/httpclient"
)

// paymentMethods accepted on storefront checkouts.
var paymentMethods = []string{"card", "pix"}

// Provider talks to the Stripe API through an injected HTTP client, so
// retries and circuit breaking happen below the SDK.
type Provider struct {
	api           *client.API
	webhookSecret string
}

// NewProvider creates a Stripe provider sending requests through httpClient.
func NewProvider(secretKey, webhookSecret string, httpClient *http.Client, logger *slog.Logger) *Provider {
	cfg := &stripego.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     &leveledLogger{logger: logger},
		MaxNetworkRetries: stripego.Int64(0),
	}
	return newProvider(secretKey, webhookSecret, cfg)
}

func newProvider(secretKey, webhookSecret string, cfg *stripego.BackendConfig) *Provider {
	backends := &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, cfg),
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, cfg),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, cfg),
	}
	return &Provider{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

// CreateAccount creates an Express connected account.
func (p *Provider) CreateAccount(ctx context.Context, input *provider.AccountInput) (*provider.Account, error) {
	params := &stripego.AccountParams{
		Type:    stripego.String(string(stripego.AccountTypeExpress)),
		Country: stripego.String(input.Country),
		Email:   stripego.String(input.Email),
		BusinessProfile: &stripego.AccountBusinessProfileParams{
			Name: stripego.String(input.BusinessName),
		},
	}
	params.Context = ctx

	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return nil, mapError("create account", err)
	}
	return toAccount(acct), nil
}

// GetAccount fetches a connected account.
func (p *Provider) GetAccount(ctx context.Context, accountID string) (*provider.Account, error) {
	params := &stripego.AccountParams{}
	params.Context = ctx

	acct, err := p.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, mapError("get account", err)
	}
	return toAccount(acct), nil
}

// CreateAccountLink creates an onboarding link.
func (p *Provider) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripego.AccountLinkParams{
		Account:    stripego.String(accountID),
		RefreshURL: stripego.String(refreshURL),
		ReturnURL:  stripego.String(returnURL),
		Type:       stripego.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return "", mapError("create account link", err)
	}
	return link.URL, nil
}

// CreateCheckoutSession creates a payment-mode session on the seller's
// connected account. Funds settle there directly.
func (p *Provider) CreateCheckoutSession(ctx context.Context, input *provider.CheckoutInput) (*provider.Session, error) {
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice(paymentMethods),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:         stripego.String(input.SuccessURL),
		CancelURL:          stripego.String(input.CancelURL),
	}
	for _, li := range input.LineItems {
		product := &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripego.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripego.String(li.Description)
		}
		if li.ImageURL != "" {
			product.Images = stripego.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripego.String(li.Currency),
				ProductData: product,
				UnitAmount:  stripego.Int64(li.UnitAmount),
			},
			Quantity: stripego.Int64(li.Quantity),
		})
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetStripeAccount(input.AccountID)
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapError("create checkout session", err)
	}
	return &provider.Session{ID: sess.ID, URL: sess.URL}, nil
}

// CreateCustomer creates a billing customer on the platform account.
func (p *Provider) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	params := &stripego.CustomerParams{Email: stripego.String(email)}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	cus, err := p.api.Customers.New(params)
	if err != nil {
		return "", mapError("create customer", err)
	}
	return cus.ID, nil
}

// CreateSubscriptionCheckout creates a subscription-mode session with an
// inline recurring price.
func (p *Provider) CreateSubscriptionCheckout(ctx context.Context, input *provider.SubscriptionCheckoutInput) (*provider.Session, error) {
	params := &stripego.CheckoutSessionParams{
		Customer:           stripego.String(input.CustomerID),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		SuccessURL:         stripego.String(input.SuccessURL),
		CancelURL:          stripego.String(input.CancelURL),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency: stripego.String(input.Currency),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(input.ProductName),
				},
				UnitAmount: stripego.Int64(input.UnitAmount),
				Recurring: &stripego.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripego.String(input.Interval),
				},
			},
			Quantity: stripego.Int64(1),
		}},
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapError("create subscription checkout", err)
	}
	return &provider.Session{ID: sess.ID, URL: sess.URL}, nil
}

// GetSubscription fetches a subscription.
func (p *Provider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, mapError("get subscription", err)
	}
	return toSubscription(sub), nil
}

// CancelAtPeriodEnd schedules cancellation at the end of the current period.
func (p *Provider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripego.SubscriptionParams{CancelAtPeriodEnd: stripego.Bool(true)}
	params.Context = ctx

	if _, err := p.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return mapError("cancel subscription", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// fields of the event types the service handles.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidSignature, err)
	}

	out := &provider.WebhookEvent{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
	}
	if evt.Data == nil {
		return out, nil
	}
	raw := evt.Data.Raw

	switch out.Type {
	case provider.EventCheckoutCompleted:
		var s stripego.CheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = toCompletedSession(&s)
	case provider.EventSubscriptionUpdated, provider.EventSubscriptionDeleted:
		var s stripego.Subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = toSubscription(&s)
	case provider.EventInvoicePaymentFailed:
		var inv stripego.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Subscription != nil {
			out.InvoiceSubID = inv.Subscription.ID
		}
	case provider.EventAccountUpdated:
		var a stripego.Account
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out.Account = toAccount(&a)
	}
	return out, nil
}

func toAccount(a *stripego.Account) *provider.Account {
	return &provider.Account{
		ID:               a.ID,
		DetailsSubmitted: a.DetailsSubmitted,
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
	}
}

func toSubscription(s *stripego.Subscription) *provider.Subscription {
	out := &provider.Subscription{
		ID:          s.ID,
		Status:      string(s.Status),
		PeriodStart: unixPtr(s.CurrentPeriodStart),
		PeriodEnd:   unixPtr(s.CurrentPeriodEnd),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out
}

func toCompletedSession(s *stripego.CheckoutSession) *provider.CompletedSession {
	out := &provider.CompletedSession{
		ID:          s.ID,
		Mode:        string(s.Mode),
		AmountTotal: s.AmountTotal,
		Currency:    string(s.Currency),
		Metadata:    s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	switch {
	case s.CustomerDetails != nil && s.CustomerDetails.Email != "":
		out.CustomerEmail = s.CustomerDetails.Email
	default:
		out.CustomerEmail = s.CustomerEmail
	}
	return out
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// mapError turns SDK errors into application errors. Rejections carry
// Stripe's message; outages become 503s.
func mapError(op string, err error) error {
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return apperrors.ServiceUnavailable("payment provider unavailable")
	}
	var se *stripego.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode >= http.StatusInternalServerError {
			return apperrors.ServiceUnavailable("payment provider unavailable")
		}
		msg := se.Msg
		if msg == "" {
			msg = op + " failed"
		}
		return apperrors.PaymentFailed(msg)
	}
	return fmt.Errorf("stripe %s: %w", op, err)
}
