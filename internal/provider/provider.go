package provider

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidSignature is returned by ParseWebhook when the payload was not
// signed with the configured secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Checkout session modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Webhook event types the service acts on.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventAccountUpdated       = "account.updated"
)

// AccountInput holds the parameters for creating a connected seller account.
type AccountInput struct {
	Email        string
	BusinessName string
	Country      string
}

// Account is a connected seller account as the provider reports it.
type Account struct {
	ID               string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
}

// LineItem is one priced product line in a hosted checkout.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Currency    string
	Quantity    int64
}

// CheckoutInput holds the parameters for a one-off purchase settled on a
// connected account.
type CheckoutInput struct {
	AccountID      string
	LineItems      []LineItem
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// SubscriptionCheckoutInput holds the parameters for a recurring plan checkout.
type SubscriptionCheckoutInput struct {
	CustomerID  string
	ProductName string
	UnitAmount  int64
	Currency    string
	Interval    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is a hosted checkout the shopper is redirected to.
type Session struct {
	ID  string
	URL string
}

// Subscription is a recurring plan as the provider reports it.
type Subscription struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	Status      string     `json:"status"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// CompletedSession is the payload of a checkout.session.completed event.
type CompletedSession struct {
	ID             string            `json:"id"`
	Mode           string            `json:"mode"`
	CustomerID     string            `json:"customer_id,omitempty"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	AmountTotal    int64             `json:"amount_total"`
	Currency       string            `json:"currency"`
	CustomerEmail  string            `json:"customer_email,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// WebhookEvent is a verified provider notification reduced to the fields
// the service reads. Exactly one of the payload pointers is set for the
// event types listed above.
type WebhookEvent struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Created      time.Time         `json:"created"`
	Session      *CompletedSession `json:"session,omitempty"`
	Subscription *Subscription     `json:"subscription,omitempty"`
	Account      *Account          `json:"account,omitempty"`
	InvoiceSubID string            `json:"invoice_subscription_id,omitempty"`
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	CreateAccount(ctx context.Context, input *AccountInput) (*Account, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)

	// CreateAccountLink returns a one-time onboarding URL for accountID.
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)

	// CreateCheckoutSession creates a hosted payment on the connected account.
	CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*Session, error)

	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreateSubscriptionCheckout(ctx context.Context, input *SubscriptionCheckoutInput) (*Session, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error

	// ParseWebhook verifies signature and decodes payload.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
