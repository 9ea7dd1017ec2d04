package mock

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pwerioflow/link/internal/provider"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// Provider is an in-memory payment provider that always succeeds.
// It is intended for development and testing purposes. Hosted pages point
// at BaseURL so a local deployment can click through them.
type Provider struct {
	BaseURL string

	secret string

	mu            sync.Mutex
	accounts      map[string]*provider.Account
	subscriptions map[string]*provider.Subscription
	sessions      map[string]*provider.Session
}

// NewProvider creates a new mock payment provider. Webhooks are signed and
// verified with secret.
func NewProvider(baseURL, secret string) *Provider {
	return &Provider{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		secret:        secret,
		accounts:      make(map[string]*provider.Account),
		subscriptions: make(map[string]*provider.Subscription),
		sessions:      make(map[string]*provider.Session),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateAccount registers a connected account that is immediately enabled.
func (p *Provider) CreateAccount(_ context.Context, _ *provider.AccountInput) (*provider.Account, error) {
	acct := &provider.Account{
		ID:               "mock_acct_" + uuid.NewString(),
		DetailsSubmitted: true,
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
	}

	p.mu.Lock()
	p.accounts[acct.ID] = acct
	p.mu.Unlock()

	cpy := *acct
	return &cpy, nil
}

// GetAccount returns an account created by CreateAccount.
func (p *Provider) GetAccount(_ context.Context, accountID string) (*provider.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[accountID]
	if !ok {
		return nil, apperrors.PaymentFailed("No such account: " + accountID)
	}
	cpy := *acct
	return &cpy, nil
}

// CreateAccountLink returns a fake onboarding URL.
func (p *Provider) CreateAccountLink(_ context.Context, accountID, _, returnURL string) (string, error) {
	return fmt.Sprintf("%s/onboarding/%s?return=%s", p.BaseURL, accountID, returnURL), nil
}

// CreateCheckoutSession returns a fake hosted page. Repeated idempotency keys
// yield the same session.
func (p *Provider) CreateCheckoutSession(_ context.Context, input *provider.CheckoutInput) (*provider.Session, error) {
	if len(input.LineItems) == 0 {
		return nil, apperrors.PaymentFailed("line_items is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if input.IdempotencyKey != "" {
		if sess, ok := p.sessions[input.IdempotencyKey]; ok {
			cpy := *sess
			return &cpy, nil
		}
	}

	id := "mock_cs_" + uuid.NewString()
	sess := &provider.Session{ID: id, URL: p.BaseURL + "/pay/" + id}
	if input.IdempotencyKey != "" {
		p.sessions[input.IdempotencyKey] = sess
	}
	cpy := *sess
	return &cpy, nil
}

// CreateCustomer returns a fresh customer id.
func (p *Provider) CreateCustomer(_ context.Context, _ string, _ map[string]string) (string, error) {
	return "mock_cus_" + uuid.NewString(), nil
}

// CreateSubscriptionCheckout records an active subscription for the customer
// and returns a fake hosted page.
func (p *Provider) CreateSubscriptionCheckout(_ context.Context, input *provider.SubscriptionCheckoutInput) (*provider.Session, error) {
	now := time.Now().UTC()
	end := now.AddDate(0, 1, 0)
	sub := &provider.Subscription{
		ID:          "mock_sub_" + uuid.NewString(),
		CustomerID:  input.CustomerID,
		Status:      "active",
		PeriodStart: &now,
		PeriodEnd:   &end,
	}

	p.mu.Lock()
	p.subscriptions[sub.ID] = sub
	p.mu.Unlock()

	id := "mock_cs_" + uuid.NewString()
	return &provider.Session{ID: id, URL: p.BaseURL + "/subscribe/" + id}, nil
}

// GetSubscription returns a subscription created by CreateSubscriptionCheckout.
func (p *Provider) GetSubscription(_ context.Context, subscriptionID string) (*provider.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, apperrors.PaymentFailed("No such subscription: " + subscriptionID)
	}
	cpy := *sub
	return &cpy, nil
}

// CancelAtPeriodEnd always succeeds.
func (p *Provider) CancelAtPeriodEnd(_ context.Context, _ string) error {
	return nil
}

// Sign returns a signature header for payload in the "t=<unix>,v1=<hex>"
// form ParseWebhook expects.
func (p *Provider) Sign(payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + p.mac(ts, payload)
}

func (p *Provider) mac(ts string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(p.secret))
	h.Write([]byte(ts))
	h.Write([]byte("."))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ParseWebhook verifies signature and decodes payload, which must already be
// a provider.WebhookEvent document.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	var ts, sig string
	for _, part := range strings.Split(signature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" || !hmac.Equal([]byte(sig), []byte(p.mac(ts, payload))) {
		return nil, provider.ErrInvalidSignature
	}

	var evt provider.WebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &evt, nil
}
