package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/event"
	"github.com/pwerioflow/link/internal/provider"
	"github.com/pwerioflow/link/internal/repository"
	redisrepo "github.com/pwerioflow/link/internal/repository/redis"
	pkgkafka "github.com/pwerioflow/link/pkg/kafka"
	"github.com/pwerioflow/link/pkg/pagination"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

// --- Mock Profile Repository ---

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) Register(ctx context.Context, reg repository.Registration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProfileRepository) SetPaymentAccount(ctx context.Context, profileID string, payments domain.Payments) error {
	args := m.Called(ctx, profileID, payments)
	return args.Error(0)
}

func (m *mockProfileRepository) SyncPaymentAccount(ctx context.Context, payments domain.Payments) error {
	args := m.Called(ctx, payments)
	return args.Error(0)
}

// --- Mock Settings Repository ---

type mockSettingsRepository struct {
	mock.Mock
}

func (m *mockSettingsRepository) Get(ctx context.Context, profileID string) (domain.Settings, error) {
	args := m.Called(ctx, profileID)
	return args.Get(0).(domain.Settings), args.Error(1)
}

func (m *mockSettingsRepository) Upsert(ctx context.Context, s domain.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// --- Mock Link Repository ---

type mockLinkRepository struct {
	mock.Mock
}

func (m *mockLinkRepository) List(ctx context.Context, profileID string, activeOnly bool) ([]domain.Link, error) {
	args := m.Called(ctx, profileID, activeOnly)
	return args.Get(0).([]domain.Link), args.Error(1)
}

func (m *mockLinkRepository) GetByID(ctx context.Context, profileID, id string) (*domain.Link, error) {
	args := m.Called(ctx, profileID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *mockLinkRepository) Create(ctx context.Context, l *domain.Link) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockLinkRepository) Update(ctx context.Context, l *domain.Link) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockLinkRepository) Delete(ctx context.Context, profileID, id string) error {
	args := m.Called(ctx, profileID, id)
	return args.Error(0)
}

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) List(ctx context.Context, profileID string, activeOnly bool) ([]domain.Product, error) {
	args := m.Called(ctx, profileID, activeOnly)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, profileID, id string) (*domain.Product, error) {
	args := m.Called(ctx, profileID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetActiveByIDs(ctx context.Context, profileID string, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, profileID, ids)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, profileID, id string) error {
	args := m.Called(ctx, profileID, id)
	return args.Error(0)
}

// --- Mock Subscription Repository ---

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) GetByProfile(ctx context.Context, profileID string) (*domain.Subscription, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) SetCustomerID(ctx context.Context, profileID, customerID string) error {
	args := m.Called(ctx, profileID, customerID)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) ActivateByCustomer(ctx context.Context, customerID, subscriptionID string, period repository.SubscriptionPeriod) error {
	args := m.Called(ctx, customerID, subscriptionID, period)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID, status string, period repository.SubscriptionPeriod) error {
	args := m.Called(ctx, subscriptionID, status, period)
	return args.Error(0)
}

// --- Mock QR Repository ---

type mockQRRepository struct {
	mock.Mock
}

func (m *mockQRRepository) Get(ctx context.Context, profileID string) (domain.QRMetrics, error) {
	args := m.Called(ctx, profileID)
	return args.Get(0).(domain.QRMetrics), args.Error(1)
}

func (m *mockQRRepository) RecordScan(ctx context.Context, profileID string, at time.Time) error {
	args := m.Called(ctx, profileID, at)
	return args.Error(0)
}

func (m *mockQRRepository) Reset(ctx context.Context, profileID string) error {
	args := m.Called(ctx, profileID)
	return args.Error(0)
}

// --- Mock Order Repository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, o *domain.Order) (bool, error) {
	args := m.Called(ctx, o)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, profileID string, page pagination.Params) ([]domain.Order, int, error) {
	args := m.Called(ctx, profileID, page)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) ListAll(ctx context.Context, profileID string) ([]domain.Order, error) {
	args := m.Called(ctx, profileID)
	return args.Get(0).([]domain.Order), args.Error(1)
}

// --- Mock Provider ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "test" }

func (m *mockProvider) CreateAccount(ctx context.Context, input *provider.AccountInput) (*provider.Account, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Account), args.Error(1)
}

func (m *mockProvider) GetAccount(ctx context.Context, accountID string) (*provider.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Account), args.Error(1)
}

func (m *mockProvider) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, input *provider.CheckoutInput) (*provider.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Session), args.Error(1)
}

func (m *mockProvider) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, email, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateSubscriptionCheckout(ctx context.Context, input *provider.SubscriptionCheckoutInput) (*provider.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Session), args.Error(1)
}

func (m *mockProvider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subscription), args.Error(1)
}

func (m *mockProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *mockProvider) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookEvent), args.Error(1)
}

// --- Mock Checkout Guard ---

type mockCheckoutGuard struct {
	mock.Mock
}

func (m *mockCheckoutGuard) Reserve(ctx context.Context, scope, key string) (string, bool, error) {
	args := m.Called(ctx, scope, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCheckoutGuard) Complete(ctx context.Context, scope, key, url string) error {
	args := m.Called(ctx, scope, key, url)
	return args.Error(0)
}

func (m *mockCheckoutGuard) Release(ctx context.Context, scope, key string) error {
	args := m.Called(ctx, scope, key)
	return args.Error(0)
}

// --- Mock Storefront Cache ---

type mockStorefrontCache struct {
	mock.Mock
}

func (m *mockStorefrontCache) Get(ctx context.Context, username string, load redisrepo.StorefrontLoader) (*domain.Storefront, error) {
	args := m.Called(ctx, username, load)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Storefront), args.Error(1)
}

func (m *mockStorefrontCache) Invalidate(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// --- Mock Storefront Invalidator ---

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(ctx context.Context, username string) {
	m.Called(ctx, username)
}

// --- Mock Checkout Initiator ---

type mockInitiator struct {
	mock.Mock
}

func (m *mockInitiator) Initiate(ctx context.Context, username string) checkout.Outcome {
	args := m.Called(ctx, username)
	return args.Get(0).(checkout.Outcome)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, evt *pkgkafka.Event) error {
	args := m.Called(ctx, topic, evt)
	return args.Error(0)
}

func noopProducer() *event.Producer {
	return event.NewProducer(nil, newTestLogger())
}
