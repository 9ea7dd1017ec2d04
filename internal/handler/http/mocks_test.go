package http

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/pkg/pagination"
)

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
