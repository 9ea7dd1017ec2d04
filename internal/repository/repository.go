package repository

import (
	"context"
	"time"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/pagination"
)

// Registration is everything created for a new seller in one transaction.
type Registration struct {
	Profile      *domain.Profile
	Settings     domain.Settings
	Subscription domain.Subscription
}

// ProfileRepository persists sellers.
type ProfileRepository interface {
	// Register inserts the profile with its settings, QR metrics and
	// subscription rows atomically.
	Register(ctx context.Context, reg Registration) error

	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByUsername(ctx context.Context, username string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)

	// Update writes the editable storefront fields.
	Update(ctx context.Context, p *domain.Profile) error

	// SetPaymentAccount stores the connected account id and flags.
	SetPaymentAccount(ctx context.Context, profileID string, payments domain.Payments) error

	// SyncPaymentAccount updates the flags of whichever profile owns the account.
	SyncPaymentAccount(ctx context.Context, payments domain.Payments) error
}

// SettingsRepository persists storefront themes.
type SettingsRepository interface {
	Get(ctx context.Context, profileID string) (domain.Settings, error)
	Upsert(ctx context.Context, s domain.Settings) error
}

// LinkRepository persists storefront links.
type LinkRepository interface {
	List(ctx context.Context, profileID string, activeOnly bool) ([]domain.Link, error)
	GetByID(ctx context.Context, profileID, id string) (*domain.Link, error)
	Create(ctx context.Context, l *domain.Link) error
	Update(ctx context.Context, l *domain.Link) error
	Delete(ctx context.Context, profileID, id string) error
}

// ProductRepository persists catalog entries.
type ProductRepository interface {
	List(ctx context.Context, profileID string, activeOnly bool) ([]domain.Product, error)
	GetByID(ctx context.Context, profileID, id string) (*domain.Product, error)

	// GetActiveByIDs returns the seller's active products among ids. Ids that
	// are missing, inactive or owned by another seller are left out.
	GetActiveByIDs(ctx context.Context, profileID string, ids []string) ([]domain.Product, error)

	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, profileID, id string) error
}

// SubscriptionPeriod is the billing window reported by the provider.
type SubscriptionPeriod struct {
	Start *time.Time
	End   *time.Time
}

// SubscriptionRepository persists platform plans.
type SubscriptionRepository interface {
	GetByProfile(ctx context.Context, profileID string) (*domain.Subscription, error)
	SetCustomerID(ctx context.Context, profileID, customerID string) error

	// ActivateByCustomer marks the plan of the profile billed to customerID as active.
	ActivateByCustomer(ctx context.Context, customerID, subscriptionID string, period SubscriptionPeriod) error

	// UpdateBySubscriptionID sets status and, when given, the period.
	UpdateBySubscriptionID(ctx context.Context, subscriptionID, status string, period SubscriptionPeriod) error
}

// QRRepository persists scan counters.
type QRRepository interface {
	Get(ctx context.Context, profileID string) (domain.QRMetrics, error)
	RecordScan(ctx context.Context, profileID string, at time.Time) error
	Reset(ctx context.Context, profileID string) error
}

// OrderRepository persists completed purchases.
type OrderRepository interface {
	// Create inserts o unless an order for the same provider session exists.
	// It reports whether a row was written.
	Create(ctx context.Context, o *domain.Order) (bool, error)
	List(ctx context.Context, profileID string, page pagination.Params) ([]domain.Order, int, error)
	ListAll(ctx context.Context, profileID string) ([]domain.Order, error)
}
