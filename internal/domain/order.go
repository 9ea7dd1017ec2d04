package domain

import "time"

// Order statuses.
const (
	OrderPaid = "paid"
)

// Currency is what storefront prices are charged in.
const Currency = "brl"

// Order records a completed storefront purchase.
type Order struct {
	ID                string    `json:"id"`
	ProfileID         string    `json:"-"`
	ProviderSessionID string    `json:"provider_session_id"`
	AmountTotalCents  int64     `json:"amount_total_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CustomerEmail     string    `json:"customer_email,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
