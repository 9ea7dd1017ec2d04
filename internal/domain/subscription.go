package domain

import "time"

// Subscription statuses as stored.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionCanceled = "canceled"
	SubscriptionPastDue  = "past_due"
	SubscriptionTrialing = "trialing"
)

// Plan defaults.
const (
	PlanName       = "basic"
	PlanPriceCents = 2990
	PlanCurrency   = "brl"
)

// AccessReason explains an access decision.
type AccessReason string

const (
	AccessTrial          AccessReason = "trial"
	AccessActive         AccessReason = "active"
	AccessExpired        AccessReason = "expired"
	AccessNoSubscription AccessReason = "no_subscription"
)

// Subscription is a seller's platform plan.
type Subscription struct {
	ProfileID          string     `json:"-"`
	CustomerID         string     `json:"customer_id,omitempty"`
	SubscriptionID     string     `json:"subscription_id,omitempty"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	TrialEnd           *time.Time `json:"trial_end"`
	PlanName           string     `json:"plan_name"`
	PlanPriceCents     int64      `json:"plan_price_cents"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Access is the result of checking a seller's subscription.
type Access struct {
	HasAccess    bool          `json:"has_access"`
	Reason       AccessReason  `json:"reason"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// CheckAccess decides whether the seller may sell. A trial that has not yet
// ended wins over any status; otherwise only "active" grants access.
func CheckAccess(sub *Subscription, now time.Time) Access {
	if sub == nil {
		return Access{Reason: AccessNoSubscription}
	}
	if sub.TrialEnd != nil && sub.TrialEnd.After(now) {
		return Access{HasAccess: true, Reason: AccessTrial, Subscription: sub}
	}
	if sub.Status == SubscriptionActive {
		return Access{HasAccess: true, Reason: AccessActive, Subscription: sub}
	}
	return Access{Reason: AccessExpired, Subscription: sub}
}

// NewTrial starts a trial subscription of days length.
func NewTrial(profileID string, now time.Time, days int) Subscription {
	end := now.AddDate(0, 0, days)
	return Subscription{
		ProfileID:      profileID,
		Status:         SubscriptionTrialing,
		TrialEnd:       &end,
		PlanName:       PlanName,
		PlanPriceCents: PlanPriceCents,
	}
}
