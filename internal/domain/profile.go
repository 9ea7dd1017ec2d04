package domain

import "time"

// Profile is a seller account and the public face of their storefront.
type Profile struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	Username            string    `json:"username"`
	BusinessName        string    `json:"business_name"`
	BusinessDescription string    `json:"business_description,omitempty"`
	LogoURL             string    `json:"business_logo_url,omitempty"`
	HeroBannerURL       string    `json:"hero_banner_url,omitempty"`
	Payments            Payments  `json:"payments"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Payments mirrors the seller's connected payment account.
type Payments struct {
	AccountID          string `json:"account_id,omitempty"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	ChargesEnabled     bool   `json:"charges_enabled"`
	PayoutsEnabled     bool   `json:"payouts_enabled"`
}

// CanAcceptPayments reports whether checkout sessions may be created on the
// seller's account.
func (p *Profile) CanAcceptPayments() bool {
	return p.Payments.AccountID != "" && p.Payments.ChargesEnabled
}

// ReservedUsernames cannot be registered because they collide with
// top-level routes or the demo page.
var ReservedUsernames = map[string]struct{}{
	"admin": {}, "api": {}, "demo": {}, "login": {}, "media": {},
	"metrics": {}, "healthz": {}, "readyz": {}, "static": {},
}

// IsReservedUsername reports whether username is reserved.
func IsReservedUsername(username string) bool {
	_, ok := ReservedUsernames[username]
	return ok
}

// Default theme colours.
const (
	DefaultButtonColor      = "#EBE4DA"
	DefaultButtonHoverColor = "#6C3F21"
	DefaultTextColor        = "#374151"
	DefaultTextHoverColor   = "#ffffff"
)

// Settings is a storefront's colour theme.
type Settings struct {
	ProfileID        string `json:"-"`
	ButtonColor      string `json:"button_color"`
	ButtonHoverColor string `json:"button_hover_color"`
	TextColor        string `json:"text_color"`
	TextHoverColor   string `json:"text_hover_color"`
}

// DefaultSettings returns the theme a new storefront starts with.
func DefaultSettings(profileID string) Settings {
	return Settings{
		ProfileID:        profileID,
		ButtonColor:      DefaultButtonColor,
		ButtonHoverColor: DefaultButtonHoverColor,
		TextColor:        DefaultTextColor,
		TextHoverColor:   DefaultTextHoverColor,
	}
}

// WithDefaults fills empty colours with the defaults.
func (s Settings) WithDefaults() Settings {
	if s.ButtonColor == "" {
		s.ButtonColor = DefaultButtonColor
	}
	if s.ButtonHoverColor == "" {
		s.ButtonHoverColor = DefaultButtonHoverColor
	}
	if s.TextColor == "" {
		s.TextColor = DefaultTextColor
	}
	if s.TextHoverColor == "" {
		s.TextHoverColor = DefaultTextHoverColor
	}
	return s
}

// QRMetrics counts storefront visits that arrived through the QR code.
type QRMetrics struct {
	ProfileID     string     `json:"-"`
	ScanCount     int64      `json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at"`
}
