package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/pkg/database"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

const profileColumns = `id, email, password_hash, username, business_name,
		COALESCE(business_description, ''), COALESCE(business_logo_url, ''), COALESCE(hero_banner_url, ''),
		COALESCE(stripe_account_id, ''), stripe_onboarding_complete, stripe_charges_enabled, stripe_payouts_enabled,
		created_at, updated_at`

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	pool database.TxBeginner
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(pool database.TxBeginner) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Register inserts a new seller and its companion rows in one transaction.
func (r *ProfileRepository) Register(ctx context.Context, reg repository.Registration) error {
	p := reg.Profile

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, email, password_hash, username, business_name, business_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		p.ID,
		p.Email,
		p.PasswordHash,
		p.Username,
		p.BusinessName,
		p.BusinessDescription,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			field := violatedColumn(err, "username", "email")
			value := p.Username
			if field == "email" {
				value = p.Email
			}
			return apperrors.AlreadyExists("profile", field, value)
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	s := reg.Settings
	_, err = tx.Exec(ctx, `
		INSERT INTO settings (profile_id, button_color, button_hover_color, text_color, text_hover_color)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, s.ButtonColor, s.ButtonHoverColor, s.TextColor, s.TextHoverColor,
	)
	if err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}

	if _, err = tx.Exec(ctx, `INSERT INTO qr_code_metrics (profile_id) VALUES ($1)`, p.ID); err != nil {
		return fmt.Errorf("insert qr metrics: %w", err)
	}

	sub := reg.Subscription
	_, err = tx.Exec(ctx, `
		INSERT INTO subscriptions (profile_id, status, trial_end, plan_name, plan_price)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, sub.Status, sub.TrialEnd, sub.PlanName, sub.PlanPriceCents,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.scanProfile(ctx, "GetProfileByID", `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

// GetByUsername retrieves the profile behind a storefront URL.
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.scanProfile(ctx, "GetProfileByUsername", `SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username)
}

// GetByEmail retrieves a profile by login email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.scanProfile(ctx, "GetProfileByEmail", `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
}

// Update modifies the storefront fields of an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE profiles
		SET username = $1, business_name = $2, business_description = NULLIF($3, ''),
		    business_logo_url = NULLIF($4, ''), hero_banner_url = NULLIF($5, ''), updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, query,
		p.Username,
		p.BusinessName,
		p.BusinessDescription,
		p.LogoURL,
		p.HeroBannerURL,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("profile", "username", p.Username)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", p.ID)
	}
	return nil
}

// SetPaymentAccount stores the connected account on a profile.
func (r *ProfileRepository) SetPaymentAccount(ctx context.Context, profileID string, pay domain.Payments) error {
	query := `
		UPDATE profiles
		SET stripe_account_id = NULLIF($1, ''), stripe_onboarding_complete = $2,
		    stripe_charges_enabled = $3, stripe_payouts_enabled = $4, updated_at = NOW()
		WHERE id = $5`

	ct, err := r.pool.Exec(ctx, query, pay.AccountID, pay.OnboardingComplete, pay.ChargesEnabled, pay.PayoutsEnabled, profileID)
	if err != nil {
		return fmt.Errorf("set payment account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", profileID)
	}
	return nil
}

// SyncPaymentAccount copies provider flags onto the profile owning the account.
func (r *ProfileRepository) SyncPaymentAccount(ctx context.Context, pay domain.Payments) error {
	query := `
		UPDATE profiles
		SET stripe_onboarding_complete = $1, stripe_charges_enabled = $2,
		    stripe_payouts_enabled = $3, updated_at = NOW()
		WHERE stripe_account_id = $4`

	ct, err := r.pool.Exec(ctx, query, pay.OnboardingComplete, pay.ChargesEnabled, pay.PayoutsEnabled, pay.AccountID)
	if err != nil {
		return fmt.Errorf("sync payment account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment account", pay.AccountID)
	}
	return nil
}

func (r *ProfileRepository) scanProfile(ctx context.Context, op, query string, args ...any) (_ *domain.Profile, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var p domain.Profile
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.Username,
		&p.BusinessName,
		&p.BusinessDescription,
		&p.LogoURL,
		&p.HeroBannerURL,
		&p.Payments.AccountID,
		&p.Payments.OnboardingComplete,
		&p.Payments.ChargesEnabled,
		&p.Payments.PayoutsEnabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}
