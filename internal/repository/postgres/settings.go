package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/database"
)

// SettingsRepository implements repository.SettingsRepository using PostgreSQL.
type SettingsRepository struct {
	pool database.DBTX
}

// NewSettingsRepository creates a new PostgreSQL-backed settings repository.
func NewSettingsRepository(pool database.DBTX) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the theme for profileID. A profile without a row gets the
// default theme.
func (r *SettingsRepository) Get(ctx context.Context, profileID string) (domain.Settings, error) {
	query := `
		SELECT button_color, button_hover_color, text_color, text_hover_color
		FROM settings
		WHERE profile_id = $1`

	s := domain.Settings{ProfileID: profileID}
	err := r.pool.QueryRow(ctx, query, profileID).Scan(
		&s.ButtonColor,
		&s.ButtonHoverColor,
		&s.TextColor,
		&s.TextHoverColor,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultSettings(profileID), nil
		}
		return domain.Settings{}, fmt.Errorf("scan settings: %w", err)
	}
	return s.WithDefaults(), nil
}

// Upsert writes the theme for s.ProfileID.
func (r *SettingsRepository) Upsert(ctx context.Context, s domain.Settings) error {
	query := `
		INSERT INTO settings (profile_id, button_color, button_hover_color, text_color, text_hover_color, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (profile_id) DO UPDATE
		SET button_color = EXCLUDED.button_color,
		    button_hover_color = EXCLUDED.button_hover_color,
		    text_color = EXCLUDED.text_color,
		    text_hover_color = EXCLUDED.text_hover_color,
		    updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, s.ProfileID, s.ButtonColor, s.ButtonHoverColor, s.TextColor, s.TextHoverColor)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
