package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/database"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

const linkColumns = `id, profile_id, title, COALESCE(subtitle, ''), href, type, icon_type, order_index, is_active, created_at, updated_at`

// LinkRepository implements repository.LinkRepository using PostgreSQL.
type LinkRepository struct {
	pool database.DBTX
}

// NewLinkRepository creates a new PostgreSQL-backed link repository.
func NewLinkRepository(pool database.DBTX) *LinkRepository {
	return &LinkRepository{pool: pool}
}

// List returns a profile's links in display order.
func (r *LinkRepository) List(ctx context.Context, profileID string, activeOnly bool) (_ []domain.Link, err error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE profile_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY order_index, created_at`

	ctx, end := database.TraceQuery(ctx, "ListLinks", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		var l domain.Link
		if err := scanLink(rows, &l); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return links, nil
}

// GetByID retrieves one of the profile's links.
func (r *LinkRepository) GetByID(ctx context.Context, profileID, id string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1 AND profile_id = $2`

	var l domain.Link
	if err := scanLink(r.pool.QueryRow(ctx, query, id, profileID), &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("link", id)
		}
		return nil, fmt.Errorf("scan link: %w", err)
	}
	return &l, nil
}

// Create inserts a new link.
func (r *LinkRepository) Create(ctx context.Context, l *domain.Link) error {
	query := `
		INSERT INTO links (id, profile_id, title, subtitle, href, type, icon_type, order_index, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		l.ID,
		l.ProfileID,
		l.Title,
		l.Subtitle,
		l.Href,
		l.Type,
		l.IconType,
		l.OrderIndex,
		l.IsActive,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// Update modifies an existing link owned by l.ProfileID.
func (r *LinkRepository) Update(ctx context.Context, l *domain.Link) error {
	l.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE links
		SET title = $1, subtitle = NULLIF($2, ''), href = $3, type = $4, icon_type = $5,
		    order_index = $6, is_active = $7, updated_at = $8
		WHERE id = $9 AND profile_id = $10`

	ct, err := r.pool.Exec(ctx, query,
		l.Title,
		l.Subtitle,
		l.Href,
		l.Type,
		l.IconType,
		l.OrderIndex,
		l.IsActive,
		l.UpdatedAt,
		l.ID,
		l.ProfileID,
	)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("link", l.ID)
	}
	return nil
}

// Delete removes one of the profile's links.
func (r *LinkRepository) Delete(ctx context.Context, profileID, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM links WHERE id = $1 AND profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("link", id)
	}
	return nil
}

func scanLink(row pgx.Row, l *domain.Link) error {
	return row.Scan(
		&l.ID,
		&l.ProfileID,
		&l.Title,
		&l.Subtitle,
		&l.Href,
		&l.Type,
		&l.IconType,
		&l.OrderIndex,
		&l.IsActive,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
}
