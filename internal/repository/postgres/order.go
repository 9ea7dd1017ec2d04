package postgres

import (
	"context"
	"fmt"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/database"
	"github.com/pwerioflow/link/pkg/pagination"
)

const orderColumns = `id, profile_id, provider_session_id, amount_total, currency, status, COALESCE(customer_email, ''), created_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts o. A second order for the same provider session is
// ignored and reported as not created.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (bool, error) {
	query := `
		INSERT INTO orders (id, profile_id, provider_session_id, amount_total, currency, status, customer_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (provider_session_id) DO NOTHING`

	ct, err := r.pool.Exec(ctx, query,
		o.ID,
		o.ProfileID,
		o.ProviderSessionID,
		o.AmountTotalCents,
		o.Currency,
		o.Status,
		o.CustomerEmail,
		o.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// List returns one page of the profile's orders, newest first, with the total count.
func (r *OrderRepository) List(ctx context.Context, profileID string, page pagination.Params) ([]domain.Order, int, error) {
	// Use count(*) OVER() for total count in a single query.
	query := `
		SELECT ` + orderColumns + `, count(*) OVER() AS total_count
		FROM orders
		WHERE profile_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, profileID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders     []domain.Order
		totalCount int
	)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.ProfileID,
			&o.ProviderSessionID,
			&o.AmountTotalCents,
			&o.Currency,
			&o.Status,
			&o.CustomerEmail,
			&o.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, totalCount, nil
}

// ListAll returns every order of the profile, newest first.
func (r *OrderRepository) ListAll(ctx context.Context, profileID string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE profile_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.ProfileID,
			&o.ProviderSessionID,
			&o.AmountTotalCents,
			&o.Currency,
			&o.Status,
			&o.CustomerEmail,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}
