package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/database"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

const productColumns = `id, profile_id, name, COALESCE(description, ''), price::text, COALESCE(image_url, ''),
		images, size, stock_quantity, is_active, order_index, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns a profile's products in display order.
func (r *ProductRepository) List(ctx context.Context, profileID string, activeOnly bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE profile_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY order_index, created_at`

	return r.queryProducts(ctx, "ListProducts", query, profileID)
}

// GetActiveByIDs returns the active products among ids that belong to profileID.
func (r *ProductRepository) GetActiveByIDs(ctx context.Context, profileID string, ids []string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE profile_id = $1 AND id::text = ANY($2) AND is_active`

	return r.queryProducts(ctx, "GetActiveProductsByIDs", query, profileID, ids)
}

// GetByID retrieves one of the profile's products.
func (r *ProductRepository) GetByID(ctx context.Context, profileID, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND profile_id = $2`

	var p domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id, profileID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, profile_id, name, description, price, image_url, images, size, stock_quantity, is_active, order_index, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5::numeric, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.SellerID,
		p.Name,
		p.Description,
		p.Price.StringFixed(2),
		p.ImageURL,
		nonNilImages(p.Images),
		p.Size,
		p.StockQuantity,
		p.IsActive,
		p.OrderIndex,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update modifies an existing product owned by p.SellerID.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, description = NULLIF($2, ''), price = $3::numeric, image_url = NULLIF($4, ''),
		    images = $5, size = $6, stock_quantity = $7, is_active = $8, order_index = $9, updated_at = $10
		WHERE id = $11 AND profile_id = $12`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price.StringFixed(2),
		p.ImageURL,
		nonNilImages(p.Images),
		p.Size,
		p.StockQuantity,
		p.IsActive,
		p.OrderIndex,
		p.UpdatedAt,
		p.ID,
		p.SellerID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes one of the profile's products.
func (r *ProductRepository) Delete(ctx context.Context, profileID, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, op, query string, args ...any) (_ []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row, p *domain.Product) error {
	var price string
	if err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.Description,
		&price,
		&p.ImageURL,
		&p.Images,
		&p.Size,
		&p.StockQuantity,
		&p.IsActive,
		&p.OrderIndex,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
