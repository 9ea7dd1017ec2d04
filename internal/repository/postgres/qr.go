package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/pkg/database"
)

// QRRepository implements repository.QRRepository using PostgreSQL.
type QRRepository struct {
	pool database.DBTX
}

// NewQRRepository creates a new PostgreSQL-backed QR metrics repository.
func NewQRRepository(pool database.DBTX) *QRRepository {
	return &QRRepository{pool: pool}
}

// Get returns the scan counters. A missing row reads as zero.
func (r *QRRepository) Get(ctx context.Context, profileID string) (domain.QRMetrics, error) {
	m := domain.QRMetrics{ProfileID: profileID}
	err := r.pool.QueryRow(ctx,
		`SELECT scan_count, last_scanned_at FROM qr_code_metrics WHERE profile_id = $1`, profileID,
	).Scan(&m.ScanCount, &m.LastScannedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.QRMetrics{}, fmt.Errorf("scan qr metrics: %w", err)
	}
	return m, nil
}

// RecordScan increments the counter and stamps the scan time.
func (r *QRRepository) RecordScan(ctx context.Context, profileID string, at time.Time) error {
	query := `
		INSERT INTO qr_code_metrics (profile_id, scan_count, last_scanned_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (profile_id) DO UPDATE
		SET scan_count = qr_code_metrics.scan_count + 1, last_scanned_at = EXCLUDED.last_scanned_at`

	if _, err := r.pool.Exec(ctx, query, profileID, at); err != nil {
		return fmt.Errorf("record qr scan: %w", err)
	}
	return nil
}

// Reset zeroes the counter and clears the last scan time.
func (r *QRRepository) Reset(ctx context.Context, profileID string) error {
	query := `UPDATE qr_code_metrics SET scan_count = 0, last_scanned_at = NULL WHERE profile_id = $1`

	if _, err := r.pool.Exec(ctx, query, profileID); err != nil {
		return fmt.Errorf("reset qr metrics: %w", err)
	}
	return nil
}
