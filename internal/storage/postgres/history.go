package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"price_tracker/internal/domain"
)

// HistoryStore is the append-only price ledger. Rows are never updated
// or deleted here; the only deletion path is the cascade from the
// owning product.
type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, productID string, price int64, checkedAt time.Time) error {
	query := `INSERT INTO price_history (product_id, price, checked_at) VALUES ($1, $2, $3)`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, productID, price, checkedAt)
	return err
}

// ListByProduct returns samples newest first. limit <= 0 means all.
func (s *HistoryStore) ListByProduct(ctx context.Context, productID string, limit int) ([]domain.PriceSample, error) {
	var samples []domain.PriceSample

	query := `
		SELECT product_id, price, checked_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY checked_at DESC`

	if limit > 0 {
		query += ` LIMIT $2`
		err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &samples, query, productID, limit)
		return samples, err
	}

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &samples, query, productID)
	return samples, err
}

// Bounds computes the lowest and highest observed price over the
// history union the current price. With no history yet, the original
// price stands in for the upper bound. Recomputing from fact keeps the
// aggregate immune to partial-update drift.
func (s *HistoryStore) Bounds(ctx context.Context, productID string, currentPrice, fallbackOriginal int64) (domain.PriceBounds, error) {
	var bounds domain.PriceBounds

	query := `
		SELECT
			LEAST(COALESCE(MIN(price), $2), $2)    AS lowest,
			GREATEST(COALESCE(MAX(price), $3), $2) AS highest
		FROM price_history
		WHERE product_id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &bounds, query, productID, currentPrice, fallbackOriginal)
	return bounds, err
}
