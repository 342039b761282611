package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"price_tracker/internal/domain"
)

type ProductStore struct {
	db *sqlx.DB
}

func NewProductStore(db *sqlx.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Create(ctx context.Context, p *domain.TrackedProduct) error {
	query := `
		INSERT INTO tracked_products (
			id, user_id, product_url, name, variant, image_url,
			current_price, original_price, discount, alert_price,
			last_checked_at, created_at
		) VALUES (
			:id, :user_id, :product_url, :name, :variant, :image_url,
			:current_price, :original_price, :discount, :alert_price,
			:last_checked_at, :created_at
		)`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, p)
	return err
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*domain.TrackedProduct, error) {
	var p domain.TrackedProduct
	query := `SELECT * FROM tracked_products WHERE id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &p, query, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAll returns every tracked product, oldest first. The sweep walks
// this set once per pass.
func (s *ProductStore) ListAll(ctx context.Context) ([]domain.TrackedProduct, error) {
	var products []domain.TrackedProduct
	query := `SELECT * FROM tracked_products ORDER BY created_at`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &products, query)
	return products, err
}

func (s *ProductStore) ListByUser(ctx context.Context, userID string) ([]domain.TrackedProduct, error) {
	var products []domain.TrackedProduct
	query := `SELECT * FROM tracked_products WHERE user_id = $1 ORDER BY created_at DESC`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &products, query, userID)
	return products, err
}

// UpdatePrice records a confirmed price change together with the check
// time. One row, one statement; this is the atomic unit the sweep can
// be interrupted between.
func (s *ProductStore) UpdatePrice(ctx context.Context, id string, price int64, checkedAt time.Time) error {
	query := `
		UPDATE tracked_products
		SET current_price = $2, last_checked_at = $3
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, price, checkedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TouchChecked refreshes only the check timestamp, used when a sweep
// saw the same price again.
func (s *ProductStore) TouchChecked(ctx context.Context, id string, checkedAt time.Time) error {
	query := `UPDATE tracked_products SET last_checked_at = $2 WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, checkedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a product owned by userID. Price history goes with it
// via ON DELETE CASCADE.
func (s *ProductStore) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM tracked_products WHERE id = $1 AND user_id = $2`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
