package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"price_tracker/internal/domain"
)

type ProductStore interface {
	Create(ctx context.Context, p *domain.TrackedProduct) error
	GetByID(ctx context.Context, id string) (*domain.TrackedProduct, error)
	ListAll(ctx context.Context) ([]domain.TrackedProduct, error)
	ListByUser(ctx context.Context, userID string) ([]domain.TrackedProduct, error)
	UpdatePrice(ctx context.Context, id string, price int64, checkedAt time.Time) error
	TouchChecked(ctx context.Context, id string, checkedAt time.Time) error
	Delete(ctx context.Context, id, userID string) error
}

type HistoryStore interface {
	Append(ctx context.Context, productID string, price int64, checkedAt time.Time) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]domain.PriceSample, error)
	Bounds(ctx context.Context, productID string, currentPrice, fallbackOriginal int64) (domain.PriceBounds, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, productURL string) ([]byte, error)
}

type Extractor interface {
	Extract(page []byte) (*domain.Snapshot, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Notifier interface {
	Notify(ctx context.Context, alert *domain.AlertRequest) error
}
