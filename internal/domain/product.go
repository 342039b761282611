package domain

import "time"

// TrackedProduct is one monitored listing. Prices are in the smallest
// currency unit. LastCheckedAt is nil until the first sweep touches
// the row.
type TrackedProduct struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"userId"`
	ProductURL    string     `db:"product_url" json:"productUrl"`
	Name          string     `db:"name" json:"name"`
	Variant       string     `db:"variant" json:"variant"`
	ImageURL      string     `db:"image_url" json:"imageUrl"`
	CurrentPrice  int64      `db:"current_price" json:"currentPrice"`
	OriginalPrice int64      `db:"original_price" json:"originalPrice"`
	Discount      int        `db:"discount" json:"discount"`
	AlertPrice    *int64     `db:"alert_price" json:"alertPrice,omitempty"`
	LastCheckedAt *time.Time `db:"last_checked_at" json:"lastCheckedAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// PriceSample is one immutable price observation for a product.
type PriceSample struct {
	ProductID string    `db:"product_id" json:"productId"`
	Price     int64     `db:"price" json:"price"`
	CheckedAt time.Time `db:"checked_at" json:"checkedAt"`
}

// Snapshot is the extractor's output for one fetched page. It is never
// persisted directly.
type Snapshot struct {
	Name          string `json:"name"`
	Variant       string `json:"variant"`
	ImageURL      string `json:"imageUrl"`
	CurrentPrice  int64  `json:"currentPrice"`
	OriginalPrice int64  `json:"originalPrice"`
	Discount      int    `json:"discount"`
}

// PriceBounds are derived from the price history union the current
// price, never stored.
type PriceBounds struct {
	Lowest  int64 `db:"lowest"`
	Highest int64 `db:"highest"`
}

// ProductOverview decorates a tracked product with its derived bounds
// and recent history for display.
type ProductOverview struct {
	TrackedProduct
	Lowest  int64         `json:"lowestPrice"`
	Highest int64         `json:"highestPrice"`
	History []PriceSample `json:"history"`
}

// AlertRequest is the payload handed to the notification dispatcher
// when a price drop crosses the alert price.
type AlertRequest struct {
	Recipient    string `json:"recipient"`
	ProductName  string `json:"productName"`
	CurrentPrice int64  `json:"currentPrice"`
	AlertPrice   int64  `json:"alertPrice"`
	ProductURL   string `json:"productUrl"`
	ImageURL     string `json:"imageUrl,omitempty"`
}
