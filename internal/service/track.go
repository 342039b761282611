package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"price_tracker/internal/domain"
)

// recentHistoryLimit bounds the samples attached to a listing so the
// overview stays cheap regardless of how long a product has been
// tracked.
const recentHistoryLimit = 50

// TrackService is the on-demand entry point: previewing a listing,
// beginning and ending tracking, and listing a user's products. It
// shares the fetcher and extractor contracts with the sweep.
type TrackService struct {
	products     ProductStore
	history      HistoryStore
	fetcher      PageFetcher
	extractor    Extractor
	sourceDomain string
	logger       *slog.Logger
}

func NewTrackService(
	products ProductStore,
	history HistoryStore,
	fetcher PageFetcher,
	extractor Extractor,
	sourceDomain string,
	logger *slog.Logger,
) *TrackService {
	return &TrackService{
		products:     products,
		history:      history,
		fetcher:      fetcher,
		extractor:    extractor,
		sourceDomain: sourceDomain,
		logger:       logger.With("component", "track"),
	}
}

// Preview validates the URL and extracts a snapshot synchronously.
// Fetch and extraction errors surface to the caller typed.
func (s *TrackService) Preview(ctx context.Context, productURL string) (*domain.Snapshot, error) {
	if err := s.validateURL(productURL); err != nil {
		return nil, err
	}

	page, err := s.fetcher.Fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}

	return s.extractor.Extract(page)
}

// Track previews the listing and starts tracking it for userID.
// LastCheckedAt stays nil until the first sweep touches the row.
func (s *TrackService) Track(ctx context.Context, userID, productURL string, alertPrice *int64) (*domain.TrackedProduct, error) {
	if alertPrice != nil && *alertPrice <= 0 {
		return nil, &domain.ValidationError{
			Kind:   domain.InvalidAlertPrice,
			Detail: fmt.Sprintf("alert price must be positive, got %d", *alertPrice),
		}
	}

	snap, err := s.Preview(ctx, productURL)
	if err != nil {
		return nil, err
	}

	p := &domain.TrackedProduct{
		ID:            uuid.NewString(),
		UserID:        userID,
		ProductURL:    productURL,
		Name:          snap.Name,
		Variant:       snap.Variant,
		ImageURL:      snap.ImageURL,
		CurrentPrice:  snap.CurrentPrice,
		OriginalPrice: snap.OriginalPrice,
		Discount:      snap.Discount,
		AlertPrice:    alertPrice,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create tracked product: %w", err)
	}

	s.logger.Info("tracking started",
		"product_id", p.ID,
		"user_id", userID,
		"price", p.CurrentPrice,
	)

	return p, nil
}

func (s *TrackService) Untrack(ctx context.Context, userID, productID string) error {
	if err := s.products.Delete(ctx, productID, userID); err != nil {
		return err
	}
	s.logger.Info("tracking stopped", "product_id", productID, "user_id", userID)
	return nil
}

// ListByUser returns the user's products decorated with derived price
// bounds and recent history.
func (s *TrackService) ListByUser(ctx context.Context, userID string) ([]domain.ProductOverview, error) {
	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	overviews := make([]domain.ProductOverview, 0, len(products))
	for _, p := range products {
		bounds, err := s.history.Bounds(ctx, p.ID, p.CurrentPrice, p.OriginalPrice)
		if err != nil {
			return nil, fmt.Errorf("price bounds for %s: %w", p.ID, err)
		}

		samples, err := s.history.ListByProduct(ctx, p.ID, recentHistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("history for %s: %w", p.ID, err)
		}

		overviews = append(overviews, domain.ProductOverview{
			TrackedProduct: p,
			Lowest:         bounds.Lowest,
			Highest:        bounds.Highest,
			History:        samples,
		})
	}

	return overviews, nil
}

// History returns all samples for one of the user's products, newest
// first. Ownership is checked before the ledger is read.
func (s *TrackService) History(ctx context.Context, userID, productID string) ([]domain.PriceSample, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		// Do not reveal other users' products.
		return nil, domain.ErrProductNotFound
	}

	return s.history.ListByProduct(ctx, productID, 0)
}

func (s *TrackService) validateURL(productURL string) error {
	u, err := url.Parse(productURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ValidationError{Kind: domain.InvalidDomain, Detail: fmt.Sprintf("not a valid product URL: %q", productURL)}
	}

	host := strings.ToLower(u.Hostname())
	if host != s.sourceDomain && !strings.HasSuffix(host, "."+s.sourceDomain) {
		return &domain.ValidationError{
			Kind:   domain.InvalidDomain,
			Detail: fmt.Sprintf("host %q is not part of %s", host, s.sourceDomain),
		}
	}

	return nil
}
