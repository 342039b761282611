package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"price_tracker/internal/config"
	"price_tracker/internal/domain"
)

// SweepService runs one pass over every tracked product: fetch,
// extract, detect change, persist, alert. A broken listing never stops
// monitoring of the others.
type SweepService struct {
	products  ProductStore
	history   HistoryStore
	fetcher   PageFetcher
	extractor Extractor
	txManager TransactionManager
	notifier  Notifier
	logger    *slog.Logger
	config    config.SweepConfig
}

func NewSweepService(
	products ProductStore,
	history HistoryStore,
	fetcher PageFetcher,
	extractor Extractor,
	txManager TransactionManager,
	notifier Notifier,
	logger *slog.Logger,
	cfg config.SweepConfig,
) *SweepService {
	return &SweepService{
		products:  products,
		history:   history,
		fetcher:   fetcher,
		extractor: extractor,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger.With("component", "sweep"),
		config:    cfg,
	}
}

// Sweep checks all tracked products once. The only error it returns is
// a store failure on the initial listing or a cancelled context;
// per-product failures are counted in the stats and logged.
func (s *SweepService) Sweep(ctx context.Context) (*domain.SweepStats, error) {
	startTime := time.Now()

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked products: %w", err)
	}

	stats := &domain.SweepStats{Total: len(products)}

	s.logger.Info("starting sweep", "targets", stats.Total)

	for i := range products {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(startTime)
			s.logger.Info("sweep aborted",
				"checked", stats.Checked,
				"remaining", stats.Total-stats.Checked-stats.Failed,
			)
			return stats, ctx.Err()
		default:
		}

		if i > 0 {
			if err := s.pace(ctx); err != nil {
				stats.Duration = time.Since(startTime)
				return stats, err
			}
		}

		s.checkProduct(ctx, &products[i], stats)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("sweep completed",
		"total", stats.Total,
		"checked", stats.Checked,
		"changed", stats.Changed,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
		"alerts", stats.Alerts,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *SweepService) checkProduct(ctx context.Context, p *domain.TrackedProduct, stats *domain.SweepStats) {
	logger := s.logger.With("product_id", p.ID)

	page, err := s.fetchWithRetry(ctx, p.ProductURL)
	if err != nil {
		logger.Warn("fetch failed", "url", p.ProductURL, "error", err)
		stats.Failed++
		return
	}

	snap, err := s.extractor.Extract(page)
	if err != nil {
		logger.Warn("extraction failed", "url", p.ProductURL, "error", err)
		stats.Failed++
		return
	}

	now := time.Now().UTC()

	switch detectChange(p.CurrentPrice, snap) {
	case changeRejected:
		logger.Warn("rejected extracted price, keeping prior", "extracted", snap.CurrentPrice, "prior", p.CurrentPrice)
		stats.Failed++

	case changeUnchanged:
		if err := s.products.TouchChecked(ctx, p.ID, now); err != nil {
			logger.Error("persist check time", "error", err)
			stats.Failed++
			return
		}
		stats.Unchanged++
		stats.Checked++

	case changeChanged:
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.products.UpdatePrice(txCtx, p.ID, snap.CurrentPrice, now); err != nil {
				return fmt.Errorf("update price: %w", err)
			}
			if err := s.history.Append(txCtx, p.ID, snap.CurrentPrice, now); err != nil {
				return fmt.Errorf("append history: %w", err)
			}
			return nil
		})
		if err != nil {
			logger.Error("persist price change", "error", err)
			stats.Failed++
			return
		}

		logger.Info("price changed", "old", p.CurrentPrice, "new", snap.CurrentPrice)
		stats.Changed++
		stats.Checked++

		if shouldAlert(p.AlertPrice, snap.CurrentPrice) {
			s.dispatchAlert(ctx, p, snap.CurrentPrice, stats, logger)
		}
	}
}

func (s *SweepService) dispatchAlert(ctx context.Context, p *domain.TrackedProduct, newPrice int64, stats *domain.SweepStats, logger *slog.Logger) {
	alert := &domain.AlertRequest{
		Recipient:    p.UserID,
		ProductName:  p.Name,
		CurrentPrice: newPrice,
		AlertPrice:   *p.AlertPrice,
		ProductURL:   p.ProductURL,
		ImageURL:     p.ImageURL,
	}

	// The price change is already committed; delivery is best effort.
	if err := s.notifier.Notify(ctx, alert); err != nil {
		logger.Error("alert dispatch failed", "error", err)
		return
	}

	stats.Alerts++
	logger.Info("alert dispatched", "alert_price", *p.AlertPrice, "price", newPrice)
}

func (s *SweepService) fetchWithRetry(ctx context.Context, productURL string) ([]byte, error) {
	var page []byte
	var err error

	for attempt := 1; attempt <= s.config.Retry.MaxAttempts; attempt++ {
		page, err = s.fetcher.Fetch(ctx, productURL)
		if err == nil {
			return page, nil
		}

		if attempt == s.config.Retry.MaxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("fetch failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.config.Retry.MaxAttempts, err)
}

func (s *SweepService) calculateBackoff(attempt int) time.Duration {
	backoff := s.config.Retry.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.config.Retry.MaxBackoff {
		backoff = s.config.Retry.MaxBackoff
	}
	return backoff
}

// pace waits the configured inter-request delay so one sweep does not
// hammer the upstream site.
func (s *SweepService) pace(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.config.InterPageDelay):
		return nil
	}
}
