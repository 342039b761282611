package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"price_tracker/internal/domain"
)

// TrackService covers the product-facing operations the API exposes.
type TrackService interface {
	Preview(ctx context.Context, url string) (*domain.Snapshot, error)
	Track(ctx context.Context, userID, url string, alertPrice *int64) (*domain.TrackedProduct, error)
	Untrack(ctx context.Context, userID, productID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.ProductOverview, error)
	History(ctx context.Context, userID, productID string) ([]domain.PriceSample, error)
}

// Sweeper triggers a full monitoring pass on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (*domain.SweepStats, error)
}

type Server struct {
	tracker TrackService
	sweeper Sweeper
	logger  *slog.Logger
	http    *http.Server
}

func New(addr string, tracker TrackService, sweeper Sweeper, logger *slog.Logger) *Server {
	s := &Server{
		tracker: tracker,
		sweeper: sweeper,
		logger:  logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scrape", s.handleScrape)
	mux.HandleFunc("POST /api/products", s.handleTrack)
	mux.HandleFunc("GET /api/products", s.handleList)
	mux.HandleFunc("DELETE /api/products/{id}", s.handleUntrack)
	mux.HandleFunc("GET /api/products/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /api/sweep", s.handleSweep)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server started", "addr", s.http.Addr)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the routing table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
