package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"price_tracker/internal/domain"
)

// Sweeper defines the interface for sweep operations.
type Sweeper interface {
	Sweep(ctx context.Context) (*domain.SweepStats, error)
}

// Scheduler drives the sweep on a fixed cadence. Runs never overlap:
// an overlapping sweep would defeat the per-host pacing, so a tick
// that arrives while the previous sweep is still running is skipped.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start runs one sweep immediately, then on every interval tick until
// ctx is cancelled. It blocks and waits for an in-flight sweep to
// finish before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runSweep(ctx)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runSweep(ctx context.Context) {
	// A sweep gets at most one interval; a pass that cannot finish in
	// time yields to the next scheduled one.
	sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if _, err := s.sweeper.Sweep(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("sweep failed", "error", err)
	}
}
