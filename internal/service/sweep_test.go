package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"price_tracker/internal/config"
	"price_tracker/internal/domain"
	"price_tracker/internal/service/mocks"
)

type SweepServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	products  *mocks.MockProductStore
	history   *mocks.MockHistoryStore
	fetcher   *mocks.MockPageFetcher
	extractor *mocks.MockExtractor
	txManager *mocks.MockTransactionManager
	notifier  *mocks.MockNotifier

	service *SweepService
	cfg     config.SweepConfig
	logger  *slog.Logger
}

func (s *SweepServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.products = mocks.NewMockProductStore(s.ctrl)
	s.history = mocks.NewMockHistoryStore(s.ctrl)
	s.fetcher = mocks.NewMockPageFetcher(s.ctrl)
	s.extractor = mocks.NewMockExtractor(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)

	s.cfg = config.SweepConfig{
		Interval:       time.Hour,
		InterPageDelay: time.Millisecond,
		Retry: config.RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     10 * time.Millisecond,
		},
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewSweepService(
		s.products,
		s.history,
		s.fetcher,
		s.extractor,
		s.txManager,
		s.notifier,
		s.logger,
		s.cfg,
	)
}

func (s *SweepServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSweepServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SweepServiceTestSuite))
}

func (s *SweepServiceTestSuite) runTx() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func alertAt(price int64) *int64 { return &price }

func trackedProduct(id string, current int64, alert *int64) domain.TrackedProduct {
	return domain.TrackedProduct{
		ID:           id,
		UserID:       "user-1",
		ProductURL:   "https://www.cashify.in/buy-refurbished-mobile-phones/" + id,
		Name:         "Phone " + id,
		ImageURL:     "https://img.example/" + id + ".jpg",
		CurrentPrice: current,
		AlertPrice:   alert,
	}
}

func (s *SweepServiceTestSuite) TestSweep_PriceDropPersistsAndAlerts() {
	ctx := context.Background()
	p := trackedProduct("p1", 35000, alertAt(30000))
	page := []byte("<html>p1</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 28000}, nil)

	s.runTx()
	s.products.EXPECT().UpdatePrice(gomock.Any(), "p1", int64(28000), gomock.Any()).Return(nil)
	s.history.EXPECT().Append(gomock.Any(), "p1", int64(28000), gomock.Any()).Return(nil)

	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, alert *domain.AlertRequest) error {
			s.Equal("user-1", alert.Recipient)
			s.Equal("Phone p1", alert.ProductName)
			s.Equal(int64(28000), alert.CurrentPrice)
			s.Equal(int64(30000), alert.AlertPrice)
			s.Equal(p.ProductURL, alert.ProductURL)
			s.Equal(p.ImageURL, alert.ImageURL)
			return nil
		},
	)

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Total)
	s.Equal(1, stats.Checked)
	s.Equal(1, stats.Changed)
	s.Equal(1, stats.Alerts)
	s.Equal(0, stats.Failed)
}

func (s *SweepServiceTestSuite) TestSweep_UnchangedOnlyRefreshesTimestamp() {
	// Compact-history policy: an unchanged price appends nothing to
	// the ledger and never reaches the alert trigger, even while the
	// price sits below the threshold.
	ctx := context.Background()
	p := trackedProduct("p1", 28000, alertAt(30000))
	page := []byte("<html>p1</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 28000}, nil)
	s.products.EXPECT().TouchChecked(gomock.Any(), "p1", gomock.Any()).Return(nil)

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Unchanged)
	s.Equal(1, stats.Checked)
	s.Equal(0, stats.Changed)
	s.Equal(0, stats.Alerts)
}

func (s *SweepServiceTestSuite) TestSweep_AlertFiresOncePerQualifyingDrop() {
	// Threshold 30000, observed sequence 35000 → 28000 → 28000 →
	// 27000: exactly two firings, one per drop, none for the repeat.
	ctx := context.Background()
	page := []byte("<html>p1</html>")

	sweeps := []struct {
		lastKnown int64
		observed  int64
		alerts    int
	}{
		{35000, 28000, 1},
		{28000, 28000, 0},
		{28000, 27000, 1},
	}

	totalAlerts := 0
	for _, step := range sweeps {
		p := trackedProduct("p1", step.lastKnown, alertAt(30000))

		s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
		s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
		s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: step.observed}, nil)

		if step.observed != step.lastKnown {
			s.runTx()
			s.products.EXPECT().UpdatePrice(gomock.Any(), "p1", step.observed, gomock.Any()).Return(nil)
			s.history.EXPECT().Append(gomock.Any(), "p1", step.observed, gomock.Any()).Return(nil)
			s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
		} else {
			s.products.EXPECT().TouchChecked(gomock.Any(), "p1", gomock.Any()).Return(nil)
		}

		stats, err := s.service.Sweep(ctx)
		s.NoError(err)
		s.Equal(step.alerts, stats.Alerts)
		totalAlerts += stats.Alerts
	}

	s.Equal(2, totalAlerts)
}

func (s *SweepServiceTestSuite) TestSweep_SecondIdenticalPassChangesNothing() {
	ctx := context.Background()
	page := []byte("<html>p1</html>")

	// First pass records the drop.
	first := trackedProduct("p1", 35000, nil)
	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{first}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), first.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 28000}, nil)
	s.runTx()
	s.products.EXPECT().UpdatePrice(gomock.Any(), "p1", int64(28000), gomock.Any()).Return(nil)
	s.history.EXPECT().Append(gomock.Any(), "p1", int64(28000), gomock.Any()).Return(nil)

	_, err := s.service.Sweep(ctx)
	s.NoError(err)

	// Second pass sees the same price: no update, no history growth.
	second := trackedProduct("p1", 28000, nil)
	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{second}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), second.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 28000}, nil)
	s.products.EXPECT().TouchChecked(gomock.Any(), "p1", gomock.Any()).Return(nil)

	stats, err := s.service.Sweep(ctx)
	s.NoError(err)
	s.Equal(1, stats.Unchanged)
	s.Equal(0, stats.Changed)
}

func (s *SweepServiceTestSuite) TestSweep_ZeroPriceRejected() {
	ctx := context.Background()
	p := trackedProduct("p1", 28000, alertAt(30000))
	page := []byte("<html>p1</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 0}, nil)

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Checked)
	s.Equal(0, stats.Alerts)
}

func (s *SweepServiceTestSuite) TestSweep_FetchFailureIsolated() {
	ctx := context.Background()
	p1 := trackedProduct("p1", 10000, nil)
	p2 := trackedProduct("p2", 20000, nil)
	p3 := trackedProduct("p3", 30000, nil)
	page1 := []byte("<html>p1</html>")
	page3 := []byte("<html>p3</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p1, p2, p3}, nil)

	s.fetcher.EXPECT().Fetch(gomock.Any(), p1.ProductURL).Return(page1, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p2.ProductURL).Return(nil,
		&domain.FetchError{Kind: domain.FetchTimeout, URL: p2.ProductURL, Err: context.DeadlineExceeded})
	s.fetcher.EXPECT().Fetch(gomock.Any(), p3.ProductURL).Return(page3, nil)

	s.extractor.EXPECT().Extract(page1).Return(&domain.Snapshot{CurrentPrice: 9500}, nil)
	s.extractor.EXPECT().Extract(page3).Return(&domain.Snapshot{CurrentPrice: 29500}, nil)

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).Times(2)
	s.products.EXPECT().UpdatePrice(gomock.Any(), "p1", int64(9500), gomock.Any()).Return(nil)
	s.history.EXPECT().Append(gomock.Any(), "p1", int64(9500), gomock.Any()).Return(nil)
	s.products.EXPECT().UpdatePrice(gomock.Any(), "p3", int64(29500), gomock.Any()).Return(nil)
	s.history.EXPECT().Append(gomock.Any(), "p3", int64(29500), gomock.Any()).Return(nil)

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(2, stats.Checked)
	s.Equal(1, stats.Failed)
}

func (s *SweepServiceTestSuite) TestSweep_FetchRetriesThenSucceeds() {
	s.cfg.Retry.MaxAttempts = 3
	s.service = NewSweepService(s.products, s.history, s.fetcher, s.extractor, s.txManager, s.notifier, s.logger, s.cfg)

	ctx := context.Background()
	p := trackedProduct("p1", 10000, nil)
	page := []byte("<html>p1</html>")
	transient := &domain.FetchError{Kind: domain.FetchNetwork, URL: p.ProductURL, Err: errors.New("connection reset")}

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	gomock.InOrder(
		s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(nil, transient),
		s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(nil, transient),
		s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil),
	)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 10000}, nil)
	s.products.EXPECT().TouchChecked(gomock.Any(), "p1", gomock.Any()).Return(nil)

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Checked)
	s.Equal(0, stats.Failed)
}

func (s *SweepServiceTestSuite) TestSweep_ExtractionFailureIsolated() {
	ctx := context.Background()
	p := trackedProduct("p1", 10000, nil)
	page := []byte("<html>broken</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(nil,
		&domain.ExtractionError{Kind: domain.ExtractionPriceNotFound, Detail: "price field absent"})

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Checked)
}

func (s *SweepServiceTestSuite) TestSweep_NotifyFailureKeepsPriceUpdate() {
	ctx := context.Background()
	p := trackedProduct("p1", 35000, alertAt(30000))
	page := []byte("<html>p1</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 28000}, nil)
	s.runTx()
	s.products.EXPECT().UpdatePrice(gomock.Any(), "p1", int64(28000), gomock.Any()).Return(nil)
	s.history.EXPECT().Append(gomock.Any(), "p1", int64(28000), gomock.Any()).Return(nil)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Changed)
	s.Equal(0, stats.Alerts)
	s.Equal(0, stats.Failed)
}

func (s *SweepServiceTestSuite) TestSweep_PersistenceFailureCountsAsFailedItem() {
	ctx := context.Background()
	p := trackedProduct("p1", 35000, nil)
	page := []byte("<html>p1</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p.ProductURL).Return(page, nil)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 28000}, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).Return(errors.New("connection lost"))

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Changed)
}

func (s *SweepServiceTestSuite) TestSweep_StoreListFailureAbortsPass() {
	ctx := context.Background()

	s.products.EXPECT().ListAll(gomock.Any()).Return(nil, errors.New("connection refused"))

	stats, err := s.service.Sweep(ctx)

	s.Error(err)
	s.Nil(stats)
}

func (s *SweepServiceTestSuite) TestSweep_AbortsBetweenTargetsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	p1 := trackedProduct("p1", 10000, nil)
	p2 := trackedProduct("p2", 20000, nil)
	page := []byte("<html>p1</html>")

	s.products.EXPECT().ListAll(gomock.Any()).Return([]domain.TrackedProduct{p1, p2}, nil)
	s.fetcher.EXPECT().Fetch(gomock.Any(), p1.ProductURL).DoAndReturn(
		func(ctx context.Context, url string) ([]byte, error) {
			cancel() // shutdown arrives while target one is in flight
			return page, nil
		},
	)
	s.extractor.EXPECT().Extract(page).Return(&domain.Snapshot{CurrentPrice: 10000}, nil)
	s.products.EXPECT().TouchChecked(gomock.Any(), "p1", gomock.Any()).Return(nil)

	stats, err := s.service.Sweep(ctx)

	s.ErrorIs(err, context.Canceled)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.Checked)
}

func (s *SweepServiceTestSuite) TestSweep_NoTargets() {
	ctx := context.Background()

	s.products.EXPECT().ListAll(gomock.Any()).Return(nil, nil)

	stats, err := s.service.Sweep(ctx)

	s.NoError(err)
	s.Equal(0, stats.Total)
}
