package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"price_tracker/internal/config"
	"price_tracker/internal/notify"
	"price_tracker/internal/scheduler"
	"price_tracker/internal/server"
	"price_tracker/internal/service"
	"price_tracker/internal/source/cashify"
	"price_tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize notifiers: the RabbitMQ queue feeds the mailer,
	// Telegram is optional.
	rabbitMQ, err := notify.NewRabbitMQ(notify.RabbitMQConfig{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	notifiers := []notify.Notifier{rabbitMQ}
	if cfg.Telegram.Token != "" {
		telegram, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("failed to connect to telegram", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, telegram)
	}
	notifier := notify.NewMulti(notifiers...)

	// Initialize stores
	productStore := postgres.NewProductStore(db)
	historyStore := postgres.NewHistoryStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize cashify source
	fetcher := cashify.NewFetcher(cashify.Config{
		Timeout:   cfg.Scrape.Timeout,
		UserAgent: cfg.Scrape.UserAgent,
	})
	extractor := cashify.NewExtractor(cashify.Selectors{
		Name:          cfg.Scrape.Selectors.Name,
		Variant:       cfg.Scrape.Selectors.Variant,
		Image:         cfg.Scrape.Selectors.Image,
		CurrentPrice:  cfg.Scrape.Selectors.CurrentPrice,
		OriginalPrice: cfg.Scrape.Selectors.OriginalPrice,
	})

	sweepService := service.NewSweepService(
		productStore,
		historyStore,
		fetcher,
		extractor,
		txManager,
		notifier,
		logger,
		cfg.Sweep,
	)

	trackService := service.NewTrackService(
		productStore,
		historyStore,
		fetcher,
		extractor,
		cfg.Scrape.SourceDomain,
		logger,
	)

	sched := scheduler.New(sweepService, cfg.Sweep.Interval, logger)
	srv := server.New(cfg.HTTP.Addr, trackService, sweepService, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting price tracker",
		"source_domain", cfg.Scrape.SourceDomain,
		"interval", cfg.Sweep.Interval,
		"addr", cfg.HTTP.Addr,
	)

	schedErr := sched.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if schedErr != nil && schedErr != context.Canceled {
		logger.Error("scheduler error", "error", schedErr)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
