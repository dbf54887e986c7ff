package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/commercekit/popularity/internal/adapter"
	"github.com/commercekit/popularity/internal/config"
	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/ledger"
	"github.com/commercekit/popularity/internal/logger"
	"github.com/commercekit/popularity/internal/store"
	"github.com/commercekit/popularity/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	cronSpec   = flag.String("cron", "", "Cron schedule for repeated sweeps; empty runs one sweep and exits")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "popularity-sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Popularity Sweeper")

	// Connect to database, retrying while it comes up
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and ledger. The sweep never touches the session store,
	// so no viewed-set is wired in.
	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()
	popularityLedger := ledger.New(dataStore, nil, clock, domain.DefaultWeights())

	sweeperConfig := &sweeper.MonthlySweeperConfig{
		BatchSize:       cfg.BatchSize,
		WorkerPoolSize:  cfg.Worker.WorkerPoolSize,
		WorkerQueueSize: cfg.Worker.WorkerQueueSize,
	}
	monthlySweeper := sweeper.NewMonthlySweeper(sweeperConfig, dataStore, popularityLedger, clock)

	if *cronSpec == "" {
		// Run once and exit
		if _, err := monthlySweeper.Run(ctx); err != nil {
			logger.FatalCtx(ctx, "Sweep failed", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Sweep finished")
		return
	}

	// Cron mode: run the sweep on the given schedule until interrupted.
	// Overlap protection beyond a single process stays with the scheduler.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(*cronSpec, func() {
		if _, err := monthlySweeper.Run(ctx); err != nil {
			logger.ErrorCtx(ctx, err)
		}
	})
	if err != nil {
		logger.FatalCtx(ctx, "Invalid cron schedule", zap.Error(err), zap.String("cron", *cronSpec))
	}

	scheduler.Start()
	logger.InfoCtx(ctx, "Sweeper scheduled", zap.String("cron", *cronSpec))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	// Wait for a running sweep to finish
	<-scheduler.Stop().Done()
	logger.Info("Sweeper stopped")
}

// connectDatabase opens the database connection, retrying with backoff while
// the database comes up
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Database not ready, retrying",
			zap.Error(err),
			zap.Duration("next_retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return db, nil
}
