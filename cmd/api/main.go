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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/commercekit/popularity/internal/adapter"
	"github.com/commercekit/popularity/internal/api/server"
	"github.com/commercekit/popularity/internal/config"
	"github.com/commercekit/popularity/internal/ledger"
	"github.com/commercekit/popularity/internal/logger"
	"github.com/commercekit/popularity/internal/session"
	"github.com/commercekit/popularity/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
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
			"service": "popularity-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Popularity API")

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

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Connect to Redis for the session viewed-set
	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr))
	}
	defer func() { _ = redisClient.Close() }()
	logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	viewedSet := session.NewRedisViewedSet(redisClient, cfg.Session.ViewedTTL)

	// Initialize the popularity ledger
	clock := adapter.NewClock()
	popularityLedger := ledger.New(dataStore, viewedSet, clock, cfg.Scoring.Weights())

	// Create server config
	serverConfig := server.Config{
		Debug:         cfg.Debug,
		Live:          cfg.Live,
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:  time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:   time.Duration(cfg.Server.IdleTimeout) * time.Second,
		SessionCookie: cfg.Session.CookieName,
		APIKeys:       cfg.Auth.APIKeys,
	}

	// Create and start server
	srv := server.New(serverConfig, dataStore, popularityLedger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
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

// connectRedis creates the Redis client and verifies the connection, retrying
// with backoff while Redis comes up
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	operation := func() error {
		return client.Ping(ctx).Err()
	}
	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Redis not ready, retrying",
			zap.Error(err),
			zap.Duration("next_retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
