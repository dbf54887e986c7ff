package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercekit/popularity/internal/api/middleware"
	"github.com/commercekit/popularity/internal/api/rest"
	"github.com/commercekit/popularity/internal/ledger"
	"github.com/commercekit/popularity/internal/logger"
	"github.com/commercekit/popularity/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug         bool
	Live          bool
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	SessionCookie string
	APIKeys       []string
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	ledger     *ledger.Ledger
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, st store.Store, l *ledger.Ledger) *Server {
	return &Server{
		config: cfg,
		store:  st,
		ledger: l,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	// Create REST handler
	restHandler := rest.NewHandler(s.config.Live, s.ledger, s.store)

	// Setup REST routes
	authCfg := middleware.AuthConfig{APIKeys: s.config.APIKeys}
	rest.SetupRoutes(router, restHandler, authCfg, s.config.SessionCookie)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
		zap.Bool("live", s.config.Live),
	)

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
