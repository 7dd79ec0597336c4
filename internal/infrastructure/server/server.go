package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/yamclicker/core/docs"
	httpHandlers "github.com/yamclicker/core/internal/adapters/http"
	"github.com/yamclicker/core/internal/infrastructure/config"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/infrastructure/metrics"
	"github.com/yamclicker/core/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	store   ports.KeyValueStore
	metrics *metrics.Collector
}

// New creates a new server instance. collector may be nil when metrics are
// disabled.
func New(cfg *config.Config, engine ports.GameEngine, store ports.KeyValueStore, collector *metrics.Collector, appLogger *logger.Logger) *Server {
	e := echo.New()

	e.Validator = NewValidator()

	e.Debug = cfg.App.IsDevelopment()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.HTTPErrorHandler = customErrorHandler(appLogger)

	gameHandler := httpHandlers.NewGameHandler(engine, cfg.Game.MaskedName, appLogger)

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger.WithComponent("server"),
		store:   store,
		metrics: collector,
	}

	server.setupMiddleware()
	if collector != nil && cfg.Metrics.Enabled {
		server.setupMetrics()
	}
	server.setupRoutes(gameHandler)

	return server
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(gameHandler *httpHandlers.GameHandler) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	if !s.config.App.IsProduction() {
		s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := s.echo.Group("/api/v1")
	gameHandler.Register(v1)
}

// setupMetrics exposes the collector registry and counts requests
func (s *Server) setupMetrics() {
	s.echo.Use(metricsMiddleware(s.metrics))

	metricsHandler := promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": s.config.App.Version,
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.Storage.Timeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warnw("Readiness check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	resp := map[string]interface{}{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if reporter, ok := s.store.(ports.StatsReporter); ok {
		resp["storage"] = reporter.Stats()
	}
	return c.JSON(http.StatusOK, resp)
}

// Handler returns the underlying HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}
