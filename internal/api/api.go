// Package api provides the read-only operational HTTP API: health and
// readiness probes, job status, and anomaly/forecast queries for display.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/salescope/internal/scheduler"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address      string
	QueryTimeout time.Duration // Timeout for storage-backed API calls
	Verbose      bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSource reports background job state.
type StatusSource interface {
	Statuses() []scheduler.Status
	QueueDepth() int
}

// Server is the operational API server.
type Server struct {
	config    *Config
	anomalies storage.AnomalyRepository
	forecasts storage.ForecastRepository
	status    StatusSource
	checkers  map[string]Pinger
	server    *http.Server
	logger    *log.Logger
}

// NewServer creates the API server. checkers maps dependency names to their
// health probes for the readiness endpoint.
func NewServer(config *Config, anomalies storage.AnomalyRepository, forecasts storage.ForecastRepository, status StatusSource, checkers map[string]Pinger, logger *log.Logger) *Server {
	config.SetDefaults()
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config:    config,
		anomalies: anomalies,
		forecasts: forecasts,
		status:    status,
		checkers:  checkers,
		logger:    logger,
	}

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// routes builds the chi router.
func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/anomalies", s.handleAnomalies)
		r.Get("/forecasts", s.handleForecasts)
	})

	return r
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Printf("api server listening on %s", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("shutting down api server")
	return s.server.Shutdown(ctx)
}
