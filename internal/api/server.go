// Package api serves the read-only reconcile status API and, when a
// reconcile service is configured, starts background batches.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eshaffer321/ledger-reconciler/internal/api/handlers"
	"github.com/eshaffer321/ledger-reconciler/internal/api/middleware"
	"github.com/eshaffer321/ledger-reconciler/internal/application/service"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/metrics"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Addr                string
	AllowedOrigins      []string
	DefaultLookbackDays int
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Addr:                ":8085",
		AllowedOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		DefaultLookbackDays: 14,
	}
}

// Deps are the collaborators of a Server. Processed defaults to the
// repository's store; Reconcile and Metrics are optional.
type Deps struct {
	Repo      storage.Repository
	Processed processed.Store
	Reconcile *service.ReconcileService
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	deps       Deps
}

// NewServer creates a new API server.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Processed == nil && deps.Repo != nil {
		deps.Processed = deps.Repo.ProcessedStore()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: deps.Logger,
		deps:   deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	s.router.Get("/health", handlers.NewHealthHandler(s.deps.Repo).ServeHTTP)

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		runsHandler := handlers.NewRunsHandler(s.deps.Repo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/runs/{id}/matches", runsHandler.Matches)

		r.Get("/stats", handlers.NewStatsHandler(s.deps.Repo).Get)

		if s.deps.Processed != nil {
			r.Get("/processed", handlers.NewProcessedHandler(s.deps.Processed).Get)
		}

		if s.deps.Reconcile != nil {
			jobs := handlers.NewReconcileHandler(s.deps.Reconcile, s.config.DefaultLookbackDays)
			r.Post("/reconcile", jobs.Start)
			r.Get("/reconcile", jobs.List)
			r.Get("/reconcile/{jobId}", jobs.Get)
			r.Delete("/reconcile/{jobId}", jobs.Cancel)
		}
	})
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", s.config.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
