// Package api provides the HTTP API server for the parameter service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/narvanalabs/persistent-params/internal/api/handlers"
	"github.com/narvanalabs/persistent-params/internal/api/health"
	"github.com/narvanalabs/persistent-params/internal/api/middleware"
	"github.com/narvanalabs/persistent-params/internal/auth"
	"github.com/narvanalabs/persistent-params/internal/defaults"
	"github.com/narvanalabs/persistent-params/internal/metrics"
	"github.com/narvanalabs/persistent-params/internal/params"
	"github.com/narvanalabs/persistent-params/internal/store"
	"github.com/narvanalabs/persistent-params/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	defaults      *defaults.Service
	auth          *auth.Service
	metrics       *metrics.Recorder
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, svc *defaults.Service, authSvc *auth.Service, recorder *metrics.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:    st,
		defaults: svc,
		auth:     authSvc,
		metrics:  recorder,
		config:   cfg,
		logger:   logger,
	}

	s.healthChecker = health.NewChecker(st, Version)
	s.healthChecker.AddComponent("job_configuration", health.PingFunc(s.checkJobConfiguration))

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
	}
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Operational endpoints (no auth required)
	r.Get("/health", s.healthChecker.Handler())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/descriptors", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, params.Descriptors())
	})

	authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
	jobHandler := handlers.NewJobHandler(s.store, s.defaults, s.logger)

	r.Get("/jobs", jobHandler.List)
	r.With(authMiddleware.Authenticate).Post("/jobs/import", jobHandler.Import)

	// Job pages and actions, addressed by nested "/job/<name>" segments.
	r.Group(func(r chi.Router) {
		r.Use(handlers.BindRequest(s.store.Jobs()))
		r.Get("/job/*", jobHandler.Get)
		r.With(authMiddleware.Authenticate).Post("/job/*", jobHandler.Post)
	})

	s.router = r
}

// checkJobConfiguration reports stored parameter definitions that no longer validate.
func (s *Server) checkJobConfiguration(ctx context.Context) error {
	jobs, err := s.store.Jobs().List(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	var errs []error
	for _, job := range jobs {
		_, invalid := params.FromJob(job)
		for _, e := range invalid {
			errs = append(errs, fmt.Errorf("job %s: %w", job.Name, e))
		}
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
