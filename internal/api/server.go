package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
)

// Server is the admin HTTP server with lifecycle management.
type Server struct {
	router    *gin.Engine
	server    *http.Server
	log       logger.Interface
	config    Config
	deps      Dependencies
	checks    map[string]HealthChecker
	startedAt time.Time
	runs      sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithHealthCheck adds a named check to /health.
func WithHealthCheck(name string, check HealthChecker) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.router.GET("/metrics", gin.WrapH(h)) }
}

// NewServer builds the router with the standard middleware chain and routes.
func NewServer(cfg Config, deps Dependencies, log logger.Interface, opts ...Option) *Server {
	cfg.SetDefaults()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log = log.WithComponent("api")

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))

	s := &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log:       log,
		config:    cfg,
		deps:      deps,
		checks:    make(map[string]HealthChecker),
		startedAt: time.Now(),
	}

	router.GET("/health", s.healthHandler)
	router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	h := newHandler(deps, log, &s.runs)
	v1 := ProtectedGroup(router, "/api/v1", cfg.JWTSecret)
	h.register(v1)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WaitForRuns blocks until crawls started over HTTP have returned.
func (s *Server) WaitForRuns() {
	s.runs.Wait()
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"address", s.server.Addr,
		"read_timeout", s.server.ReadTimeout,
		"write_timeout", s.server.WriteTimeout,
		"auth", s.config.JWTSecret != "",
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine. The returned channel receives
// a serve error, if any, and is closed when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server", "timeout", s.config.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		return fmt.Errorf("waiting for background crawls: %w", shutdownCtx.Err())
	}

	s.log.Info("HTTP server stopped gracefully")
	return nil
}
