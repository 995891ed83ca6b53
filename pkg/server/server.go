package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/limits"
	"mercator-hq/callisto/pkg/proxy/handlers"
	"mercator-hq/callisto/pkg/proxy/middleware"
	"mercator-hq/callisto/pkg/security/auth"
	"mercator-hq/callisto/pkg/telemetry/metrics"
	"mercator-hq/callisto/pkg/usage"
)

// Server is the HTTP proxy server fronting the backend CLI.
type Server struct {
	config       *config.Config
	executor     handlers.Executor
	usageStore   usage.Store
	collector    *metrics.Collector
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a proxy server. usageStore and collector may be nil
// when the corresponding features are disabled.
func NewServer(cfg *config.Config, executor handlers.Executor, usageStore usage.Store, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:       cfg,
		executor:     executor,
		usageStore:   usageStore,
		collector:    collector,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting proxy server",
			"address", s.config.Server.ListenAddress,
			"backend", s.config.Backend.Path,
			"input_format", s.config.Backend.InputFormat,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the
// configured shutdown timeout for in-flight requests (and their backend
// subprocesses) to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

// Stop requests a shutdown from another goroutine.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// setupRoutes configures HTTP routes and the middleware chain.
//
// Completion routes carry auth and admission control; administrative
// routes carry neither, plus a short per-request timeout so probes never
// hang. No write timeout applies to completion routes because an SSE
// stream is bounded by the backend execution timeout, not by the
// server.
func (s *Server) setupRoutes() http.Handler {
	deps := &handlers.Deps{
		Executor:    s.executor,
		Metrics:     s.collector,
		InputFormat: s.config.Backend.InputFormat,
	}
	if s.usageStore != nil && s.config.Usage.Enabled {
		deps.Usage = s.usageStore
	}

	chatHandler := handlers.NewChatHandler(deps)
	messagesHandler := handlers.NewMessagesHandler(deps)
	healthHandler := handlers.NewHealthHandler()
	readyHandler := handlers.NewReadyHandler(s.executor)

	completion := func(h http.Handler) http.Handler { return h }

	if s.config.Limits.MaxConcurrent > 0 {
		limiter := limits.NewConcurrencyLimiter(s.config.Limits.MaxConcurrent, s.config.Limits.QueueTimeout)
		limitsMW := limits.NewMiddleware(limiter, s.rejectionHook("queue_full"))
		completion = func(h http.Handler) http.Handler { return limitsMW.Handle(h) }
	}

	if s.config.Auth.Enabled {
		validator := auth.NewAPIKeyValidator(s.config.Auth.APIKeys)
		authMW := auth.NewMiddleware(validator, s.rejectionHook("unauthorized"))
		inner := completion
		completion = func(h http.Handler) http.Handler { return authMW.Handle(inner(h)) }
	}

	admin := middleware.TimeoutMiddleware(s.config.Server.AdminTimeout)

	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", completion(chatHandler))
	mux.Handle("/v1/messages", completion(messagesHandler))
	mux.Handle("/health", admin(healthHandler))
	mux.Handle("/ready", admin(readyHandler))

	if s.usageStore != nil && s.config.Usage.Enabled {
		mux.Handle("/v1/usage", admin(handlers.NewUsageHandler(s.usageStore)))
	}

	if s.collector != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle(s.config.Telemetry.Metrics.Path, admin(s.collector.Handler()))
	}

	var handler http.Handler = mux

	corsConfig := s.convertCORSConfig()
	handler = middleware.CORSMiddleware(corsConfig)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// rejectionHook returns a metrics callback for rejected requests, or
// nil when metrics are disabled.
func (s *Server) rejectionHook(reason string) func() {
	if s.collector == nil {
		return nil
	}
	return func() {
		s.collector.RecordRejection(reason)
	}
}

// IsRunning reports whether the server is serving requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:          s.config.Server.CORS.Enabled,
		AllowedOrigins:   s.config.Server.CORS.AllowedOrigins,
		AllowedMethods:   s.config.Server.CORS.AllowedMethods,
		AllowedHeaders:   s.config.Server.CORS.AllowedHeaders,
		ExposedHeaders:   s.config.Server.CORS.ExposedHeaders,
		MaxAge:           s.config.Server.CORS.MaxAge,
		AllowCredentials: s.config.Server.CORS.AllowCredentials,
	}
}
