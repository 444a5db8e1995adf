package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/b3ckham/Orchestrator/pkg/config"
	"github.com/b3ckham/Orchestrator/pkg/server/handlers"
	"github.com/b3ckham/Orchestrator/pkg/server/middleware"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/health"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/tracing"
)

// API routes.
const (
	RouteDeploy   = "/api/rules/deploy"
	RouteActive   = "/api/rules/active"
	RouteEvaluate = "/api/rules/evaluate"
	RouteVersion  = "/version"
)

// BuildInfo identifies the running binary on the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Dependencies are the components the server exposes over HTTP.
type Dependencies struct {
	// Rules serves the rule API. Required.
	Rules handlers.RuleService

	// Health serves liveness and readiness. Nil disables both endpoints.
	Health *health.Checker

	// Metrics serves the Prometheus endpoint when metrics are enabled.
	Metrics *metrics.Collector

	// Logger receives access and error logs. Default: slog.Default()
	Logger *slog.Logger

	Build BuildInfo
}

// Server is the HTTP front of the rule host.
type Server struct {
	config     *config.Config
	deps       Dependencies
	logger     *slog.Logger
	httpServer *http.Server

	mu        sync.RWMutex
	isRunning bool
	addr      net.Addr
}

// NewServer creates a server. Call Start to serve.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if deps.Rules == nil {
		return nil, errors.New("rule service is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "server"),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting rule host server", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
		)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			return fmt.Errorf("server shutdown error: %w", err)
		}
		<-errChan
		s.logger.Info("rule host server stopped")
		return nil
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Addr returns the address the server is listening on, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	rulesHandler := handlers.NewRulesHandler(s.deps.Rules, s.deps.Logger)
	mux.HandleFunc(RouteDeploy, rulesHandler.Deploy)
	mux.HandleFunc(RouteActive, rulesHandler.Active)
	mux.HandleFunc(RouteEvaluate, rulesHandler.Evaluate)

	if s.deps.Health != nil {
		mux.Handle(s.config.Telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
		mux.Handle(s.config.Telemetry.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
	}
	if s.config.Telemetry.Metrics.Enabled && s.deps.Metrics != nil {
		mux.Handle(s.config.Telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}
	mux.Handle(RouteVersion, health.VersionHandler(s.deps.Build.Version, s.deps.Build.Commit, s.deps.Build.BuildTime))

	var handler http.Handler = mux
	handler = middleware.BodyLimitMiddleware(s.config.Server.MaxBodyBytes)(handler)
	handler = middleware.LoggingMiddleware(s.deps.Logger)(handler)
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(s.deps.Logger)(handler)

	return handler
}
