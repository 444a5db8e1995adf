// Package server provides the HTTP server of the rule host.
//
// Routes:
//   - POST /api/rules/deploy, GET /api/rules/active, POST /api/rules/evaluate
//   - liveness and readiness probes (default /health and /ready)
//   - Prometheus metrics (default /metrics) when enabled
//   - GET /version
//
// Every request passes through recovery, request ID, trace context
// extraction, access logging and a body size limit.
//
// Basic usage:
//
//	srv, err := server.NewServer(cfg, server.Dependencies{
//	    Rules:   svc,
//	    Health:  checker,
//	    Metrics: collector,
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // returns after ctx is cancelled and shutdown completes
package server
