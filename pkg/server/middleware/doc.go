// Package middleware provides the HTTP middleware chain of the rule host
// API: request IDs, access logging, panic recovery and body limits.
//
// Middleware is applied innermost first:
//
//	var handler http.Handler = mux
//	handler = BodyLimitMiddleware(4 << 20)(handler)
//	handler = LoggingMiddleware(logger)(handler)
//	handler = RequestIDMiddleware(handler)
//	handler = RecoveryMiddleware(logger)(handler)
//
// RequestIDMiddleware stores the ID with logging.WithRequestID, so log
// records written through a logging.ContextHandler and audit events carry it.
package middleware
