// Package logging builds the process logger on top of log/slog.
//
// New returns a *slog.Logger whose handler
//
//   - emits JSON or text at the configured level,
//   - masks member identity fields (email, phone, idNumber) and credentials
//     by attribute key and by value pattern, and
//   - adds request_id, rule_set, trace_id and span_id from the context
//     passed to the *Context logging methods.
//
// Components receive the logger by injection and tag it with a component
// attribute:
//
//	logger := slog.Default().With("component", "ruleset.service")
//	logger.InfoContext(logging.WithRequestID(ctx, id), "evaluation complete")
package logging
