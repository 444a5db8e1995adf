// Package metrics provides Prometheus metrics for the rule host.
//
// # Metrics Categories
//
//   - Deploy metrics: compilations, deploys, retries and the active rule-set gauge
//   - Evaluation metrics: evaluations by rule set and result, latency, rules fired
//   - Session metrics: a gauge of open engine sessions read on every scrape
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordEvaluation("kyc", metrics.ResultMatched, elapsed)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Rule-set labels are capped by a CardinalityLimiter; names beyond the cap
// are reported as "other".
package metrics
