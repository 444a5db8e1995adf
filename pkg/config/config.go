package config

import (
	"time"
)

// Config is the root configuration for the rule host.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// Rules contains rule compilation and evaluation configuration.
	Rules RulesConfig `yaml:"rules"`

	// Audit contains audit trail configuration.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address the HTTP server binds to.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies. Deploy payloads carry whole rule
	// sets, so this is generous.
	// Default: 4MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// RulesConfig contains rule compilation and evaluation configuration.
type RulesConfig struct {
	// BaselinePath is a directory of *.yaml rule sets deployed at startup.
	// Empty disables the baseline.
	BaselinePath string `yaml:"baseline_path"`

	// Watch redeploys the baseline when files in BaselinePath change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce coalesces bursts of file events before redeploying.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`

	// MaxSourceBytes limits the size of one rule-set source.
	// Default: 1MB
	MaxSourceBytes int64 `yaml:"max_source_bytes"`

	// MaxConditionDepth limits condition nesting.
	// Default: 10
	MaxConditionDepth int `yaml:"max_condition_depth"`

	// EvaluationTimeout bounds a single evaluation.
	// Default: 5s
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`

	// ScriptTimeout bounds a single script action.
	// Default: 1s
	ScriptTimeout time.Duration `yaml:"script_timeout"`

	// DeployRetries is the number of optimistic deploy attempts before the
	// final attempt under the commit lock.
	// Default: 3
	DeployRetries int `yaml:"deploy_retries"`

	// CompileConcurrency limits how many rule sets compile in parallel.
	// 0 means GOMAXPROCS.
	CompileConcurrency int `yaml:"compile_concurrency"`
}

// AuditConfig contains audit trail configuration.
type AuditConfig struct {
	// Enabled controls whether deploys and evaluations are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains asynchronous recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains pruning configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite audit storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the number of events queued before Record fails.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains audit retention configuration.
type RetentionConfig struct {
	// Days is how long events are kept. 0 keeps events forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is a standard cron expression for pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the number of stored events. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks member identifiers (email, phone, ID numbers) and
	// credentials in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactKeys lists additional attribute keys whose values are always
	// replaced.
	RedactKeys []string `yaml:"redact_keys"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "rulehost"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "rules"
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are started.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the service.name resource attribute and scope name.
	// Default: "rulehost"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root traces sampled (0.0 to 1.0).
	// Spans with a sampled parent are always kept.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects where spans are sent.
	// Options: "otlp", "none"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// OTLP contains OTLP exporter configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
