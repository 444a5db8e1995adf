package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "RULEHOST_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefaultConfig, then defaults are
// re-applied and the result validated. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RULEHOST_SECTION_FIELD (e.g., RULEHOST_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// An empty path skips the file and starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		var err error
		if cfg, err = readConfig(path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values are reported as a ValidationError naming
// the variable.
func applyEnvOverrides(cfg *Config) error {
	env := envReader{}

	// Server overrides
	env.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	env.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	env.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	env.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	env.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	env.int64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	// Rules overrides
	env.str("RULES_BASELINE_PATH", &cfg.Rules.BaselinePath)
	env.bool("RULES_WATCH", &cfg.Rules.Watch)
	env.duration("RULES_DEBOUNCE", &cfg.Rules.Debounce)
	env.int64("RULES_MAX_SOURCE_BYTES", &cfg.Rules.MaxSourceBytes)
	env.int("RULES_MAX_CONDITION_DEPTH", &cfg.Rules.MaxConditionDepth)
	env.duration("RULES_EVALUATION_TIMEOUT", &cfg.Rules.EvaluationTimeout)
	env.duration("RULES_SCRIPT_TIMEOUT", &cfg.Rules.ScriptTimeout)
	env.int("RULES_DEPLOY_RETRIES", &cfg.Rules.DeployRetries)
	env.int("RULES_COMPILE_CONCURRENCY", &cfg.Rules.CompileConcurrency)

	// Audit overrides
	env.bool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	env.str("AUDIT_BACKEND", &cfg.Audit.Backend)
	env.str("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	env.str("AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	env.int("AUDIT_SQLITE_MAX_OPEN_CONNS", &cfg.Audit.SQLite.MaxOpenConns)
	env.int("AUDIT_SQLITE_MAX_IDLE_CONNS", &cfg.Audit.SQLite.MaxIdleConns)
	env.bool("AUDIT_SQLITE_WAL_MODE", &cfg.Audit.SQLite.WALMode)
	env.duration("AUDIT_SQLITE_BUSY_TIMEOUT", &cfg.Audit.SQLite.BusyTimeout)
	env.int("AUDIT_RECORDER_ASYNC_BUFFER", &cfg.Audit.Recorder.AsyncBuffer)
	env.duration("AUDIT_RECORDER_WRITE_TIMEOUT", &cfg.Audit.Recorder.WriteTimeout)
	env.int("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	env.str("AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)
	env.int64("AUDIT_RETENTION_MAX_RECORDS", &cfg.Audit.Retention.MaxRecords)

	// Telemetry overrides
	env.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	env.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	env.bool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	env.bool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	env.list("TELEMETRY_LOGGING_REDACT_KEYS", &cfg.Telemetry.Logging.RedactKeys)
	env.bool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	env.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	env.str("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	env.str("TELEMETRY_METRICS_SUBSYSTEM", &cfg.Telemetry.Metrics.Subsystem)
	env.bool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	env.str("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	env.float64("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	env.str("TELEMETRY_TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	env.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	env.bool("TELEMETRY_TRACING_OTLP_INSECURE", &cfg.Telemetry.Tracing.OTLP.Insecure)
	env.duration("TELEMETRY_TRACING_OTLP_TIMEOUT", &cfg.Telemetry.Tracing.OTLP.Timeout)

	if len(env.errs) > 0 {
		return ValidationError{Errors: env.errs}
	}
	return nil
}

// envReader looks up RULEHOST_* variables and collects parse failures.
type envReader struct {
	errs []FieldError
}

func (r *envReader) lookup(name string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (r *envReader) fail(name, val string, err error) {
	r.errs = append(r.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("invalid value %q: %v", val, err),
	})
}

func (r *envReader) str(name string, dst *string) {
	if val, ok := r.lookup(name); ok {
		*dst = val
	}
}

func (r *envReader) list(name string, dst *[]string) {
	val, ok := r.lookup(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) bool(name string, dst *bool) {
	val, ok := r.lookup(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = b
}

func (r *envReader) int(name string, dst *int) {
	val, ok := r.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = n
}

func (r *envReader) int64(name string, dst *int64) {
	val, ok := r.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = n
}

func (r *envReader) float64(name string, dst *float64) {
	val, ok := r.lookup(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = f
}

func (r *envReader) duration(name string, dst *time.Duration) {
	val, ok := r.lookup(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = d
}
