// Package config provides configuration management for the rule host.
//
// Configuration is loaded from a YAML file, completed with defaults and
// overridden from the environment:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("rulehost.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RULEHOST_SECTION_FIELD.
// For example:
//
//   - RULEHOST_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - RULEHOST_RULES_EVALUATION_TIMEOUT overrides rules.evaluation_timeout
//   - RULEHOST_AUDIT_SQLITE_DRIVER overrides audit.sqlite.driver
//   - RULEHOST_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("rulehost.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer explicit Config instances over the singleton.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	rules:
//	  baseline_path: "./rules"
//	  watch: true
//	  evaluation_timeout: 2s
//
//	audit:
//	  backend: sqlite
//	  sqlite:
//	    path: "/var/lib/rulehost/audit.db"
//	    driver: sqlite
//	  retention:
//	    days: 30
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
