package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/audit/recorder"
	"github.com/b3ckham/Orchestrator/pkg/audit/retention"
	"github.com/b3ckham/Orchestrator/pkg/audit/storage"
	"github.com/b3ckham/Orchestrator/pkg/cli"
	"github.com/b3ckham/Orchestrator/pkg/config"
	"github.com/b3ckham/Orchestrator/pkg/rules/engine"
	"github.com/b3ckham/Orchestrator/pkg/ruleset"
	"github.com/b3ckham/Orchestrator/pkg/server"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/health"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/logging"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	rulesDir      string
	watch         bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rule host server",
	Long: `Start the rule host HTTP server with the specified configuration.

On startup the baseline rule directory (rules.baseline_path or --rules) is
compiled and deployed as one artifact. A baseline that fails to compile
aborts startup.

Examples:
  # Start with defaults
  rulehost run

  # Start with a config file
  rulehost run --config /etc/rulehost/config.yaml

  # Deploy a rule directory and redeploy it when files change
  rulehost run --rules ./rules --watch

  # Validate config and baseline without serving
  rulehost run --rules ./rules --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.rulesDir, "rules", "", "override baseline rule directory")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "redeploy the baseline directory when it changes")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "load config and baseline, then exit")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.rulesDir != "" {
		cfg.Rules.BaselinePath = runFlags.rulesDir
	}
	if runFlags.watch {
		cfg.Rules.Watch = true
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.close()

	if runFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid\n✓ Active rule sets: %d\n", a.service.ListActive().Count)
		return nil
	}

	if err := a.run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, cli.NewConfigError("", "configuration not initialized")
	}
	return cfg, nil
}

// app holds the wired components of a running rule host.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *ruleset.Service
	server  *server.Server
	watcher *ruleset.Watcher
	tracer  *tracing.Tracer
	closers []func() error
}

// newApp wires telemetry, audit, the engine and the rule service, deploys
// the baseline and builds the HTTP server. On error everything opened so
// far is closed.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.tracer.Shutdown(shutdownCtx)
	})

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)

	opts := ruleset.Options{
		Logger:            logger,
		Metrics:           collector,
		Tracer:            a.tracer.Tracer(),
		DeployRetries:     cfg.Rules.DeployRetries,
		EvaluationTimeout: cfg.Rules.EvaluationTimeout,
	}

	if cfg.Audit.Enabled {
		store, err := openAuditStorage(&cfg.Audit)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if p, ok := store.(health.Pinger); ok {
			checker.RegisterCheck("audit_storage", health.PingCheck(p))
		}

		rec := recorder.NewRecorder(store, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
			WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
		})
		a.closers = append(a.closers, rec.Close)
		opts.Auditor = rec

		if cfg.Audit.Retention.Schedule != "" {
			pruner := retention.NewPruner(store, &retention.Config{
				RetentionDays: cfg.Audit.Retention.Days,
				PruneSchedule: cfg.Audit.Retention.Schedule,
				MaxRecords:    cfg.Audit.Retention.MaxRecords,
			})
			if err := pruner.Start(ctx); err != nil {
				logger.Warn("failed to start audit retention scheduler", "error", err)
			} else {
				a.closers = append(a.closers, func() error { pruner.Stop(); return nil })
				if next := pruner.NextPruning(); next != nil {
					logger.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}
	}

	backend := engine.New(&engine.Config{
		MaxSourceBytes:     cfg.Rules.MaxSourceBytes,
		MaxConditionDepth:  cfg.Rules.MaxConditionDepth,
		ScriptTimeout:      cfg.Rules.ScriptTimeout,
		CompileConcurrency: cfg.Rules.CompileConcurrency,
	}, logger)
	if err := collector.RegisterOpenSessions(backend.OpenSessions); err != nil {
		return nil, fmt.Errorf("failed to register session gauge: %w", err)
	}

	a.service, err = ruleset.NewService(ctx, backend, opts)
	if err != nil {
		return nil, err
	}
	checker.RegisterCheck("artifact", health.ArtifactCheck(a.service.Deployed))

	if path := cfg.Rules.BaselinePath; path != "" {
		loader := loaderConfig(cfg)
		result, err := a.service.LoadBaseline(ctx, path, loader)
		if err != nil {
			return nil, fmt.Errorf("failed to deploy baseline %s: %w", path, err)
		}
		if result != nil {
			logger.Info("baseline deployed", "path", path, "rule_sets", result.RuleSets, "version", result.Version)
		}

		if cfg.Rules.Watch {
			a.watcher, err = ruleset.NewWatcher(&ruleset.WatcherConfig{
				Path:             path,
				DebounceInterval: cfg.Rules.Debounce,
				Loader:           loader,
			}, logger)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, a.watcher.Close)
		}
	}

	a.server, err = server.NewServer(cfg, server.Dependencies{
		Rules:   a.service,
		Health:  checker,
		Metrics: collector,
		Logger:  logger,
		Build:   server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// run serves until ctx is cancelled or a component fails.
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Start(gctx)
	})
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.WatchService(gctx, a.service)
		})
	}
	return g.Wait()
}

// close releases components in reverse order of creation.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error during shutdown", "error", err)
		}
	}
	a.closers = nil
}

func openAuditStorage(cfg *config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return s, nil
	default:
		return nil, cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

func loaderConfig(cfg *config.Config) *ruleset.LoaderConfig {
	loader := ruleset.DefaultLoaderConfig()
	if cfg.Rules.MaxSourceBytes > 0 {
		loader.MaxFileSize = cfg.Rules.MaxSourceBytes
	}
	return loader
}
