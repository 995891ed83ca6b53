package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
	"mercator-hq/callisto/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	backendPath   string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Callisto proxy server",
	Long: `Start the Callisto proxy server with the specified configuration.

The server listens on the configured address, translates completion
requests into backend subprocess invocations, and streams or buffers
their output back to the client.

Examples:
  # Start with defaults (backend "claude" on PATH)
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/config.yaml

  # Override listen address
  callisto run --listen 0.0.0.0:8080

  # Override backend executable
  callisto run --backend /usr/local/bin/claude

  # Validate config without starting server
  callisto run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.backendPath, "backend", "", "override backend executable path")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.backendPath != "" {
		cfg.Backend.Path = runFlags.backendPath
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Callisto v%s\n", Version)
	if cfgFile != "" {
		fmt.Printf("Loading configuration from: %s\n", cfgFile)
	}
	fmt.Println("✓ Configuration loaded")

	// Metrics collector
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		fmt.Printf("✓ Metrics enabled at %s\n", cfg.Telemetry.Metrics.Path)
	}

	// Usage store
	var store usage.Store
	if cfg.Usage.Enabled {
		store, err = openUsageStore(cfg, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()
		fmt.Printf("✓ Usage store initialized (%s)\n", cfg.Usage.Backend)
	}

	// Backend runner
	runner := backend.NewRunner(runnerOptions(cfg, logger, collector))
	if err := runner.Ready(); err != nil {
		logger.Warn("backend executable not resolvable, requests will fail until it appears",
			"path", cfg.Backend.Path,
			"error", err,
		)
	} else {
		fmt.Printf("✓ Backend resolved (%s)\n", cfg.Backend.Path)
	}

	ctx := cli.SetupSignalHandler()

	// Retention scheduler
	if store != nil && cfg.Usage.Retention.Schedule != "" {
		pruner := usage.NewPruner(store, &cfg.Usage.Retention, logger)
		scheduler := usage.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	// Config watcher: reloads backend defaults without a restart. Other
	// sections still require one.
	if cfgFile != "" {
		watcher := config.NewWatcher(cfgFile, logger)
		go func() {
			if err := watcher.Watch(ctx, func(next *config.Config) {
				runner.Reconfigure(runnerOptions(next, logger, collector))
			}); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	srv := server.NewServer(cfg, runner, store, collector, logger)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// runnerOptions builds backend runner options from configuration.
func runnerOptions(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) backend.Options {
	opts := backend.Options{
		Path:               cfg.Backend.Path,
		DefaultModel:       cfg.Backend.DefaultModel,
		DefaultMaxTokens:   cfg.Backend.DefaultMaxTokens,
		DefaultTemperature: cfg.Backend.DefaultTemperature,
		Timeout:            cfg.Backend.Timeout,
		Logger:             logger,
	}
	// A typed nil collector must not end up behind the interface.
	if collector != nil {
		opts.Metrics = collector
	}
	return opts
}

// openUsageStore creates the configured usage storage backend.
func openUsageStore(cfg *config.Config, logger *slog.Logger) (usage.Store, error) {
	switch cfg.Usage.Backend {
	case "sqlite":
		return usage.NewSQLiteStore(&usage.SQLiteConfig{
			Path:        cfg.Usage.SQLitePath,
			BusyTimeout: cfg.Usage.BusyTimeout,
		}, logger)
	case "memory":
		return usage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported usage backend: %s", cfg.Usage.Backend)
	}
}
