package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"carta-hq/titan/pkg/audit"
	"carta-hq/titan/pkg/cache"
	"carta-hq/titan/pkg/cli"
	"carta-hq/titan/pkg/config"
	"carta-hq/titan/pkg/server"
	"carta-hq/titan/pkg/service"
	"carta-hq/titan/pkg/store"
	"carta-hq/titan/pkg/telemetry/logging"
	"carta-hq/titan/pkg/telemetry/metrics"
	"carta-hq/titan/pkg/worker"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the store",
	Long: `Start the versioned resource store with the specified configuration.

The process opens the SQLite backing file, starts the worker pools, cache
tier, audit emitter, and history retention sweeper, and serves the
operational HTTP endpoint (metrics, health, pool stats).

Examples:
  # Start with default config
  carta run

  # Start with custom config
  carta run --config /etc/carta/config.yaml

  # Override listen address
  carta run --listen 0.0.0.0:9464

  # Validate config without starting
  carta run --dry-run

  # Reload runtime-safe settings on config file changes
  carta run --watch-config`,
	RunE: runStore,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload runtime-safe settings on config changes")
}

func runStore(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
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
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Initialize logging based on config
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Carta Titan v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Metrics registry
	registry := metrics.NewRegistry()
	metricsCfg := metrics.Config{
		Namespace: cfg.Telemetry.Metrics.Namespace,
		Subsystem: cfg.Telemetry.Metrics.Subsystem,
	}

	var storeMetrics *metrics.StoreMetrics
	var cacheMetrics *metrics.CacheMetrics
	var poolMetrics *metrics.PoolMetrics
	if cfg.Telemetry.Metrics.Enabled {
		storeMetrics = metrics.NewStoreMetrics(metricsCfg, registry)
		cacheMetrics = metrics.NewCacheMetrics(metricsCfg, registry)
		poolMetrics = metrics.NewPoolMetrics(metricsCfg, registry)
	}

	// Open the backing store
	slog.Info("opening store", "path", cfg.Storage.Path)
	st, err := store.Open(store.Config{
		Path:                 cfg.Storage.Path,
		BusyTimeout:          cfg.Storage.BusyTimeout,
		CheckpointInterval:   cfg.Storage.CheckpointInterval,
		CompressionThreshold: cfg.Compression.Threshold,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open store: %w", err))
	}
	defer st.Close()
	fmt.Println("✓ Store opened")

	// Cache tier
	var cacheMetricsSink cache.Metrics
	if cacheMetrics != nil {
		cacheMetricsSink = cacheMetrics
	}
	backend := cache.NewMemoryBackend(cfg.Cache.MaxEntries)
	defer backend.Close()
	tier := cache.New(backend, cache.Config{TTLs: map[cache.Namespace]time.Duration{
		cache.Resources:   cfg.Cache.TTLs.Resources,
		cache.Searches:    cfg.Cache.TTLs.Searches,
		cache.Metadata:    cfg.Cache.TTLs.Metadata,
		cache.Counts:      cfg.Cache.TTLs.Counts,
		cache.Terminology: cfg.Cache.TTLs.Terminology,
		cache.Validation:  cfg.Cache.TTLs.Validation,
	}}, cacheMetricsSink)
	fmt.Println("✓ Cache tier initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit emitter on its own pool
	emitter := audit.NewEmitter(
		cfg.Pools.Audit.Workers,
		cfg.Pools.Audit.QueueSize,
		audit.NewLogSink(logger.Slog()),
	)
	if err := emitter.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start audit emitter: %w", err))
	}
	defer emitter.Stop(5 * time.Second)

	// Service facade with the interactive, history, and bulk pools
	svc := service.New(st, tier, emitter, storeMetrics, service.Config{
		InteractiveWorkers: cfg.Pools.Interactive.Workers,
		InteractiveQueue:   cfg.Pools.Interactive.QueueSize,
		HistoryWorkers:     cfg.Pools.History.Workers,
		HistoryQueue:       cfg.Pools.History.QueueSize,
		BulkWorkers:        cfg.Pools.Bulk.Workers,
		BulkQueue:          cfg.Pools.Bulk.QueueSize,
	})
	if err := svc.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start service: %w", err))
	}
	defer svc.Stop(10 * time.Second)
	fmt.Println("✓ Worker pools started")

	// History retention sweeper
	sweeper, err := store.NewRetentionSweeper(st, store.RetentionConfig{
		Schedule: cfg.Retention.Schedule,
		MaxAge:   cfg.Retention.MaxAge,
	}, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to create retention sweeper: %w", err))
	}
	if err := sweeper.Start(); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start retention sweeper: %w", err))
	}
	defer sweeper.Stop()

	// Pool metrics scraper
	if poolMetrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					for name, stats := range svc.PoolStats() {
						poolMetrics.Observe(name, stats)
					}
					poolMetrics.Observe("audit", emitter.Stats())
				}
			}
		}()
	}

	// Config watcher for runtime-safe settings
	if runFlags.watchConfig {
		watcher, err := config.NewWatcher(cfgFile, logger.Slog())
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create config watcher: %w", err))
		}
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				// Only runtime-safe settings apply without a restart;
				// storage paths, pool sizes, and the listen address do not.
				st.SetCompressionThreshold(next.Compression.Threshold)
				sweeper.SetMaxAge(next.Retention.MaxAge)
				tier.SetTTLs(map[cache.Namespace]time.Duration{
					cache.Resources:   next.Cache.TTLs.Resources,
					cache.Searches:    next.Cache.TTLs.Searches,
					cache.Metadata:    next.Cache.TTLs.Metadata,
					cache.Counts:      next.Cache.TTLs.Counts,
					cache.Terminology: next.Cache.TTLs.Terminology,
					cache.Validation:  next.Cache.TTLs.Validation,
				})
				slog.Info("applied reloaded settings",
					"compression_threshold", next.Compression.Threshold,
					"retention_max_age", next.Retention.MaxAge.String(),
				)
			})
			if err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	fmt.Println()
	fmt.Printf("✓ Operational endpoint on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Metrics: http://%s/metrics\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health:  http://%s/healthz\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	// The operational server blocks until a signal or shutdown
	srv := server.NewServer(&cfg.Server, registry, st, poolStatsSource{svc: svc, emitter: emitter})
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Store stopped")
	return nil
}

// poolStatsSource merges the service pools and the audit pool for /statsz.
type poolStatsSource struct {
	svc     *service.Service
	emitter *audit.Emitter
}

func (p poolStatsSource) PoolStats() map[string]worker.Stats {
	stats := p.svc.PoolStats()
	stats["audit"] = p.emitter.Stats()
	return stats
}
