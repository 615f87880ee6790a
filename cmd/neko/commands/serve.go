package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nekostore/neko-object/internal/api"
	"github.com/nekostore/neko-object/internal/backup"
	"github.com/nekostore/neko-object/internal/cache"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/discord"
	"github.com/nekostore/neko-object/internal/download"
	"github.com/nekostore/neko-object/internal/logger"
	"github.com/nekostore/neko-object/internal/metrics"
	"github.com/nekostore/neko-object/internal/rangestream"
	"github.com/nekostore/neko-object/internal/server"
	"github.com/nekostore/neko-object/internal/store"
	"github.com/nekostore/neko-object/internal/telemetry"
	"github.com/nekostore/neko-object/internal/upload"
	"github.com/nekostore/neko-object/internal/urlrefresh"
	"github.com/nekostore/neko-object/internal/workqueue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the neko-object HTTP server",
	Long: `Start the neko-object server, which serves the upload, download,
stream, file-management and system HTTP endpoints until interrupted.

Examples:
  # Start with default config location
  neko serve

  # Start with a custom config file
  neko serve --config /etc/neko-object/config.yaml

  # Override a single value via environment variable
  NEKO_LOGGING_LEVEL=DEBUG neko serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()
	if configFile == "" && !config.DefaultConfigExists() {
		return fmt.Errorf("no configuration file found; run `neko init` first, or pass --config")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	config.WatchLogLevel(configFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.TracingEnabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       true,
		SampleRate:     1.0,
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.ProfilingEnabled,
		Endpoint:       cfg.Telemetry.PyroscopeAddress,
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	var reg *prometheus.Registry
	var m *metrics.Metrics
	if cfg.Telemetry.MetricsEnabled {
		reg = prometheus.NewRegistry()
		m = metrics.New(reg)
	}

	idx, err := store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open metadata index: %w", err)
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logger.Error("failed to close metadata index", "error", err)
		}
	}()

	adapter, err := discord.New(&cfg.Discord)
	if err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			logger.Error("failed to close discord session", "error", err)
		}
	}()

	var chunkCache *cache.Cache
	if cfg.Cache.Enabled {
		chunkCache, err = cache.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to open chunk cache: %w", err)
		}
		defer func() {
			if err := chunkCache.Close(); err != nil {
				logger.Error("failed to close chunk cache", "error", err)
			}
		}()
		go chunkCache.RunGC(ctx, cfg.Cache.TTL)
	}

	queue := workqueue.New(workqueue.DefaultConfig())
	queue.Start()
	defer queue.Stop(cfg.Server.ShutdownTimeout)

	refresher := urlrefresh.New(adapter, idx, adapter.ChannelID(), cfg.Discord.SecondaryChannel)
	backupProto := backup.New(adapter, adapter.BackupChannelID(), func() string { return idx.Path(&cfg.Database) })
	uploadEngine := upload.New(idx, adapter, adapter.ChannelID(), queue, backupProto)
	downloadEngine := download.New(idx, refresher, chunkCache)
	rangeEngine := rangestream.New(idx, refresher)

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, api.Deps{
		Index:      idx,
		Upload:     uploadEngine,
		Download:   downloadEngine,
		Range:      rangeEngine,
		Backup:     backupProto,
		Metrics:    m,
		Auth:       cfg.Auth,
		DBConfig:   &cfg.Database,
		AppVersion: Version,
	})

	logger.Info("neko-object starting", "version", Version, "port", cfg.Server.Port)

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.Serve(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		signal.Stop(sigCh)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-serverDone; err != nil {
			return err
		}
	case err := <-serverDone:
		if err != nil {
			return err
		}
	}

	logger.Info("neko-object stopped")
	return nil
}
