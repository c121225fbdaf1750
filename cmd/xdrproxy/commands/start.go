package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/internal/protocol/oncrpc"
	"github.com/marmos91/xdrproxy/internal/telemetry"
	"github.com/marmos91/xdrproxy/pkg/api"
	"github.com/marmos91/xdrproxy/pkg/config"
	"github.com/marmos91/xdrproxy/pkg/metrics"
	"github.com/marmos91/xdrproxy/pkg/metrics/prometheus"
	"github.com/marmos91/xdrproxy/pkg/proxy"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
)

var (
	startDebugLevel int64
	startPort       int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the translation proxy",
	Long: `Start the XML-RPC endpoint in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/xdrproxy/config.yaml. Without any
configuration file the proxy serves the built-in tst_prog_1 schema on
port 8081.

Examples:
  # Start with defaults
  xdrproxy start

  # Start with custom config file
  xdrproxy start --config /etc/xdrproxy/config.yaml

  # Start with wire-level tracing
  xdrproxy start --debug-level 50

  # Start with environment variable overrides
  XDRPROXY_LOGGING_LEVEL=DEBUG xdrproxy start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().Int64Var(&startDebugLevel, "debug-level", -1, "Initial debug level (overrides proxy.debug_level)")
	startCmd.Flags().IntVar(&startPort, "port", 0, "XML-RPC port (overrides server.port)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debug-level") {
		cfg.Proxy.DebugLevel = startDebugLevel
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = startPort
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "xdrproxy",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "xdrproxy",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer, err = metrics.NewServer(cfg.Metrics.Port)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}
	xlateMetrics := prometheus.NewXlateMetrics()

	store, err := loadSchemaStore(cfg)
	if err != nil {
		return err
	}
	store.OnReload(func(reg *schema.Registry, err error) {
		programs := 0
		if reg != nil {
			programs = reg.Len()
		}
		if xlateMetrics != nil {
			xlateMetrics.RecordSchemaReload(err == nil, programs)
		}
	})
	if xlateMetrics != nil {
		xlateMetrics.RecordSchemaReload(true, store.Registry().Len())
	}
	logger.Info("Schemas loaded",
		"programs", store.Registry().Len(),
		"procedures", len(store.Procedures()),
		logger.KeySchemaSrc, schemaSourceDescription(cfg))

	replyLimit, err := cfg.Proxy.MaxReplySize.Uint32()
	if err != nil {
		return fmt.Errorf("proxy.max_reply_size: %w", err)
	}
	client := oncrpc.NewClient(oncrpc.ClientConfig{
		Timeout:      cfg.Proxy.CallTimeout,
		MaxReplySize: replyLimit,
		Pool: oncrpc.PoolConfig{
			Enabled:        cfg.Proxy.Pool.Enabled,
			MaxIdlePerHost: cfg.Proxy.Pool.MaxIdlePerHost,
			IdleTimeout:    cfg.Proxy.Pool.IdleTimeout,
		},
	})
	defer func() { _ = client.Close() }()

	p := proxy.New(proxy.Config{DebugLevel: cfg.Proxy.DebugLevel}, store, client, xlateMetrics)
	apiServer := api.NewServer(cfg.Server, p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Start(gctx)
	})
	if metricsServer != nil {
		g.Go(func() error {
			return metricsServer.Start(gctx)
		})
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}
	if cfg.Schemas.Watch {
		watcher, err := schema.NewWatcher(store)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("failed to watch schemas: %w", err)
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
		logger.Info("Watching schema files for changes", "paths", cfg.Schemas.Paths)
	}

	logger.Info("Proxy is running. Press Ctrl+C to stop.",
		"port", cfg.Server.Port,
		"path", cfg.Server.Path,
		logger.KeyDebugLvl, p.DebugLevel())

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Proxy stopped with error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Shutdown error", logger.Err(err))
				return err
			}
		case <-time.After(cfg.ShutdownTimeout):
			return fmt.Errorf("shutdown did not finish within %s", cfg.ShutdownTimeout)
		}
	}

	logger.Info("Proxy stopped gracefully")
	return nil
}
