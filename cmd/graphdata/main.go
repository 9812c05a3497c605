// Package main implements the graphdata binary: it loads graph data sources
// from configuration, combines, decorates and caches them, and serves the
// result over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/reactodia/reactodia-workspace-sub004/config"
	gatewayhttp "github.com/reactodia/reactodia-workspace-sub004/gateway/http"
	"github.com/reactodia/reactodia-workspace-sub004/health"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "graphdata"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	if cliCfg.ShowHelp {
		return nil
	}
	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(os.Stdout, "%s %s (build %s, %s)\n", appName, Version, BuildTime, runtime.Version())
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return err
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(os.Stderr, firstNonEmpty(cliCfg.LogLevel, cfg.Log.Level),
		firstNonEmpty(cliCfg.LogFormat, cfg.Log.Format))
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "sources", cfg.SourceNames())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()
	prober := health.NewProber(monitor, cfg.Gateway.ProbeTimeoutDuration(), logger)
	prober.OnResult(func(name string, status health.Status) {
		registry.CoreMetrics().RecordSourceHealth(name, status.IsHealthy())
	})

	logger.Info("Building provider stack",
		"sources", cfg.SourceNames(),
		"composite", cfg.Composite.Enabled,
		"cache", cfg.Cache.Enabled)
	st, err := buildStack(ctx, cfg, registry, monitor, prober, logger)
	if err != nil {
		return fmt.Errorf("build provider stack: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close cache backend", "error", err)
		}
	}()

	g, err := gatewayhttp.New(st.provider, cfg.Gateway,
		gatewayhttp.WithLogger(logger),
		gatewayhttp.WithMetrics(registry),
		gatewayhttp.WithHealth(monitor),
	)
	if err != nil {
		return err
	}

	// Probe once before accepting traffic so /healthz is meaningful from the start.
	prober.CheckAll(ctx, gatewayhttp.SystemName)

	probesDone := make(chan struct{})
	go func() {
		defer close(probesDone)
		prober.Run(ctx, gatewayhttp.SystemName, cfg.Gateway.ProbeIntervalDuration())
	}()

	logger.Info("Starting gateway", "addr", cfg.Gateway.Addr, "version", Version)
	serveErr := g.Serve(ctx)
	stop()

	select {
	case <-probesDone:
	case <-time.After(cliCfg.ShutdownTimeout):
		logger.Warn("Health probes did not stop in time", "timeout", cliCfg.ShutdownTimeout)
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("Shutdown complete", "stats", g.Stats())
	return nil
}

// loadConfig layers every --config file over the defaults, then applies
// environment overrides.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	for _, path := range cliCfg.ConfigPaths {
		loader.AddLayer(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
