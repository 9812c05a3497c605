package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/reactodia/reactodia-workspace-sub004/config"
	"github.com/reactodia/reactodia-workspace-sub004/health"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/natsclient"
	"github.com/reactodia/reactodia-workspace-sub004/pkg/cache"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/provider/cached"
	"github.com/reactodia/reactodia-workspace-sub004/provider/composite"
	"github.com/reactodia/reactodia-workspace-sub004/provider/decorated"
	"github.com/reactodia/reactodia-workspace-sub004/provider/memory"
	"github.com/reactodia/reactodia-workspace-sub004/provider/remote"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv/badger"
	kvmemory "github.com/reactodia/reactodia-workspace-sub004/storage/kv/memory"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv/natskv"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv/sqlite"
)

// stack is the provider graph built from a configuration.
type stack struct {
	provider provider.DataProvider
	backend  kv.Backend
}

// Close releases the cache backend, if any.
func (s *stack) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// buildStack assembles sources, decorators, the composite and the cache in
// that order, registering one health probe per source.
func buildStack(
	ctx context.Context,
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	prober *health.Prober,
	logger *slog.Logger,
) (*stack, error) {
	interceptors, err := buildInterceptors(cfg.Decorators, registry, logger)
	if err != nil {
		return nil, err
	}

	sources := make([]composite.Source, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		p, probe, err := buildSource(ctx, src, logger)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		prober.Register(src.Name, probe)

		if chain := interceptors(src.Name); chain != nil {
			p = decorated.New(p, chain)
		}
		sources = append(sources, composite.Source{Label: src.Name, Provider: p})
	}

	var root provider.DataProvider
	if cfg.Composite.Enabled {
		root = composite.New(sources, composite.WithLogger(logger), composite.WithMetrics(registry))
	} else {
		root = sources[0].Provider
	}

	s := &stack{provider: root}
	if !cfg.Cache.Enabled {
		return s, nil
	}

	backend, err := openCacheBackend(ctx, cfg.Cache, registry, monitor, prober, logger)
	if err != nil {
		return nil, err
	}
	s.backend = backend

	p, err := cached.New(ctx, root, backend,
		cached.WithLogger(logger),
		cached.WithMetrics(registry),
		cached.WithSchemaVersion(cfg.Cache.SchemaVersion),
		cached.WithTextLookupCaching(cfg.Cache.CacheTextLookups),
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	s.provider = p
	logger.Info("Cache enabled", "store", cfg.Cache.Store, "schema_version", cfg.Cache.SchemaVersion)
	return s, nil
}

// buildSource creates one source provider and the probe that checks it.
func buildSource(ctx context.Context, src config.SourceConfig, logger *slog.Logger) (provider.DataProvider, health.Probe, error) {
	switch src.Type {
	case config.SourceMemory:
		data := memory.NewDataset()
		for _, file := range src.Files {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			start := time.Now()
			n, err := data.LoadFile(file)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("Loaded dataset file", "source", src.Name, "file", file, "quads", n, "duration", time.Since(start))
		}
		p := memory.New(data, src.Memory, logger.With("source", src.Name))
		probe := func(ctx context.Context) error {
			_, err := p.LinkTypes(ctx, provider.LinkTypesParams{})
			return err
		}
		return p, probe, nil

	case config.SourceRemote:
		p, err := remote.New(src.URL,
			remote.WithName(src.Name),
			remote.WithTimeout(src.TimeoutDuration()),
			remote.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Ping, nil

	default:
		return nil, nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}

// buildInterceptors returns a factory for the per-source interceptor chain, or
// a factory returning nil when no decorator is configured. Metrics and audit
// wrap the rate limiter, which wraps retries, which wrap the injected delay.
func buildInterceptors(
	cfg config.DecoratorsConfig,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (func(source string) decorated.Interceptor, error) {
	var delay, retry decorated.Interceptor
	if cfg.Delay != nil {
		d, err := cfg.Delay.Interceptor()
		if err != nil {
			return nil, err
		}
		delay = decorated.Delay(d)
	}
	if cfg.Retry != nil {
		policy, err := cfg.Retry.Policy()
		if err != nil {
			return nil, err
		}
		retry = decorated.Retry(policy, logger)
	}

	return func(source string) decorated.Interceptor {
		var chain []decorated.Interceptor
		if cfg.Metrics {
			chain = append(chain, decorated.Metrics(registry, source))
		}
		if cfg.Audit {
			chain = append(chain, decorated.Audit(logger.With("source", source)))
		}
		if cfg.RateLimit != nil {
			// One limiter per source.
			limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
			chain = append(chain, decorated.RateLimit(limiter))
		}
		if retry != nil {
			chain = append(chain, retry)
		}
		if delay != nil {
			chain = append(chain, delay)
		}
		if len(chain) == 0 {
			return nil
		}
		return decorated.Chain(chain...)
	}, nil
}

// natsOptions maps the cache section onto NATS client options.
func natsOptions(cfg config.CacheConfig) []natsclient.ClientOption {
	var opts []natsclient.ClientOption
	switch {
	case cfg.NATSToken != "":
		opts = append(opts, natsclient.WithToken(cfg.NATSToken))
	case cfg.NATSUser != "":
		opts = append(opts, natsclient.WithCredentials(cfg.NATSUser, cfg.NATSPassword))
	}
	if cfg.NATSCircuitThreshold > 0 {
		opts = append(opts, natsclient.WithCircuitBreaker(cfg.NATSCircuitThreshold, cfg.NATSCircuitBackoffDuration()))
	}
	return opts
}

// openCacheBackend opens the configured persistent store.
func openCacheBackend(
	ctx context.Context,
	cfg config.CacheConfig,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	prober *health.Prober,
	logger *slog.Logger,
) (kv.Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		cacheConfig := cache.DefaultConfig()
		if cfg.MaxEntries > 0 {
			cacheConfig = cache.Config{Strategy: cache.StrategyLRU, MaxSize: cfg.MaxEntries}
		}
		backend, err := kvmemory.New(kvmemory.WithCacheConfig(cacheConfig), kvmemory.WithMetrics(registry))
		if err != nil {
			return nil, err
		}
		return backend, nil

	case config.StoreSQLite:
		backend, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return backend, nil

	case config.StoreBadger:
		backend, err := badger.Open(badger.Config{Dir: cfg.Path}, logger)
		if err != nil {
			return nil, err
		}
		return backend, nil

	case config.StoreNATS:
		opts := append(natsOptions(cfg),
			natsclient.WithLogger(logger),
			natsclient.WithMetrics(registry),
			natsclient.WithHealthChangeCallback(func(healthy bool) {
				if healthy {
					monitor.UpdateHealthy("cache", "NATS connection established")
				} else {
					monitor.UpdateDegraded("cache", "NATS connection lost, serving from sources")
				}
			}),
		)
		client, err := natsclient.NewClient(cfg.NATSURL, opts...)
		if err != nil {
			return nil, err
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Connect(connectCtx); err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		if err := client.WaitForConnection(connectCtx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("NATS connection timeout: %w", err)
		}
		backend, err := natskv.New(client, natskv.Config{BucketPrefix: cfg.BucketPrefix},
			natskv.WithOwnedClient(), natskv.WithLogger(logger))
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		prober.Register("cache", func(ctx context.Context) error {
			rtt, err := client.RTT(ctx)
			if err == nil {
				logger.Debug("NATS round trip", "rtt", rtt)
			}
			return err
		})
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown cache store %q", cfg.Store)
	}
}
