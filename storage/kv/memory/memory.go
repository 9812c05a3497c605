// Package memory implements kv.Backend in process memory on top of pkg/cache.
// Data does not survive a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/pkg/cache"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// Backend holds one pkg/cache instance per store.
type Backend struct {
	config   cache.Config
	registry *metric.MetricsRegistry

	mu     sync.Mutex
	stores map[string]*Store
	closed bool
}

var _ kv.Backend = (*Backend)(nil)

// Option configures a memory Backend.
type Option func(*Backend)

// WithCacheConfig bounds every store, for example with an LRU strategy.
func WithCacheConfig(config cache.Config) Option {
	return func(b *Backend) {
		b.config = config
	}
}

// WithMetrics reports per-store cache metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Backend) {
		b.registry = registry
	}
}

// New creates an empty memory backend.
func New(opts ...Option) (*Backend, error) {
	b := &Backend{
		config: cache.DefaultConfig(),
		stores: make(map[string]*Store),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "memory", "New", "validate cache config")
	}
	return b, nil
}

// Open implements kv.Backend.
func (b *Backend) Open(_ context.Context, name string) (kv.Store, error) {
	if err := kv.ValidateName(name); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.WrapFatal(errors.ErrStorageUnavailable, "memory", "Open", "backend closed")
	}
	if s, ok := b.stores[name]; ok {
		return s, nil
	}

	var opts []cache.Option[[]byte]
	if b.registry != nil {
		opts = append(opts, cache.WithMetrics[[]byte](b.registry, "kv_"+name))
	}
	c, err := cache.NewFromConfig[[]byte](b.config, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "memory", "Open", "create cache for "+name)
	}
	s := &Store{name: name, cache: c}
	b.stores[name] = s
	return s, nil
}

// Close drops every store.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stores = nil
	return nil
}

// Store is one named cache.
type Store struct {
	name  string
	cache cache.Cache[[]byte]
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.cache.Set(key, slices.Clone(value))
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	_, err := s.cache.Delete(key)
	return err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.cache.Keys(), nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.cache.Clear()
}

// Stats exposes the hit and miss counters of the underlying cache.
func (s *Store) Stats() cache.StatsSummary {
	return s.cache.Stats().Summary()
}
