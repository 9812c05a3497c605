// Package natskv implements kv.Backend with one NATS JetStream key-value
// bucket per store.
//
// NATS keys allow only a narrow alphabet, so keys are stored base64url
// encoded. Bucket names are "<prefix>_<store>".
package natskv

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/natsclient"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// DefaultBucketPrefix prefixes bucket names when no prefix is configured.
const DefaultBucketPrefix = "graphdata"

// Config configures the NATS backend.
type Config struct {
	BucketPrefix string                `json:"bucket_prefix" yaml:"bucket_prefix"`
	Replicas     int                   `json:"replicas" yaml:"replicas"`
	Storage      jetstream.StorageType `json:"-" yaml:"-"`
}

// Backend opens JetStream KV buckets through a connected natsclient.Client.
type Backend struct {
	client *natsclient.Client
	config Config
	logger *slog.Logger
	owned  bool

	mu     sync.Mutex
	stores map[string]*Store
}

var _ kv.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithOwnedClient makes Close also close the client.
func WithOwnedClient() Option {
	return func(b *Backend) {
		b.owned = true
	}
}

// New creates a backend over a connected client.
func New(client *natsclient.Client, config Config, opts ...Option) (*Backend, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natskv", "New", "client is required")
	}
	if config.BucketPrefix == "" {
		config.BucketPrefix = DefaultBucketPrefix
	}
	if err := kv.ValidateName(config.BucketPrefix); err != nil {
		return nil, err
	}
	if config.Replicas <= 0 {
		config.Replicas = 1
	}

	b := &Backend{
		client: client,
		config: config,
		logger: slog.Default(),
		stores: make(map[string]*Store),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "natskv")
	return b, nil
}

// BucketName returns the bucket backing the named store.
func (b *Backend) BucketName(name string) string {
	return b.config.BucketPrefix + "_" + name
}

// Open implements kv.Backend.
func (b *Backend) Open(ctx context.Context, name string) (kv.Store, error) {
	if err := kv.ValidateName(name); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.stores[name]; ok {
		return s, nil
	}

	bucket, err := b.client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      b.BucketName(name),
		Description: "graphdata cache store " + name,
		History:     1,
		Replicas:    b.config.Replicas,
		Storage:     b.config.Storage,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natskv", "Open", fmt.Sprintf("open bucket for %s", name))
	}

	s := &Store{name: name, kv: b.client.NewKVStore(bucket)}
	b.stores[name] = s
	b.logger.Debug("Opened store", "store", name, "bucket", bucket.Bucket())
	return s, nil
}

// Close forgets opened stores and, with WithOwnedClient, closes the client.
func (b *Backend) Close() error {
	b.mu.Lock()
	b.stores = make(map[string]*Store)
	b.mu.Unlock()
	if b.owned {
		return b.client.Close(context.Background())
	}
	return nil
}

// Store is one JetStream KV bucket.
type Store struct {
	name string
	kv   *natsclient.KVStore
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, kv.ErrNotFound
	}
	entry, err := s.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
			return nil, kv.ErrNotFound
		}
		return nil, errors.WrapTransient(err, "natskv", "Get", s.name)
	}
	return entry.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, encodeKey(key), value); err != nil {
		return errors.WrapTransient(err, "natskv", "Put", s.name)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.kv.Delete(ctx, encodeKey(key)); err != nil {
		return errors.WrapTransient(err, "natskv", "Delete", s.name)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	raw, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "natskv", "Keys", s.name)
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		key, err := decodeKey(k)
		if err != nil {
			return nil, errors.WrapFatal(err, "natskv", "Keys", "decode key "+k)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Clear(ctx); err != nil {
		return errors.WrapTransient(err, "natskv", "Clear", s.name)
	}
	return nil
}

func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeKey(encoded string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
