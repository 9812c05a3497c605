// Package badger implements kv.Backend in an embedded Badger database.
// A store's keys are prefixed with "<name>\x00", so one database holds every
// store and Clear drops a single prefix.
package badger

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// Config configures the Badger backend. An empty Dir keeps the database in
// memory.
type Config struct {
	Dir        string `json:"dir" yaml:"dir"`
	SyncWrites bool   `json:"sync_writes" yaml:"sync_writes"`
}

// Backend is an open Badger database.
type Backend struct {
	db *badger.DB
}

var _ kv.Backend = (*Backend)(nil)

// Open opens (or creates) the database described by config. Badger's own
// logging is routed to logger at the matching level; nil uses slog.Default().
func Open(config Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(config.Dir).
		WithSyncWrites(config.SyncWrites).
		WithLogger(slogAdapter{logger.With("component", "badger")})
	if config.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WrapFatal(err, "badger", "Open", "open database")
	}
	return &Backend{db: db}, nil
}

// Open implements kv.Backend.
func (b *Backend) Open(_ context.Context, name string) (kv.Store, error) {
	if err := kv.ValidateName(name); err != nil {
		return nil, err
	}
	return &Store{db: b.db, name: name, prefix: []byte(name + "\x00")}, nil
}

// Close flushes and closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Store is one key prefix of the database.
type Store struct {
	db     *badger.DB
	name   string
	prefix []byte
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) key(key string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	return append(out, key...)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) || stderrors.Is(err, badger.ErrEmptyKey) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, s.wrap(err, "Get")
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), value)
	})
	return s.wrap(err, "Put")
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	return s.wrap(err, "Delete")
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(s.prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, "Keys")
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wrap(s.db.DropPrefix(s.prefix), "Clear")
}

func (s *Store) wrap(err error, method string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if stderrors.Is(err, badger.ErrDBClosed) {
		return errors.WrapFatal(err, "badger", method, fmt.Sprintf("store %s", s.name))
	}
	return errors.WrapTransient(err, "badger", method, fmt.Sprintf("store %s", s.name))
}

// slogAdapter satisfies badger.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
