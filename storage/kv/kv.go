// Package kv defines the persistent key-value layer behind the cached provider.
//
// A Backend is one persistence engine (process memory, a NATS JetStream
// server, a SQLite file, a Badger directory). It hands out named Stores, one
// per cached operation plus a meta store, each an independent namespace of
// byte values keyed by arbitrary strings. Keys are element and type IRIs, so
// backends must accept any non-empty string and encode it as their engine
// requires.
//
// Implementations:
//   - memory: pkg/cache, for tests and single-process deployments
//   - natskv: one JetStream KV bucket per store
//   - sqlite: one table row per key in a shared database file
//   - badger: one key prefix per store in an embedded Badger database
//
// All implementations must be safe for concurrent use. Concurrent writes to
// the same key are last-writer-wins.
package kv

import (
	"context"
	"fmt"
	"regexp"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
)

// ErrNotFound is returned by Store.Get for keys that are not present.
var ErrNotFound = errors.ErrKeyNotFound

// Store is one namespace of a Backend.
type Store interface {
	// Name returns the store name given to Backend.Open.
	Name() string

	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value at key, replacing any previous value. It stores
	// nothing once ctx is done.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key of the store in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every key of the store.
	Clear(ctx context.Context) error
}

// Backend opens named stores over one persistence engine.
type Backend interface {
	// Open returns the store with the given name, creating it if needed.
	// Opening the same name twice yields views of the same data.
	Open(ctx context.Context, name string) (Store, error)

	// Close releases the engine. Stores must not be used afterwards.
	Close() error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName checks that a store name is usable by every backend: letters,
// digits, '_' and '-'.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.WrapInvalid(fmt.Errorf("invalid store name %q", name), "kv", "ValidateName",
			"store names may contain only letters, digits, '_' and '-'")
	}
	return nil
}

// ValidateKey rejects the empty key.
func ValidateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "kv", "ValidateKey", "key cannot be empty")
	}
	return nil
}
