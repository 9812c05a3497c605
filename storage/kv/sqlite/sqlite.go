// Package sqlite implements kv.Backend in a single SQLite database file.
// Every store shares one table keyed by (store, key).
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// Backend is an open SQLite database.
type Backend struct {
	db *sql.DB
}

var _ kv.Backend = (*Backend)(nil)

// Open opens (or creates) the database at path and creates the entries table.
func Open(ctx context.Context, path string) (*Backend, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "sqlite", "Open", "path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapFatal(err, "sqlite", "Open", "open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapTransient(err, "sqlite", "Open", "ping database")
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.WrapFatal(err, "sqlite", "Open", "migrate database")
	}
	return &Backend{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kv_entries (
	store TEXT NOT NULL,
	key   TEXT NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (store, key)
) WITHOUT ROWID;
`
	_, err := db.ExecContext(ctx, ddl)
	return err
}

// Open implements kv.Backend. Stores need no setup beyond the shared table.
func (b *Backend) Open(_ context.Context, name string) (kv.Store, error) {
	if err := kv.ValidateName(name); err != nil {
		return nil, err
	}
	return &Store{db: b.db, name: name}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Store is the set of rows of one store name.
type Store struct {
	db   *sql.DB
	name string
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE store = ? AND key = ?`, s.name, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
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
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_entries (store, key, value) VALUES (?, ?, ?)
ON CONFLICT (store, key) DO UPDATE SET value = excluded.value`, s.name, key, value)
	return s.wrap(err, "Put")
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE store = ? AND key = ?`, s.name, key)
	return s.wrap(err, "Delete")
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_entries WHERE store = ?`, s.name)
	if err != nil {
		return nil, s.wrap(err, "Keys")
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.wrap(err, "Keys")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err, "Keys")
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE store = ?`, s.name)
	return s.wrap(err, "Clear")
}

func (s *Store) wrap(err error, method string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.WrapTransient(err, "sqlite", method, fmt.Sprintf("store %s", s.name))
}
