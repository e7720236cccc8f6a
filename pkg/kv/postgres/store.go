// Package postgres provides a PostgreSQL-backed [kv.Store].
//
// Documents live in a single table keyed by document name:
//
//	store, err := postgres.Open(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Save(ctx, kv.KeyCharacters, `[...]`)
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/roster/pkg/kv"
)

// Schema is the SQL DDL for the roster_documents table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS roster_documents (
    key         TEXT         PRIMARY KEY,
    value       TEXT         NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// Store is a [kv.Store] backed by a PostgreSQL table.
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// New creates a Store on top of an existing connection or pool. The caller
// is responsible for calling [Store.Migrate] before issuing queries and for
// closing db.
func New(db DB) *Store {
	return &Store{db: db}
}

// Open creates a connection pool for dsn, verifies connectivity and runs
// [Store.Migrate]. The returned Store owns the pool; call Close to release it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("kv postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("kv postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kv postgres: ping: %w", err)
	}

	s := &Store{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes the [Schema] DDL.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("kv postgres: migrate: %w", err)
	}
	return nil
}

// Load implements [kv.Store.Load].
func (s *Store) Load(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM roster_documents WHERE key = $1`

	var value string
	if err := s.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", kv.ErrNotFound
		}
		return "", fmt.Errorf("kv postgres: load %q: %w", key, err)
	}
	return value, nil
}

// Save implements [kv.Store.Save].
func (s *Store) Save(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO roster_documents (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`

	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("kv postgres: save %q: %w", key, err)
	}
	return nil
}

// Clear implements [kv.Store.Clear].
func (s *Store) Clear(ctx context.Context, key string) error {
	const query = `DELETE FROM roster_documents WHERE key = $1`

	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("kv postgres: clear %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity when the Store owns its pool.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close releases the pool when the Store owns it.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
