// Package kv defines the persistence contract the roster core requires from
// its environment: a flat mapping from named keys to serialised documents.
//
// The roster keeps four independent documents (characters, badge rules, item
// database, crafting recipes). There is no transactional guarantee across
// keys; each Save replaces exactly one document.
//
// Implementations:
//   - [MemStore]: in-process map, used for tests and ephemeral sessions.
//   - [FileStore]: one JSON file per key in a directory.
//   - kv/postgres: a single key/value table in PostgreSQL.
//   - kv/sqlite: a single key/value table in an embedded SQLite file.
//
// Every implementation must be safe for concurrent use.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no document is stored under the key.
var ErrNotFound = errors.New("kv: key not found")

// Well-known document keys. The names match the keys used by the
// browser storage so exported snapshots stay interchangeable.
const (
	KeyCharacters = "characterData"
	KeyBadges     = "badgeData"
	KeyItems      = "itemDatabase"
	KeyRecipes    = "craftingRecipes"
)

// Keys lists every document key in load order.
var Keys = []string{KeyCharacters, KeyBadges, KeyItems, KeyRecipes}

// Store is the persistence adapter.
type Store interface {
	// Load returns the document stored under key.
	// Returns [ErrNotFound] when the key has never been saved or was cleared.
	Load(ctx context.Context, key string) (string, error)

	// Save replaces the document stored under key.
	Save(ctx context.Context, key, value string) error

	// Clear removes the document stored under key. Clearing a missing key is
	// not an error.
	Clear(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by an external resource whose
// availability can be probed (used by readiness checks).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores holding resources that must be released.
type Closer interface {
	Close() error
}

// Prefixed wraps s so that every key is stored as prefix+key. An empty prefix
// returns s unchanged.
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Load(ctx context.Context, key string) (string, error) {
	return p.inner.Load(ctx, p.prefix+key)
}

func (p *prefixed) Save(ctx context.Context, key, value string) error {
	return p.inner.Save(ctx, p.prefix+key, value)
}

func (p *prefixed) Clear(ctx context.Context, key string) error {
	return p.inner.Clear(ctx, p.prefix+key)
}

// Ping forwards to the wrapped store when it supports probing.
func (p *prefixed) Ping(ctx context.Context) error {
	if pg, ok := p.inner.(Pinger); ok {
		return pg.Ping(ctx)
	}
	return nil
}

// Close forwards to the wrapped store when it holds resources.
func (p *prefixed) Close() error {
	if c, ok := p.inner.(Closer); ok {
		return c.Close()
	}
	return nil
}
