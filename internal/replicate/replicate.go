// Package replicate keeps an in-memory roster in step with a persisted one
// written by somebody else, giving a read-only "live view" of another
// tracker.
//
// A [Poller] re-reads the persisted roster on a fixed interval and, when its
// canonical form differs from the local roster, replaces the local roster
// wholesale. Malformed or partial documents are skipped until the next tick.
// A [Controller] turns polling on and off and fans changes out to
// subscribers.
package replicate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/pkg/kv"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = time.Second

// Source yields the current serialised roster. ok is false when nothing has
// been persisted yet.
type Source interface {
	Fetch(ctx context.Context) (doc string, ok bool, err error)
}

// SyncFunc inspects the local roster and returns the roster to install in
// its place. ok is false when the local roster should stay.
type SyncFunc func(local []roster.Character) (next []roster.Character, ok bool, err error)

// Target is the local roster that replication overwrites.
//
// Replicate must run fn with local writers held off and install next when
// fn reports ok. The poller reads its source inside fn, so a local write
// is either fully persisted before the read or starts after the replacement.
type Target interface {
	Replicate(ctx context.Context, fn SyncFunc) error
}

// StoreTarget adapts a [roster.Store] that has no writers besides the
// replication itself.
type StoreTarget struct {
	store roster.Store
	mu    sync.Mutex
}

var _ Target = (*StoreTarget)(nil)

// NewStoreTarget returns a [Target] over store.
func NewStoreTarget(store roster.Store) *StoreTarget {
	return &StoreTarget{store: store}
}

// Replicate implements [Target].
func (t *StoreTarget) Replicate(ctx context.Context, fn SyncFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	local, err := t.store.Characters(ctx)
	if err != nil {
		return fmt.Errorf("replicate: read local roster: %w", err)
	}
	next, ok, err := fn(local)
	if err != nil || !ok {
		return err
	}
	if err := t.store.ReplaceCharacters(ctx, next); err != nil {
		return fmt.Errorf("replicate: replace local roster: %w", err)
	}
	return nil
}

// Change describes one replacement of the local roster.
type Change struct {
	Characters []roster.Character
	At         time.Time
}

// Notifier delivers changes to subscribers. The returned function removes
// the subscription and is safe to call more than once.
type Notifier interface {
	Subscribe(fn func(Change)) (unsubscribe func())
}

// KVSource reads one key of a [kv.Store].
type KVSource struct {
	Store kv.Store
	Key   string
}

// NewKVSource returns a [KVSource] for the character roster key.
func NewKVSource(store kv.Store) *KVSource {
	return &KVSource{Store: store, Key: kv.KeyCharacters}
}

// Fetch implements [Source].
func (s *KVSource) Fetch(ctx context.Context) (string, bool, error) {
	doc, err := s.Store.Load(ctx, s.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("replicate: fetch %q: %w", s.Key, err)
	}
	return doc, true, nil
}

// canonical decodes and re-encodes a stored roster so formatting and key
// order never count as a change.
func canonical(doc string) ([]roster.Character, string, error) {
	cs, err := roster.DecodeCharacters(doc)
	if err != nil {
		return nil, "", err
	}
	enc, err := roster.Encode(cs)
	if err != nil {
		return nil, "", err
	}
	return cs, enc, nil
}
