// Package tracker is the service facade over the roster core. It owns the
// process-level mutex that serialises compound operations, persists every
// document a mutation touches, and records metrics and spans for each
// operation. MCP tools, the CLI and tests all go through a [Service].
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/roster/internal/badge"
	"github.com/MrWong99/roster/internal/itemdb"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/replicate"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/pkg/kv"
)

var (
	// ErrDuplicateName is returned when an item entry would share its name,
	// ignoring case, with another entry.
	ErrDuplicateName = errors.New("tracker: name already in use")

	// ErrRecipeNotFound is returned when no recipe has the requested name.
	ErrRecipeNotFound = errors.New("tracker: recipe not found")
)

// Service coordinates the entity store, the persistence adapter and the
// resolution engines. The zero value is not usable; call [New].
type Service struct {
	store   roster.Store
	kv      kv.Store
	eval    *badge.Evaluator
	matcher *itemdb.Matcher
	metrics *observe.Metrics

	// mu serialises mutations so a read-modify-persist sequence never
	// interleaves with another one.
	mu sync.Mutex

	// reported is the character count last added to the gauge. Guarded by mu.
	reported int64

	loaded atomic.Bool

	subsMu  sync.Mutex
	subs    map[int]func(replicate.Change)
	nextSub int
}

var (
	_ replicate.Notifier = (*Service)(nil)
	_ replicate.Target   = (*Service)(nil)
)

// Option configures a [Service].
type Option func(*Service)

// WithMetrics sets the instruments the service records to. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEvaluator replaces the badge evaluator, for example to share its
// compile cache with another component.
func WithEvaluator(e *badge.Evaluator) Option {
	return func(s *Service) { s.eval = e }
}

// WithMatcher replaces the fuzzy item-name matcher.
func WithMatcher(m *itemdb.Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

// New returns a Service reading and writing store and persisting to docs.
// Call [Service.Load] before serving requests.
func New(store roster.Store, docs kv.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		kv:    docs,
		subs:  make(map[int]func(replicate.Change)),
	}
	for _, o := range opts {
		o(s)
	}
	if s.eval == nil {
		s.eval = badge.NewEvaluator()
	}
	if s.matcher == nil {
		s.matcher = itemdb.NewMatcher()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Store returns the entity store the service operates on.
func (s *Service) Store() roster.Store { return s.store }

// Loaded reports whether [Service.Load] has completed at least once.
func (s *Service) Loaded() bool { return s.loaded.Load() }

// ─── Load / Save ─────────────────────────────────────────────────────────────

// Load reads the four documents from the persistence adapter and replaces
// the store's contents. A missing or corrupt character document falls back
// to the default roster; the other documents fall back to empty lists. The
// item database is cleaned and topped up with placeholders for inventory
// items it does not know, and written back when that changed anything.
func (s *Service) Load(ctx context.Context) (err error) {
	ctx, span := observe.StartSpan(ctx, "tracker.Load")
	defer func() { observe.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make(map[string]string, len(kv.Keys))
	var rawMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range kv.Keys {
		g.Go(func() error {
			doc, err := s.kv.Load(gctx, key)
			if errors.Is(err, kv.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("tracker: load %s: %w", key, err)
			}
			rawMu.Lock()
			raw[key] = doc
			rawMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var snap roster.Snapshot
	snap.Characters = decodeOr(ctx, kv.KeyCharacters, raw, roster.DecodeCharacters, roster.DefaultCharacters)
	snap.Badges = decodeOr(ctx, kv.KeyBadges, raw, roster.DecodeBadges, func() []roster.BadgeRule { return []roster.BadgeRule{} })
	snap.Items = decodeOr(ctx, kv.KeyItems, raw, roster.DecodeItems, func() []roster.ItemEntry { return []roster.ItemEntry{} })
	snap.Recipes = decodeOr(ctx, kv.KeyRecipes, raw, roster.DecodeRecipes, func() []roster.Recipe { return []roster.Recipe{} })

	items, removed := itemdb.Validate(snap.Items)
	items, added := itemdb.AddMissingFromInventories(items, snap.Characters)
	snap.Items = items

	if err := s.store.Restore(ctx, snap); err != nil {
		return fmt.Errorf("tracker: load: %w", err)
	}
	s.reportCharacters(ctx, len(snap.Characters))
	s.loaded.Store(true)

	slog.Info("tracker: loaded",
		"characters", len(snap.Characters),
		"badges", len(snap.Badges),
		"items", len(snap.Items),
		"recipes", len(snap.Recipes),
		"items_removed", removed,
		"items_added", len(added),
	)
	if removed > 0 || len(added) > 0 {
		return s.persist(ctx, kv.KeyItems)
	}
	return nil
}

// decodeOr decodes raw[key] with decode, falling back to def when the key is
// absent or its document cannot be parsed.
func decodeOr[T any](ctx context.Context, key string, raw map[string]string, decode func(string) ([]T, error), def func() []T) []T {
	doc, ok := raw[key]
	if !ok {
		return def()
	}
	v, err := decode(doc)
	if err != nil {
		observe.Logger(ctx).Warn("tracker: stored document is corrupt, using defaults", "key", key, "err", err)
		return def()
	}
	return v
}

// Save writes all four documents.
func (s *Service) Save(ctx context.Context) (err error) {
	ctx, span := observe.StartSpan(ctx, "tracker.Save")
	defer func() { observe.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, kv.Keys...)
}

// persist encodes the named collections from the store and saves them. It
// attempts every key and joins the failures. The caller holds mu.
func (s *Service) persist(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		doc, err := s.encode(ctx, key)
		if err == nil {
			start := time.Now()
			err = s.kv.Save(ctx, key, doc)
			s.metrics.RecordPersist(ctx, key, time.Since(start))
		}
		if err != nil {
			observe.Logger(ctx).Error("tracker: persist failed", "key", key, "err", err)
			errs = append(errs, fmt.Errorf("tracker: save %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) encode(ctx context.Context, key string) (string, error) {
	switch key {
	case kv.KeyCharacters:
		cs, err := s.store.Characters(ctx)
		if err != nil {
			return "", err
		}
		return roster.Encode(cs)
	case kv.KeyBadges:
		bs, err := s.store.Badges(ctx)
		if err != nil {
			return "", err
		}
		return roster.Encode(bs)
	case kv.KeyItems:
		es, err := s.store.Items(ctx)
		if err != nil {
			return "", err
		}
		return roster.Encode(es)
	case kv.KeyRecipes:
		rs, err := s.store.Recipes(ctx)
		if err != nil {
			return "", err
		}
		return roster.Encode(rs)
	}
	return "", fmt.Errorf("tracker: unknown document key %q", key)
}

// charactersChanged persists the roster and adds database placeholders for
// inventory items the database has not seen yet. The caller holds mu.
func (s *Service) charactersChanged(ctx context.Context) error {
	cs, err := s.store.Characters(ctx)
	if err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	s.reportCharacters(ctx, len(cs))

	keys := []string{kv.KeyCharacters}
	items, err := s.store.Items(ctx)
	if err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	if items, added := itemdb.AddMissingFromInventories(items, cs); len(added) > 0 {
		if err := s.store.ReplaceItems(ctx, items); err != nil {
			return fmt.Errorf("tracker: %w", err)
		}
		slog.Debug("tracker: item database extended from inventories", "added", added)
		keys = append(keys, kv.KeyItems)
	}
	err = s.persist(ctx, keys...)
	s.publish(replicate.Change{Characters: cs, At: time.Now()})
	return err
}

func (s *Service) reportCharacters(ctx context.Context, n int) {
	s.metrics.Characters.Add(ctx, int64(n)-s.reported)
	s.reported = int64(n)
}

// Replicate implements [replicate.Target]. fn runs under the service lock,
// so it never observes a mutation that is committed to the store but not
// yet persisted. A replaced roster is not written back; the character gauge
// and the item database are brought in step with it.
func (s *Service) Replicate(ctx context.Context, fn replicate.SyncFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, err := s.store.Characters(ctx)
	if err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	cs, ok, err := fn(local)
	if err != nil || !ok {
		return err
	}
	if err := s.store.ReplaceCharacters(ctx, cs); err != nil {
		return fmt.Errorf("tracker: replicate: %w", err)
	}
	s.metrics.ReplicationReloads.Add(ctx, 1)
	s.reportCharacters(ctx, len(cs))

	items, err := s.store.Items(ctx)
	if err != nil {
		return nil
	}
	if items, added := itemdb.AddMissingFromInventories(items, cs); len(added) > 0 {
		if err := s.store.ReplaceItems(ctx, items); err != nil {
			slog.Warn("tracker: extend item database after reload", "err", err)
			return nil
		}
		_ = s.persist(ctx, kv.KeyItems)
	}
	return nil
}

// Subscribe registers fn to receive the roster after every local change,
// whether or not it could be persisted. fn runs while the service lock is
// held and must not call back into the service.
func (s *Service) Subscribe(fn func(replicate.Change)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Service) publish(ch replicate.Change) {
	s.subsMu.Lock()
	fns := make([]func(replicate.Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// updateCharacter runs fn on character i under the service lock and
// persists the result.
func (s *Service) updateCharacter(ctx context.Context, op string, i int, fn func(*roster.Character) error) (c roster.Character, err error) {
	ctx, span := observe.StartSpan(ctx, "tracker."+op)
	defer func() { observe.EndSpan(span, err, observe.Attr("op", op)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCharacterLocked(ctx, op, i, fn)
}

func (s *Service) updateCharacterLocked(ctx context.Context, op string, i int, fn func(*roster.Character) error) (roster.Character, error) {
	c, err := s.store.UpdateCharacter(ctx, i, fn)
	if err != nil {
		observe.Logger(ctx).Info("tracker: refused", "op", op, "character", i, "err", err)
		return roster.Character{}, fmt.Errorf("tracker: %s: %w", op, err)
	}
	observe.Logger(ctx).Debug("tracker: character updated", "op", op, "character", i, "name", c.Name)
	return c, s.charactersChanged(ctx)
}

// mutate runs fn under the service lock and persists keys when it succeeds.
func (s *Service) mutate(ctx context.Context, op string, fn func() error, keys ...string) (err error) {
	ctx, span := observe.StartSpan(ctx, "tracker."+op)
	defer func() { observe.EndSpan(span, err, observe.Attr("op", op)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		observe.Logger(ctx).Info("tracker: refused", "op", op, "err", err)
		return fmt.Errorf("tracker: %s: %w", op, err)
	}
	observe.Logger(ctx).Debug("tracker: mutation", "op", op)

	var others []string
	characters := false
	for _, k := range keys {
		if k == kv.KeyCharacters {
			characters = true
			continue
		}
		others = append(others, k)
	}
	err = s.persist(ctx, others...)
	if characters {
		err = errors.Join(err, s.charactersChanged(ctx))
	}
	return err
}
