package roster

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// Persistence is layered on top by the tracker, which snapshots the store
// into a key-value backend after every mutation.
// The zero value is ready to use and holds empty collections.
type MemStore struct {
	mu         sync.RWMutex
	characters []Character
	badges     []BadgeRule
	items      []ItemEntry
	recipes    []Recipe
}

// NewMemStore returns a [MemStore] seeded with s.
func NewMemStore(s Snapshot) *MemStore {
	m := &MemStore{}
	m.restore(s)
	return m
}

// ─── Characters ──────────────────────────────────────────────────────────────

// Characters implements [Store.Characters].
func (s *MemStore) Characters(ctx context.Context) ([]Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCharacters(s.characters), nil
}

// Character implements [Store.Character].
func (s *MemStore) Character(ctx context.Context, i int) (Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.characters) {
		return Character{}, fmt.Errorf("roster: character %d: %w", i, ErrNotFound)
	}
	return s.characters[i].Clone(), nil
}

// AddCharacter implements [Store.AddCharacter].
func (s *MemStore) AddCharacter(ctx context.Context, c Character) (int, error) {
	c = c.Clone()
	if err := ValidateCharacter(c); err != nil {
		return 0, fmt.Errorf("roster: add character: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = append(s.characters, c)
	return len(s.characters) - 1, nil
}

// UpdateCharacter implements [Store.UpdateCharacter].
func (s *MemStore) UpdateCharacter(ctx context.Context, i int, fn func(*Character) error) (Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.characters) {
		return Character{}, fmt.Errorf("roster: character %d: %w", i, ErrNotFound)
	}
	c := s.characters[i].Clone()
	if err := fn(&c); err != nil {
		return Character{}, err
	}
	c.Normalize()
	if err := ValidateCharacter(c); err != nil {
		return Character{}, fmt.Errorf("roster: update character %d: %w", i, err)
	}
	s.characters[i] = c
	return c.Clone(), nil
}

// UpdateCharacters implements [Store.UpdateCharacters].
func (s *MemStore) UpdateCharacters(ctx context.Context, fn func([]Character) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs := cloneCharacters(s.characters)
	if err := fn(cs); err != nil {
		return err
	}
	for i := range cs {
		cs[i].Normalize()
		if err := ValidateCharacter(cs[i]); err != nil {
			return fmt.Errorf("roster: update character %d: %w", i, err)
		}
	}
	s.characters = cs
	return nil
}

// RemoveCharacter implements [Store.RemoveCharacter].
func (s *MemStore) RemoveCharacter(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.characters) {
		return fmt.Errorf("roster: character %d: %w", i, ErrNotFound)
	}
	s.characters = slices.Delete(s.characters, i, i+1)
	return nil
}

// RenameCharacter implements [Store.RenameCharacter].
func (s *MemStore) RenameCharacter(ctx context.Context, i int, name string) error {
	_, err := s.UpdateCharacter(ctx, i, func(c *Character) error {
		c.Name = name
		return nil
	})
	return err
}

// MoveCharacter implements [Store.MoveCharacter].
func (s *MemStore) MoveCharacter(ctx context.Context, i, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.characters) {
		return 0, fmt.Errorf("roster: character %d: %w", i, ErrNotFound)
	}
	j := min(max(i+delta, 0), len(s.characters)-1)
	if j == i {
		return i, nil
	}
	c := s.characters[i]
	s.characters = slices.Delete(s.characters, i, i+1)
	s.characters = slices.Insert(s.characters, j, c)
	return j, nil
}

// ReplaceCharacters implements [Store.ReplaceCharacters]. Incoming records
// are normalised but not validated, so a replicated roster is taken as-is.
func (s *MemStore) ReplaceCharacters(ctx context.Context, cs []Character) error {
	cs = cloneCharacters(cs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = cs
	return nil
}

// ─── Badges ──────────────────────────────────────────────────────────────────

// Badges implements [Store.Badges].
func (s *MemStore) Badges(ctx context.Context) ([]BadgeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrEmpty(s.badges), nil
}

// AddBadge implements [Store.AddBadge].
func (s *MemStore) AddBadge(ctx context.Context, b BadgeRule) error {
	if err := ValidateBadge(b); err != nil {
		return fmt.Errorf("roster: add badge: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append(s.badges, b)
	return nil
}

// UpdateBadge implements [Store.UpdateBadge].
func (s *MemStore) UpdateBadge(ctx context.Context, i int, b BadgeRule) error {
	if err := ValidateBadge(b); err != nil {
		return fmt.Errorf("roster: update badge %d: %w", i, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.badges) {
		return fmt.Errorf("roster: badge %d: %w", i, ErrNotFound)
	}
	s.badges[i] = b
	return nil
}

// RemoveBadge implements [Store.RemoveBadge].
func (s *MemStore) RemoveBadge(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.badges) {
		return fmt.Errorf("roster: badge %d: %w", i, ErrNotFound)
	}
	s.badges = slices.Delete(s.badges, i, i+1)
	return nil
}

// ReplaceBadges implements [Store.ReplaceBadges].
func (s *MemStore) ReplaceBadges(ctx context.Context, bs []BadgeRule) error {
	bs = cloneOrEmpty(bs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = bs
	return nil
}

// ─── Items ───────────────────────────────────────────────────────────────────

// Items implements [Store.Items].
func (s *MemStore) Items(ctx context.Context) ([]ItemEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items), nil
}

// PutItem implements [Store.PutItem].
func (s *MemStore) PutItem(ctx context.Context, e ItemEntry) error {
	if err := ValidateItem(e); err != nil {
		return fmt.Errorf("roster: put item: %w", err)
	}
	e = e.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.items, func(x ItemEntry) bool { return x.Name == e.Name }); i >= 0 {
		s.items[i] = e
		return nil
	}
	s.items = append(s.items, e)
	return nil
}

// UpdateItem implements [Store.UpdateItem].
func (s *MemStore) UpdateItem(ctx context.Context, i int, e ItemEntry) error {
	if err := ValidateItem(e); err != nil {
		return fmt.Errorf("roster: update item %d: %w", i, err)
	}
	e = e.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("roster: item %d: %w", i, ErrNotFound)
	}
	s.items[i] = e
	return nil
}

// RemoveItem implements [Store.RemoveItem].
func (s *MemStore) RemoveItem(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("roster: item %d: %w", i, ErrNotFound)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// ReplaceItems implements [Store.ReplaceItems].
func (s *MemStore) ReplaceItems(ctx context.Context, es []ItemEntry) error {
	es = cloneItems(es)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = es
	return nil
}

// ─── Recipes ─────────────────────────────────────────────────────────────────

// Recipes implements [Store.Recipes].
func (s *MemStore) Recipes(ctx context.Context) ([]Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecipes(s.recipes), nil
}

// PutRecipe implements [Store.PutRecipe].
func (s *MemStore) PutRecipe(ctx context.Context, r Recipe) error {
	if err := ValidateRecipe(r); err != nil {
		return fmt.Errorf("roster: put recipe: %w", err)
	}
	r = r.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.recipes, func(x Recipe) bool { return x.Name == r.Name }); i >= 0 {
		s.recipes[i] = r
		return nil
	}
	s.recipes = append(s.recipes, r)
	return nil
}

// RemoveRecipe implements [Store.RemoveRecipe].
func (s *MemStore) RemoveRecipe(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.recipes) {
		return fmt.Errorf("roster: recipe %d: %w", i, ErrNotFound)
	}
	s.recipes = slices.Delete(s.recipes, i, i+1)
	return nil
}

// ReplaceRecipes implements [Store.ReplaceRecipes].
func (s *MemStore) ReplaceRecipes(ctx context.Context, rs []Recipe) error {
	rs = cloneRecipes(rs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes = rs
	return nil
}

// ─── Snapshot ────────────────────────────────────────────────────────────────

// Snapshot implements [Store.Snapshot].
func (s *MemStore) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Characters: cloneCharacters(s.characters),
		Badges:     cloneOrEmpty(s.badges),
		Items:      cloneItems(s.items),
		Recipes:    cloneRecipes(s.recipes),
	}, nil
}

// Restore implements [Store.Restore].
func (s *MemStore) Restore(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restore(snap)
	return nil
}

func (s *MemStore) restore(snap Snapshot) {
	s.characters = cloneCharacters(snap.Characters)
	s.badges = cloneOrEmpty(snap.Badges)
	s.items = cloneItems(snap.Items)
	s.recipes = cloneRecipes(snap.Recipes)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func cloneCharacters(cs []Character) []Character {
	out := make([]Character, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

func cloneItems(es []ItemEntry) []ItemEntry {
	out := make([]ItemEntry, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}

func cloneRecipes(rs []Recipe) []Recipe {
	out := make([]Recipe, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

func cloneOrEmpty[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
