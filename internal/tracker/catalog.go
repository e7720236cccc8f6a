package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/roster/internal/badge"
	"github.com/MrWong99/roster/internal/itemdb"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/pkg/kv"
)

// ─── Badges ──────────────────────────────────────────────────────────────────

// Badges returns the badge rules in declaration order.
func (s *Service) Badges(ctx context.Context) ([]roster.BadgeRule, error) {
	return s.store.Badges(ctx)
}

// CheckBadge reports problems with a badge condition: syntax errors and
// references to fields no character has. Rules are stored even when this
// returns an error; they simply never match.
func (s *Service) CheckBadge(cond string) error {
	return badge.Explain(cond)
}

// AddBadge appends a badge rule.
func (s *Service) AddBadge(ctx context.Context, b roster.BadgeRule) error {
	s.explainBadge(ctx, b)
	return s.mutate(ctx, "AddBadge", func() error {
		return s.store.AddBadge(ctx, b)
	}, kv.KeyBadges)
}

// UpdateBadge replaces badge rule i.
func (s *Service) UpdateBadge(ctx context.Context, i int, b roster.BadgeRule) error {
	s.explainBadge(ctx, b)
	return s.mutate(ctx, "UpdateBadge", func() error {
		return s.store.UpdateBadge(ctx, i, b)
	}, kv.KeyBadges)
}

// RemoveBadge deletes badge rule i.
func (s *Service) RemoveBadge(ctx context.Context, i int) error {
	return s.mutate(ctx, "RemoveBadge", func() error {
		return s.store.RemoveBadge(ctx, i)
	}, kv.KeyBadges)
}

func (s *Service) explainBadge(ctx context.Context, b roster.BadgeRule) {
	if err := badge.Explain(b.Cond); err != nil {
		observe.Logger(ctx).Info("tracker: badge condition will never match", "badge", b.Name, "err", err)
	}
}

// ─── Item database ───────────────────────────────────────────────────────────

// Items returns the item database in display order.
func (s *Service) Items(ctx context.Context) ([]roster.ItemEntry, error) {
	return s.store.Items(ctx)
}

// FilterItems returns the entries whose name, description, acquisition text
// or effects contain term, ignoring case.
func (s *Service) FilterItems(ctx context.Context, term string) ([]roster.ItemEntry, error) {
	es, err := s.store.Items(ctx)
	if err != nil {
		return nil, err
	}
	idx := itemdb.Filter(es, term)
	out := make([]roster.ItemEntry, 0, len(idx))
	for _, i := range idx {
		out = append(out, es[i])
	}
	return out, nil
}

// Item returns the entry called name, ignoring case.
func (s *Service) Item(ctx context.Context, name string) (roster.ItemEntry, bool, error) {
	es, err := s.store.Items(ctx)
	if err != nil {
		return roster.ItemEntry{}, false, err
	}
	i, ok := itemdb.Lookup(es, name)
	if !ok {
		return roster.ItemEntry{}, false, nil
	}
	return es[i], true, nil
}

// SuggestItem returns the database or inventory item name closest to query,
// for "did you mean" prompts.
func (s *Service) SuggestItem(ctx context.Context, query string) (string, float64, bool, error) {
	names, err := s.Suggestions(ctx)
	if err != nil {
		return "", 0, false, err
	}
	name, score, ok := s.matcher.Suggest(query, names)
	return name, score, ok, nil
}

// PutItem inserts e, or replaces the entry with the same name ignoring case.
func (s *Service) PutItem(ctx context.Context, e roster.ItemEntry) error {
	e.Name = strings.TrimSpace(e.Name)
	return s.mutate(ctx, "PutItem", func() error {
		es, err := s.store.Items(ctx)
		if err != nil {
			return err
		}
		if i, ok := itemdb.Lookup(es, e.Name); ok {
			return s.store.UpdateItem(ctx, i, e)
		}
		return s.store.PutItem(ctx, e)
	}, kv.KeyItems)
}

// UpdateItem replaces entry i. The new name must not clash with another
// entry.
func (s *Service) UpdateItem(ctx context.Context, i int, e roster.ItemEntry) error {
	e.Name = strings.TrimSpace(e.Name)
	return s.mutate(ctx, "UpdateItem", func() error {
		es, err := s.store.Items(ctx)
		if err != nil {
			return err
		}
		if j, ok := itemdb.Lookup(es, e.Name); ok && j != i {
			return fmt.Errorf("%w: item %q", ErrDuplicateName, e.Name)
		}
		return s.store.UpdateItem(ctx, i, e)
	}, kv.KeyItems)
}

// RemoveItemEntry deletes entry i from the item database. Inventory lines
// with that name are kept, so the entry comes back as a placeholder on the
// next roster change.
func (s *Service) RemoveItemEntry(ctx context.Context, i int) error {
	return s.mutate(ctx, "RemoveItemEntry", func() error {
		return s.store.RemoveItem(ctx, i)
	}, kv.KeyItems)
}

// ─── Recipes ─────────────────────────────────────────────────────────────────

// Recipes returns the crafting recipes in display order.
func (s *Service) Recipes(ctx context.Context) ([]roster.Recipe, error) {
	return s.store.Recipes(ctx)
}

// PutRecipe inserts r, or replaces the recipe with the same exact name.
func (s *Service) PutRecipe(ctx context.Context, r roster.Recipe) error {
	r.Name = strings.TrimSpace(r.Name)
	return s.mutate(ctx, "PutRecipe", func() error {
		return s.store.PutRecipe(ctx, r)
	}, kv.KeyRecipes)
}

// RemoveRecipe deletes recipe i.
func (s *Service) RemoveRecipe(ctx context.Context, i int) error {
	return s.mutate(ctx, "RemoveRecipe", func() error {
		return s.store.RemoveRecipe(ctx, i)
	}, kv.KeyRecipes)
}
