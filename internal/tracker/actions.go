package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/roster/internal/crafting"
	"github.com/MrWong99/roster/internal/effect"
	"github.com/MrWong99/roster/internal/inventory"
	"github.com/MrWong99/roster/internal/itemdb"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/pkg/kv"
)

// UseResult is what [Service.UseItem] did.
type UseResult struct {
	// Item is the database entry whose effects were applied.
	Item roster.ItemEntry

	// Created is set when the entry was auto-created for an unknown name.
	Created bool

	Outcomes []effect.Outcome
}

// ApplyEffects runs effects against character i in order and returns one
// outcome per effect.
func (s *Service) ApplyEffects(ctx context.Context, i int, effects []roster.Effect) ([]effect.Outcome, error) {
	var out []effect.Outcome
	_, err := s.updateCharacter(ctx, "ApplyEffects", i, func(c *roster.Character) error {
		out = effect.Apply(c, effects)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordOutcomes(ctx, out)
	return out, nil
}

// UseItem applies the effects of the item database entry called name to
// character i. The lookup ignores case; an unknown name gets a placeholder
// entry without effects. The item is not consumed from any inventory.
func (s *Service) UseItem(ctx context.Context, i int, name string) (res UseResult, err error) {
	ctx, span := observe.StartSpan(ctx, "tracker.UseItem")
	defer func() { observe.EndSpan(span, err, observe.Attr("item", name)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Character(ctx, i); err != nil {
		return UseResult{}, fmt.Errorf("tracker: use item: %w", err)
	}
	items, err := s.store.Items(ctx)
	if err != nil {
		return UseResult{}, fmt.Errorf("tracker: use item: %w", err)
	}
	items, entry, created := itemdb.EnsureEntry(items, name)
	if entry.Name == "" {
		return UseResult{}, fmt.Errorf("tracker: use item: %w", inventory.ErrEmptyName)
	}
	if created {
		if err := s.store.ReplaceItems(ctx, items); err != nil {
			return UseResult{}, fmt.Errorf("tracker: use item: %w", err)
		}
		observe.Logger(ctx).Info("tracker: item not in database, created placeholder", "item", entry.Name)
		if err := s.persist(ctx, kv.KeyItems); err != nil {
			return UseResult{}, err
		}
	}

	res = UseResult{Item: entry, Created: created}
	_, err = s.updateCharacterLocked(ctx, "UseItem", i, func(c *roster.Character) error {
		res.Outcomes = effect.Apply(c, entry.Effects)
		return nil
	})
	if err != nil {
		return res, err
	}
	s.recordOutcomes(ctx, res.Outcomes)
	return res, nil
}

func (s *Service) recordOutcomes(ctx context.Context, out []effect.Outcome) {
	for _, o := range out {
		s.metrics.RecordEffect(ctx, string(o.Effect.Type), o.Skipped)
	}
}

// EvaluateBadges returns the badge rules character i currently satisfies,
// in declaration order. Rules that fail to parse or evaluate never match.
func (s *Service) EvaluateBadges(ctx context.Context, i int) ([]roster.BadgeRule, error) {
	c, err := s.store.Character(ctx, i)
	if err != nil {
		return nil, fmt.Errorf("tracker: evaluate badges: %w", err)
	}
	rules, err := s.store.Badges(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker: evaluate badges: %w", err)
	}
	matched := s.eval.MatchAll(rules, c)
	for range matched {
		s.metrics.RecordBadge(ctx, true)
	}
	for range len(rules) - len(matched) {
		s.metrics.RecordBadge(ctx, false)
	}
	return matched, nil
}

// ─── Crafting ────────────────────────────────────────────────────────────────

// Recipe returns the first recipe called name (exact match).
func (s *Service) Recipe(ctx context.Context, name string) (roster.Recipe, error) {
	rs, err := s.store.Recipes(ctx)
	if err != nil {
		return roster.Recipe{}, err
	}
	i := slices.IndexFunc(rs, func(r roster.Recipe) bool { return r.Name == name })
	if i < 0 {
		return roster.Recipe{}, fmt.Errorf("%w: %q", ErrRecipeNotFound, name)
	}
	return rs[i], nil
}

// Preview reports whether character i can craft recipe name m times.
func (s *Service) Preview(ctx context.Context, i int, name string, m int) (crafting.Sufficiency, error) {
	r, c, err := s.recipeAndCharacter(ctx, i, name)
	if err != nil {
		return crafting.Sufficiency{}, fmt.Errorf("tracker: preview: %w", err)
	}
	return crafting.ComputeSufficiency(r, c.Items, m), nil
}

// MaxQuantity returns the largest multiplier character i can afford for
// recipe name, floored at 1.
func (s *Service) MaxQuantity(ctx context.Context, i int, name string) (int, error) {
	r, c, err := s.recipeAndCharacter(ctx, i, name)
	if err != nil {
		return 0, fmt.Errorf("tracker: max quantity: %w", err)
	}
	return crafting.MaxQuantity(r, c.Items), nil
}

// OpenCraft starts a crafting session for recipe name.
func (s *Service) OpenCraft(ctx context.Context, name string) (*crafting.Session, error) {
	r, err := s.Recipe(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("tracker: open craft: %w", err)
	}
	sess := crafting.NewSession()
	if err := sess.Select(r); err != nil {
		return nil, fmt.Errorf("tracker: open craft: %w", err)
	}
	return sess, nil
}

// CommitCraft commits sess against character i. The inventory is
// re-checked at commit time; a refusal wraps [crafting.ErrInsufficient] and
// the returned sufficiency names the short materials.
func (s *Service) CommitCraft(ctx context.Context, i int, sess *crafting.Session) (crafting.Sufficiency, error) {
	var res crafting.Sufficiency
	_, err := s.updateCharacter(ctx, "Craft", i, func(c *roster.Character) error {
		var err error
		res, err = sess.Commit(c)
		return err
	})
	status := "ok"
	switch {
	case errors.Is(err, crafting.ErrInsufficient):
		status = "insufficient"
	case err != nil:
		status = "error"
	}
	s.metrics.RecordCraft(ctx, status)
	return res, err
}

// Craft performs recipe name m times for character i.
func (s *Service) Craft(ctx context.Context, i int, name string, m int) (crafting.Sufficiency, error) {
	sess, err := s.OpenCraft(ctx, name)
	if err != nil {
		s.metrics.RecordCraft(ctx, "error")
		return crafting.Sufficiency{}, err
	}
	if err := sess.SetQuantity(m); err != nil {
		return crafting.Sufficiency{}, fmt.Errorf("tracker: craft: %w", err)
	}
	return s.CommitCraft(ctx, i, sess)
}

func (s *Service) recipeAndCharacter(ctx context.Context, i int, name string) (roster.Recipe, roster.Character, error) {
	r, err := s.Recipe(ctx, name)
	if err != nil {
		return roster.Recipe{}, roster.Character{}, err
	}
	c, err := s.store.Character(ctx, i)
	if err != nil {
		return roster.Recipe{}, roster.Character{}, err
	}
	return r, c, nil
}

// ─── Transfer ────────────────────────────────────────────────────────────────

// TransferItem moves up to qty units of inventory line l from character src
// to character dst and returns the quantity moved. Both characters are
// written together or not at all.
func (s *Service) TransferItem(ctx context.Context, src, l, dst, qty int) (moved int, err error) {
	ctx, span := observe.StartSpan(ctx, "tracker.TransferItem")
	defer func() { observe.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.UpdateCharacters(ctx, func(cs []roster.Character) error {
		if src < 0 || src >= len(cs) || dst < 0 || dst >= len(cs) {
			return roster.ErrNotFound
		}
		if src == dst {
			return inventory.ErrSameCharacter
		}
		var err error
		moved, err = inventory.Transfer(&cs[src], &cs[dst], l, qty)
		return err
	})
	if err != nil {
		observe.Logger(ctx).Info("tracker: refused", "op", "TransferItem", "src", src, "dst", dst, "err", err)
		return 0, fmt.Errorf("tracker: transfer: %w", err)
	}
	s.metrics.Transfers.Add(ctx, 1)
	observe.Logger(ctx).Debug("tracker: transferred", "src", src, "dst", dst, "moved", moved)
	return moved, s.charactersChanged(ctx)
}
