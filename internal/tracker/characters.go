package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/roster/internal/inventory"
	"github.com/MrWong99/roster/internal/param"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/pkg/kv"
)

// Characters returns the roster in display order.
func (s *Service) Characters(ctx context.Context) ([]roster.Character, error) {
	return s.store.Characters(ctx)
}

// Character returns character i.
func (s *Service) Character(ctx context.Context, i int) (roster.Character, error) {
	return s.store.Character(ctx, i)
}

// AddCharacter appends a new record called name and returns its index.
// Characters start with both stats at their default; entities have none.
func (s *Service) AddCharacter(ctx context.Context, name string, entity bool) (int, error) {
	c := roster.NewCharacter(strings.TrimSpace(name))
	if entity {
		c = roster.NewEntity(strings.TrimSpace(name))
	}
	var idx int
	err := s.mutate(ctx, "AddCharacter", func() error {
		var err error
		idx, err = s.store.AddCharacter(ctx, c)
		return err
	}, kv.KeyCharacters)
	return idx, err
}

// RemoveCharacter deletes character i.
func (s *Service) RemoveCharacter(ctx context.Context, i int) error {
	return s.mutate(ctx, "RemoveCharacter", func() error {
		return s.store.RemoveCharacter(ctx, i)
	}, kv.KeyCharacters)
}

// RenameCharacter changes the display name of character i.
func (s *Service) RenameCharacter(ctx context.Context, i int, name string) error {
	return s.mutate(ctx, "RenameCharacter", func() error {
		return s.store.RenameCharacter(ctx, i, strings.TrimSpace(name))
	}, kv.KeyCharacters)
}

// MoveCharacter shifts character i by delta positions and returns its new
// index.
func (s *Service) MoveCharacter(ctx context.Context, i, delta int) (int, error) {
	var idx int
	err := s.mutate(ctx, "MoveCharacter", func() error {
		var err error
		idx, err = s.store.MoveCharacter(ctx, i, delta)
		return err
	}, kv.KeyCharacters)
	return idx, err
}

// SetAvatar stores an encoded image on character i. An empty avatar removes
// it.
func (s *Service) SetAvatar(ctx context.Context, i int, avatar string) error {
	_, err := s.updateCharacter(ctx, "SetAvatar", i, func(c *roster.Character) error {
		c.Avatar = avatar
		return nil
	})
	return err
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// SetStat sets a built-in stat of character i, clamped to its bounds, and
// returns the stored value.
func (s *Service) SetStat(ctx context.Context, i int, stat string, v int) (int, error) {
	var got int
	_, err := s.updateCharacter(ctx, "SetStat", i, func(c *roster.Character) error {
		var err error
		got, err = param.SetStat(c, stat, v)
		return err
	})
	return got, err
}

// AdjustStat adds delta to a built-in stat of character i.
func (s *Service) AdjustStat(ctx context.Context, i int, stat string, delta int) (int, error) {
	var got int
	_, err := s.updateCharacter(ctx, "AdjustStat", i, func(c *roster.Character) error {
		var err error
		got, err = param.AdjustStat(c, stat, delta)
		return err
	})
	return got, err
}

// ClearStat removes a built-in stat from character i.
func (s *Service) ClearStat(ctx context.Context, i int, stat string) error {
	_, err := s.updateCharacter(ctx, "ClearStat", i, func(c *roster.Character) error {
		if !roster.IsStat(stat) {
			return fmt.Errorf("%w: %q", param.ErrUnknownStat, stat)
		}
		c.ClearStat(stat)
		return nil
	})
	return err
}

// ─── Custom parameters ───────────────────────────────────────────────────────

// DefineParameter adds a custom parameter to character i.
func (s *Service) DefineParameter(ctx context.Context, i int, name string, spec param.Spec) (roster.Parameter, error) {
	return s.updateParameter(ctx, "DefineParameter", i, func(c *roster.Character) (roster.Parameter, error) {
		return param.Define(c, name, spec)
	})
}

// EditParameter renames and redefines a custom parameter of character i,
// carrying the value across.
func (s *Service) EditParameter(ctx context.Context, i int, oldName, newName string, spec param.Spec) (roster.Parameter, error) {
	return s.updateParameter(ctx, "EditParameter", i, func(c *roster.Character) (roster.Parameter, error) {
		return param.Edit(c, oldName, newName, spec)
	})
}

// RemoveParameter deletes a custom parameter from character i. Badges and
// item effects that reference it are left as they are.
func (s *Service) RemoveParameter(ctx context.Context, i int, name string) error {
	_, err := s.updateCharacter(ctx, "RemoveParameter", i, func(c *roster.Character) error {
		return param.Remove(c, name)
	})
	return err
}

// SetParameter stores v into a custom parameter of character i.
func (s *Service) SetParameter(ctx context.Context, i int, name string, v int) (roster.Parameter, error) {
	return s.updateParameter(ctx, "SetParameter", i, func(c *roster.Character) (roster.Parameter, error) {
		return param.SetValue(c, name, v)
	})
}

// AdjustParameter adds delta to a range parameter of character i.
func (s *Service) AdjustParameter(ctx context.Context, i int, name string, delta int) (roster.Parameter, error) {
	return s.updateParameter(ctx, "AdjustParameter", i, func(c *roster.Character) (roster.Parameter, error) {
		return param.Adjust(c, name, delta)
	})
}

// ToggleParameter sets a boolean parameter of character i.
func (s *Service) ToggleParameter(ctx context.Context, i int, name string, on bool) (roster.Parameter, error) {
	return s.updateParameter(ctx, "ToggleParameter", i, func(c *roster.Character) (roster.Parameter, error) {
		return param.Toggle(c, name, on)
	})
}

func (s *Service) updateParameter(ctx context.Context, op string, i int, fn func(*roster.Character) (roster.Parameter, error)) (roster.Parameter, error) {
	var p roster.Parameter
	_, err := s.updateCharacter(ctx, op, i, func(c *roster.Character) error {
		var err error
		p, err = fn(c)
		return err
	})
	return p, err
}

// ─── Inventory ───────────────────────────────────────────────────────────────

// AddItem appends an inventory line to character i and returns its index.
// Lines are never merged here; an item name the database does not know
// gets a placeholder entry.
func (s *Service) AddItem(ctx context.Context, i int, name string, amount int) (int, error) {
	var line int
	_, err := s.updateCharacter(ctx, "AddItem", i, func(c *roster.Character) error {
		var err error
		line, err = inventory.Add(c, name, amount)
		return err
	})
	return line, err
}

// RemoveItem deletes inventory line l of character i.
func (s *Service) RemoveItem(ctx context.Context, i, l int) (roster.InventoryLine, error) {
	var removed roster.InventoryLine
	_, err := s.updateCharacter(ctx, "RemoveItem", i, func(c *roster.Character) error {
		var err error
		removed, err = inventory.Remove(c, l)
		return err
	})
	return removed, err
}

// RenameItem changes the name of inventory line l of character i.
func (s *Service) RenameItem(ctx context.Context, i, l int, name string) error {
	_, err := s.updateCharacter(ctx, "RenameItem", i, func(c *roster.Character) error {
		return inventory.Rename(c, l, name)
	})
	return err
}

// SetItemAmount overwrites the amount of inventory line l of character i.
func (s *Service) SetItemAmount(ctx context.Context, i, l, amount int) (int, error) {
	var got int
	_, err := s.updateCharacter(ctx, "SetItemAmount", i, func(c *roster.Character) error {
		var err error
		got, err = inventory.SetAmount(c, l, amount)
		return err
	})
	return got, err
}
