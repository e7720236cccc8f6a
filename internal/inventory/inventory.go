// Package inventory implements the per-character item ledger.
//
// Lines are matched by exact, case-sensitive name. Adding a line never
// merges with an existing one, while transfers and crafting credits do;
// the two paths are deliberately different.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MrWong99/roster/internal/roster"
)

var (
	// ErrIndex is returned when a line index is out of range.
	ErrIndex = errors.New("inventory: line index out of range")

	// ErrEmptyName is returned when an item name is blank.
	ErrEmptyName = errors.New("inventory: item name must not be empty")

	// ErrSameCharacter is returned when a transfer names the same character
	// as source and destination.
	ErrSameCharacter = errors.New("inventory: source and destination are the same character")

	// ErrInsufficient is returned by Debit when the lines hold less than
	// the requested quantity.
	ErrInsufficient = errors.New("inventory: insufficient quantity")
)

// Add appends a new line and returns its index. Negative amounts become 0.
func Add(c *roster.Character, name string, amount int) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	c.Items = append(c.Items, roster.InventoryLine{Name: name, Amount: max(amount, 0)})
	return len(c.Items) - 1, nil
}

// Remove deletes line i.
func Remove(c *roster.Character, i int) (roster.InventoryLine, error) {
	if err := checkIndex(c, i); err != nil {
		return roster.InventoryLine{}, err
	}
	l := c.Items[i]
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return l, nil
}

// Rename changes the name of line i. Recipes and effects that reference the
// old name are not updated.
func Rename(c *roster.Character, i int, name string) error {
	if err := checkIndex(c, i); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	c.Items[i].Name = name
	return nil
}

// SetAmount overwrites the amount of line i. Negative amounts become 0; a
// zero line is kept.
func SetAmount(c *roster.Character, i, amount int) (int, error) {
	if err := checkIndex(c, i); err != nil {
		return 0, err
	}
	c.Items[i].Amount = max(amount, 0)
	return c.Items[i].Amount, nil
}

// Transfer moves up to qty units of src's line i to dst and returns the
// quantity actually moved. A qty below 1 moves a single unit. Moving the
// whole line deletes it from src. At dst the quantity merges into the first
// line with the exact same name, or opens a new line.
func Transfer(src, dst *roster.Character, i, qty int) (int, error) {
	if src == dst {
		return 0, ErrSameCharacter
	}
	if err := checkIndex(src, i); err != nil {
		return 0, err
	}
	qty = max(qty, 1)

	line := src.Items[i]
	moved := min(qty, line.Amount)
	if moved >= line.Amount {
		src.Items = append(src.Items[:i], src.Items[i+1:]...)
	} else {
		src.Items[i].Amount -= moved
	}
	if moved > 0 {
		dst.Items = Credit(dst.Items, line.Name, moved)
	}
	return moved, nil
}

// FindExact returns the index of the first line called name, or -1.
func FindExact(items []roster.InventoryLine, name string) int {
	for i, l := range items {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// Have returns the amount on the first line called name, or 0. Later lines
// with the same name are not counted; crafting only ever reads and debits
// the first one.
func Have(items []roster.InventoryLine, name string) int {
	if i := FindExact(items, name); i >= 0 {
		return items[i].Amount
	}
	return 0
}

// Credit adds qty units of name, merging into the first matching line. The
// merged amount saturates at math.MaxInt.
func Credit(items []roster.InventoryLine, name string, qty int) []roster.InventoryLine {
	if i := FindExact(items, name); i >= 0 {
		if qty > math.MaxInt-items[i].Amount {
			items[i].Amount = math.MaxInt
		} else {
			items[i].Amount += qty
		}
		return items
	}
	return append(items, roster.InventoryLine{Name: name, Amount: qty})
}

// Debit removes qty units from the first line called name, deleting it when
// it reaches zero. Nothing is changed when that line holds less than qty.
func Debit(items []roster.InventoryLine, name string, qty int) ([]roster.InventoryLine, error) {
	if qty <= 0 {
		return items, nil
	}
	i := FindExact(items, name)
	if have := Have(items, name); i < 0 || have < qty {
		return items, fmt.Errorf("inventory: debit %d %q (have %d): %w", qty, name, have, ErrInsufficient)
	}
	if items[i].Amount -= qty; items[i].Amount <= 0 {
		return append(items[:i], items[i+1:]...), nil
	}
	return items, nil
}

func checkIndex(c *roster.Character, i int) error {
	if i < 0 || i >= len(c.Items) {
		return fmt.Errorf("inventory: line %d of %q: %w", i, c.Name, ErrIndex)
	}
	return nil
}
