package roster

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an index does not address an existing record.
var ErrNotFound = errors.New("roster: record not found")

// ErrInvalid is wrapped by every validation failure returned by a [Store].
var ErrInvalid = errors.New("roster: invalid record")

// Store holds the four tracker collections.
//
// Characters, badges and recipes are addressed by their position in display
// order because names are not unique. Every read returns deep copies, so
// callers may mutate results freely.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Characters returns the roster in display order.
	Characters(ctx context.Context) ([]Character, error)

	// Character returns the character at index i.
	// Returns [ErrNotFound] when i is out of range.
	Character(ctx context.Context, i int) (Character, error)

	// AddCharacter appends c to the roster and returns its index.
	AddCharacter(ctx context.Context, c Character) (int, error)

	// UpdateCharacter runs fn against a deep copy of character i and stores
	// the copy only when fn returns nil and the result validates. On error
	// the stored record is left untouched. The stored result is returned.
	UpdateCharacter(ctx context.Context, i int, fn func(*Character) error) (Character, error)

	// UpdateCharacters is the multi-record form of UpdateCharacter. fn
	// receives a deep copy of the whole roster; it may mutate records but
	// not add or remove them.
	UpdateCharacters(ctx context.Context, fn func([]Character) error) error

	// RemoveCharacter deletes character i.
	RemoveCharacter(ctx context.Context, i int) error

	// RenameCharacter sets the display name of character i.
	RenameCharacter(ctx context.Context, i int, name string) error

	// MoveCharacter shifts character i by delta positions, stopping at
	// either end of the roster, and returns its new index.
	MoveCharacter(ctx context.Context, i, delta int) (int, error)

	// ReplaceCharacters swaps in a whole new roster.
	ReplaceCharacters(ctx context.Context, cs []Character) error

	// Badges returns the badge rules in display order.
	Badges(ctx context.Context) ([]BadgeRule, error)

	// AddBadge appends a badge rule.
	AddBadge(ctx context.Context, b BadgeRule) error

	// UpdateBadge replaces badge rule i.
	UpdateBadge(ctx context.Context, i int, b BadgeRule) error

	// RemoveBadge deletes badge rule i.
	RemoveBadge(ctx context.Context, i int) error

	// ReplaceBadges swaps in a new badge list.
	ReplaceBadges(ctx context.Context, bs []BadgeRule) error

	// Items returns the item database in display order.
	Items(ctx context.Context) ([]ItemEntry, error)

	// PutItem inserts e, or replaces the entry with the same exact name.
	PutItem(ctx context.Context, e ItemEntry) error

	// UpdateItem replaces item entry i.
	UpdateItem(ctx context.Context, i int, e ItemEntry) error

	// RemoveItem deletes item entry i.
	RemoveItem(ctx context.Context, i int) error

	// ReplaceItems swaps in a new item database. Callers are expected to
	// have cleaned the list first; the store does not deduplicate.
	ReplaceItems(ctx context.Context, es []ItemEntry) error

	// Recipes returns the crafting recipes in display order.
	Recipes(ctx context.Context) ([]Recipe, error)

	// PutRecipe inserts r, or replaces the recipe with the same exact name.
	PutRecipe(ctx context.Context, r Recipe) error

	// RemoveRecipe deletes recipe i.
	RemoveRecipe(ctx context.Context, i int) error

	// ReplaceRecipes swaps in a new recipe list.
	ReplaceRecipes(ctx context.Context, rs []Recipe) error

	// Snapshot returns a deep copy of all four collections.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Restore replaces all four collections at once.
	Restore(ctx context.Context, s Snapshot) error
}
