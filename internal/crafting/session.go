package crafting

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/roster/internal/roster"
)

// ErrInvalidTransition is returned when a [Session] method is not allowed in
// the current state.
var ErrInvalidTransition = errors.New("crafting: invalid session transition")

// State is the position of a [Session] in its lifecycle.
type State int

const (
	Idle State = iota
	RecipeSelected
	Previewing
	QuantityChanged
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RecipeSelected:
		return "recipe_selected"
	case Previewing:
		return "previewing"
	case QuantityChanged:
		return "quantity_changed"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == Committed || s == Cancelled }

// Session is one crafting dialog for one character:
//
//	Idle → RecipeSelected → (Previewing ⇄ QuantityChanged) → Committed | Cancelled
//
// A Session never holds inventory. Every method that needs one receives the
// current inventory, so a preview can go stale but a commit never acts on
// stale data. Sessions are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	state    State
	recipe   roster.Recipe
	quantity int
}

// NewSession returns an idle session with quantity 1.
func NewSession() *Session {
	return &Session{quantity: 1}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Quantity returns the current multiplier.
func (s *Session) Quantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(s.quantity, 1)
}

// Recipe returns the selected recipe and whether one is selected.
func (s *Session) Recipe() (roster.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipe.Clone(), s.state != Idle && s.recipe.Name != ""
}

// Select picks the recipe to craft. The quantity is kept.
func (s *Session) Select(r roster.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return s.invalid("select")
	}
	s.recipe = r.Clone()
	s.state = RecipeSelected
	return nil
}

// SetQuantity changes the multiplier. Values below 1 become 1. It is
// allowed before a recipe is selected.
func (s *Session) SetQuantity(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return s.invalid("set quantity")
	}
	s.quantity = max(n, 1)
	if s.state != Idle {
		s.state = QuantityChanged
	}
	return nil
}

// Preview checks the selected recipe at the current quantity.
func (s *Session) Preview(items []roster.InventoryLine) (Sufficiency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle || s.state.Terminal() {
		return Sufficiency{}, s.invalid("preview")
	}
	s.state = Previewing
	return ComputeSufficiency(s.recipe, items, s.quantity), nil
}

// SetMax sets the quantity to [MaxQuantity] and returns it.
func (s *Session) SetMax(items []roster.InventoryLine) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle || s.state.Terminal() {
		return 0, s.invalid("set max")
	}
	s.quantity = MaxQuantity(s.recipe, items)
	s.state = QuantityChanged
	return s.quantity, nil
}

// Commit crafts the selected recipe on c at the current quantity. A refusal
// wraps [ErrInsufficient] and keeps the session open at Previewing with the
// fresh check.
func (s *Session) Commit(c *roster.Character) (Sufficiency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle || s.state.Terminal() {
		return Sufficiency{}, s.invalid("commit")
	}
	res, err := Craft(c, s.recipe, s.quantity)
	if err != nil {
		s.state = Previewing
		return res, err
	}
	s.state = Committed
	return res, nil
}

// Cancel closes the session without crafting.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return s.invalid("cancel")
	}
	s.state = Cancelled
	return nil
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("crafting: %s in state %s: %w", op, s.state, ErrInvalidTransition)
}
