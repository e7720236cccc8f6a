// Package crafting resolves recipes against a character's inventory.
//
// A craft is all-or-nothing: every material is checked against the current
// inventory before anything is debited, debits happen before credits, and a
// refused craft leaves the inventory untouched. Crafting never scales the
// multiplier down on its own; [MaxQuantity] exists so callers can ask.
package crafting

import (
	"errors"
	"fmt"
	"math"

	"github.com/MrWong99/roster/internal/inventory"
	"github.com/MrWong99/roster/internal/roster"
)

// ErrInsufficient is returned by Craft when the inventory cannot cover the
// requested multiplier. The accompanying [Sufficiency] says which materials
// are short.
var ErrInsufficient = errors.New("crafting: insufficient materials")

// Requirement is the check of one material for a given multiplier.
type Requirement struct {
	Name string

	// PerUnit is the quantity consumed by one craft. Duplicate material
	// lines of a recipe are summed.
	PerUnit int

	// Required is PerUnit times the multiplier, saturating at math.MaxInt.
	Required int

	// Have is the amount on the first inventory line with the exact name.
	Have int

	Sufficient bool
}

// Sufficiency is the outcome of [ComputeSufficiency].
type Sufficiency struct {
	Recipe     string
	Multiplier int

	Materials []Requirement

	// Outputs lists the recipe outputs scaled by the multiplier.
	Outputs []roster.RecipeLine

	// CanCraftAll is true when every material is sufficient at once.
	CanCraftAll bool

	// MaxMultiplier is the largest multiplier the inventory covers. It is
	// meaningless when Unbounded is set.
	MaxMultiplier int

	// Unbounded is set for recipes that consume nothing.
	Unbounded bool
}

// Missing returns the materials that are short.
func (s Sufficiency) Missing() []Requirement {
	var out []Requirement
	for _, m := range s.Materials {
		if !m.Sufficient {
			out = append(out, m)
		}
	}
	return out
}

// ComputeSufficiency checks recipe r against items for multiplier. A
// multiplier below 1 is treated as 1.
func ComputeSufficiency(r roster.Recipe, items []roster.InventoryLine, multiplier int) Sufficiency {
	multiplier = max(multiplier, 1)
	s := Sufficiency{
		Recipe:      r.Name,
		Multiplier:  multiplier,
		CanCraftAll: true,
		Unbounded:   true,
	}

	for _, m := range aggregate(r.Materials) {
		req := Requirement{
			Name:     m.Name,
			PerUnit:  m.Quantity,
			Required: mulSat(m.Quantity, multiplier),
			Have:     inventory.Have(items, m.Name),
		}
		// Compared by division so a huge multiplier cannot wrap Required.
		req.Sufficient = m.Quantity == 0 || multiplier <= req.Have/m.Quantity
		if !req.Sufficient {
			s.CanCraftAll = false
		}
		if m.Quantity > 0 {
			limit := req.Have / m.Quantity
			if s.Unbounded || limit < s.MaxMultiplier {
				s.MaxMultiplier = limit
			}
			s.Unbounded = false
		}
		s.Materials = append(s.Materials, req)
	}

	for _, o := range r.Outputs {
		s.Outputs = append(s.Outputs, roster.RecipeLine{Name: o.Name, Quantity: mulSat(max(o.Quantity, 0), multiplier)})
	}
	return s
}

// MaxQuantity returns the multiplier to offer as "max": the largest
// affordable multiplier, or 1 when nothing is affordable or the recipe
// consumes nothing.
func MaxQuantity(r roster.Recipe, items []roster.InventoryLine) int {
	s := ComputeSufficiency(r, items, 1)
	if s.Unbounded || s.MaxMultiplier <= 0 {
		return 1
	}
	return s.MaxMultiplier
}

// Craft performs recipe r multiplier times on c. On refusal the returned
// error wraps [ErrInsufficient] and c is unchanged.
func Craft(c *roster.Character, r roster.Recipe, multiplier int) (Sufficiency, error) {
	s := ComputeSufficiency(r, c.Items, multiplier)
	if !s.CanCraftAll {
		return s, fmt.Errorf("crafting: %q x%d: %w", r.Name, s.Multiplier, ErrInsufficient)
	}

	items := append([]roster.InventoryLine(nil), c.Items...)
	for _, m := range s.Materials {
		var err error
		if items, err = inventory.Debit(items, m.Name, m.Required); err != nil {
			return s, fmt.Errorf("crafting: %q x%d: %w", r.Name, s.Multiplier, ErrInsufficient)
		}
	}
	for _, o := range s.Outputs {
		items = inventory.Credit(items, o.Name, o.Quantity)
	}
	if items == nil {
		items = []roster.InventoryLine{}
	}
	c.Items = items
	return s, nil
}

// mulSat returns a*b for non-negative operands, saturating at math.MaxInt.
func mulSat(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

// aggregate merges material lines with the same exact name, keeping the
// position of the first occurrence.
func aggregate(lines []roster.RecipeLine) []roster.RecipeLine {
	out := make([]roster.RecipeLine, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.Name]; ok {
			out[i].Quantity += max(l.Quantity, 0)
			continue
		}
		pos[l.Name] = len(out)
		out = append(out, roster.RecipeLine{Name: l.Name, Quantity: max(l.Quantity, 0)})
	}
	return out
}
