// Package param implements the typed custom-parameter model attached to a
// character, together with the clamping rules shared by built-in stats.
//
// A parameter is either a bounded integer (range) or an on/off flag
// (boolean). Every mutation keeps the invariant that a range value lies
// within [Min, Max]; callers never need to clamp themselves.
package param

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/roster/internal/roster"
)

var (
	// ErrExists is returned when a parameter name is already taken.
	ErrExists = errors.New("param: parameter already exists")

	// ErrNotFound is returned when the named parameter does not exist.
	ErrNotFound = errors.New("param: parameter not found")

	// ErrEmptyName is returned when a parameter name is blank.
	ErrEmptyName = errors.New("param: name must not be empty")

	// ErrWrongType is returned when an operation does not apply to the
	// parameter's type, such as adjusting a boolean by a delta.
	ErrWrongType = errors.New("param: operation does not apply to parameter type")

	// ErrUnknownStat is returned for stat names other than hunger and thirsty.
	ErrUnknownStat = errors.New("param: unknown stat")
)

// Default bounds and presentation of parameters created without a definition.
const (
	DefaultMin   = 0
	DefaultMax   = 100
	DefaultColor = "primary"
)

// Origin tells whether [GetOrDefault] found an existing parameter.
type Origin int

const (
	// Existing means the parameter was already defined on the character.
	Existing Origin = iota

	// Defaulted means the parameter was synthesised from defaults.
	Defaulted
)

func (o Origin) String() string {
	if o == Defaulted {
		return "defaulted"
	}
	return "existing"
}

// Spec describes the definition of a parameter without its value.
type Spec struct {
	Type  roster.ParamType
	Min   int
	Max   int
	Color string
}

// SpecFromForm builds a [Spec] from raw form input. Unparseable bounds
// become 0 for min and min for max.
func SpecFromForm(typ, minS, maxS, color string) Spec {
	lo := ParseInt(minS)
	hi, ok := roster.ParseInt(maxS)
	if !ok || hi == 0 {
		hi = lo
	}
	return Spec{Type: roster.ParamType(typ), Min: lo, Max: hi, Color: color}
}

func (s Spec) normalized() Spec {
	s.Type = s.Type.Normalize()
	if s.Max < s.Min {
		s.Max = s.Min
	}
	return s
}

// Define adds a new parameter called name to c. Range parameters start at
// their minimum and boolean parameters start unchecked.
func Define(c *roster.Character, name string, s Spec) (roster.Parameter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return roster.Parameter{}, ErrEmptyName
	}
	if _, ok := c.Custom[name]; ok {
		return roster.Parameter{}, fmt.Errorf("param: define %q: %w", name, ErrExists)
	}

	s = s.normalized()
	p := roster.Parameter{
		Type:  s.Type,
		Min:   s.Min,
		Max:   s.Max,
		Value: s.Min,
		Color: s.Color,
	}
	c.Normalize()
	c.Custom[name] = p
	return p, nil
}

// Edit redefines parameter oldName as newName with definition s. The current
// value survives: it is re-clamped to the new bounds, a range value maps to
// checked when non-zero, and a checked flag maps to 1 (unchecked to 0).
func Edit(c *roster.Character, oldName, newName string, s Spec) (roster.Parameter, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return roster.Parameter{}, ErrEmptyName
	}
	old, ok := c.Custom[oldName]
	if !ok {
		return roster.Parameter{}, fmt.Errorf("param: edit %q: %w", oldName, ErrNotFound)
	}
	if newName != oldName {
		if _, taken := c.Custom[newName]; taken {
			return roster.Parameter{}, fmt.Errorf("param: rename %q to %q: %w", oldName, newName, ErrExists)
		}
	}

	s = s.normalized()
	p := roster.Parameter{Type: s.Type, Min: s.Min, Max: s.Max, Color: s.Color}
	if p.IsBoolean() {
		p.Checked = old.Checked
		if !old.IsBoolean() {
			p.Checked = old.Value != 0
		}
	} else {
		v := old.Value
		if old.IsBoolean() {
			v = 0
			if old.Checked {
				v = 1
			}
		}
		p.Value = Clamp(v, p.Min, p.Max)
	}

	delete(c.Custom, oldName)
	c.Custom[newName] = p
	return p, nil
}

// Remove deletes the named parameter.
func Remove(c *roster.Character, name string) error {
	if _, ok := c.Custom[name]; !ok {
		return fmt.Errorf("param: remove %q: %w", name, ErrNotFound)
	}
	delete(c.Custom, name)
	return nil
}

// SetValue stores v into the named parameter. Range parameters clamp v;
// boolean parameters become checked when v is non-zero.
func SetValue(c *roster.Character, name string, v int) (roster.Parameter, error) {
	p, ok := c.Custom[name]
	if !ok {
		return roster.Parameter{}, fmt.Errorf("param: set %q: %w", name, ErrNotFound)
	}
	if p.IsBoolean() {
		p.Checked = v != 0
	} else {
		p.Value = Clamp(v, p.Min, p.Max)
	}
	c.Custom[name] = p
	return p, nil
}

// Adjust adds delta to a range parameter and clamps the result.
func Adjust(c *roster.Character, name string, delta int) (roster.Parameter, error) {
	p, ok := c.Custom[name]
	if !ok {
		return roster.Parameter{}, fmt.Errorf("param: adjust %q: %w", name, ErrNotFound)
	}
	if p.IsBoolean() {
		return roster.Parameter{}, fmt.Errorf("param: adjust %q: %w", name, ErrWrongType)
	}
	p.Value = Clamp(p.Value+delta, p.Min, p.Max)
	c.Custom[name] = p
	return p, nil
}

// Toggle sets a boolean parameter.
func Toggle(c *roster.Character, name string, on bool) (roster.Parameter, error) {
	p, ok := c.Custom[name]
	if !ok {
		return roster.Parameter{}, fmt.Errorf("param: toggle %q: %w", name, ErrNotFound)
	}
	if !p.IsBoolean() {
		return roster.Parameter{}, fmt.Errorf("param: toggle %q: %w", name, ErrWrongType)
	}
	p.Checked = on
	c.Custom[name] = p
	return p, nil
}

// GetOrDefault returns the named parameter, or a default one of type hint
// when it does not exist. The character is not modified.
//
// The default is a [DefaultMin, DefaultMax] range at 0, or an unchecked
// boolean, coloured [DefaultColor]. An empty hint means range.
func GetOrDefault(c *roster.Character, name string, hint roster.ParamType) (roster.Parameter, Origin) {
	if p, ok := c.Custom[name]; ok {
		return p, Existing
	}
	return roster.Parameter{
		Type:  hint.Normalize(),
		Min:   DefaultMin,
		Max:   DefaultMax,
		Color: DefaultColor,
	}, Defaulted
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// ParseInt reads a form integer, returning 0 for anything unparseable.
func ParseInt(s string) int {
	n, _ := roster.ParseInt(s)
	return n
}

// ParseQuantity reads a form quantity. Values that are unparseable or below
// 1 become 1.
func ParseQuantity(s string) int {
	n, ok := roster.ParseInt(s)
	if !ok || n < 1 {
		return 1
	}
	return n
}
