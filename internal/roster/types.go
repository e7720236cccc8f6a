// Package roster holds the data model and the Entity Store of the character
// tracker.
//
// The store owns four collections: the character roster, badge rules, the
// item database and crafting recipes. Badge rules, item entries and recipes
// are shared by every character; characters are independent records that
// only reference items by name.
//
// Supported input formats:
//   - Native YAML seed files ([LoadSeedFile], [LoadSeedFromReader])
//   - The JSON interchange document ([Import], [Export])
//
// All store operations are safe for concurrent use.
package roster

import (
	"maps"
	"slices"
)

// Built-in stat names.
const (
	StatHunger  = "hunger"
	StatThirsty = "thirsty"
)

// Stat bounds. Stats are always clamped into [StatMin, StatMax]; a stat that
// is created on demand starts at StatDefault.
const (
	StatMin     = 0
	StatMax     = 100
	StatDefault = 50
)

// Stats lists the built-in stat names in display order.
var Stats = []string{StatHunger, StatThirsty}

// IsStat reports whether name is a built-in stat.
func IsStat(name string) bool {
	return slices.Contains(Stats, name)
}

// Character is a tracked entity with optional stats, custom parameters and an
// inventory. Names are display strings and are not required to be unique;
// the store addresses characters by position.
type Character struct {
	// Name is the non-empty display name.
	Name string

	// Hunger and Thirsty are optional stats. Nil means the stat is absent:
	// it is neither rendered nor matched by badge conditions.
	Hunger  *int
	Thirsty *int

	// Items is the inventory in display order.
	Items []InventoryLine

	// Custom maps parameter names to their definitions.
	Custom map[string]Parameter

	// Avatar is an opaque encoded image.
	Avatar string
}

// NewCharacter returns a character with both stats at [StatDefault].
func NewCharacter(name string) Character {
	return Character{
		Name:    name,
		Hunger:  intPtr(StatDefault),
		Thirsty: intPtr(StatDefault),
		Items:   []InventoryLine{},
		Custom:  map[string]Parameter{},
	}
}

// NewEntity returns a stat-less record (a chest, a shop, a stash).
func NewEntity(name string) Character {
	return Character{
		Name:   name,
		Items:  []InventoryLine{},
		Custom: map[string]Parameter{},
	}
}

// DefaultCharacters is the roster used when nothing has been persisted yet.
func DefaultCharacters() []Character {
	rio := NewCharacter("Rio")
	rio.Hunger = intPtr(70)
	rio.Thirsty = intPtr(40)
	rio.Items = []InventoryLine{{Name: "Apple", Amount: 2}}
	return []Character{rio}
}

// Stat returns the value of a built-in stat and whether it is present.
func (c *Character) Stat(name string) (int, bool) {
	p := c.statPtr(name)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SetStat stores v for a built-in stat, creating it when absent. Unknown stat
// names are ignored. The caller is responsible for clamping.
func (c *Character) SetStat(name string, v int) {
	p := c.statPtr(name)
	if p == nil {
		return
	}
	*p = intPtr(v)
}

// ClearStat removes a built-in stat from the character.
func (c *Character) ClearStat(name string) {
	if p := c.statPtr(name); p != nil {
		*p = nil
	}
}

func (c *Character) statPtr(name string) **int {
	switch name {
	case StatHunger:
		return &c.Hunger
	case StatThirsty:
		return &c.Thirsty
	}
	return nil
}

// Normalize replaces nil collections with empty ones so the record serialises
// as `[]` / `{}` rather than null.
func (c *Character) Normalize() {
	if c.Items == nil {
		c.Items = []InventoryLine{}
	}
	if c.Custom == nil {
		c.Custom = map[string]Parameter{}
	}
}

// Clone returns a deep copy of c.
func (c Character) Clone() Character {
	out := c
	if c.Hunger != nil {
		out.Hunger = intPtr(*c.Hunger)
	}
	if c.Thirsty != nil {
		out.Thirsty = intPtr(*c.Thirsty)
	}
	out.Items = slices.Clone(c.Items)
	if out.Items == nil {
		out.Items = []InventoryLine{}
	}
	out.Custom = maps.Clone(c.Custom)
	if out.Custom == nil {
		out.Custom = map[string]Parameter{}
	}
	return out
}

// InventoryLine is one named, quantified item entry belonging to a character.
type InventoryLine struct {
	Name   string `json:"name" yaml:"name"`
	Amount int    `json:"amount" yaml:"amount"`
}

// ParamType is the kind of a custom parameter.
type ParamType string

const (
	// ParamRange is a bounded integer.
	ParamRange ParamType = "range"

	// ParamBoolean is an on/off flag.
	ParamBoolean ParamType = "boolean"

	// paramCheckbox is the legacy name for ParamBoolean found in older exports.
	paramCheckbox ParamType = "checkbox"
)

// Normalize maps legacy aliases onto their canonical type. Unknown or empty
// types become [ParamRange].
func (t ParamType) Normalize() ParamType {
	switch t {
	case ParamBoolean, paramCheckbox:
		return ParamBoolean
	default:
		return ParamRange
	}
}

// IsValid reports whether t names a known parameter type (including aliases).
func (t ParamType) IsValid() bool {
	switch t {
	case ParamRange, ParamBoolean, paramCheckbox:
		return true
	}
	return false
}

// Parameter is a user-defined attribute attached to one character.
type Parameter struct {
	// Type selects range or boolean semantics.
	Type ParamType

	// Min and Max bound Value for range parameters. Defaults 0 and 100.
	Min int
	Max int

	// Value is the current value of a range parameter, always within [Min, Max].
	Value int

	// Checked is the current value of a boolean parameter.
	Checked bool

	// Color is a presentation tag; the engine never interprets it.
	Color string
}

// IsBoolean reports whether p is a boolean parameter.
func (p Parameter) IsBoolean() bool { return p.Type.Normalize() == ParamBoolean }

// BadgeRule is a derived label shown for every character whose condition
// evaluates truthy.
type BadgeRule struct {
	Name  string `json:"name" yaml:"name"`
	Icon  string `json:"icon" yaml:"icon"`
	Color string `json:"color" yaml:"color"`
	Desc  string `json:"desc" yaml:"desc"`
	Cond  string `json:"cond" yaml:"cond"`
}

// EffectType selects what an [Effect] targets.
type EffectType string

const (
	// EffectStat targets a built-in stat.
	EffectStat EffectType = "stat"

	// EffectCustom targets a custom parameter.
	EffectCustom EffectType = "custom"
)

// Action is the arithmetic applied by an [Effect].
type Action string

const (
	ActionAdd      Action = "add"
	ActionSubtract Action = "subtract"
	ActionSet      Action = "set"
)

// IsValid reports whether a is a recognised action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdd, ActionSubtract, ActionSet:
		return true
	}
	return false
}

// Effect is a declarative instruction to adjust one stat or custom parameter.
type Effect struct {
	// Type is stat or custom.
	Type EffectType

	// Target names the stat or custom parameter.
	Target string

	// Action is add, subtract or set.
	Action Action

	// Value is the numeric operand.
	Value int

	// Flag is the boolean operand used for boolean parameters. Decoding sets
	// it to the truthiness of the incoming value whatever its JSON kind.
	Flag bool

	// ParamType hints the type of a custom parameter that does not exist yet.
	// It is ignored when the target already exists.
	ParamType ParamType
}

// ItemEntry is an item encyclopedia record. Names are unique
// case-insensitively.
type ItemEntry struct {
	Name        string   `json:"name" yaml:"name"`
	HowToObtain string   `json:"howToObtain" yaml:"how_to_obtain"`
	Description string   `json:"description" yaml:"description"`
	Effects     []Effect `json:"effects" yaml:"effects"`
}

// Clone returns a deep copy of e.
func (e ItemEntry) Clone() ItemEntry {
	e.Effects = slices.Clone(e.Effects)
	if e.Effects == nil {
		e.Effects = []Effect{}
	}
	return e
}

// RecipeLine is one material or output of a recipe.
type RecipeLine struct {
	Name     string `json:"name" yaml:"name"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Recipe transforms material quantities into output quantities. Names of
// materials and outputs match inventory lines exactly (case-sensitive).
type Recipe struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Materials   []RecipeLine `json:"materials" yaml:"materials"`
	Outputs     []RecipeLine `json:"outputs" yaml:"outputs"`
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	r.Materials = slices.Clone(r.Materials)
	r.Outputs = slices.Clone(r.Outputs)
	if r.Materials == nil {
		r.Materials = []RecipeLine{}
	}
	if r.Outputs == nil {
		r.Outputs = []RecipeLine{}
	}
	return r
}

// Snapshot is a deep copy of every collection held by a [Store].
type Snapshot struct {
	Characters []Character
	Badges     []BadgeRule
	Items      []ItemEntry
	Recipes    []Recipe
}

func intPtr(v int) *int { return &v }
