package roster

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stored documents are written by hand-edited files, older exports and the
// browser client, so decoding is lenient: numbers may arrive as strings or
// floats and booleans as strings. Encoding is strict and canonical.

// ─────────────────────────────────────────────────────────────────────────────
// Character
// ─────────────────────────────────────────────────────────────────────────────

type characterOut struct {
	Name    string               `json:"name"`
	Hunger  *int                 `json:"hunger,omitempty"`
	Thirsty *int                 `json:"thirsty,omitempty"`
	Items   []InventoryLine      `json:"items"`
	Custom  map[string]Parameter `json:"custom"`
	Avatar  string               `json:"avatar,omitempty"`
}

type characterIn struct {
	Name    string               `json:"name"`
	Hunger  any                  `json:"hunger"`
	Thirsty any                  `json:"thirsty"`
	Items   []InventoryLine      `json:"items"`
	Custom  map[string]Parameter `json:"custom"`
	Avatar  string               `json:"avatar"`
}

// MarshalJSON implements [json.Marshaler].
func (c Character) MarshalJSON() ([]byte, error) {
	c.Normalize()
	return json.Marshal(characterOut(c))
}

// UnmarshalJSON implements [json.Unmarshaler].
func (c *Character) UnmarshalJSON(data []byte) error {
	var in characterIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Character{
		Name:   in.Name,
		Items:  in.Items,
		Custom: in.Custom,
		Avatar: in.Avatar,
	}
	if v, ok := looseInt(in.Hunger); ok {
		c.Hunger = intPtr(clamp(v, StatMin, StatMax))
	}
	if v, ok := looseInt(in.Thirsty); ok {
		c.Thirsty = intPtr(clamp(v, StatMin, StatMax))
	}
	c.Normalize()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// InventoryLine / RecipeLine
// ─────────────────────────────────────────────────────────────────────────────

// UnmarshalJSON implements [json.Unmarshaler]. Amounts that are not numbers
// or are negative decode as 0.
func (l *InventoryLine) UnmarshalJSON(data []byte) error {
	var in struct {
		Name   string `json:"name"`
		Amount any    `json:"amount"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	amount, _ := looseInt(in.Amount)
	*l = InventoryLine{Name: in.Name, Amount: max(amount, 0)}
	return nil
}

// UnmarshalJSON implements [json.Unmarshaler]. A missing or invalid quantity
// decodes as 1, matching the recipe editor's default.
func (l *RecipeLine) UnmarshalJSON(data []byte) error {
	var in struct {
		Name     string `json:"name"`
		Quantity any    `json:"quantity"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	q, ok := looseInt(in.Quantity)
	if !ok || q < 1 {
		q = 1
	}
	*l = RecipeLine{Name: in.Name, Quantity: q}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Parameter
// ─────────────────────────────────────────────────────────────────────────────

type parameterOut struct {
	Type  ParamType `json:"type"`
	Min   int       `json:"min"`
	Max   int       `json:"max"`
	Color string    `json:"color"`
	Value any       `json:"value"`
}

type parameterIn struct {
	Type  ParamType `json:"type" yaml:"type"`
	Min   any       `json:"min" yaml:"min"`
	Max   any       `json:"max" yaml:"max"`
	Color string    `json:"color" yaml:"color"`
	Value any       `json:"value" yaml:"value"`
}

func (in parameterIn) build() Parameter {
	p := Parameter{
		Type:  in.Type.Normalize(),
		Min:   0,
		Max:   100,
		Color: in.Color,
	}
	if v, ok := looseInt(in.Min); ok {
		p.Min = v
	}
	if v, ok := looseInt(in.Max); ok {
		p.Max = v
	}
	if p.Max < p.Min {
		p.Max = p.Min
	}
	if p.Type == ParamBoolean {
		p.Checked = truthy(in.Value)
		return p
	}
	v, ok := looseInt(in.Value)
	if !ok {
		v = p.Min
	}
	p.Value = clamp(v, p.Min, p.Max)
	return p
}

// MarshalJSON implements [json.Marshaler]. The value is a JSON number for
// range parameters and a JSON boolean for boolean parameters.
func (p Parameter) MarshalJSON() ([]byte, error) {
	out := parameterOut{
		Type:  p.Type.Normalize(),
		Min:   p.Min,
		Max:   p.Max,
		Color: p.Color,
		Value: p.Value,
	}
	if out.Type == ParamBoolean {
		out.Value = p.Checked
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var in parameterIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = in.build()
	return nil
}

// UnmarshalYAML implements [yaml.Unmarshaler].
func (p *Parameter) UnmarshalYAML(node *yaml.Node) error {
	var in parameterIn
	if err := node.Decode(&in); err != nil {
		return err
	}
	*p = in.build()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Effect
// ─────────────────────────────────────────────────────────────────────────────

type effectOut struct {
	Type      EffectType `json:"type"`
	Target    string     `json:"target"`
	Action    Action     `json:"action"`
	Value     any        `json:"value"`
	ParamType ParamType  `json:"paramType,omitempty"`
}

type effectIn struct {
	Type      EffectType `json:"type" yaml:"type"`
	Target    string     `json:"target" yaml:"target"`
	Action    Action     `json:"action" yaml:"action"`
	Value     any        `json:"value" yaml:"value"`
	ParamType ParamType  `json:"paramType" yaml:"param_type"`
}

func (in effectIn) build() Effect {
	e := Effect{
		Type:      in.Type,
		Target:    in.Target,
		Action:    in.Action,
		ParamType: in.ParamType,
		Flag:      truthy(in.Value),
	}
	if e.ParamType != "" {
		e.ParamType = e.ParamType.Normalize()
	}
	e.Value, _ = looseInt(in.Value)
	return e
}

// MarshalJSON implements [json.Marshaler]. Effects on boolean custom
// parameters carry a JSON boolean when that decodes back to the same Value
// and Flag; every other effect carries an integer, since a boolean hint is
// ignored when the target turns out to be a range parameter.
func (e Effect) MarshalJSON() ([]byte, error) {
	out := effectOut{
		Type:      e.Type,
		Target:    e.Target,
		Action:    e.Action,
		Value:     e.Value,
		ParamType: e.ParamType,
	}
	if e.Type == EffectCustom {
		if out.ParamType == "" {
			out.ParamType = ParamRange
		}
		if out.ParamType.Normalize() == ParamBoolean && (e.Value == 0 || (e.Value == 1 && e.Flag)) {
			out.Value = e.Flag
		}
	} else {
		out.ParamType = ""
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (e *Effect) UnmarshalJSON(data []byte) error {
	var in effectIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = in.build()
	return nil
}

// UnmarshalYAML implements [yaml.Unmarshaler].
func (e *Effect) UnmarshalYAML(node *yaml.Node) error {
	var in effectIn
	if err := node.Decode(&in); err != nil {
		return err
	}
	*e = in.build()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// looseInt converts a decoded JSON/YAML scalar to an int, truncating
// fractions. It reports false for values that carry no number.
func looseInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return floatToInt(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint64:
		return int(min(x, math.MaxInt)), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return ParseInt(x)
	}
	return 0, false
}

// ParseInt parses s the way form inputs are read: surrounding whitespace is
// ignored and fractions are truncated. It reports false when s is not a number.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return floatToInt(f), true
}

// floatToInt truncates f, saturating at the int range. Go leaves the result
// of an out-of-range conversion implementation-defined.
func floatToInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// truthy reports whether a decoded scalar counts as "on". Strings are
// compared case-insensitively; "false", "0" and "" are off.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s != "" && s != "false" && s != "0"
	}
	n, ok := looseInt(v)
	return ok && n != 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
