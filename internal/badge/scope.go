package badge

import (
	"github.com/MrWong99/roster/internal/roster"
)

// Fields lists every identifier a condition may reference. Stats and the
// avatar are only bound when the character has them.
var Fields = []string{"name", roster.StatHunger, roster.StatThirsty, "items", "custom", "avatar"}

// Scope binds the fields of c to condition identifiers. The result shares
// nothing with c.
func Scope(c roster.Character) map[string]Value {
	items := make([]Value, len(c.Items))
	for i, l := range c.Items {
		items[i] = Object(map[string]Value{
			"name":   String(l.Name),
			"amount": Int(l.Amount),
		})
	}

	custom := make(map[string]Value, len(c.Custom))
	for name, p := range c.Custom {
		val := Int(p.Value)
		typ := roster.ParamRange
		if p.IsBoolean() {
			val = Bool(p.Checked)
			typ = roster.ParamBoolean
		}
		custom[name] = Object(map[string]Value{
			"type":  String(string(typ)),
			"min":   Int(p.Min),
			"max":   Int(p.Max),
			"value": val,
			"color": String(p.Color),
		})
	}

	scope := map[string]Value{
		"name":   String(c.Name),
		"items":  List(items...),
		"custom": Object(custom),
	}
	for _, s := range roster.Stats {
		if v, ok := c.Stat(s); ok {
			scope[s] = Int(v)
		}
	}
	if c.Avatar != "" {
		scope["avatar"] = String(c.Avatar)
	}
	return scope
}
