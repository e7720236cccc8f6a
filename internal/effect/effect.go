// Package effect applies item effects to characters.
//
// Effects run strictly in list order and every step clamps before the next
// one reads the value, so two "+80" effects on a 0..100 stat end at 100.
// Targets that do not exist yet are created: a missing stat starts at
// [roster.StatDefault] and a missing custom parameter is synthesised from
// the effect's ParamType hint. When a custom parameter already exists its
// own type wins over the hint.
package effect

import (
	"github.com/MrWong99/roster/internal/param"
	"github.com/MrWong99/roster/internal/roster"
)

// Skip reasons reported in [Outcome.Skipped].
const (
	SkipUnknownType   = "unknown effect type"
	SkipUnknownAction = "unknown action"
	SkipUnknownStat   = "unknown stat"
	SkipEmptyTarget   = "empty target"
)

// Outcome records what one effect did.
type Outcome struct {
	Effect roster.Effect

	// Target is the stat or parameter name that was written.
	Target string

	// Origin tells whether the target existed before the effect ran.
	Origin param.Origin

	// Boolean is set when the target is a boolean parameter. Before and
	// After then hold 0 or 1.
	Boolean bool

	Before int
	After  int

	// Skipped is non-empty when the effect was not applied. The character
	// is untouched by a skipped effect.
	Skipped string
}

// Applied reports whether the effect changed or created its target.
func (o Outcome) Applied() bool { return o.Skipped == "" }

// Apply runs effects against c in order, mutating it in place, and returns
// one [Outcome] per effect.
func Apply(c *roster.Character, effects []roster.Effect) []Outcome {
	c.Normalize()
	out := make([]Outcome, 0, len(effects))
	for _, e := range effects {
		out = append(out, applyOne(c, e))
	}
	return out
}

func applyOne(c *roster.Character, e roster.Effect) Outcome {
	o := Outcome{Effect: e, Target: e.Target}
	switch {
	case e.Target == "":
		o.Skipped = SkipEmptyTarget
		return o
	case !e.Action.IsValid():
		o.Skipped = SkipUnknownAction
		return o
	}

	switch e.Type {
	case roster.EffectStat:
		return applyStat(c, e, o)
	case roster.EffectCustom:
		return applyCustom(c, e, o)
	}
	o.Skipped = SkipUnknownType
	return o
}

func applyStat(c *roster.Character, e roster.Effect, o Outcome) Outcome {
	if !roster.IsStat(e.Target) {
		o.Skipped = SkipUnknownStat
		return o
	}
	o.Before, o.Origin = param.StatOrDefault(c, e.Target)
	o.After, _ = param.SetStat(c, e.Target, arithmetic(e, o.Before))
	return o
}

func applyCustom(c *roster.Character, e roster.Effect, o Outcome) Outcome {
	p, origin := param.GetOrDefault(c, e.Target, e.ParamType)
	o.Origin = origin

	if p.IsBoolean() {
		o.Boolean = true
		o.Before = btoi(p.Checked)
		p.Checked = e.Flag
		o.After = btoi(p.Checked)
	} else {
		o.Before = p.Value
		p.Value = param.Clamp(arithmetic(e, p.Value), p.Min, p.Max)
		o.After = p.Value
	}
	c.Custom[e.Target] = p
	return o
}

func arithmetic(e roster.Effect, cur int) int {
	switch e.Action {
	case roster.ActionAdd:
		return cur + e.Value
	case roster.ActionSubtract:
		return cur - e.Value
	}
	return e.Value
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
