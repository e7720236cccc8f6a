package effect_test

import (
	"testing"

	"github.com/MrWong99/roster/internal/effect"
	"github.com/MrWong99/roster/internal/param"
	"github.com/MrWong99/roster/internal/roster"
)

func stat(target string, action roster.Action, v int) roster.Effect {
	return roster.Effect{Type: roster.EffectStat, Target: target, Action: action, Value: v, Flag: v != 0}
}

func TestApplyStats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   *int
		effects []roster.Effect
		want    int
	}{
		{name: "add", start: ptr(40), effects: []roster.Effect{stat("hunger", roster.ActionAdd, 15)}, want: 55},
		{name: "subtract clamps at zero", start: ptr(10), effects: []roster.Effect{stat("hunger", roster.ActionSubtract, 30)}, want: 0},
		{name: "set clamps at max", start: ptr(10), effects: []roster.Effect{stat("hunger", roster.ActionSet, 250)}, want: 100},
		{
			name:    "clamping is per effect",
			start:   ptr(0),
			effects: []roster.Effect{stat("hunger", roster.ActionAdd, 80), stat("hunger", roster.ActionAdd, 80), stat("hunger", roster.ActionSubtract, 30)},
			want:    70,
		},
		{name: "absent stat starts at default", start: nil, effects: []roster.Effect{stat("hunger", roster.ActionAdd, 5)}, want: 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := roster.NewEntity("X")
			c.Hunger = tt.start
			effect.Apply(&c, tt.effects)
			got, ok := c.Stat(roster.StatHunger)
			if !ok || got != tt.want {
				t.Fatalf("hunger = %d (present=%v), want %d", got, ok, tt.want)
			}
		})
	}
}

func TestApplyOutcomes(t *testing.T) {
	t.Parallel()

	c := roster.NewEntity("Chest")
	out := effect.Apply(&c, []roster.Effect{
		stat("thirsty", roster.ActionSubtract, 10),
		stat("mood", roster.ActionAdd, 1),
		{Type: "buff", Target: "hunger", Action: roster.ActionAdd, Value: 1},
		{Type: roster.EffectStat, Target: "hunger", Action: "multiply", Value: 2},
		{Type: roster.EffectCustom, Target: "", Action: roster.ActionSet},
	})
	if len(out) != 5 {
		t.Fatalf("Apply: expected 5 outcomes, got %d", len(out))
	}

	first := out[0]
	if !first.Applied() || first.Origin != param.Defaulted || first.Before != 50 || first.After != 40 {
		t.Errorf("outcome[0] = %+v", first)
	}
	wantSkips := []string{effect.SkipUnknownStat, effect.SkipUnknownType, effect.SkipUnknownAction, effect.SkipEmptyTarget}
	for i, want := range wantSkips {
		if got := out[i+1].Skipped; got != want {
			t.Errorf("outcome[%d].Skipped = %q, want %q", i+1, got, want)
		}
	}
	if _, ok := c.Stat(roster.StatHunger); ok {
		t.Error("skipped effects must not create the hunger stat")
	}
}

func TestApplyCustom(t *testing.T) {
	t.Parallel()

	t.Run("existing range clamps to its bounds", func(t *testing.T) {
		t.Parallel()
		c := roster.NewCharacter("Rio")
		c.Custom["mana"] = roster.Parameter{Type: roster.ParamRange, Min: 5, Max: 20, Value: 10}
		effect.Apply(&c, []roster.Effect{
			{Type: roster.EffectCustom, Target: "mana", Action: roster.ActionAdd, Value: 50},
		})
		if got := c.Custom["mana"].Value; got != 20 {
			t.Fatalf("mana = %d, want 20", got)
		}
		effect.Apply(&c, []roster.Effect{
			{Type: roster.EffectCustom, Target: "mana", Action: roster.ActionSet, Value: 0},
		})
		if got := c.Custom["mana"].Value; got != 5 {
			t.Fatalf("mana = %d, want 5", got)
		}
	})

	t.Run("missing range is created with defaults", func(t *testing.T) {
		t.Parallel()
		c := roster.NewCharacter("Rio")
		out := effect.Apply(&c, []roster.Effect{
			{Type: roster.EffectCustom, Target: "xp", Action: roster.ActionAdd, Value: 120},
		})
		p := c.Custom["xp"]
		if p.IsBoolean() || p.Min != 0 || p.Max != 100 || p.Value != 100 || p.Color != "primary" {
			t.Fatalf("xp = %+v", p)
		}
		if out[0].Origin != param.Defaulted {
			t.Fatalf("origin = %v, want defaulted", out[0].Origin)
		}
	})

	t.Run("missing boolean is created from hint", func(t *testing.T) {
		t.Parallel()
		c := roster.NewCharacter("Rio")
		out := effect.Apply(&c, []roster.Effect{
			{Type: roster.EffectCustom, Target: "blessed", Action: roster.ActionSet, Flag: true, Value: 1, ParamType: roster.ParamBoolean},
		})
		if p := c.Custom["blessed"]; !p.IsBoolean() || !p.Checked {
			t.Fatalf("blessed = %+v", p)
		}
		if !out[0].Boolean || out[0].Before != 0 || out[0].After != 1 {
			t.Fatalf("outcome = %+v", out[0])
		}
	})

	t.Run("existing type wins over hint", func(t *testing.T) {
		t.Parallel()
		c := roster.NewCharacter("Rio")
		c.Custom["blessed"] = roster.Parameter{Type: roster.ParamRange, Max: 10, Value: 2}
		effect.Apply(&c, []roster.Effect{
			{Type: roster.EffectCustom, Target: "blessed", Action: roster.ActionAdd, Value: 3, Flag: true, ParamType: roster.ParamBoolean},
		})
		if p := c.Custom["blessed"]; p.IsBoolean() || p.Value != 5 {
			t.Fatalf("blessed = %+v", p)
		}
	})

	t.Run("boolean takes the flag for any action", func(t *testing.T) {
		t.Parallel()
		c := roster.NewCharacter("Rio")
		c.Custom["lit"] = roster.Parameter{Type: roster.ParamBoolean, Checked: true}
		effect.Apply(&c, []roster.Effect{
			{Type: roster.EffectCustom, Target: "lit", Action: roster.ActionSubtract, Flag: false},
		})
		if c.Custom["lit"].Checked {
			t.Fatal("lit: expected unchecked")
		}
	})
}

func ptr(v int) *int { return &v }
