package param_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/roster/internal/param"
	"github.com/MrWong99/roster/internal/roster"
)

func TestDefine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		spec      param.Spec
		wantMax   int
		wantValue int
		wantBool  bool
	}{
		{name: "range starts at min", spec: param.Spec{Type: roster.ParamRange, Min: 3, Max: 9}, wantMax: 9, wantValue: 3},
		{name: "max below min collapses", spec: param.Spec{Type: roster.ParamRange, Min: 5, Max: 2}, wantMax: 5, wantValue: 5},
		{name: "boolean starts unchecked", spec: param.Spec{Type: roster.ParamBoolean, Max: 100}, wantMax: 100, wantBool: true},
		{name: "legacy checkbox is boolean", spec: param.Spec{Type: "checkbox"}, wantMax: 0, wantBool: true},
		{name: "unknown type is range", spec: param.Spec{Type: "slider", Max: 10}, wantMax: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := roster.NewCharacter("Rio")
			p, err := param.Define(&c, "x", tt.spec)
			if err != nil {
				t.Fatalf("Define: unexpected error: %v", err)
			}
			if p.Max != tt.wantMax || p.Value != tt.wantValue || p.IsBoolean() != tt.wantBool {
				t.Fatalf("Define: got %+v", p)
			}
			if p.Checked {
				t.Fatal("Define: new parameter must start unchecked")
			}
			if _, ok := c.Custom["x"]; !ok {
				t.Fatal("Define: parameter not stored on character")
			}
		})
	}
}

func TestDefineRejects(t *testing.T) {
	t.Parallel()

	c := roster.NewCharacter("Rio")
	if _, err := param.Define(&c, "  ", param.Spec{}); !errors.Is(err, param.ErrEmptyName) {
		t.Fatalf("Define blank: expected ErrEmptyName, got %v", err)
	}
	if _, err := param.Define(&c, "mana", param.Spec{Max: 10}); err != nil {
		t.Fatalf("Define: unexpected error: %v", err)
	}
	if _, err := param.Define(&c, "mana", param.Spec{Max: 10}); !errors.Is(err, param.ErrExists) {
		t.Fatalf("Define duplicate: expected ErrExists, got %v", err)
	}
}

func TestEdit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		start       roster.Parameter
		spec        param.Spec
		wantValue   int
		wantChecked bool
	}{
		{
			name:      "range keeps value",
			start:     roster.Parameter{Type: roster.ParamRange, Max: 100, Value: 40},
			spec:      param.Spec{Type: roster.ParamRange, Max: 50},
			wantValue: 40,
		},
		{
			name:      "range re-clamps to new bounds",
			start:     roster.Parameter{Type: roster.ParamRange, Max: 100, Value: 80},
			spec:      param.Spec{Type: roster.ParamRange, Min: 10, Max: 50},
			wantValue: 50,
		},
		{
			name:        "range to boolean non-zero is checked",
			start:       roster.Parameter{Type: roster.ParamRange, Max: 100, Value: 7},
			spec:        param.Spec{Type: roster.ParamBoolean},
			wantChecked: true,
		},
		{
			name:        "range zero to boolean is unchecked",
			start:       roster.Parameter{Type: roster.ParamRange, Max: 100},
			spec:        param.Spec{Type: roster.ParamBoolean},
			wantChecked: false,
		},
		{
			name:      "checked boolean to range becomes one",
			start:     roster.Parameter{Type: roster.ParamBoolean, Checked: true},
			spec:      param.Spec{Type: roster.ParamRange, Max: 10},
			wantValue: 1,
		},
		{
			name:      "boolean to range clamps to min",
			start:     roster.Parameter{Type: roster.ParamBoolean},
			spec:      param.Spec{Type: roster.ParamRange, Min: 5, Max: 10},
			wantValue: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := roster.NewCharacter("Rio")
			c.Custom["p"] = tt.start
			p, err := param.Edit(&c, "p", "p", tt.spec)
			if err != nil {
				t.Fatalf("Edit: unexpected error: %v", err)
			}
			if p.Value != tt.wantValue || p.Checked != tt.wantChecked {
				t.Fatalf("Edit: got value=%d checked=%v, want value=%d checked=%v",
					p.Value, p.Checked, tt.wantValue, tt.wantChecked)
			}
		})
	}
}

func TestEditRename(t *testing.T) {
	t.Parallel()

	c := roster.NewCharacter("Rio")
	c.Custom["mana"] = roster.Parameter{Type: roster.ParamRange, Max: 20, Value: 12}
	c.Custom["luck"] = roster.Parameter{Type: roster.ParamRange, Max: 20}

	if _, err := param.Edit(&c, "mana", "luck", param.Spec{Max: 20}); !errors.Is(err, param.ErrExists) {
		t.Fatalf("Edit onto existing name: expected ErrExists, got %v", err)
	}
	if _, err := param.Edit(&c, "nope", "x", param.Spec{}); !errors.Is(err, param.ErrNotFound) {
		t.Fatalf("Edit missing: expected ErrNotFound, got %v", err)
	}
	if _, err := param.Edit(&c, "mana", "focus", param.Spec{Max: 20}); err != nil {
		t.Fatalf("Edit rename: unexpected error: %v", err)
	}
	if _, ok := c.Custom["mana"]; ok {
		t.Error("Edit rename: old name still present")
	}
	if got := c.Custom["focus"].Value; got != 12 {
		t.Errorf("Edit rename: expected value 12, got %d", got)
	}
}

func TestSetAdjustToggle(t *testing.T) {
	t.Parallel()

	c := roster.NewCharacter("Rio")
	c.Custom["mana"] = roster.Parameter{Type: roster.ParamRange, Min: 0, Max: 20, Value: 10}
	c.Custom["blessed"] = roster.Parameter{Type: roster.ParamBoolean}

	if p, _ := param.SetValue(&c, "mana", 99); p.Value != 20 {
		t.Errorf("SetValue: expected clamp to 20, got %d", p.Value)
	}
	if p, _ := param.Adjust(&c, "mana", -25); p.Value != 0 {
		t.Errorf("Adjust: expected clamp to 0, got %d", p.Value)
	}
	if _, err := param.Adjust(&c, "blessed", 1); !errors.Is(err, param.ErrWrongType) {
		t.Errorf("Adjust boolean: expected ErrWrongType, got %v", err)
	}
	if p, _ := param.Toggle(&c, "blessed", true); !p.Checked {
		t.Error("Toggle: expected checked")
	}
	if _, err := param.Toggle(&c, "mana", true); !errors.Is(err, param.ErrWrongType) {
		t.Errorf("Toggle range: expected ErrWrongType, got %v", err)
	}
	if p, _ := param.SetValue(&c, "blessed", 0); p.Checked {
		t.Error("SetValue boolean 0: expected unchecked")
	}
	if err := param.Remove(&c, "mana"); err != nil {
		t.Errorf("Remove: unexpected error: %v", err)
	}
	if err := param.Remove(&c, "mana"); !errors.Is(err, param.ErrNotFound) {
		t.Errorf("Remove twice: expected ErrNotFound, got %v", err)
	}
}

func TestGetOrDefault(t *testing.T) {
	t.Parallel()

	c := roster.NewEntity("Chest")
	p, origin := param.GetOrDefault(&c, "lock", roster.ParamBoolean)
	if origin != param.Defaulted || !p.IsBoolean() || p.Checked {
		t.Fatalf("GetOrDefault: got %+v origin=%v", p, origin)
	}
	if len(c.Custom) != 0 {
		t.Fatal("GetOrDefault: must not modify the character")
	}

	p, origin = param.GetOrDefault(&c, "weight", "")
	if origin != param.Defaulted || p.IsBoolean() || p.Min != 0 || p.Max != 100 || p.Color != "primary" {
		t.Fatalf("GetOrDefault range: got %+v origin=%v", p, origin)
	}

	c.Custom["weight"] = roster.Parameter{Type: roster.ParamRange, Max: 5, Value: 2}
	p, origin = param.GetOrDefault(&c, "weight", roster.ParamBoolean)
	if origin != param.Existing || p.Value != 2 {
		t.Fatalf("GetOrDefault existing: got %+v origin=%v", p, origin)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	c := roster.NewEntity("Chest")
	if v, origin := param.StatOrDefault(&c, roster.StatHunger); v != 50 || origin != param.Defaulted {
		t.Fatalf("StatOrDefault: got %d %v", v, origin)
	}
	if v, _ := param.AdjustStat(&c, roster.StatHunger, 70); v != 100 {
		t.Fatalf("AdjustStat: expected 100, got %d", v)
	}
	if v, _ := param.SetStat(&c, roster.StatThirsty, -4); v != 0 {
		t.Fatalf("SetStat: expected 0, got %d", v)
	}
	if _, err := param.SetStat(&c, "mood", 1); !errors.Is(err, param.ErrUnknownStat) {
		t.Fatalf("SetStat unknown: expected ErrUnknownStat, got %v", err)
	}
}

func TestFormParsing(t *testing.T) {
	t.Parallel()

	if got := param.ParseInt("abc"); got != 0 {
		t.Errorf("ParseInt(abc) = %d, want 0", got)
	}
	if got := param.ParseInt(" 12 "); got != 12 {
		t.Errorf("ParseInt(12) = %d, want 12", got)
	}
	for in, want := range map[string]int{"": 1, "0": 1, "-3": 1, "x": 1, "4": 4} {
		if got := param.ParseQuantity(in); got != want {
			t.Errorf("ParseQuantity(%q) = %d, want %d", in, got, want)
		}
	}
	s := param.SpecFromForm("range", "5", "", "info")
	if s.Min != 5 || s.Max != 5 {
		t.Errorf("SpecFromForm: expected 5..5, got %d..%d", s.Min, s.Max)
	}
}
