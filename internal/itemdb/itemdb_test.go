package itemdb_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/roster/internal/itemdb"
	"github.com/MrWong99/roster/internal/roster"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	in := []roster.ItemEntry{
		{Name: "  Apple ", Description: "first"},
		{Name: ""},
		{Name: "   "},
		{Name: "apple", Description: "dup"},
		{Name: "Rope", Effects: nil},
	}
	got, removed := itemdb.Validate(in)
	if removed != 3 {
		t.Fatalf("Validate: removed %d, want 3", removed)
	}
	want := []roster.ItemEntry{
		{Name: "Apple", Description: "first", Effects: []roster.Effect{}},
		{Name: "Rope", Effects: []roster.Effect{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Validate (-want +got):\n%s", diff)
	}

	again, removed := itemdb.Validate(got)
	if removed != 0 {
		t.Fatalf("Validate twice: removed %d, want 0", removed)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Fatalf("Validate is not idempotent (-first +second):\n%s", diff)
	}
}

func TestLookupAndEnsure(t *testing.T) {
	t.Parallel()

	entries := []roster.ItemEntry{{Name: "Health Potion"}}
	if i, ok := itemdb.Lookup(entries, " health POTION "); !ok || i != 0 {
		t.Fatalf("Lookup: got %d %v", i, ok)
	}

	out, e, created := itemdb.EnsureEntry(entries, "HEALTH potion")
	if created || len(out) != 1 || e.Name != "Health Potion" {
		t.Fatalf("EnsureEntry existing: created=%v len=%d entry=%+v", created, len(out), e)
	}
	out, e, created = itemdb.EnsureEntry(out, "Mystery Box")
	if !created || len(out) != 2 {
		t.Fatalf("EnsureEntry new: created=%v len=%d", created, len(out))
	}
	if e.HowToObtain != itemdb.FoundInInventory || e.Description != itemdb.AutoCreated {
		t.Fatalf("EnsureEntry placeholder: %+v", e)
	}
}

func TestAddMissingFromInventories(t *testing.T) {
	t.Parallel()

	a := roster.NewCharacter("A")
	a.Items = []roster.InventoryLine{{Name: "apple", Amount: 1}, {Name: "Rope", Amount: 1}}
	b := roster.NewEntity("B")
	b.Items = []roster.InventoryLine{{Name: "rope", Amount: 2}, {Name: "Gem", Amount: 1}}

	out, added := itemdb.AddMissingFromInventories([]roster.ItemEntry{{Name: "Apple"}}, []roster.Character{a, b})
	if diff := cmp.Diff([]string{"Rope", "Gem"}, added); diff != "" {
		t.Fatalf("added (-want +got):\n%s", diff)
	}
	if len(out) != 3 || out[1].Description != itemdb.AutoAdded {
		t.Fatalf("entries: %+v", out)
	}
}

func TestSuggestions(t *testing.T) {
	t.Parallel()

	c := roster.NewCharacter("A")
	c.Items = []roster.InventoryLine{{Name: "zinc", Amount: 1}, {Name: "APPLE", Amount: 1}, {Name: "bread", Amount: 1}}
	got := itemdb.Suggestions([]roster.ItemEntry{{Name: "Rope"}, {Name: "Apple"}}, []roster.Character{c})
	want := []string{"Apple", "bread", "Rope", "zinc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Suggestions (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	entries := []roster.ItemEntry{
		{Name: "Apple", Description: "Crunchy fruit"},
		{Name: "Rope", HowToObtain: "General store"},
		{Name: "Elixir", Effects: []roster.Effect{{Type: roster.EffectStat, Target: "thirsty", Action: roster.ActionAdd}}},
	}
	tests := []struct {
		term string
		want []int
	}{
		{term: "", want: []int{0, 1, 2}},
		{term: "FRUIT", want: []int{0}},
		{term: "store", want: []int{1}},
		{term: "thirst", want: []int{2}},
		{term: "add", want: []int{2}},
		{term: "nothing", want: []int{}},
	}
	for _, tt := range tests {
		if got := itemdb.Filter(entries, tt.term); !slices.Equal(got, tt.want) {
			t.Errorf("Filter(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	m := itemdb.NewMatcher()
	names := []string{"Health Potion", "Iron Sword", "Bread"}

	t.Run("misspelling", func(t *testing.T) {
		t.Parallel()
		got, score, ok := m.Suggest("helth potion", names)
		if !ok || got != "Health Potion" {
			t.Fatalf("Suggest: got %q ok=%v", got, ok)
		}
		if score < 0.7 {
			t.Errorf("Suggest: score %f, want >= 0.7", score)
		}
	})

	t.Run("exact ignores case", func(t *testing.T) {
		t.Parallel()
		got, score, ok := m.Suggest("BREAD", names)
		if !ok || got != "Bread" || score != 1 {
			t.Fatalf("Suggest: got %q %f %v", got, score, ok)
		}
	})

	t.Run("multi word", func(t *testing.T) {
		t.Parallel()
		got, _, ok := m.Suggest("tower of wispers", []string{"Tower of Whispers", "Bread"})
		if !ok || got != "Tower of Whispers" {
			t.Fatalf("Suggest: got %q ok=%v", got, ok)
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		if got, _, ok := m.Suggest("hello", []string{"Eldrinax", "Grimjaw"}); ok {
			t.Fatalf("Suggest: unexpected match %q", got)
		}
		if _, _, ok := m.Suggest("  ", names); ok {
			t.Fatal("Suggest: blank query matched")
		}
	})

	t.Run("entry index", func(t *testing.T) {
		t.Parallel()
		entries := []roster.ItemEntry{{Name: "Bread"}, {Name: "Health Potion"}}
		i, _, ok := m.SuggestEntry("helth potion", entries)
		if !ok || i != 1 {
			t.Fatalf("SuggestEntry: got %d ok=%v", i, ok)
		}
	})
}
