// Package itemdb maintains the shared item encyclopedia.
//
// Entry names are unique case-insensitively, unlike inventory lines and
// recipes which match names exactly. Functions here are pure: they take the
// current entries and return new slices, leaving storage to the caller.
package itemdb

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MrWong99/roster/internal/roster"
)

// Placeholder text for entries created from inventory names.
const (
	FoundInInventory = "Found in character inventory"
	AutoAdded        = "Auto-added from character inventory"
	AutoCreated      = "Auto-created from character inventory - please edit to add proper details"
)

// Validate cleans entries: names are trimmed, entries without a name are
// dropped, later duplicates (case-insensitive) are dropped, and nil effect
// lists become empty. It returns the cleaned list and how many entries were
// removed. Validate is idempotent.
func Validate(entries []roster.ItemEntry) ([]roster.ItemEntry, int) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]roster.ItemEntry, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		key := fold(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		e = e.Clone()
		e.Name = name
		out = append(out, e)
	}
	return out, len(entries) - len(out)
}

// Lookup returns the index of the entry called name, ignoring case and
// surrounding whitespace.
func Lookup(entries []roster.ItemEntry, name string) (int, bool) {
	key := fold(strings.TrimSpace(name))
	i := slices.IndexFunc(entries, func(e roster.ItemEntry) bool { return fold(e.Name) == key })
	return i, i >= 0
}

// EnsureEntry returns the entry for name, appending a placeholder when none
// exists. created reports whether a placeholder was added.
func EnsureEntry(entries []roster.ItemEntry, name string) (out []roster.ItemEntry, entry roster.ItemEntry, created bool) {
	if i, ok := Lookup(entries, name); ok {
		return entries, entries[i], false
	}
	entry = roster.ItemEntry{
		Name:        strings.TrimSpace(name),
		HowToObtain: FoundInInventory,
		Description: AutoCreated,
		Effects:     []roster.Effect{},
	}
	return append(entries, entry), entry, true
}

// AddMissingFromInventories appends a placeholder for every inventory item
// name with no entry yet and returns the names it added, in roster order.
func AddMissingFromInventories(entries []roster.ItemEntry, cs []roster.Character) ([]roster.ItemEntry, []string) {
	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		known[fold(e.Name)] = struct{}{}
	}
	var added []string
	for _, c := range cs {
		for _, l := range c.Items {
			name := strings.TrimSpace(l.Name)
			if name == "" {
				continue
			}
			if _, ok := known[fold(name)]; ok {
				continue
			}
			known[fold(name)] = struct{}{}
			entries = append(entries, roster.ItemEntry{
				Name:        name,
				HowToObtain: FoundInInventory,
				Description: AutoAdded,
				Effects:     []roster.Effect{},
			})
			added = append(added, name)
		}
	}
	return entries, added
}

// Suggestions returns the names to offer when typing an item name: every
// database name plus inventory names not already covered, sorted
// case-insensitively.
func Suggestions(entries []roster.ItemEntry, cs []roster.Character) []string {
	seen := map[string]struct{}{}
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[fold(name)]; ok {
			return
		}
		seen[fold(name)] = struct{}{}
		names = append(names, name)
	}
	for _, e := range entries {
		add(e.Name)
	}
	for _, c := range cs {
		for _, l := range c.Items {
			add(l.Name)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(fold(a), fold(b)), cmp.Compare(a, b))
	})
	return names
}

// Filter returns the indices of entries whose name, how-to-obtain text,
// description, or effect targets and actions contain term, ignoring case.
// An empty term matches everything.
func Filter(entries []roster.ItemEntry, term string) []int {
	term = fold(strings.TrimSpace(term))
	out := []int{}
	for i, e := range entries {
		if term == "" || matches(e, term) {
			out = append(out, i)
		}
	}
	return out
}

func matches(e roster.ItemEntry, term string) bool {
	if strings.Contains(fold(e.Name), term) ||
		strings.Contains(fold(e.HowToObtain), term) ||
		strings.Contains(fold(e.Description), term) {
		return true
	}
	for _, eff := range e.Effects {
		if strings.Contains(fold(eff.Target), term) || strings.Contains(fold(string(eff.Action)), term) {
			return true
		}
	}
	return false
}

func fold(s string) string { return strings.ToLower(s) }
