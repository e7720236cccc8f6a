package roster

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// Summary aggregates the roster for an overview panel.
type Summary struct {
	// Characters is the number of records in the roster.
	Characters int

	// ItemLines is the number of inventory lines across all characters.
	ItemLines int

	// Parameters lists every distinct custom parameter name, sorted.
	Parameters []string

	// Totals sums inventory amounts per exact item name, sorted by name.
	Totals []InventoryLine
}

// Summarize computes a [Summary] over cs.
func Summarize(cs []Character) Summary {
	params := map[string]struct{}{}
	totals := map[string]int{}
	s := Summary{Characters: len(cs)}

	for _, c := range cs {
		s.ItemLines += len(c.Items)
		for name := range c.Custom {
			params[name] = struct{}{}
		}
		for _, l := range c.Items {
			totals[l.Name] += l.Amount
		}
	}

	s.Parameters = slices.Sorted(maps.Keys(params))
	s.Totals = make([]InventoryLine, 0, len(totals))
	for name, amount := range totals {
		s.Totals = append(s.Totals, InventoryLine{Name: name, Amount: amount})
	}
	slices.SortFunc(s.Totals, func(a, b InventoryLine) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return s
}
