package itemdb

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/roster/internal/roster"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// MatchOption configures a [Matcher].
type MatchOption func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a name that
// also sounds like the query. Default: 0.70.
func WithPhoneticThreshold(threshold float64) MatchOption {
	return func(m *Matcher) { m.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a name that
// only looks like the query. Default: 0.85.
func WithFuzzyThreshold(threshold float64) MatchOption {
	return func(m *Matcher) { m.fuzzyThreshold = threshold }
}

// Matcher finds the known item name closest to a misspelt one ("helth
// potion" → "Health Potion"). Names whose Double Metaphone codes overlap the
// query win over names that are merely similar in spelling; within each group
// the highest Jaro-Winkler score wins.
//
// A Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewMatcher returns a [Matcher] with the default thresholds.
func NewMatcher(opts ...MatchOption) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Suggest returns the name from names that best matches query. An exact
// case-insensitive hit always wins with score 1. ok is false when nothing
// clears the thresholds.
func (m *Matcher) Suggest(query string, names []string) (name string, score float64, ok bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(names) == 0 {
		return "", 0, false
	}
	qTokens := strings.Fields(q)
	qCodes := metaphoneCodes(qTokens)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, n := range names {
		lower := strings.ToLower(strings.TrimSpace(n))
		if lower == "" {
			continue
		}
		if lower == q {
			return n, 1, true
		}
		tokens := strings.Fields(lower)
		s := similarity(qTokens, tokens, q, lower)

		if overlaps(qCodes, metaphoneCodes(tokens)) {
			if s >= m.phoneticThreshold && (!bestPhonetic || s > bestScore) {
				best, bestScore, bestPhonetic = n, s, true
			}
			continue
		}
		if !bestPhonetic && s >= m.fuzzyThreshold && s > bestScore {
			best, bestScore = n, s
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestScore, true
}

// SuggestEntry is Suggest over the names of entries, returning the index of
// the matched entry.
func (m *Matcher) SuggestEntry(query string, entries []roster.ItemEntry) (int, float64, bool) {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	name, score, ok := m.Suggest(query, names)
	if !ok {
		return -1, 0, false
	}
	i, _ := Lookup(entries, name)
	return i, score, true
}

func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score over the full strings, the
// strings with spaces removed, and every token pair.
func similarity(aTokens, bTokens []string, a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	if len(aTokens) > 1 || len(bTokens) > 1 {
		score = max(score, matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false))
	}
	for _, at := range aTokens {
		for _, bt := range bTokens {
			score = max(score, matchr.JaroWinkler(at, bt, false))
		}
	}
	return score
}
