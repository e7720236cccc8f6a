package param

import (
	"fmt"

	"github.com/MrWong99/roster/internal/roster"
)

// SetStat sets a built-in stat to v clamped to [roster.StatMin,
// roster.StatMax], creating the stat when the character lacks it.
func SetStat(c *roster.Character, name string, v int) (int, error) {
	if !roster.IsStat(name) {
		return 0, fmt.Errorf("param: set stat %q: %w", name, ErrUnknownStat)
	}
	v = Clamp(v, roster.StatMin, roster.StatMax)
	c.SetStat(name, v)
	return v, nil
}

// AdjustStat adds delta to a built-in stat. An absent stat starts from
// [roster.StatDefault].
func AdjustStat(c *roster.Character, name string, delta int) (int, error) {
	cur, _ := StatOrDefault(c, name)
	return SetStat(c, name, cur+delta)
}

// StatOrDefault returns the current value of a stat, or
// [roster.StatDefault] with [Defaulted] when it is absent.
func StatOrDefault(c *roster.Character, name string) (int, Origin) {
	if v, ok := c.Stat(name); ok {
		return v, Existing
	}
	return roster.StatDefault, Defaulted
}
