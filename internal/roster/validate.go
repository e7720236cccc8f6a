package roster

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateCharacter checks a [Character] before it is stored.
//
// Rules:
//   - Name must be non-empty after trimming.
//   - Stats, when present, lie within [StatMin, StatMax].
//   - Inventory amounts are never negative.
//   - Range parameters hold a value within their bounds.
func ValidateCharacter(c Character) error {
	var errs []error

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	for _, s := range Stats {
		if v, ok := c.Stat(s); ok && (v < StatMin || v > StatMax) {
			errs = append(errs, fmt.Errorf("%s %d is outside [%d, %d]", s, v, StatMin, StatMax))
		}
	}
	for i, l := range c.Items {
		if l.Amount < 0 {
			errs = append(errs, fmt.Errorf("items[%d] %q: amount must not be negative", i, l.Name))
		}
	}
	for name, p := range c.Custom {
		if name == "" {
			errs = append(errs, errors.New("custom parameter name must not be empty"))
		}
		if p.IsBoolean() {
			continue
		}
		if p.Max < p.Min {
			errs = append(errs, fmt.Errorf("custom %q: max %d below min %d", name, p.Max, p.Min))
		} else if p.Value < p.Min || p.Value > p.Max {
			errs = append(errs, fmt.Errorf("custom %q: value %d is outside [%d, %d]", name, p.Value, p.Min, p.Max))
		}
	}
	return joinInvalid(errs)
}

// ValidateBadge checks a [BadgeRule]. Only the name is required; an empty
// condition is legal and never matches.
func ValidateBadge(b BadgeRule) error {
	if strings.TrimSpace(b.Name) == "" {
		return joinInvalid([]error{errors.New("badge name must not be empty")})
	}
	return nil
}

// ValidateItem checks an [ItemEntry].
func ValidateItem(e ItemEntry) error {
	var errs []error
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("item name must not be empty"))
	}
	for i, eff := range e.Effects {
		if eff.Target == "" {
			errs = append(errs, fmt.Errorf("effects[%d]: target must not be empty", i))
		}
	}
	return joinInvalid(errs)
}

// ValidateRecipe checks a [Recipe] the way the recipe editor does before
// saving it.
//
// Rules:
//   - Name must be non-empty.
//   - At least one material and one output.
//   - Every line has a name and a positive quantity.
func ValidateRecipe(r Recipe) error {
	var errs []error

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("recipe name must not be empty"))
	}
	if len(r.Materials) == 0 {
		errs = append(errs, errors.New("recipe needs at least one material"))
	}
	if len(r.Outputs) == 0 {
		errs = append(errs, errors.New("recipe needs at least one output"))
	}
	errs = append(errs, validateLines("materials", r.Materials)...)
	errs = append(errs, validateLines("outputs", r.Outputs)...)
	return joinInvalid(errs)
}

func validateLines(field string, lines []RecipeLine) []error {
	var errs []error
	for i, l := range lines {
		if strings.TrimSpace(l.Name) == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: name must not be empty", field, i))
		}
		if l.Quantity < 1 {
			errs = append(errs, fmt.Errorf("%s[%d] %q: quantity must be positive", field, i, l.Name))
		}
	}
	return errs
}

func joinInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
