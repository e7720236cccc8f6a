package mcpserver

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/MrWong99/roster/internal/crafting"
	"github.com/MrWong99/roster/internal/effect"
	"github.com/MrWong99/roster/internal/param"
	"github.com/MrWong99/roster/internal/roster"
)

// Tool names.
const (
	ToolListCharacters = "list_characters"
	ToolApplyEffects   = "apply_effects"
	ToolUseItem        = "use_item"
	ToolEvaluateBadges = "evaluate_badges"
	ToolCraft          = "craft"
	ToolCraftPreview   = "craft_preview"
	ToolTransferItem   = "transfer_item"
	ToolExport         = "export"
)

func (s *Server) register() {
	addTool(s, ToolListCharacters,
		"Lists every character and entity with stats, custom parameters, inventory and current badges",
		s.listCharacters)
	addTool(s, ToolApplyEffects,
		"Applies stat or custom-parameter effects to one character, in order",
		s.applyEffects)
	addTool(s, ToolUseItem,
		"Applies the effects of an item from the item database to a character; the item is not consumed",
		s.useItem)
	addTool(s, ToolEvaluateBadges,
		"Returns the badges a character currently earns",
		s.evaluateBadges)
	addTool(s, ToolCraft,
		"Crafts a recipe for a character, consuming materials and adding outputs",
		s.craft)
	addTool(s, ToolCraftPreview,
		"Checks whether a character has the materials for a recipe without changing anything",
		s.craftPreview)
	addTool(s, ToolTransferItem,
		"Moves items from one character's inventory line to another character",
		s.transferItem)
	addTool(s, ToolExport,
		"Exports characters, badges, item database and recipes as one JSON document",
		s.export)
}

// ─── Views ───────────────────────────────────────────────────────────────────

// LineView is one inventory line or recipe line.
type LineView struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

// ParameterView is one custom parameter.
type ParameterView struct {
	Name    string `json:"name"`
	Type    string `json:"type" jsonschema:"range or boolean"`
	Value   int    `json:"value"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Checked bool   `json:"checked"`
}

// CharacterView is a character as tools report it.
type CharacterView struct {
	Index      int             `json:"index" jsonschema:"position in the roster, used to address the character"`
	Name       string          `json:"name"`
	Hunger     *int            `json:"hunger,omitempty"`
	Thirsty    *int            `json:"thirsty,omitempty"`
	Items      []LineView      `json:"items"`
	Parameters []ParameterView `json:"parameters"`
	Badges     []string        `json:"badges,omitempty"`
}

func characterView(i int, c roster.Character) CharacterView {
	v := CharacterView{
		Index:      i,
		Name:       c.Name,
		Hunger:     c.Hunger,
		Thirsty:    c.Thirsty,
		Items:      make([]LineView, 0, len(c.Items)),
		Parameters: make([]ParameterView, 0, len(c.Custom)),
	}
	for _, l := range c.Items {
		v.Items = append(v.Items, LineView{Name: l.Name, Amount: l.Amount})
	}
	for _, name := range slices.Sorted(maps.Keys(c.Custom)) {
		p := c.Custom[name]
		v.Parameters = append(v.Parameters, ParameterView{
			Name:    name,
			Type:    string(p.Type.Normalize()),
			Value:   p.Value,
			Min:     p.Min,
			Max:     p.Max,
			Checked: p.Checked,
		})
	}
	return v
}

// OutcomeView reports what one effect did.
type OutcomeView struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Action  string `json:"action"`
	Created bool   `json:"created" jsonschema:"the target did not exist and was created"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Skipped string `json:"skipped,omitempty" jsonschema:"reason the effect was not applied"`
}

func outcomeViews(out []effect.Outcome) []OutcomeView {
	vs := make([]OutcomeView, 0, len(out))
	for _, o := range out {
		target := o.Target
		if target == "" {
			target = o.Effect.Target
		}
		vs = append(vs, OutcomeView{
			Type:    string(o.Effect.Type),
			Target:  target,
			Action:  string(o.Effect.Action),
			Created: o.Applied() && o.Origin == param.Defaulted,
			Before:  o.Before,
			After:   o.After,
			Skipped: o.Skipped,
		})
	}
	return vs
}

// RequirementView is the check of one recipe material.
type RequirementView struct {
	Name       string `json:"name"`
	Required   int    `json:"required"`
	Have       int    `json:"have"`
	Sufficient bool   `json:"sufficient"`
}

// SufficiencyView reports whether a recipe can be crafted.
type SufficiencyView struct {
	Recipe      string            `json:"recipe"`
	Quantity    int               `json:"quantity"`
	CanCraft    bool              `json:"can_craft"`
	MaxQuantity int               `json:"max_quantity,omitempty" jsonschema:"largest affordable quantity; absent when the recipe consumes nothing"`
	Materials   []RequirementView `json:"materials"`
	Outputs     []LineView        `json:"outputs"`
	Missing     []string          `json:"missing,omitempty" jsonschema:"materials that are short"`
}

func sufficiencyView(s crafting.Sufficiency) SufficiencyView {
	v := SufficiencyView{
		Recipe:    s.Recipe,
		Quantity:  s.Multiplier,
		CanCraft:  s.CanCraftAll,
		Materials: make([]RequirementView, 0, len(s.Materials)),
		Outputs:   make([]LineView, 0, len(s.Outputs)),
	}
	if !s.Unbounded {
		v.MaxQuantity = s.MaxMultiplier
	}
	for _, m := range s.Materials {
		v.Materials = append(v.Materials, RequirementView{Name: m.Name, Required: m.Required, Have: m.Have, Sufficient: m.Sufficient})
	}
	for _, o := range s.Outputs {
		v.Outputs = append(v.Outputs, LineView{Name: o.Name, Amount: o.Quantity})
	}
	for _, m := range s.Missing() {
		v.Missing = append(v.Missing, m.Name)
	}
	return v
}

// ─── list_characters ─────────────────────────────────────────────────────────

// ListCharactersInput takes no arguments.
type ListCharactersInput struct{}

// ListCharactersResult is the whole roster.
type ListCharactersResult struct {
	Characters []CharacterView `json:"characters"`
}

func (s *Server) listCharacters(ctx context.Context, _ ListCharactersInput) (ListCharactersResult, error) {
	cs, err := s.svc.Characters(ctx)
	if err != nil {
		return ListCharactersResult{}, err
	}
	res := ListCharactersResult{Characters: make([]CharacterView, 0, len(cs))}
	for i, c := range cs {
		v := characterView(i, c)
		badges, err := s.svc.EvaluateBadges(ctx, i)
		if err != nil {
			return ListCharactersResult{}, err
		}
		for _, b := range badges {
			v.Badges = append(v.Badges, b.Name)
		}
		res.Characters = append(res.Characters, v)
	}
	return res, nil
}

// ─── apply_effects ───────────────────────────────────────────────────────────

// EffectInput is one effect to apply.
type EffectInput struct {
	Type      string `json:"type" jsonschema:"stat or custom"`
	Target    string `json:"target" jsonschema:"hunger, thirsty or a custom parameter name"`
	Action    string `json:"action" jsonschema:"add, subtract or set"`
	Value     int    `json:"value,omitempty"`
	Flag      bool   `json:"flag,omitempty" jsonschema:"value for boolean parameters"`
	ParamType string `json:"param_type,omitempty" jsonschema:"range or boolean, used when the parameter has to be created"`
}

// effect converts e the way a decoded JSON effect would read: a non-zero
// value is truthy, and flag alone counts as 1.
func (e EffectInput) effect() roster.Effect {
	out := roster.Effect{
		Type:      roster.EffectType(e.Type),
		Target:    e.Target,
		Action:    roster.Action(e.Action),
		Value:     e.Value,
		Flag:      e.Flag || e.Value != 0,
		ParamType: roster.ParamType(e.ParamType),
	}
	if e.Flag && e.Value == 0 {
		out.Value = 1
	}
	return out
}

// ApplyEffectsInput addresses a character and lists effects.
type ApplyEffectsInput struct {
	Character int           `json:"character" jsonschema:"character index from list_characters"`
	Effects   []EffectInput `json:"effects"`
}

// EffectsResult reports the outcomes and the character afterwards.
type EffectsResult struct {
	Character CharacterView `json:"character"`
	Outcomes  []OutcomeView `json:"outcomes"`
}

func (s *Server) applyEffects(ctx context.Context, in ApplyEffectsInput) (EffectsResult, error) {
	effects := make([]roster.Effect, 0, len(in.Effects))
	for _, e := range in.Effects {
		effects = append(effects, e.effect())
	}
	out, err := s.svc.ApplyEffects(ctx, in.Character, effects)
	if err != nil {
		return EffectsResult{}, err
	}
	return s.effectsResult(ctx, in.Character, out)
}

func (s *Server) effectsResult(ctx context.Context, i int, out []effect.Outcome) (EffectsResult, error) {
	c, err := s.svc.Character(ctx, i)
	if err != nil {
		return EffectsResult{}, err
	}
	return EffectsResult{Character: characterView(i, c), Outcomes: outcomeViews(out)}, nil
}

// ─── use_item ────────────────────────────────────────────────────────────────

// UseItemInput names the item and the character using it.
type UseItemInput struct {
	Character int    `json:"character" jsonschema:"character index from list_characters"`
	Item      string `json:"item" jsonschema:"item name, case-insensitive"`
}

// UseItemResult reports the applied effects.
type UseItemResult struct {
	Character  CharacterView `json:"character"`
	Outcomes   []OutcomeView `json:"outcomes"`
	Item       string        `json:"item"`
	Created    bool          `json:"created" jsonschema:"the item was unknown and a placeholder without effects was added"`
	Suggestion string        `json:"suggestion,omitempty" jsonschema:"closest known item name when the item was unknown"`
}

func (s *Server) useItem(ctx context.Context, in UseItemInput) (UseItemResult, error) {
	var suggestion string
	if _, ok, err := s.svc.Item(ctx, in.Item); err == nil && !ok {
		if name, _, found, err := s.svc.SuggestItem(ctx, in.Item); err == nil && found {
			suggestion = name
		}
	}

	used, err := s.svc.UseItem(ctx, in.Character, in.Item)
	if err != nil {
		return UseItemResult{}, err
	}
	er, err := s.effectsResult(ctx, in.Character, used.Outcomes)
	if err != nil {
		return UseItemResult{}, err
	}
	return UseItemResult{Character: er.Character, Outcomes: er.Outcomes, Item: used.Item.Name, Created: used.Created, Suggestion: suggestion}, nil
}

// ─── evaluate_badges ─────────────────────────────────────────────────────────

// CharacterInput addresses one character.
type CharacterInput struct {
	Character int `json:"character" jsonschema:"character index from list_characters"`
}

// BadgeView is one earned badge.
type BadgeView struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
	Desc string `json:"desc,omitempty"`
}

// BadgesResult lists earned badges in declaration order.
type BadgesResult struct {
	Badges []BadgeView `json:"badges"`
}

func (s *Server) evaluateBadges(ctx context.Context, in CharacterInput) (BadgesResult, error) {
	rules, err := s.svc.EvaluateBadges(ctx, in.Character)
	if err != nil {
		return BadgesResult{}, err
	}
	res := BadgesResult{Badges: make([]BadgeView, 0, len(rules))}
	for _, b := range rules {
		res.Badges = append(res.Badges, BadgeView{Name: b.Name, Icon: b.Icon, Desc: b.Desc})
	}
	return res, nil
}

// ─── craft / craft_preview ───────────────────────────────────────────────────

// CraftInput selects a recipe, a character and a quantity.
type CraftInput struct {
	Character int    `json:"character" jsonschema:"character index from list_characters"`
	Recipe    string `json:"recipe" jsonschema:"exact recipe name"`
	Quantity  int    `json:"quantity,omitempty" jsonschema:"how many times to craft; defaults to 1"`
}

func (in CraftInput) quantity() int {
	return max(in.Quantity, 1)
}

// CraftResult reports a craft. A shortage is not an error: Crafted is
// false and the sufficiency names what is missing.
type CraftResult struct {
	Crafted     bool            `json:"crafted"`
	Sufficiency SufficiencyView `json:"sufficiency"`
	Character   CharacterView   `json:"character"`
}

func (s *Server) craft(ctx context.Context, in CraftInput) (CraftResult, error) {
	suf, err := s.svc.Craft(ctx, in.Character, in.Recipe, in.quantity())
	crafted := err == nil
	if err != nil && !errors.Is(err, crafting.ErrInsufficient) {
		return CraftResult{}, err
	}
	c, err := s.svc.Character(ctx, in.Character)
	if err != nil {
		return CraftResult{}, err
	}
	return CraftResult{Crafted: crafted, Sufficiency: sufficiencyView(suf), Character: characterView(in.Character, c)}, nil
}

func (s *Server) craftPreview(ctx context.Context, in CraftInput) (SufficiencyView, error) {
	suf, err := s.svc.Preview(ctx, in.Character, in.Recipe, in.quantity())
	if err != nil {
		return SufficiencyView{}, err
	}
	return sufficiencyView(suf), nil
}

// ─── transfer_item ───────────────────────────────────────────────────────────

// TransferInput moves items between characters.
type TransferInput struct {
	From     int `json:"from" jsonschema:"index of the giving character"`
	Line     int `json:"line" jsonschema:"index of the inventory line in the giving character"`
	To       int `json:"to" jsonschema:"index of the receiving character"`
	Quantity int `json:"quantity" jsonschema:"units to move; capped at what the line holds"`
}

// TransferResult reports the moved quantity and both characters afterwards.
type TransferResult struct {
	Moved int           `json:"moved"`
	From  CharacterView `json:"from"`
	To    CharacterView `json:"to"`
}

func (s *Server) transferItem(ctx context.Context, in TransferInput) (TransferResult, error) {
	moved, err := s.svc.TransferItem(ctx, in.From, in.Line, in.To, in.Quantity)
	if err != nil {
		return TransferResult{}, err
	}
	from, err := s.svc.Character(ctx, in.From)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.svc.Character(ctx, in.To)
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{Moved: moved, From: characterView(in.From, from), To: characterView(in.To, to)}, nil
}

// ─── export ──────────────────────────────────────────────────────────────────

// ExportInput takes no arguments.
type ExportInput struct{}

// ExportResult carries the interchange document as a JSON string.
type ExportResult struct {
	Document string `json:"document"`
}

func (s *Server) export(ctx context.Context, _ ExportInput) (ExportResult, error) {
	b, err := s.svc.Export(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Document: string(b)}, nil
}
