package mcpserver_test

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/roster/internal/mcpserver"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/internal/tracker"
	"github.com/MrWong99/roster/pkg/kv"
)

// newSession returns a client connected to a server over a tracker holding
// the default roster (Rio: hunger 70, thirsty 40, 2 Apples), a second
// character, a few items, a recipe and two badges.
func newSession(t *testing.T) (*mcp.ClientSession, *tracker.Service) {
	t.Helper()
	ctx := context.Background()

	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	svc := tracker.New(roster.NewMemStore(roster.Snapshot{}), kv.NewMemStore(), tracker.WithMetrics(m))
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if _, err := svc.AddCharacter(ctx, "Mara", false); err != nil {
		t.Fatalf("AddCharacter: unexpected error: %v", err)
	}
	for _, e := range []roster.ItemEntry{
		{Name: "Bread", Effects: []roster.Effect{{Type: roster.EffectStat, Target: roster.StatHunger, Action: roster.ActionAdd, Value: 45}}},
		{Name: "Health Potion", Effects: []roster.Effect{{Type: roster.EffectCustom, Target: "HP", Action: roster.ActionAdd, Value: 10}}},
	} {
		if err := svc.PutItem(ctx, e); err != nil {
			t.Fatalf("PutItem: unexpected error: %v", err)
		}
	}
	err = svc.PutRecipe(ctx, roster.Recipe{
		Name:      "Cider",
		Materials: []roster.RecipeLine{{Name: "Apple", Quantity: 2}},
		Outputs:   []roster.RecipeLine{{Name: "Cider", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("PutRecipe: unexpected error: %v", err)
	}
	for _, b := range []roster.BadgeRule{
		{Name: "Fed", Cond: "hunger >= 50"},
		{Name: "Parched", Cond: "thirsty < 20"},
	} {
		if err := svc.AddBadge(ctx, b); err != nil {
			t.Fatalf("AddBadge: unexpected error: %v", err)
		}
	}

	srv := mcpserver.New(svc, mcpserver.WithMetrics(m), mcpserver.WithVersion("test"))
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs, svc
}

func call[T any](t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if res.IsError {
		t.Fatalf("%s failed: %+v", name, res.Content)
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func callError(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return
	}
	if !res.IsError {
		t.Fatalf("%s: expected tool error, got %+v", name, res.StructuredContent)
	}
}

func TestToolsAreListed(t *testing.T) {
	t.Parallel()
	cs, _ := newSession(t)

	var names []string
	for tool, err := range cs.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("Tools: unexpected error: %v", err)
		}
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{
		mcpserver.ToolApplyEffects,
		mcpserver.ToolCraft,
		mcpserver.ToolCraftPreview,
		mcpserver.ToolEvaluateBadges,
		mcpserver.ToolExport,
		mcpserver.ToolListCharacters,
		mcpserver.ToolTransferItem,
		mcpserver.ToolUseItem,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestListCharacters(t *testing.T) {
	t.Parallel()
	cs, _ := newSession(t)

	res := call[mcpserver.ListCharactersResult](t, cs, mcpserver.ToolListCharacters, map[string]any{})
	if len(res.Characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(res.Characters))
	}
	rio := res.Characters[0]
	if rio.Name != "Rio" || rio.Hunger == nil || *rio.Hunger != 70 {
		t.Errorf("Rio = %+v", rio)
	}
	if diff := cmp.Diff([]string{"Fed"}, rio.Badges); diff != "" {
		t.Errorf("Rio badges (-want +got):\n%s", diff)
	}
	if res.Characters[1].Name != "Mara" || res.Characters[1].Index != 1 {
		t.Errorf("second character = %+v", res.Characters[1])
	}
}

func TestApplyEffects(t *testing.T) {
	t.Parallel()
	cs, _ := newSession(t)

	res := call[mcpserver.EffectsResult](t, cs, mcpserver.ToolApplyEffects, map[string]any{
		"character": 0,
		"effects": []map[string]any{
			{"type": "stat", "target": "thirsty", "action": "subtract", "value": 30},
			{"type": "custom", "target": "Poisoned", "action": "set", "flag": true, "param_type": "boolean"},
			{"type": "stat", "target": "mana", "action": "add", "value": 5},
		},
	})
	if got := *res.Character.Thirsty; got != 10 {
		t.Errorf("thirsty = %d, want 10", got)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(res.Outcomes))
	}
	if !res.Outcomes[1].Created || res.Outcomes[1].After != 1 {
		t.Errorf("Poisoned outcome = %+v, want created with after=1", res.Outcomes[1])
	}
	if res.Outcomes[2].Skipped == "" {
		t.Errorf("mana outcome = %+v, want skipped", res.Outcomes[2])
	}

	badges := call[mcpserver.BadgesResult](t, cs, mcpserver.ToolEvaluateBadges, map[string]any{"character": 0})
	var names []string
	for _, b := range badges.Badges {
		names = append(names, b.Name)
	}
	if diff := cmp.Diff([]string{"Fed", "Parched"}, names); diff != "" {
		t.Errorf("badges (-want +got):\n%s", diff)
	}
}

func TestApplyEffects_BooleanOperand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		effect      map[string]any
		wantChecked bool
	}{
		{name: "numeric one", effect: map[string]any{"value": 1}, wantChecked: true},
		{name: "any non-zero number", effect: map[string]any{"value": 7}, wantChecked: true},
		{name: "flag", effect: map[string]any{"flag": true}, wantChecked: true},
		{name: "zero", effect: map[string]any{"value": 0}, wantChecked: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cs, _ := newSession(t)

			e := map[string]any{"type": "custom", "target": "blessed", "action": "set", "param_type": "boolean"}
			for k, v := range tt.effect {
				e[k] = v
			}
			res := call[mcpserver.EffectsResult](t, cs, mcpserver.ToolApplyEffects, map[string]any{
				"character": 0,
				"effects":   []map[string]any{e},
			})
			var blessed *mcpserver.ParameterView
			for i := range res.Character.Parameters {
				if res.Character.Parameters[i].Name == "blessed" {
					blessed = &res.Character.Parameters[i]
				}
			}
			if blessed == nil || blessed.Type != "boolean" {
				t.Fatalf("blessed = %+v, want a boolean parameter", blessed)
			}
			if blessed.Checked != tt.wantChecked {
				t.Errorf("blessed checked = %v, want %v", blessed.Checked, tt.wantChecked)
			}
		})
	}
}

func TestUseItem(t *testing.T) {
	t.Parallel()
	cs, svc := newSession(t)

	t.Run("known item clamps", func(t *testing.T) {
		res := call[mcpserver.UseItemResult](t, cs, mcpserver.ToolUseItem, map[string]any{"character": 0, "item": "bread"})
		if res.Item != "Bread" || res.Created {
			t.Errorf("item = %q created=%v, want Bread existing", res.Item, res.Created)
		}
		if got := *res.Character.Hunger; got != 100 {
			t.Errorf("hunger = %d, want 100", got)
		}
	})

	t.Run("unknown item gets a placeholder and a suggestion", func(t *testing.T) {
		res := call[mcpserver.UseItemResult](t, cs, mcpserver.ToolUseItem, map[string]any{"character": 1, "item": "helth potion"})
		if !res.Created {
			t.Error("Created = false, want true")
		}
		if res.Suggestion != "Health Potion" {
			t.Errorf("Suggestion = %q, want Health Potion", res.Suggestion)
		}
		if len(res.Outcomes) != 0 {
			t.Errorf("outcomes = %+v, want none", res.Outcomes)
		}
		if _, ok, _ := svc.Item(context.Background(), "helth potion"); !ok {
			t.Error("placeholder entry missing from item database")
		}
	})

	t.Run("bad character", func(t *testing.T) {
		callError(t, cs, mcpserver.ToolUseItem, map[string]any{"character": 7, "item": "Bread"})
	})
}

func TestCraft(t *testing.T) {
	t.Parallel()
	cs, _ := newSession(t)

	preview := call[mcpserver.SufficiencyView](t, cs, mcpserver.ToolCraftPreview, map[string]any{"character": 0, "recipe": "Cider", "quantity": 2})
	if preview.CanCraft || preview.MaxQuantity != 1 {
		t.Errorf("preview = %+v, want cannot craft x2 with max 1", preview)
	}
	if diff := cmp.Diff([]string{"Apple"}, preview.Missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}

	refused := call[mcpserver.CraftResult](t, cs, mcpserver.ToolCraft, map[string]any{"character": 0, "recipe": "Cider", "quantity": 2})
	if refused.Crafted {
		t.Error("Crafted = true for a shortage")
	}

	done := call[mcpserver.CraftResult](t, cs, mcpserver.ToolCraft, map[string]any{"character": 0, "recipe": "Cider"})
	if !done.Crafted {
		t.Fatalf("Crafted = false: %+v", done.Sufficiency)
	}
	want := []mcpserver.LineView{{Name: "Cider", Amount: 1}}
	if diff := cmp.Diff(want, done.Character.Items); diff != "" {
		t.Errorf("inventory (-want +got):\n%s", diff)
	}

	callError(t, cs, mcpserver.ToolCraft, map[string]any{"character": 0, "recipe": "cider"})
}

func TestTransferItemAndExport(t *testing.T) {
	t.Parallel()
	cs, svc := newSession(t)

	res := call[mcpserver.TransferResult](t, cs, mcpserver.ToolTransferItem, map[string]any{"from": 0, "line": 0, "to": 1, "quantity": 5})
	if res.Moved != 2 {
		t.Errorf("moved = %d, want 2", res.Moved)
	}
	if len(res.From.Items) != 0 {
		t.Errorf("from items = %+v, want empty", res.From.Items)
	}
	if diff := cmp.Diff([]mcpserver.LineView{{Name: "Apple", Amount: 2}}, res.To.Items); diff != "" {
		t.Errorf("to items (-want +got):\n%s", diff)
	}

	callError(t, cs, mcpserver.ToolTransferItem, map[string]any{"from": 1, "line": 0, "to": 1, "quantity": 1})

	exp := call[mcpserver.ExportResult](t, cs, mcpserver.ToolExport, map[string]any{})
	want, err := svc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: unexpected error: %v", err)
	}
	if exp.Document != string(want) {
		t.Errorf("export document differs from tracker export:\n got %s\nwant %s", exp.Document, want)
	}
}
