package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

func testDefs() *state.Defs {
	defs := state.NewDefs()
	defs.Game = types.GameDef{Start: "hall"}
	defs.Player = &types.Entity{
		ID:   "player",
		Kind: types.KindPlayer,
		Name: "Rook",
		Fields: map[string]any{
			"Stats": map[string]any{"Level": 5, "Notoriety": 12, "InCombat": false},
		},
		CustomProperties: []types.CustomProperty{
			{Name: "Title", Value: "Nobody"},
		},
	}
	defs.Rooms["hall"] = &types.Entity{
		ID: "hall", Kind: types.KindRoom, Name: "Great Hall",
		Fields: map[string]any{"Type": "safe"},
	}
	defs.Rooms["entrance"] = &types.Entity{ID: "entrance", Kind: types.KindRoom, Name: "Entrance"}
	defs.Objects["rusty_key"] = &types.Entity{
		ID: "rusty_key", Kind: types.KindObject, Name: "Rusty Key",
		Fields: map[string]any{"Location": "hall"},
	}
	defs.Objects["golden_key"] = &types.Entity{
		ID: "golden_key", Kind: types.KindObject, Name: "Golden Key",
		Fields: map[string]any{"Location": "entrance"},
	}
	defs.Objects["iron_door"] = &types.Entity{
		ID: "iron_door", Kind: types.KindObject, Name: "Iron Door",
		Fields: map[string]any{"Location": "hall"},
	}
	defs.Characters["guard"] = &types.Entity{
		ID: "guard", Kind: types.KindCharacter, Name: "Old Guard",
		Fields: map[string]any{
			"Location": "hall",
			"Stats":    map[string]any{"Health": 20},
			"Traits":   []any{map[string]any{"name": "Loyal", "value": true}},
		},
		CustomProperties: []types.CustomProperty{
			{Name: "Mood", Value: "wary"},
		},
	}
	defs.Timers["curfew"] = &types.Entity{
		ID: "curfew", Kind: types.KindTimer,
		Fields: map[string]any{"Remaining": 3},
	}
	defs.Globals["gold"] = 40
	defs.Globals["town"] = map[string]any{"name": "Brindle", "watch": map[string]any{"alert": 1}}
	defs.Texts["greeting"] = "Welcome, traveller."
	defs.Aliases["Bounty"] = "player.Stats.Bounty"
	return defs
}

func testContext() *state.Context {
	defs := testDefs()
	return state.NewContext(state.NewState(defs), defs, nil)
}

func TestResolve_Namespaces(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		ref  string
		want any
	}{
		{"player.Stats.Level", 5},
		{"player.Name", "Rook"},
		{"player", "player"},
		{"room.hall.Type", "safe"},
		{"room.hall", "hall"},
		{"object.rusty_key.Location", "hall"},
		{"character.guard.Stats.Health", 20},
		{"character.guard.CustomProperties.Mood", "wary"},
		{"character.guard.CustomProperties.mood", "wary"},
		{"character.guard.Traits.Loyal", true},
		{"timer.curfew.Remaining", 3},
		{"global.gold", 40},
		{"vars.town.name", "Brindle"},
		{"vars.town.watch.alert", 1},
		{"gold", 40},
		{"town.watch.alert", 1},
		{"texts.greeting", "Welcome, traveller."},
		{"greeting", "Welcome, traveller."},
		{"Level", 5},
		{"InCombat", false},
		{"<CurrentRoom>.Type", "safe"},
		{"room.<CurrentRoom>.Name", "Great Hall"},
		{"flag:has_badge", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := Resolve(tt.ref, ctx)
			require.True(t, ok, "expected %q to resolve", tt.ref)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Unresolved(t *testing.T) {
	ctx := testContext()

	for _, ref := range []string{
		"",
		"player.Stats.Missing",
		"character.ghost.Stats.Health",
		"character.ghost",
		"room.hall.Type.Deeper",
		"texts.missing",
		"<Self>.Name",
		"nobody_knows",
		"Bounty",
	} {
		t.Run(ref, func(t *testing.T) {
			v, ok := Resolve(ref, ctx)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestResolve_NamespacedMissDoesNotFallBack(t *testing.T) {
	ctx := testContext()
	ctx.State.Globals["character"] = map[string]any{"ghost": "boo"}

	_, ok := Resolve("character.ghost", ctx)
	assert.False(t, ok)
}

func TestResolve_Self(t *testing.T) {
	ctx := testContext()
	ctx = ctx.WithSelf(ctx.State.Characters["guard"])

	v, ok := Resolve("<Self>.CustomProperties.Mood", ctx)
	require.True(t, ok)
	assert.Equal(t, "wary", v)

	v, ok = Resolve("character.<Self>.Name", ctx)
	require.True(t, ok)
	assert.Equal(t, "Old Guard", v)
}

func TestAssignResolve_RoundTrip(t *testing.T) {
	ctx := testContext()
	ctx = ctx.WithSelf(ctx.State.Objects["iron_door"])

	refs := []string{
		"player.Stats.Level",
		"player.Stats.Brand.New",
		"player.CustomProperties.Title",
		"player.CustomProperties.Fresh",
		"room.hall.Type",
		"room.entrance.Weather.Today",
		"object.rusty_key.Location",
		"character.guard.CustomProperties.Mood",
		"character.guard.CustomProperties.Orders.Post",
		"timer.curfew.Remaining",
		"global.gold",
		"vars.town.watch.alert",
		"<Self>.Locked",
		"<CurrentRoom>.Lights",
		"newglobal",
		"Notoriety",
	}
	values := []any{7, "hello", true, 2.5}

	for _, ref := range refs {
		for _, v := range values {
			require.True(t, Assign(ref, v, ctx), "assign %q", ref)
			got, ok := Resolve(ref, ctx)
			require.True(t, ok, "resolve %q", ref)
			assert.Equal(t, v, got, "round trip %q", ref)
		}
	}
}

func TestAssign_CustomPropertyKeepsOrder(t *testing.T) {
	ctx := testContext()
	guard := ctx.State.Characters["guard"]

	require.True(t, Assign("character.guard.CustomProperties.Rank", "sergeant", ctx))
	require.True(t, Assign("character.guard.CustomProperties.MOOD", "calm", ctx))

	require.Len(t, guard.CustomProperties, 2)
	assert.Equal(t, "Mood", guard.CustomProperties[0].Name)
	assert.Equal(t, "calm", guard.CustomProperties[0].Value)
	assert.Equal(t, "Rank", guard.CustomProperties[1].Name)
}

func TestAssign_NeverReplacesNonMap(t *testing.T) {
	ctx := testContext()

	assert.False(t, Assign("room.hall.Type.Sub", 1, ctx))
	v, _ := Resolve("room.hall.Type", ctx)
	assert.Equal(t, "safe", v)

	assert.False(t, Assign("global.gold.coins", 1, ctx))
	assert.Equal(t, 40, ctx.State.Globals["gold"])
}

func TestAssign_Rejected(t *testing.T) {
	ctx := testContext()

	assert.False(t, Assign("", 1, ctx))
	assert.False(t, Assign("character.ghost.Mood", 1, ctx))
	assert.False(t, Assign("texts.greeting", "hi", ctx))
	assert.False(t, Assign("room.hall", "x", ctx))
	assert.False(t, Assign("<Self>.X", 1, ctx))
}

func TestAssign_Flags(t *testing.T) {
	ctx := testContext()

	require.True(t, Assign("flag:has_badge", "true", ctx))
	assert.True(t, ctx.State.Flags["has_badge"])

	require.True(t, Assign("flags.has_badge", 0, ctx))
	assert.False(t, ctx.State.Flags["has_badge"])
}

func TestAssign_AliasWritesThrough(t *testing.T) {
	ctx := testContext()

	require.True(t, Assign("Bounty", 300, ctx))
	assert.Equal(t, 300, ctx.State.Player.Fields["Stats"].(map[string]any)["Bounty"])
	_, inGlobals := ctx.State.Globals["Bounty"]
	assert.False(t, inGlobals)
}

func TestAssign_DoesNotTouchDefs(t *testing.T) {
	defs := testDefs()
	ctx := state.NewContext(state.NewState(defs), defs, nil)

	require.True(t, Assign("character.guard.CustomProperties.Mood", "angry", ctx))
	require.True(t, Assign("vars.town.watch.alert", 9, ctx))

	mood, _ := state.GetCustomProperty(defs.Characters["guard"], "Mood")
	assert.Equal(t, "wary", mood)
	assert.Equal(t, 1, defs.Globals["town"].(map[string]any)["watch"].(map[string]any)["alert"])
}
