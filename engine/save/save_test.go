package save

import (
	"encoding/json"
	"testing"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

func testDefs() *state.Defs {
	defs := state.NewDefs()
	defs.Game = types.GameDef{Title: "Test Game", Version: "1.0", Start: "hall"}
	defs.Rooms["hall"] = &types.Entity{ID: "hall", Kind: types.KindRoom, Name: "Hall"}
	defs.Rooms["garden"] = &types.Entity{ID: "garden", Kind: types.KindRoom, Name: "Garden"}
	defs.Characters["gardener"] = &types.Entity{
		ID:      "gardener",
		Kind:    types.KindCharacter,
		Name:    "Gardener",
		Fields:  map[string]any{"Location": "garden", "Mood": "grumpy"},
		Actions: []types.Action{{Name: "<<On Talk>>", Active: true}},
	}
	return defs
}

func TestRoundTrip(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	// Modify state.
	s.CurrentRoom = "garden"
	state.GiveItem(s, "key")
	state.SetStat(s.Player, "Level", 3)
	state.SetCustomProperty(s.Player, "Reputation", "known")
	s.Flags["door_open"] = true
	s.Globals["visits"] = 3
	s.Characters["gardener"].Fields["Mood"] = "cheerful"
	s.Characters["thug_1"] = &types.Entity{ID: "thug_1", Kind: types.KindCharacter, Name: "Thug", Fields: map[string]any{"Spawned": true}}
	s.Spawn.Spawned = 1
	state.MarkFirstTime(s, state.FirstTimeKey(types.KindRoom, "hall", "on player enter first time"))
	state.MarkSceneCompleted(s, "intro")
	s.CompletedEvents["bells"] = true
	s.Clock = types.Clock{Day: 3, Hour: 20}
	s.TurnCount = 7
	s.RNGSeed = 42
	s.RNGPosition = 11

	// Save.
	data, err := Save(s, defs, &SceneData{SceneID: "mayor", StageID: "greet", Page: 1})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load.
	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Apply to fresh state.
	s2 := state.NewState(defs)
	ApplySave(s2, defs, sd)

	if s2.CurrentRoom != "garden" {
		t.Errorf("current room: expected garden, got %q", s2.CurrentRoom)
	}
	if !state.HasItem(s2, "key") {
		t.Error("expected key in inventory")
	}
	if got := state.Stat(s2.Player, "Level"); got != 3 {
		t.Errorf("level: expected 3, got %v", got)
	}
	if v, ok := state.GetCustomProperty(s2.Player, "Reputation"); !ok || v != "known" {
		t.Errorf("custom property: got %v, %v", v, ok)
	}
	if !s2.Flags["door_open"] {
		t.Error("expected door_open flag")
	}
	if got := s2.Globals["visits"]; got != float64(3) {
		t.Errorf("visits: expected 3, got %v", got)
	}
	if got := s2.Characters["gardener"].Fields["Mood"]; got != "cheerful" {
		t.Errorf("mood: expected cheerful, got %v", got)
	}
	if len(s2.Characters["gardener"].Actions) != 1 {
		t.Error("expected actions restored from definitions")
	}
	if _, ok := s2.Characters["thug_1"]; !ok {
		t.Error("expected spawned character restored")
	}
	if s2.Spawn.Spawned != 1 || len(s2.FirstTimes) != 1 || s2.CompletedScenes["intro"] != 1 || !s2.CompletedEvents["bells"] {
		t.Errorf("ledgers not restored: %+v", s2)
	}
	if s2.Clock.Day != 3 || s2.Clock.Hour != 20 {
		t.Errorf("clock: got %+v", s2.Clock)
	}
	if s2.TurnCount != 7 || s2.RNGSeed != 42 || s2.RNGPosition != 11 {
		t.Errorf("counters: turn %d seed %d pos %d", s2.TurnCount, s2.RNGSeed, s2.RNGPosition)
	}
	if sd.Scene == nil || sd.Scene.StageID != "greet" || sd.Scene.Page != 1 {
		t.Errorf("scene position: got %+v", sd.Scene)
	}
}

func TestSaveDoesNotIncludeActions(t *testing.T) {
	defs := testDefs()
	data, err := Save(state.NewState(defs), defs, nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	chars := raw["characters"].(map[string]any)
	gardener := chars["gardener"].(map[string]any)
	if _, ok := gardener["Actions"]; ok {
		t.Error("actions must not be saved")
	}
	if _, ok := raw["scene"]; ok {
		t.Error("expected no scene when none is active")
	}
}

func TestLoad_EmptyMapsNotNil(t *testing.T) {
	sd, err := Load([]byte(`{"format": 1, "game": "Test"}`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sd.Flags == nil || sd.Globals == nil || sd.FirstTimes == nil || sd.CompletedScenes == nil || sd.CompletedEvents == nil {
		t.Error("expected every map to be allocated")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Load([]byte(`{"format": 99}`)); err == nil {
		t.Error("expected error for newer format")
	}
}
