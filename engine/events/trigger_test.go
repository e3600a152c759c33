package events

import (
	"testing"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

type fakeScenes struct {
	started []string
}

func (f *fakeScenes) StartScene(id string, _ *state.Context, res *types.Result) bool {
	f.started = append(f.started, id)
	res.SceneData = &types.SceneView{SceneID: id}
	return true
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"<<On Player Enter>>":              "on player enter",
		"<<ON PLAYER ENTER>>":              "on player enter",
		"<<On Player Enter First Time>>":   "on player enter first time",
		"<<On Player Enter (First Time)>>": "on player enter first time",
		"<<On First Time Player Enter>>":   "on player enter first time",
		"On Enter First Time":              "on player enter first time",
		"<<On First Enter>>":               "on player enter first time",
		"Ask Mill":                         "ask mill",
	}
	for in, want := range tests {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsFirstTime(t *testing.T) {
	tests := map[string]bool{
		"<<On Player Enter First Time>>": true,
		"<<On First Enter>>":             true,
		"<<On Player Enter>>":            false,
		"First Timer":                    false,
	}
	for name, want := range tests {
		if got := IsFirstTime(name); got != want {
			t.Errorf("IsFirstTime(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestMatching_FirstTimeOnce(t *testing.T) {
	ctx, room := testContext(types.Action{
		Name:         "<<On Player Enter First Time>>",
		Active:       true,
		PassCommands: []types.Node{say("Welcome, stranger.")},
	})

	res := RunTrigger("<<On Player Enter First Time>>", room, ctx)
	if len(res.Texts) != 1 {
		t.Fatalf("expected one text on first entry, got %v", res.Texts)
	}

	// A historical spelling is the same trigger and does not fire again.
	for _, name := range []string{"<<On Player Enter (First Time)>>", "<<On First Enter>>"} {
		if res := RunTrigger(name, room, ctx); len(res.Texts) != 0 {
			t.Errorf("%s fired again: %v", name, res.Texts)
		}
	}

	key := state.FirstTimeKey(types.KindRoom, "square", "on player enter first time")
	if !ctx.State.FirstTimes[key] {
		t.Errorf("expected first-time key %q to be recorded", key)
	}
	if len(ctx.State.FirstTimes) != 1 {
		t.Errorf("expected one first-time key, got %v", ctx.State.FirstTimes)
	}
}

func TestMatching_FirstTimeIsPerEntity(t *testing.T) {
	action := types.Action{Name: "<<On Talk First Time>>", Active: true, PassCommands: []types.Node{say("hi")}}
	ctx, _ := testContext()
	a := &types.Entity{ID: "ann", Kind: types.KindCharacter, Actions: []types.Action{action}}
	b := &types.Entity{ID: "bob", Kind: types.KindCharacter, Actions: []types.Action{action}}

	if got := RunTrigger("<<On Talk First Time>>", a, ctx).Texts; len(got) != 1 {
		t.Errorf("ann: expected one text, got %v", got)
	}
	if got := RunTrigger("<<On Talk First Time>>", b, ctx).Texts; len(got) != 1 {
		t.Errorf("bob: expected one text, got %v", got)
	}
	if got := RunTrigger("<<On First Talk>>", a, ctx).Texts; len(got) != 0 {
		t.Errorf("ann again: expected nothing, got %v", got)
	}
}

func TestRunTrigger_BindsSelf(t *testing.T) {
	ctx, room := testContext(types.Action{
		Name:         "Name",
		Active:       true,
		PassCommands: []types.Node{say("{<Self>.Name}")},
	})
	res := RunTrigger("Name", room, ctx)
	if len(res.Texts) != 1 || res.Texts[0] != "Town Square" {
		t.Errorf("expected [Town Square], got %v", res.Texts)
	}
	if ctx.Self != nil {
		t.Error("caller context must stay unbound")
	}
}

func TestStartTriggerScene_Candidates(t *testing.T) {
	scenes := &fakeScenes{}
	ctx, room := testContext(types.Action{
		Name:                   "Chain",
		Active:                 true,
		PassCommands:           []types.Node{say("prelude")},
		TriggerSceneCandidates: []string{"part1", "part2", "part3"},
	})
	ctx.Scenes = scenes
	ctx.State.CompletedScenes["part1"] = 1

	res := RunTrigger("Chain", room, ctx)
	if len(scenes.started) != 1 || scenes.started[0] != "part2" {
		t.Errorf("expected part2 to start, got %v", scenes.started)
	}
	if res.SceneData == nil || res.SceneData.SceneID != "part2" {
		t.Errorf("expected scene data for part2, got %+v", res.SceneData)
	}
	if len(res.Texts) != 1 || res.Texts[0] != "prelude" {
		t.Errorf("expected [prelude], got %v", res.Texts)
	}
}

func TestStartTriggerScene_AllCompleted(t *testing.T) {
	scenes := &fakeScenes{}
	ctx, _ := testContext()
	ctx.Scenes = scenes
	ctx.State.CompletedScenes["only"] = 1
	var res types.Result

	StartTriggerScene(types.Action{TriggerSceneCandidates: []string{"only"}}, ctx, &res)
	if len(scenes.started) != 0 {
		t.Errorf("expected no scene, got %v", scenes.started)
	}
	if res.SceneData != nil {
		t.Errorf("expected no scene data, got %+v", res.SceneData)
	}
}
