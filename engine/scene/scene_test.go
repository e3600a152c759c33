package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

func intp(n int) *int { return &n }

func setFlag(name string) types.Command {
	return types.Command{Kind: types.CmdSetFlag, Text: name}
}

func addExp(n string) types.Command {
	return types.Command{Kind: types.CmdSetVariable, Text: "player.Stats.Exp", Part2: "Add", Part3: n}
}

func fixture(scenes ...*types.Scene) (*Runner, *state.Context) {
	defs := state.NewDefs()
	defs.Game = types.GameDef{Start: "plaza"}
	defs.Rooms["plaza"] = &types.Entity{ID: "plaza", Kind: types.KindRoom, Name: "Plaza"}
	for _, sc := range scenes {
		defs.Scenes[sc.ID] = sc
		defs.SceneOrder = append(defs.SceneOrder, sc.ID)
	}
	s := state.NewState(defs)
	ctx := state.NewContext(s, defs, func(int) int { return 50 })
	r := New()
	ctx.Scenes = r
	return r, ctx
}

func mayorScene() *types.Scene {
	return &types.Scene{
		ID:    "mayor",
		Title: "The Mayor",
		Stages: []types.Stage{
			{
				ID:      "greet",
				Text:    "The mayor looks up from his desk.",
				Effects: []types.Command{setFlag("met_mayor")},
				Choices: []types.Choice{
					{ID: "ask", Text: "Ask about the mill", NextStage: "mill"},
					{ID: "bribe", Text: "Offer a bribe", ShowIf: "player.Stats.Credits >= 10", NextStage: "bribed"},
					{ID: "leave", Text: "Leave"},
				},
			},
			{ID: "mill", Text: "\"The mill? Burned down years ago.\"", IsEnd: true},
			{ID: "bribed", Text: "He pockets the coin.", IsEnd: true},
		},
		Rewards: types.SceneRewards{OnComplete: types.Reward{Exp: 10, Flags: []string{"mayor_done"}}},
	}
}

func TestBegin_EntersStartStage(t *testing.T) {
	r, ctx := fixture(mayorScene())

	res := r.Begin("mayor", ctx)
	require.NotNil(t, res)
	require.NotNil(t, res.SceneData)
	assert.Equal(t, "greet", res.SceneData.StageID)
	assert.Equal(t, "The mayor looks up from his desk.", res.SceneData.Text)
	assert.True(t, state.GetFlag(ctx.State, "met_mayor"), "stage effects fire on entry")
	assert.True(t, r.Active())
	assert.Equal(t, "mayor", r.SceneID())

	require.Len(t, res.SceneData.Choices, 2, "bribe is hidden by ShowIf")
	assert.Equal(t, "ask", res.SceneData.Choices[0].ID)
	assert.Equal(t, "leave", res.SceneData.Choices[1].ID)
}

func TestBegin_Rejections(t *testing.T) {
	gated := &types.Scene{ID: "gated", RequiredFlags: []string{"has_key"}, Stages: []types.Stage{{ID: "a", Text: "x", IsEnd: true}}}
	guarded := &types.Scene{ID: "guarded", StartIf: "player.Stats.Level >= 3", Stages: []types.Stage{{ID: "a", Text: "x", IsEnd: true}}}
	broken := &types.Scene{ID: "broken", StartStage: "missing", Stages: []types.Stage{{ID: "a", Text: "x"}}}
	empty := &types.Scene{ID: "empty"}
	r, ctx := fixture(mayorScene(), gated, guarded, broken, empty)

	ctx.State.CompletedScenes["mayor"] = 1
	for _, id := range []string{"mayor", "gated", "guarded", "broken", "empty", "nonexistent"} {
		assert.Nil(t, r.Begin(id, ctx), id)
		assert.False(t, r.Active(), id)
	}
	assert.False(t, state.GetFlag(ctx.State, "met_mayor"), "rejected begin changes nothing")

	ctx.State.Flags["has_key"] = true
	assert.NotNil(t, r.Begin("gated", ctx))
}

func TestBegin_RepeatableAfterCompletion(t *testing.T) {
	sc := mayorScene()
	sc.Repeatable = true
	r, ctx := fixture(sc)
	ctx.State.CompletedScenes["mayor"] = 1

	assert.NotNil(t, r.Begin("mayor", ctx))
}

func TestChoose_EndMarksCompletionOnce(t *testing.T) {
	r, ctx := fixture(mayorScene())
	r.Begin("mayor", ctx)

	res := r.Choose("ask")
	require.NotNil(t, res.SceneData)
	assert.True(t, res.SceneData.IsEnd)
	assert.Equal(t, "mill", res.SceneData.StageID)
	assert.Empty(t, res.SceneData.Choices)
	assert.False(t, r.Active())
	assert.Equal(t, 1, ctx.State.CompletedScenes["mayor"])
	assert.Equal(t, float64(10), state.Stat(ctx.State.Player, "Exp"))
	assert.True(t, state.GetFlag(ctx.State, "mayor_done"))

	// Nothing more happens once the scene is over.
	assert.Empty(t, r.Advance().Texts)
	assert.NotEmpty(t, r.Choose("ask").Errors)
	assert.Equal(t, 1, ctx.State.CompletedScenes["mayor"])
}

func TestChoose_NoNextStageEndsScene(t *testing.T) {
	r, ctx := fixture(mayorScene())
	r.Begin("mayor", ctx)

	res := r.Choose("leave")
	assert.True(t, res.SceneData.IsEnd)
	assert.Equal(t, 1, ctx.State.CompletedScenes["mayor"])
}

func TestChoose_ByPosition(t *testing.T) {
	r, ctx := fixture(mayorScene())
	r.Begin("mayor", ctx)

	res := r.Choose("2")
	assert.True(t, res.SceneData.IsEnd)
	assert.Equal(t, "greet", res.SceneData.StageID)
}

func TestChoose_UnknownOrHidden(t *testing.T) {
	r, ctx := fixture(mayorScene())
	r.Begin("mayor", ctx)

	res := r.Choose("bribe")
	assert.Len(t, res.Errors, 1)
	require.NotNil(t, res.SceneData)
	assert.Equal(t, "greet", res.SceneData.StageID)
	assert.True(t, r.Active())

	state.SetStat(ctx.State.Player, "Credits", 10)
	res = r.Choose("bribe")
	assert.Equal(t, "bribed", res.SceneData.StageID)
}

func chanceScene(chance int) *types.Scene {
	return &types.Scene{
		ID: "lockpick",
		Stages: []types.Stage{
			{ID: "door", Text: "A locked door.", Choices: []types.Choice{{
				ID:            "pick",
				Text:          "Pick the lock",
				ChanceSuccess: intp(chance),
				OnSuccess:     &types.Outcome{StageID: "open"},
				OnFailure:     &types.Outcome{Text: "The pick snaps.", NextStage: "stuck", GainExp: 1},
			}}},
			{ID: "open", Text: "The door swings open.", IsEnd: true},
			{ID: "stuck", Text: "You will need another way in.", IsEnd: true},
		},
	}
}

func TestChoose_Chance(t *testing.T) {
	for roll := 1; roll <= 100; roll += 11 {
		r, ctx := fixture(chanceScene(100))
		ctx.Roll = func(int) int { return roll }
		r.Begin("lockpick", ctx)
		assert.Equal(t, "open", r.Choose("pick").SceneData.StageID, "chance 100, roll %d", roll)

		r, ctx = fixture(chanceScene(0))
		ctx.Roll = func(int) int { return roll }
		r.Begin("lockpick", ctx)
		res := r.Choose("pick")
		assert.Equal(t, "stuck", res.SceneData.StageID, "chance 0, roll %d", roll)
		assert.Equal(t, []string{"The pick snaps."}, res.Texts)
		assert.Equal(t, float64(1), state.Stat(ctx.State.Player, "Exp"))
	}
}

func TestChoose_Costs(t *testing.T) {
	sc := &types.Scene{
		ID: "training",
		Stages: []types.Stage{
			{ID: "yard", Text: "The drill sergeant waits.", Choices: []types.Choice{
				{ID: "spar", Text: "Spar", EnergyCost: 5, Effects: []types.Command{addExp("3")}, NextStage: "done"},
			}},
			{ID: "done", Text: "You are sore.", IsEnd: true},
		},
	}
	r, ctx := fixture(sc)
	state.SetStat(ctx.State.Player, "Energy", 4)
	r.Begin("training", ctx)

	res := r.Choose("spar")
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, "yard", res.SceneData.StageID)
	assert.Equal(t, float64(4), state.Stat(ctx.State.Player, "Energy"))
	assert.Equal(t, float64(0), state.Stat(ctx.State.Player, "Exp"), "effects must not run")

	state.SetStat(ctx.State.Player, "Energy", 7)
	res = r.Choose("spar")
	assert.Empty(t, res.Errors)
	assert.Equal(t, float64(2), state.Stat(ctx.State.Player, "Energy"))
	assert.Equal(t, float64(3), state.Stat(ctx.State.Player, "Exp"))
}

func TestAdvance_LinearStages(t *testing.T) {
	sc := &types.Scene{
		ID: "walk",
		Stages: []types.Stage{
			{ID: "one", Text: "You set off.", NextStage: "two"},
			{ID: "two", Text: "The road bends.", NextStage: "three"},
			{ID: "three", Text: "You arrive."},
		},
	}
	r, ctx := fixture(sc)

	assert.Equal(t, "one", r.Begin("walk", ctx).SceneData.StageID)
	assert.Equal(t, "two", r.Advance().SceneData.StageID)
	res := r.Advance()
	assert.Equal(t, "three", res.SceneData.StageID)
	assert.True(t, res.SceneData.IsEnd, "no choices and no next stage ends the scene")
	assert.False(t, r.Active())
}

func TestAdvance_WaitsForChoice(t *testing.T) {
	r, ctx := fixture(mayorScene())
	r.Begin("mayor", ctx)

	res := r.Advance()
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, "greet", res.SceneData.StageID)
	assert.True(t, r.Active())
}

func TestAdvance_Chunks(t *testing.T) {
	sc := &types.Scene{
		ID: "letter",
		Stages: []types.Stage{
			{
				ID:                "read",
				Paragraphs:        []string{"Dear friend,", "The harvest failed.", "Come home.", "Yours, M."},
				ChunkByParagraphs: true,
				ParagraphsPerPage: 2,
				Effects:           []types.Command{addExp("1")},
				Choices:           []types.Choice{{ID: "fold", Text: "Fold the letter"}},
			},
		},
	}
	r, ctx := fixture(sc)

	res := r.Begin("letter", ctx)
	assert.Equal(t, "Dear friend,\n\nThe harvest failed.", res.SceneData.Text)
	assert.Equal(t, 0, res.SceneData.ChunkIndex)
	assert.Equal(t, 2, res.SceneData.ChunkCount)
	assert.Empty(t, res.SceneData.Choices, "choices wait for the last page")
	assert.Len(t, r.Choose("fold").Errors, 1, "cannot choose before the last page")

	res = r.Advance()
	assert.Equal(t, "Come home.\n\nYours, M.", res.SceneData.Text)
	assert.Equal(t, 1, res.SceneData.ChunkIndex)
	require.Len(t, res.SceneData.Choices, 1)
	assert.Equal(t, float64(1), state.Stat(ctx.State.Player, "Exp"), "effects fire once per stage entry")
}

func TestAdvance_AutoAdvance(t *testing.T) {
	sc := &types.Scene{
		ID: "storm",
		Stages: []types.Stage{
			{ID: "thunder", Text: "Thunder rolls.", AutoAdvance: true, NextStage: "rain"},
			{ID: "rain", Text: "Rain hammers the roof.", AutoAdvanceDelayMs: 1500, NextStage: "quiet"},
			{ID: "quiet", Text: "Then, silence.", Choices: []types.Choice{{ID: "sleep", Text: "Sleep"}}},
		},
	}
	r, ctx := fixture(sc)

	res := r.Begin("storm", ctx)
	assert.Equal(t, []string{"Thunder rolls.", "Rain hammers the roof."}, res.Texts)
	assert.Equal(t, "quiet", res.SceneData.StageID)
	assert.Equal(t, 1500, res.SceneData.AutoAdvanceMs)
}

func TestAdvance_AutoAdvanceIsBounded(t *testing.T) {
	sc := &types.Scene{
		ID: "spin",
		Stages: []types.Stage{
			{ID: "a", Text: "Round", AutoAdvance: true, NextStage: "b"},
			{ID: "b", Text: "and round", AutoAdvance: true, NextStage: "a"},
		},
	}
	r, ctx := fixture(sc)

	res := r.Begin("spin", ctx)
	require.NotNil(t, res)
	assert.Len(t, res.Errors, 1)
	assert.Len(t, res.Texts, maxAutoHops)
	assert.True(t, r.Active())
}

func TestDuplicateIntroSkipsExactlyOne(t *testing.T) {
	sc := &types.Scene{
		ID: "echo",
		Stages: []types.Stage{
			{ID: "s1", Text: "The bell tolls.", Effects: []types.Command{setFlag("s1_entered")}, NextStage: "s2"},
			{ID: "s2", Text: "the bell tolls.\nA crowd gathers.", NextStage: "s3"},
			{ID: "s3", Text: "THE BELL TOLLS.\nThe crowd disperses."},
		},
	}
	r, ctx := fixture(sc)

	res := r.Begin("echo", ctx)
	assert.Equal(t, "s2", res.SceneData.StageID, "skips s1 but never s2")
	assert.True(t, state.GetFlag(ctx.State, "s1_entered"))

	res = r.Advance()
	assert.Equal(t, "s3", res.SceneData.StageID)
}

func TestStageEffectStartsAnotherScene(t *testing.T) {
	first := &types.Scene{
		ID: "first",
		Stages: []types.Stage{
			{ID: "a", Text: "Hold on.", Effects: []types.Command{{Kind: types.CmdStartScene, Text: "second"}}, NextStage: "b"},
			{ID: "b", Text: "unreached"},
		},
	}
	second := &types.Scene{ID: "second", Stages: []types.Stage{{ID: "x", Text: "Meanwhile...", Choices: []types.Choice{{ID: "ok", Text: "OK"}}}}}
	r, ctx := fixture(first, second)

	res := r.Begin("first", ctx)
	assert.Equal(t, "second", r.SceneID())
	assert.Equal(t, "second", res.SceneData.SceneID)
}

func TestMissingStageAborts(t *testing.T) {
	sc := &types.Scene{ID: "typo", Stages: []types.Stage{{ID: "a", Text: "Onward.", NextStage: "nowhere"}}}
	r, ctx := fixture(sc)

	r.Begin("typo", ctx)
	res := r.Advance()
	assert.Len(t, res.Errors, 1)
	assert.True(t, res.SceneData.IsEnd)
	assert.False(t, r.Active())
	assert.Zero(t, ctx.State.CompletedScenes["typo"])
}

func TestViewHasNoSideEffects(t *testing.T) {
	r, ctx := fixture(mayorScene())
	assert.Nil(t, r.View())
	r.Begin("mayor", ctx)
	ctx.State.Flags["met_mayor"] = false

	v := r.View()
	require.NotNil(t, v)
	assert.Equal(t, "greet", v.StageID)
	assert.False(t, ctx.State.Flags["met_mayor"])
}

func TestInterpolatedText(t *testing.T) {
	sc := &types.Scene{ID: "hello", Stages: []types.Stage{{ID: "a", Text: "Welcome to {<CurrentRoom>.Name}.", Choices: []types.Choice{{ID: "x", Text: "Thanks"}}}}}
	r, ctx := fixture(sc)

	assert.Equal(t, "Welcome to Plaza.", r.Begin("hello", ctx).SceneData.Text)
}

func TestPositionAndRestore(t *testing.T) {
	r, ctx := fixture(mayorScene())
	_, _, _, ok := r.Position()
	assert.False(t, ok)

	r.Begin("mayor", ctx)
	sceneID, stageID, page, ok := r.Position()
	require.True(t, ok)
	assert.Equal(t, "mayor", sceneID)
	assert.Equal(t, "greet", stageID)
	assert.Equal(t, 0, page)

	fresh, ctx2 := fixture(mayorScene())
	require.True(t, fresh.Restore(sceneID, stageID, page, ctx2))
	assert.False(t, state.GetFlag(ctx2.State, "met_mayor"), "restore does not refire effects")
	assert.Equal(t, "greet", fresh.View().StageID)
	assert.False(t, fresh.Restore("mayor", "nowhere", 0, ctx2))
}
