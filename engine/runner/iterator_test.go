package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

func say(text string) types.Node {
	return types.Node{Command: &types.Command{Kind: types.CmdDisplayText, Text: text}}
}

func pause() types.Node {
	return types.Node{Command: &types.Command{Kind: types.CmdPauseGame}}
}

func add(ref, value string) types.Node {
	return types.Node{Command: &types.Command{Kind: types.CmdSetVariable, Text: ref, Part2: "Add", Part3: value}}
}

func always(pass ...types.Node) types.Node {
	return types.Node{Condition: &types.Condition{
		Checks:       []types.Check{{CondType: types.CTUninitialized}},
		PassCommands: pass,
	}}
}

func drainTexts(t *testing.T, it *Iterator, ctx *state.Context) []string {
	t.Helper()
	var out []string
	res := &types.Result{}
	for {
		cmd, ok := it.Next(ctx, res)
		if !ok {
			return out
		}
		out = append(out, cmd.Text)
	}
}

func TestIterator_NestedOrder(t *testing.T) {
	ctx := state.NewContext(state.NewState(state.NewDefs()), state.NewDefs(), nil)
	it := NewIterator([]types.Node{
		say("a"),
		always(say("b"), always(say("c")), say("d")),
		{},
		say("e"),
	})

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, drainTexts(t, it, ctx))
	assert.True(t, it.Done())
}

func TestIterator_StopsAndContinues(t *testing.T) {
	ctx := state.NewContext(state.NewState(state.NewDefs()), state.NewDefs(), nil)
	it := NewIterator([]types.Node{always(say("a"), always(say("b"))), say("c")})
	res := &types.Result{}

	cmd, _ := it.Next(ctx, res)
	require.Equal(t, "a", cmd.Text)
	cmd, _ = it.Next(ctx, res)
	require.Equal(t, "b", cmd.Text)
	assert.Equal(t, 3, it.Depth(), "depth inside the nested branch")
	cmd, _ = it.Next(ctx, res)
	require.Equal(t, "c", cmd.Text)
	_, ok := it.Next(ctx, res)
	assert.False(t, ok, "iterator should be exhausted")
}

func TestIterator_FailBranch(t *testing.T) {
	ctx := state.NewContext(state.NewState(state.NewDefs()), state.NewDefs(), nil)
	it := NewIterator([]types.Node{{Condition: &types.Condition{
		Checks:       []types.Check{{CondType: types.CTFlag, Step2: "missing"}},
		PassCommands: []types.Node{say("pass")},
		FailCommands: []types.Node{say("fail")},
	}}})

	assert.Equal(t, []string{"fail"}, drainTexts(t, it, ctx))
}

func TestIterator_LoopBound(t *testing.T) {
	defs := state.NewDefs()
	s := state.NewState(defs)
	s.Globals["forever"] = true
	ctx := state.NewContext(s, defs, nil)

	it := NewIterator([]types.Node{{Condition: &types.Condition{
		Checks:       []types.Check{{CondType: types.CTLoopWhile, Step2: "global.forever", Step3: "==", Step4: "true"}},
		PassCommands: []types.Node{say("x")},
	}}})

	assert.Len(t, drainTexts(t, it, ctx), 250)
}
