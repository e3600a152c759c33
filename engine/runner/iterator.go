package runner

import (
	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// frame is one level of the walk: a node list and the position in it. A
// loop frame re-tests its check when exhausted and rewinds while it holds.
type frame struct {
	nodes      []types.Node
	index      int
	loop       *types.Check
	iterations int
}

// Iterator walks nested node lists one Command at a time. All position
// state lives in the frame stack, so a walk can stop after any Command and
// pick up at the next one.
type Iterator struct {
	frames []frame
}

// NewIterator returns an iterator over nodes.
func NewIterator(nodes []types.Node) *Iterator {
	it := &Iterator{}
	it.Push(nodes)
	return it
}

// Push starts walking nodes before whatever is left of the current frame.
func (it *Iterator) Push(nodes []types.Node) {
	if len(nodes) == 0 {
		return
	}
	it.frames = append(it.frames, frame{nodes: nodes})
}

// Depth is the number of live frames.
func (it *Iterator) Depth() int {
	return len(it.frames)
}

// Done reports whether nothing is left to walk.
func (it *Iterator) Done() bool {
	return len(it.frames) == 0
}

// Next returns the next Command, descending into nested Conditions as it
// meets them. It returns false once every frame is exhausted.
func (it *Iterator) Next(ctx *state.Context, res *types.Result) (types.Command, bool) {
	for len(it.frames) > 0 {
		top := &it.frames[len(it.frames)-1]
		if top.index >= len(top.nodes) {
			if top.loop != nil && top.iterations < rules.MaxLoopIterations && rules.CompareVariable(*top.loop, ctx) {
				top.index = 0
				top.iterations++
				continue
			}
			if top.loop != nil && top.iterations >= rules.MaxLoopIterations {
				ctx.Logger().Debug("loop bound reached", "iterations", top.iterations)
			}
			it.frames = it.frames[:len(it.frames)-1]
			continue
		}

		n := top.nodes[top.index]
		top.index++
		switch {
		case n.Command != nil:
			return *n.Command, true
		case n.Condition != nil:
			it.Enter(*n.Condition, ctx, res)
		}
	}
	return types.Command{}, false
}

// Enter evaluates c and pushes the branch it selects. A CT_Loop_While
// condition pushes a loop frame over its PassCommands when the comparison
// holds on entry. The returned value is the condition's result.
func (it *Iterator) Enter(c types.Condition, ctx *state.Context, res *types.Result) bool {
	loop, misuse := rules.LoopCheck(c.Checks)
	switch {
	case misuse:
		res.Errors = append(res.Errors, rules.LoopMisuse(c.Name))
		it.Push(c.FailCommands)
		return false

	case loop != nil:
		if !rules.CompareVariable(*loop, ctx) {
			it.Push(c.FailCommands)
			return false
		}
		it.frames = append(it.frames, frame{nodes: c.PassCommands, loop: loop, iterations: 1})
		return true

	default:
		ok := rules.EvalChecks(c.Checks, ctx, res)
		if ok {
			it.Push(c.PassCommands)
		} else {
			it.Push(c.FailCommands)
		}
		return ok
	}
}
