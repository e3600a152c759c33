// Package events implements the run-to-completion Event Engine. It walks
// every matching Action's conditions and command lists in one pass and never
// suspends: a pause only flags the Result.
package events

import (
	"github.com/nathoo/taleweaver/engine/effects"
	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// RunTrigger runs every active Action on e that answers trigger, in
// authored order. It returns an empty Result when nothing matches.
func RunTrigger(trigger string, e *types.Entity, ctx *state.Context) *types.Result {
	res := &types.Result{}
	if e == nil {
		return res
	}
	sub := ctx.WithSelf(e)
	for _, a := range Matching(e, trigger, sub) {
		RunAction(a, sub, res)
	}
	return res
}

// RunAction evaluates every Condition of a (each runs its own branch), then
// the Action's own branch for the overall outcome, then any chained scene.
func RunAction(a types.Action, ctx *state.Context, res *types.Result) {
	passed := InitialOutcome(a)
	for _, c := range a.Conditions {
		passed = Accumulate(a, passed, RunCondition(c, ctx, res))
	}
	RunNodes(Branch(a, passed), ctx, res)
	res.Choices = append(res.Choices, a.CustomChoices...)
	StartTriggerScene(a, ctx, res)
}

// RunCondition evaluates c and runs the matching branch. A CT_Loop_While
// condition runs its PassCommands while the comparison holds, at most
// rules.MaxLoopIterations times; it passes if the body ran at least once.
func RunCondition(c types.Condition, ctx *state.Context, res *types.Result) bool {
	loop, misuse := rules.LoopCheck(c.Checks)
	switch {
	case misuse:
		res.Errors = append(res.Errors, rules.LoopMisuse(c.Name))
		RunNodes(c.FailCommands, ctx, res)
		return false

	case loop != nil:
		n := 0
		for n < rules.MaxLoopIterations && rules.CompareVariable(*loop, ctx) {
			RunNodes(c.PassCommands, ctx, res)
			n++
		}
		if n == rules.MaxLoopIterations {
			ctx.Logger().Debug("loop bound reached", "condition", c.Name, "iterations", n)
		}
		if n == 0 {
			RunNodes(c.FailCommands, ctx, res)
			return false
		}
		return true

	default:
		ok := rules.EvalChecks(c.Checks, ctx, res)
		if ok {
			RunNodes(c.PassCommands, ctx, res)
		} else {
			RunNodes(c.FailCommands, ctx, res)
		}
		return ok
	}
}

// RunNodes executes a node list in order. Nodes with neither a command nor
// a condition are skipped.
func RunNodes(nodes []types.Node, ctx *state.Context, res *types.Result) {
	for _, n := range nodes {
		switch {
		case n.Command != nil:
			effects.Apply(*n.Command, ctx, res)
		case n.Condition != nil:
			RunCondition(*n.Condition, ctx, res)
		}
	}
}
