// Package rules evaluates structured Checks and condStr guard expressions.
package rules

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// MaxLoopIterations bounds a CT_Loop_While condition.
const MaxLoopIterations = 250

// EvalCheck evaluates a single check. Unknown condition types are false and
// leave a diagnostic in res.
func EvalCheck(c types.Check, ctx *state.Context, res *types.Result) bool {
	switch c.CondType {
	case types.CTUninitialized, "":
		return true

	case types.CTVariableCompare, types.CTLoopWhile:
		return CompareVariable(c, ctx)

	case types.CTPercentChance:
		pct, ok := percent(c.Step2, ctx)
		if !ok {
			return false
		}
		return ctx.RollPercent() <= pct

	case types.CTEntityProperty:
		return entityProperty(c, ctx)

	case types.CTFlag:
		want := true
		if strings.TrimSpace(c.Step3) != "" {
			want = resolve.Truthy(resolve.CoerceLiteral(c.Step3))
		}
		return state.GetFlag(ctx.State, strings.TrimSpace(c.Step2)) == want

	case types.CTSceneCompleted:
		want := true
		if strings.TrimSpace(c.Step3) != "" {
			want = resolve.Truthy(resolve.CoerceLiteral(c.Step3))
		}
		return state.SceneCompleted(ctx.State, strings.TrimSpace(c.Step2)) == want

	case types.CTExpression:
		return EvalCondStr(c.Step2, ctx)

	case types.CTHasItem:
		return state.HasItem(ctx.State, strings.TrimSpace(c.Step2))

	default:
		msg := fmt.Sprintf("unimplemented condition type %q", c.CondType)
		res.Errors = append(res.Errors, msg)
		ctx.Logger().Warn("unknown condition type", "cond_type", string(c.CondType))
		return false
	}
}

// EvalChecks folds a check list left to right. The first check's join is
// ignored. An Or check reached with a true result ends evaluation; an And
// check reached with a false result is skipped. An empty list is true.
func EvalChecks(checks []types.Check, ctx *state.Context, res *types.Result) bool {
	result := true
	for i, c := range checks {
		if i > 0 {
			if c.Join == types.JoinOr {
				if result {
					return true
				}
			} else if !result {
				continue
			}
		}
		result = EvalCheck(c, ctx, res)
	}
	return result
}

// LoopCheck returns the CT_Loop_While check of a condition. misuse is true
// when a loop check shares the list with other checks.
func LoopCheck(checks []types.Check) (loop *types.Check, misuse bool) {
	for i := range checks {
		if checks[i].CondType != types.CTLoopWhile {
			continue
		}
		if len(checks) > 1 {
			return nil, true
		}
		return &checks[i], false
	}
	return nil, false
}

// LoopMisuse is the diagnostic recorded for a loop check that is not alone.
func LoopMisuse(name string) string {
	return fmt.Sprintf("condition %q: CT_Loop_While must be the only check", name)
}

// CompareVariable compares the value at Step2 against Step4 with the
// operator in Step3.
func CompareVariable(c types.Check, ctx *state.Context) bool {
	left, _ := resolve.Resolve(c.Step2, ctx)
	return Compare(left, c.Step3, Operand(c.Step4, ctx))
}

// Operand turns authored right-hand text into a value. Literals are
// coerced; namespaced references are resolved; anything else is text.
// Quoted text is always text.
func Operand(raw string, ctx *state.Context) any {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	v := resolve.CoerceLiteral(s)
	if str, ok := v.(string); ok && isReference(str) {
		if resolved, ok := resolve.Resolve(str, ctx); ok {
			return resolved
		}
	}
	return v
}

func isReference(s string) bool {
	if strings.HasPrefix(s, "flag:") || strings.HasPrefix(s, "<") {
		return true
	}
	return strings.Contains(s, ".") && !strings.ContainsAny(s, " ,!?")
}

// percent reads a chance value from a literal or a reference.
func percent(raw string, ctx *state.Context) (int, bool) {
	v := Operand(strings.TrimSuffix(strings.TrimSpace(raw), "%"), ctx)
	if s, ok := v.(string); ok {
		if resolved, found := resolve.Resolve(s, ctx); found {
			v = resolved
		}
	}
	n, ok := resolve.ToNumber(v)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// entityProperty tests Step3 on the entity named by Step2 ("kind:id" or
// <Self>). Step4 is "value" or "op value".
func entityProperty(c types.Check, ctx *state.Context) bool {
	e, ok := EntityRef(c.Step2, ctx)
	if !ok {
		return false
	}
	sub := ctx.WithSelf(e)
	left, _ := resolve.Resolve("<Self>."+strings.TrimSpace(c.Step3), sub)

	op, raw := SplitOp(c.Step4)
	return Compare(left, op, Operand(raw, ctx))
}

// EntityRef resolves "kind:id", "kind.id" or a bare alias (<Self>,
// <CurrentRoom>) to an entity.
func EntityRef(ref string, ctx *state.Context) (*types.Entity, bool) {
	ref = strings.TrimSpace(ref)
	switch ref {
	case "<Self>":
		return ctx.Self, ctx.Self != nil
	case "<CurrentRoom>":
		return ctx.CurrentRoom()
	case "player":
		return ctx.State.Player, true
	}
	sep := strings.IndexAny(ref, ":.")
	if sep < 0 {
		return nil, false
	}
	kind, ok := state.ParseKind(ref[:sep])
	if !ok {
		return nil, false
	}
	return resolve.Entity(kind, ref[sep+1:], ctx)
}

// SplitOp splits "op value" into its parts. Text without a leading
// operator compares for equality.
func SplitOp(s string) (op, value string) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{">=", "<=", "!=", "==", ">", "<", "="} {
		if rest, ok := strings.CutPrefix(s, sym); ok {
			return sym, strings.TrimSpace(rest)
		}
	}
	if word, rest, ok := strings.Cut(s, " "); ok && KnownOp(word) && word != "is" {
		return word, strings.TrimSpace(rest)
	}
	return "==", s
}
