package rules

import (
	"regexp"
	"strings"

	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/state"
)

var (
	// Joins must be whitespace-bounded so "&&" inside an operand is text.
	joinPattern = regexp.MustCompile(`\s+(&&|\|\|)\s+`)
	// The first operator wins; operands must not contain one.
	atomPattern = regexp.MustCompile(`^(.+?)\s*(==|!=|>=|<=|>|<)\s*(.+)$`)
)

// EvalCondStr evaluates a guard expression such as
// "player.Stats.Level >= 3 && flag:has_badge". Atoms are reduced strictly
// left to right with no precedence and no short-circuit: "a && b || c" is
// "(a && b) || c", and every atom is evaluated. An empty expression is true.
func EvalCondStr(expr string, ctx *state.Context) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}

	joins := joinPattern.FindAllStringSubmatchIndex(expr, -1)
	start := 0
	var result bool
	for i := 0; i <= len(joins); i++ {
		end := len(expr)
		if i < len(joins) {
			end = joins[i][0]
		}
		v := evalAtom(expr[start:end], ctx)

		if i == 0 {
			result = v
		} else {
			switch expr[joins[i-1][2]:joins[i-1][3]] {
			case "&&":
				result = result && v
			case "||":
				result = result || v
			}
		}
		if i < len(joins) {
			start = joins[i][1]
		}
	}
	return result
}

// evalAtom handles "REF", "!REF" and "LHS OP RHS".
func evalAtom(atom string, ctx *state.Context) bool {
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return false
	}

	if m := atomPattern.FindStringSubmatch(atom); m != nil {
		left := side(m[1], ctx)
		right := side(m[3], ctx)
		return Compare(left, m[2], right)
	}

	negate := false
	for strings.HasPrefix(atom, "!") {
		negate = !negate
		atom = strings.TrimSpace(atom[1:])
	}
	v, _ := resolve.Resolve(atom, ctx)
	return resolve.Truthy(v) != negate
}

// side evaluates one comparison operand. A literal stays a literal; any
// other text is a reference, and an unresolved one is missing.
func side(raw string, ctx *state.Context) any {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	v := resolve.CoerceLiteral(s)
	str, ok := v.(string)
	if !ok {
		return v
	}
	if resolved, found := resolve.Resolve(str, ctx); found {
		return resolved
	}
	if isReference(str) {
		return nil
	}
	return str
}
