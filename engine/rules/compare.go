package rules

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/nathoo/taleweaver/engine/resolve"
)

// Fold returns the caseless form of s. A Caser carries state, so each call
// gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Operator names accepted by Compare. Symbols and the word forms used by
// authored content are interchangeable.
func normalizeOp(op string) string {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "", "equals", "equal", "==", "=", "is":
		return "=="
	case "not equals", "notequals", "not equal", "!=", "<>", "is not":
		return "!="
	case "greater than", "greaterthan", ">":
		return ">"
	case "greater than or equals", "greater than or equal", "greaterthanorequals", ">=":
		return ">="
	case "less than", "lessthan", "<":
		return "<"
	case "less than or equals", "less than or equal", "lessthanorequals", "<=":
		return "<="
	case "contains":
		return "contains"
	case "not contains", "notcontains":
		return "!contains"
	default:
		return ""
	}
}

// KnownOp reports whether op is an operator Compare understands.
func KnownOp(op string) bool {
	return normalizeOp(op) != ""
}

// Compare applies op to left and right. Numbers compare numerically;
// strings compare caselessly; a missing operand takes the zero value of the
// other operand's type. An unknown operator is false.
func Compare(left any, op string, right any) bool {
	sym := normalizeOp(op)
	if sym == "" {
		return false
	}
	left, right = zeroFor(left, right), zeroFor(right, left)

	if sym == "contains" || sym == "!contains" {
		has := contains(left, right)
		if sym == "!contains" {
			return !has
		}
		return has
	}

	cmp, ok := threeWay(left, right)
	if !ok {
		// Unordered operands are only ever unequal.
		return sym == "!="
	}

	switch sym {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}

// threeWay orders two values: numerically when both are numeric, by truth
// when either is a bool, caselessly as text otherwise.
func threeWay(a, b any) (int, bool) {
	if a == nil && b == nil {
		return 0, true
	}

	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if aBool || bBool {
		x, y := asBool(a), asBool(b)
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	}

	if x, ok := resolve.ToNumber(a); ok {
		if y, ok := resolve.ToNumber(b); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	as, aok := text(a)
	bs, bok := text(b)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(Fold(as), Fold(bs)), true
}

// asBool treats only "true"/"false" text as booleans; other values keep
// their truthiness.
func asBool(v any) bool {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return resolve.Truthy(v)
}

func text(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case int, int64, float64, float32:
		return resolve.Format(val), true
	default:
		return "", false
	}
}

func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case []any:
		for _, item := range h {
			if c, ok := threeWay(item, needle); ok && c == 0 {
				return true
			}
		}
		return false
	case []string:
		for _, item := range h {
			if c, ok := threeWay(item, needle); ok && c == 0 {
				return true
			}
		}
		return false
	case map[string]any:
		n, ok := text(needle)
		if !ok {
			return false
		}
		for k := range h {
			if Fold(k) == Fold(n) {
				return true
			}
		}
		return false
	}
	hs, ok := text(haystack)
	if !ok {
		return false
	}
	ns, ok := text(needle)
	if !ok {
		return false
	}
	return strings.Contains(Fold(hs), Fold(ns))
}

// zeroFor replaces a nil v with the zero value of other's type.
func zeroFor(v, other any) any {
	if v != nil {
		return v
	}
	switch other.(type) {
	case bool:
		return false
	case int, int64, float64, float32:
		return 0
	case string:
		if _, ok := resolve.ToNumber(other); ok {
			return 0
		}
		return ""
	default:
		return nil
	}
}
