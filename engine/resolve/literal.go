package resolve

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoerceLiteral maps "true"/"false" (any case) to bool, integer-looking
// strings to int and decimal-looking strings to float64. Anything else is
// returned unchanged.
func CoerceLiteral(s string) any {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	if trimmed == "" {
		return s
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n
	}
	if looksDecimal(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return s
}

// looksDecimal rejects the forms ParseFloat accepts that content never
// means as numbers ("inf", "nan", hex, exponents).
func looksDecimal(s string) bool {
	digits, dots := 0, 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return digits > 0 && dots == 1
}

// ApplyOperation combines current with the coerced raw value. It returns
// false for an unknown operation or when the operands do not fit it.
func ApplyOperation(current any, op, raw string) (any, bool) {
	value := CoerceLiteral(raw)

	switch strings.ToLower(strings.TrimSpace(op)) {
	case "", "equals", "set", "=", "==":
		return value, true

	case "toggle":
		return !Truthy(current), true

	case "add", "+", "increment":
		if s, ok := current.(string); ok {
			if _, numeric := ToNumber(s); !numeric {
				return s + Format(value), true
			}
		}
		return arith(current, value, func(a, b int) int { return a + b }, func(a, b float64) float64 { return a + b })

	case "subtract", "-", "decrement":
		return arith(current, value, func(a, b int) int { return a - b }, func(a, b float64) float64 { return a - b })

	case "multiply", "*":
		return arith(current, value, func(a, b int) int { return a * b }, func(a, b float64) float64 { return a * b })

	case "divide", "/":
		d, ok := ToNumber(value)
		if !ok {
			return current, false
		}
		if d == 0 {
			return current, true
		}
		a, b, ints := intPair(current, value)
		if ints && a%b == 0 {
			return a / b, true
		}
		n, ok := ToNumber(current)
		if !ok && current != nil {
			return current, false
		}
		return n / d, true

	case "append":
		switch cur := current.(type) {
		case []any:
			out := make([]any, len(cur), len(cur)+1)
			copy(out, cur)
			return append(out, value), true
		case nil:
			return Format(value), true
		default:
			return Format(cur) + Format(value), true
		}

	default:
		return current, false
	}
}

// arith applies integer arithmetic when both sides are integers and float
// arithmetic otherwise. A missing current value counts as zero.
func arith(current, value any, iop func(a, b int) int, fop func(a, b float64) float64) (any, bool) {
	if a, b, ok := intPair(current, value); ok {
		return iop(a, b), true
	}
	b, ok := ToNumber(value)
	if !ok {
		return current, false
	}
	a, ok := ToNumber(current)
	if !ok && current != nil {
		return current, false
	}
	return fop(a, b), true
}

func intPair(current, value any) (int, int, bool) {
	a, ok := asInt(current)
	if !ok {
		if current != nil {
			return 0, 0, false
		}
		a = 0
	}
	b, ok := asInt(value)
	if !ok {
		return 0, 0, false
	}
	return a, b, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON and Lua whole numbers arrive as float64.
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return int(n), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Truthy reports whether a value counts as true. nil, false, zero, the empty
// string, "0" and "false" are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		s := strings.TrimSpace(val)
		return s != "" && s != "0" && !strings.EqualFold(s, "false")
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// ToNumber converts numbers, bools and numeric strings to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.Atoi(s); err == nil {
			return float64(i), true
		}
		if looksDecimal(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Format renders a value for display. Whole floats print without a
// fractional part.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
