package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{" True ", true},
		{"42", 42},
		{"-7", -7},
		{"3.5", 3.5},
		{"-0.25", -0.25},
		{"inf", "inf"},
		{"1e3", "1e3"},
		{"0x10", "0x10"},
		{"hostile", "hostile"},
		{"", ""},
		{"1.2.3", "1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceLiteral(tt.in))
		})
	}
}

func TestApplyOperation(t *testing.T) {
	tests := []struct {
		name    string
		current any
		op      string
		raw     string
		want    any
		ok      bool
	}{
		{"equals replaces", 3, "Equals", "9", 9, true},
		{"set coerces bool", nil, "Set", "true", true, true},
		{"toggle true", true, "Toggle", "", false, true},
		{"toggle missing", nil, "Toggle", "", true, true},
		{"add ints", 3, "Add", "4", 7, true},
		{"add to missing", nil, "Add", "2", 2, true},
		{"add float", 1, "Add", "0.5", 1.5, true},
		{"add json whole number", float64(2), "Add", "3", 5, true},
		{"add concatenates text", "Hello", "Add", " there", "Hello there", true},
		{"subtract", 10, "Subtract", "3", 7, true},
		{"multiply", 4, "Multiply", "2.5", 10.0, true},
		{"divide evenly", 10, "Divide", "2", 5, true},
		{"divide fraction", 7, "Divide", "2", 3.5, true},
		{"divide by zero is a no-op", 10, "Divide", "0", 10, true},
		{"append text", "ab", "Append", "c", "abc", true},
		{"append list", []any{"a"}, "Append", "b", []any{"a", "b"}, true},
		{"subtract from text fails", "abc", "Subtract", "1", "abc", false},
		{"divide text fails", "abc", "Divide", "2", "abc", false},
		{"unknown op", 1, "Exponentiate", "2", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ApplyOperation(tt.current, tt.op, tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyOperation_AppendDoesNotAliasList(t *testing.T) {
	orig := make([]any, 1, 4)
	orig[0] = "a"
	got, ok := ApplyOperation(orig, "Append", "b")
	assert.True(t, ok)
	assert.Len(t, orig, 1)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{nil, false, 0, 0.0, "", "0", "false", "FALSE", []any{}} {
		assert.False(t, Truthy(v), "%#v", v)
	}
	for _, v := range []any{true, 1, -2.5, "yes", "no", []any{1}, map[string]any{"a": 1}} {
		assert.True(t, Truthy(v), "%#v", v)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "3", Format(3.0))
	assert.Equal(t, "3.25", Format(3.25))
	assert.Equal(t, "true", Format(true))
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "12", Format(12))
}

func TestToNumber(t *testing.T) {
	n, ok := ToNumber("12")
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)

	_, ok = ToNumber("twelve")
	assert.False(t, ok)

	n, ok = ToNumber(true)
	assert.True(t, ok)
	assert.Equal(t, 1.0, n)
}
