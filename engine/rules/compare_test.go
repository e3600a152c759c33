package rules

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		name  string
		left  any
		op    string
		right any
		want  bool
	}{
		{"int equals", 3, "==", 3, true},
		{"int vs float", 3, "Equals", 3.0, true},
		{"numeric text", "10", ">", 9, true},
		{"numeric order not lexical", "10", ">", "9", true},
		{"caseless text", "Hostile", "==", "hostile", true},
		{"caseless sharp s", "STRASSE", "==", "straße", true},
		{"text order", "apple", "<", "Banana", true},
		{"bool vs text", true, "==", "TRUE", true},
		{"bool vs zero", false, "==", 0, true},
		{"nil vs number", nil, "==", 0, true},
		{"nil vs text", nil, "==", "", true},
		{"nil vs bool", nil, "!=", true, true},
		{"both nil", nil, "==", nil, true},
		{"not equals", "a", "!=", "b", true},
		{"unordered maps", map[string]any{}, "==", 1, false},
		{"unordered not equal", map[string]any{}, "!=", 1, true},
		{"text contains", "Rusty Key", "Contains", "key", true},
		{"list contains", []any{"badge", "rope"}, "contains", "ROPE", true},
		{"list lacks", []any{"badge"}, "Not Contains", "rope", true},
		{"unknown op", 1, "~=", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.left, tt.op, tt.right); got != tt.want {
				t.Errorf("Compare(%v, %q, %v) = %v, want %v", tt.left, tt.op, tt.right, got, tt.want)
			}
		})
	}
}

func TestKnownOp(t *testing.T) {
	for _, op := range []string{"Equals", "==", "Not Equals", ">=", "Less Than", "Contains"} {
		if !KnownOp(op) {
			t.Errorf("expected %q to be known", op)
		}
	}
	if KnownOp("Between") {
		t.Error("expected Between to be unknown")
	}
}
