package rules

import (
	"testing"

	"github.com/nathoo/taleweaver/engine/state"
)

func TestEvalCondStr_LevelAndFlag(t *testing.T) {
	ctx := condTestContext()
	ctx.State.Flags["has_badge"] = true

	const expr = "player.Stats.Level >= 3 && flag:has_badge"
	if !EvalCondStr(expr, ctx) {
		t.Error("expected level 5 with the badge to pass")
	}

	state.SetStat(ctx.State.Player, "Level", 2)
	if EvalCondStr(expr, ctx) {
		t.Error("expected level 2 to fail")
	}
}

func TestEvalCondStr_LeftToRight(t *testing.T) {
	ctx := condTestContext()
	ctx.State.Flags["a"] = false
	ctx.State.Flags["b"] = true
	ctx.State.Flags["c"] = true

	// (false && true) || true
	if !EvalCondStr("flag:a && flag:b || flag:c", ctx) {
		t.Error("expected (a && b) || c to pass")
	}
	// (true || false) && false, where standard precedence would give true.
	if EvalCondStr("flag:b || flag:c && flag:a", ctx) {
		t.Error("expected (b || c) && a to fail")
	}
}

func TestEvalCondStr_Atoms(t *testing.T) {
	ctx := condTestContext()

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"flag:quest_started", true},
		{"!flag:quest_started", false},
		{"!flag:never_set", true},
		{"player.Stats.Level == 5", true},
		{"player.Stats.Level==5", true},
		{"player.Stats.Level != 5", false},
		{"player.Stats.Level < 10", true},
		{"player.Stats.Level <= 4", false},
		{"room.alley.Type == hostile", true},
		{"mood == 'Sour'", true},
		{"player.Stats.Missing > 0", false},
		{"player.Stats.Missing == 0", true},
		{"chance > 30 && chance < 50", true},
		{"nonexistent", false},
		{"flag:quest_started&&flag:never_set", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := EvalCondStr(tt.expr, ctx); got != tt.want {
				t.Errorf("EvalCondStr(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
