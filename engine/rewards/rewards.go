// Package rewards applies progression rewards to the player.
package rewards

import (
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// Player stat keys touched by rewards and choice costs.
const (
	StatExp     = "Exp"
	StatCredits = "Credits"
	StatEnergy  = "Energy"
)

// Func grants a reward. Scene completion and planned events call one.
type Func func(r types.Reward, ctx *state.Context)

// Apply adds experience and credits to the player's stats, sets the reward
// flags and gives its items.
func Apply(r types.Reward, ctx *state.Context) {
	p := ctx.State.Player
	if r.Exp != 0 {
		state.SetStat(p, StatExp, state.Stat(p, StatExp)+float64(r.Exp))
	}
	if r.Credits != 0 {
		state.SetStat(p, StatCredits, state.Stat(p, StatCredits)+float64(r.Credits))
	}
	for _, f := range r.Flags {
		state.SetFlag(ctx.State, f, true)
	}
	for _, item := range r.Items {
		state.GiveItem(ctx.State, item)
	}
	if !IsZero(r) {
		ctx.Logger().Debug("reward applied", "exp", r.Exp, "credits", r.Credits, "flags", len(r.Flags), "items", len(r.Items))
	}
}

// IsZero reports whether r grants nothing.
func IsZero(r types.Reward) bool {
	return r.Exp == 0 && r.Credits == 0 && len(r.Flags) == 0 && len(r.Items) == 0
}
