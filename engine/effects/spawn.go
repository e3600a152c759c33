package effects

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// Encounter and spawn tuning.
const (
	spawnThreshold   = 65
	notorietyFastPct = 90
	defaultMaxNotor  = 100
	spawnRollSides   = 30
	spicyDefaultPct  = 50
	spicyContentFlag = "spicy_content"
)

var roomDanger = map[string]int{
	"hostile":   30,
	"dangerous": 20,
	"neutral":   10,
	"safe":      0,
}

// SpawnCitizen places a weighted-random citizen in the current room and
// records it as the pending encounter. pool, when set, filters templates by
// tag.
func SpawnCitizen(pool string, ctx *state.Context, res *types.Result) {
	tmpl, ok := pick(ctx.Defs.Citizens, pool, ctx)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("SPAWN_RANDOM_CITIZEN: no citizen templates%s", poolSuffix(pool)))
		return
	}
	id := spawn(tmpl, ctx)
	ctx.State.Spawn.PendingEncounter = &types.Encounter{Kind: "citizen", EntityID: id}
	ctx.Logger().Debug("citizen spawned", "template", tmpl.ID, "character", id)
}

// SpawnEnemyEncounter rolls an encounter score from the player's notoriety
// and the room's danger and, when it clears the threshold, spawns a
// weighted-random enemy as a pending combat encounter.
func SpawnEnemyEncounter(pool string, ctx *state.Context, res *types.Result) {
	score := EncounterScore(ctx)
	ctx.Logger().Debug("encounter score", "score", score, "threshold", spawnThreshold)
	if score <= spawnThreshold {
		return
	}

	enc := &types.Encounter{Kind: "combat"}
	if tmpl, ok := pick(ctx.Defs.Enemies, pool, ctx); ok {
		enc.EntityID = spawn(tmpl, ctx)
		ctx.State.Characters[enc.EntityID].Fields["Hostile"] = true
	} else {
		res.Errors = append(res.Errors, fmt.Sprintf("SPAWN_RANDOM_ENEMY_ENCOUNTER: no enemy templates%s", poolSuffix(pool)))
	}
	ctx.State.Spawn.PendingEncounter = enc
}

// EncounterScore is 100 when the player's notoriety is above 90% of its
// maximum. Otherwise it is half the notoriety percentage plus the room's
// danger bonus plus a d30.
func EncounterScore(ctx *state.Context) int {
	player := ctx.State.Player
	maxNotor := state.Stat(player, "MaxNotoriety")
	if maxNotor <= 0 {
		maxNotor = defaultMaxNotor
	}
	ratio := state.Stat(player, "Notoriety") * 100 / maxNotor
	if ratio > notorietyFastPct {
		return 100
	}

	bonus := 0
	if room, ok := ctx.CurrentRoom(); ok {
		if kind, ok := room.Fields["Type"].(string); ok {
			bonus = roomDanger[strings.ToLower(kind)]
		}
	}
	return int(ratio/2) + bonus + ctx.RollN(spawnRollSides)
}

func trySpicyEvent(cmd types.Command, ctx *state.Context, res *types.Result) {
	if !state.GetFlag(ctx.State, spicyContentFlag) {
		return
	}
	pct := spicyDefaultPct
	if n, ok := resolve.ToNumber(resolve.CoerceLiteral(cmd.Part2)); ok {
		pct = int(n)
	}
	if ctx.RollPercent() > pct {
		return
	}
	startScene(strings.TrimSpace(cmd.Text), ctx, res)
}

// pick chooses a template by weight. Templates without a weight count as 1.
func pick(templates []types.SpawnTemplate, pool string, ctx *state.Context) (types.SpawnTemplate, bool) {
	var candidates []types.SpawnTemplate
	for _, t := range templates {
		if pool == "" || hasTag(t, pool) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return types.SpawnTemplate{}, false
	}

	weights := make([]int, len(candidates))
	for i, t := range candidates {
		weights[i] = t.Weight
		if weights[i] <= 0 {
			weights[i] = 1
		}
	}
	return candidates[WeightedIndex(weights, ctx.RollN)], true
}

// WeightedIndex returns an index chosen by weighted random selection using a
// roll in [1, total]. weights must be non-empty with all positive values.
func WeightedIndex(weights []int, roll state.RollFunc) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	r := roll(total)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// spawn adds a fresh character built from tmpl to the current room and
// returns its id.
func spawn(tmpl types.SpawnTemplate, ctx *state.Context) string {
	s := ctx.State
	s.Spawn.Spawned++
	id := fmt.Sprintf("%s_%d", tmpl.ID, s.Spawn.Spawned)

	e := state.CloneEntity(&types.Entity{
		ID:     id,
		Kind:   types.KindCharacter,
		Name:   tmpl.Name,
		Fields: tmpl.Fields,
	})
	e.Fields["Location"] = s.CurrentRoom
	e.Fields["Template"] = tmpl.ID
	e.Fields["Spawned"] = true
	s.Characters[id] = e
	return id
}

func hasTag(t types.SpawnTemplate, tag string) bool {
	for _, have := range t.Tags {
		if strings.EqualFold(have, tag) {
			return true
		}
	}
	return false
}

func poolSuffix(pool string) string {
	if pool == "" {
		return ""
	}
	return fmt.Sprintf(" in pool %q", pool)
}
