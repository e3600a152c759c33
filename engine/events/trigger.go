package events

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// Built-in trigger names fired by the engine.
const (
	TriggerPlayerEnter          = "<<On Player Enter>>"
	TriggerPlayerEnterFirstTime = "<<On Player Enter First Time>>"
	TriggerPlayerLeave          = "<<On Player Leave>>"
	TriggerTalk                 = "<<On Talk>>"
	TriggerUse                  = "<<On Use>>"
	TriggerTick                 = "<<On Tick>>"
)

// historical spellings of first-time triggers, keyed by canonical form.
var triggerAliases = map[string]string{
	"on enter first time":       "on player enter first time",
	"on first enter":            "on player enter first time",
	"on player first enter":     "on player enter first time",
	"on player enter firsttime": "on player enter first time",
	"on first talk":             "on talk first time",
	"on first use":              "on use first time",
}

// Canonical reduces a trigger name to a comparable form: caseless, without
// the << >> wrapper and punctuation, with "first time" moved to the end.
func Canonical(name string) string {
	folded := cases.Fold().String(name)
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())

	first := false
	kept := words[:0]
	for i := 0; i < len(words); i++ {
		if words[i] == "first" && i+1 < len(words) && words[i+1] == "time" {
			first = true
			i++
			continue
		}
		kept = append(kept, words[i])
	}
	if first {
		kept = append(kept, "first", "time")
	}
	canon := strings.Join(kept, " ")
	if alias, ok := triggerAliases[canon]; ok {
		return alias
	}
	return canon
}

// IsFirstTime reports whether a trigger fires at most once per entity.
func IsFirstTime(trigger string) bool {
	return strings.HasSuffix(Canonical(trigger), "first time")
}

// Matches reports whether an Action answers a trigger by name or override.
func Matches(a types.Action, trigger string) bool {
	key := Canonical(trigger)
	if key == "" {
		return false
	}
	return Canonical(a.Name) == key || (a.OverrideName != "" && Canonical(a.OverrideName) == key)
}

// Matching returns the active Actions on e that answer trigger, in authored
// order. A first-time trigger is recorded for e the first time it fires;
// after that it matches nothing.
func Matching(e *types.Entity, trigger string, ctx *state.Context) []types.Action {
	if e == nil {
		return nil
	}
	log := ctx.Logger()

	if IsFirstTime(trigger) {
		key := state.FirstTimeKey(e.Kind, e.ID, Canonical(trigger))
		if !state.MarkFirstTime(ctx.State, key) {
			log.Debug("first-time trigger already fired", "trigger", trigger, "entity", e.ID)
			return nil
		}
	}

	var matched []types.Action
	for _, a := range e.Actions {
		if !Matches(a, trigger) {
			continue
		}
		if !a.Active {
			log.Debug("action skipped: inactive", "action", a.Name, "entity", e.ID)
			continue
		}
		matched = append(matched, a)
	}
	if len(matched) > 0 {
		log.Debug("trigger matched", "trigger", trigger, "entity", e.ID, "actions", len(matched))
	}
	return matched
}

// InitialOutcome is the starting value of an Action's overall result.
func InitialOutcome(a types.Action) bool {
	return a.RequireAllConditions || len(a.Conditions) == 0
}

// Accumulate folds one Condition's result into an Action's overall result:
// AND when all conditions are required, OR otherwise.
func Accumulate(a types.Action, acc, ok bool) bool {
	if a.RequireAllConditions {
		return acc && ok
	}
	return acc || ok
}

// Branch returns the command list an Action runs for its overall result.
func Branch(a types.Action, passed bool) []types.Node {
	if passed {
		return a.PassCommands
	}
	return a.FailCommands
}

// StartTriggerScene begins the scene an Action chains into once its commands
// finish. With candidates, the first scene not yet completed wins.
func StartTriggerScene(a types.Action, ctx *state.Context, res *types.Result) {
	sceneID := a.TriggerScene
	if len(a.TriggerSceneCandidates) > 0 {
		sceneID = ""
		for _, id := range a.TriggerSceneCandidates {
			if !state.SceneCompleted(ctx.State, id) {
				sceneID = id
				break
			}
		}
	}
	if sceneID == "" {
		return
	}
	if ctx.Scenes == nil {
		res.Errors = append(res.Errors, "action "+a.Name+": no scene runner for "+sceneID)
		return
	}
	ctx.Scenes.StartScene(sceneID, ctx, res)
}
