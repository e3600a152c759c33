package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Validate checks compiled Defs for referential integrity. It returns the
// warnings, and a *ValidationError when there are errors.
func Validate(defs *state.Defs) ([]string, error) {
	return validate(defs, nil)
}

// validate checks defs; problems are errors found while collecting.
func validate(defs *state.Defs, problems []string) ([]string, error) {
	ve := &ValidationError{Errors: append([]string(nil), problems...)}

	if defs.Game.Title == "" {
		ve.Warnings = append(ve.Warnings, "game has no title")
	}
	if defs.Game.Start == "" {
		ve.Errors = append(ve.Errors, "game start room is required")
	} else if _, ok := defs.Rooms[defs.Game.Start]; !ok {
		ve.Errors = append(ve.Errors, fmt.Sprintf("start room %q not found in defined rooms", defs.Game.Start))
	}

	for _, id := range sortedKeys(defs.Rooms) {
		room := defs.Rooms[id]
		for _, dir := range sortedKeys(exitTargets(room)) {
			target := exitTargets(room)[dir]
			if _, ok := defs.Rooms[target]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf("room %q exit %q points to undefined room %q", id, dir, target))
			}
		}
	}

	for _, e := range allEntities(defs) {
		where := fmt.Sprintf("%s %q", e.Kind, e.ID)
		if loc, ok := e.Fields["Location"].(string); ok && loc != "" && e.Kind != types.KindRoom {
			if _, known := defs.Rooms[loc]; !known {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s is located in undefined room %q", where, loc))
			}
		}
		for _, name := range state.DuplicateCustomProperties(e) {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: duplicate custom property %q", where, name))
		}
		for _, a := range e.Actions {
			validateAction(a, where, defs, ve)
		}
	}

	for _, id := range defs.SceneOrder {
		validateScene(defs.Scenes[id], defs, ve)
	}

	for _, ev := range defs.Events {
		validateEvent(ev, defs, ve)
	}

	if len(ve.Errors) > 0 {
		return ve.Warnings, ve
	}
	return ve.Warnings, nil
}

func validateAction(a types.Action, where string, defs *state.Defs, ve *ValidationError) {
	where = fmt.Sprintf("%s action %q", where, a.Name)
	if a.Name == "" {
		ve.Warnings = append(ve.Warnings, where+": action has no trigger name")
	}
	for _, c := range a.Conditions {
		validateCondition(c, where, defs, ve)
	}
	validateNodes(a.PassCommands, where, defs, ve)
	validateNodes(a.FailCommands, where, defs, ve)
	for _, id := range append([]string{a.TriggerScene}, a.TriggerSceneCandidates...) {
		if _, ok := defs.Scenes[id]; id != "" && !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: triggers undefined scene %q", where, id))
		}
	}
}

func validateCondition(c types.Condition, where string, defs *state.Defs, ve *ValidationError) {
	if _, misuse := rules.LoopCheck(c.Checks); misuse {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s: condition %q combines CT_Loop_While with other checks", where, c.Name))
	}
	for _, ch := range c.Checks {
		if !KnownCondType(ch.CondType) {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: unknown condition type %q", where, ch.CondType))
		}
	}
	validateNodes(c.PassCommands, where, defs, ve)
	validateNodes(c.FailCommands, where, defs, ve)
}

func validateNodes(nodes []types.Node, where string, defs *state.Defs, ve *ValidationError) {
	for _, n := range nodes {
		switch {
		case n.Command != nil:
			validateCommand(*n.Command, where, defs, ve)
		case n.Condition != nil:
			validateCondition(*n.Condition, where, defs, ve)
		}
	}
}

func validateCommand(cmd types.Command, where string, defs *state.Defs, ve *ValidationError) {
	if !KnownCommand(cmd.Kind) {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: unknown command kind %q", where, cmd.Kind))
		return
	}
	switch cmd.Kind {
	case types.CmdMovePlayer:
		if _, ok := defs.Rooms[strings.TrimSpace(cmd.Text)]; !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: moves the player to undefined room %q", where, cmd.Text))
		}
	case types.CmdStartScene:
		if _, ok := defs.Scenes[strings.TrimSpace(cmd.Text)]; !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: starts undefined scene %q", where, cmd.Text))
		}
	}
}

func validateScene(sc *types.Scene, defs *state.Defs, ve *ValidationError) {
	where := fmt.Sprintf("scene %q", sc.ID)
	if len(sc.Stages) == 0 {
		ve.Errors = append(ve.Errors, where+" has no stages")
		return
	}

	stages := map[string]bool{}
	for _, st := range sc.Stages {
		if st.ID == "" {
			ve.Errors = append(ve.Errors, where+": stage without an id")
			continue
		}
		if stages[st.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: duplicate stage id %q", where, st.ID))
		}
		stages[st.ID] = true
	}
	target := func(from, id string) {
		if id != "" && !stages[id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %s points to undefined stage %q", where, from, id))
		}
	}
	target("StartStage", sc.StartStage)

	for _, st := range sc.Stages {
		stageWhere := fmt.Sprintf("%s stage %q", where, st.ID)
		target(fmt.Sprintf("stage %q NextStage", st.ID), st.NextStage)
		for _, cmd := range st.Effects {
			validateCommand(cmd, stageWhere, defs, ve)
		}

		choices := map[string]bool{}
		for _, ch := range st.Choices {
			if ch.ID != "" && choices[ch.ID] {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s: duplicate choice id %q", stageWhere, ch.ID))
			}
			choices[ch.ID] = true

			from := fmt.Sprintf("stage %q choice %q", st.ID, ch.ID)
			target(from, ch.NextStage)
			for _, out := range []*types.Outcome{ch.OnSuccess, ch.OnFailure} {
				if out != nil {
					target(from+" outcome", out.StageID)
					target(from+" outcome", out.NextStage)
				}
			}
			for _, cmd := range ch.Effects {
				validateCommand(cmd, stageWhere, defs, ve)
			}
		}
	}
}

func validateEvent(ev types.PlannedEvent, defs *state.Defs, ve *ValidationError) {
	where := fmt.Sprintf("event %q", ev.ID)
	if ev.Action == "" {
		ve.Warnings = append(ve.Warnings, where+" has no action")
	}
	if loc := ev.Location; loc != "" && loc != "*" {
		if _, ok := defs.Rooms[loc]; !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s targets undefined room %q", where, loc))
		}
	}
	switch ev.When {
	case "", "enter", "tick":
	default:
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: unknown when %q", where, ev.When))
	}
	if id, ok := strings.CutPrefix(ev.Action, "scene:"); ok {
		if _, known := defs.Scenes[id]; !known {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s starts undefined scene %q", where, id))
		}
	}
	switch ev.Target {
	case "", "player", "<CurrentRoom>":
	default:
		kind, id := ev.Target, ""
		if sep := strings.IndexAny(ev.Target, ":."); sep >= 0 {
			kind, id = ev.Target[:sep], ev.Target[sep+1:]
		}
		k, known := state.ParseKind(kind)
		if !known || id == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: target %q is not kind:id", where, ev.Target))
		} else if _, exists := defsEntity(defs, k, id); !exists {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s targets undefined %s %q", where, k, id))
		}
	}
}

// allEntities lists every defined entity in a stable order.
func allEntities(defs *state.Defs) []*types.Entity {
	var out []*types.Entity
	if defs.Player != nil {
		out = append(out, defs.Player)
	}
	for _, m := range []map[string]*types.Entity{defs.Rooms, defs.Objects, defs.Characters, defs.Timers} {
		for _, id := range sortedKeys(m) {
			out = append(out, m[id])
		}
	}
	return out
}

func defsEntity(defs *state.Defs, kind types.EntityKind, id string) (*types.Entity, bool) {
	var m map[string]*types.Entity
	switch kind {
	case types.KindPlayer:
		return defs.Player, defs.Player != nil
	case types.KindRoom:
		m = defs.Rooms
	case types.KindObject:
		m = defs.Objects
	case types.KindCharacter:
		m = defs.Characters
	case types.KindTimer:
		m = defs.Timers
	}
	e, ok := m[id]
	return e, ok
}

// exitTargets reads a room's Exits map or list as direction to room id.
func exitTargets(room *types.Entity) map[string]string {
	out := map[string]string{}
	switch raw := room.Fields["Exits"].(type) {
	case map[string]any:
		for dir, v := range raw {
			if id, ok := v.(string); ok {
				out[dir] = id
			}
		}
	case []any:
		for _, v := range raw {
			if id, ok := v.(string); ok {
				out[id] = id
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
