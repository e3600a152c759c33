// Package effects executes Commands. Every command kind is one operation
// that mutates state or adds to the Result; no command decides control flow
// beyond flagging a pause or a hand-off.
package effects

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// Apply executes a single command. Content problems are appended to
// res.Errors; Apply never fails.
func Apply(cmd types.Command, ctx *state.Context, res *types.Result) {
	switch cmd.Kind {
	case types.CmdDisplayText:
		text := Interpolate(cmd.Text, ctx)
		if text != "" {
			res.Texts = append(res.Texts, text)
		}
		if wantsPause(cmd.Part2) {
			res.Paused = true
		}

	case types.CmdSetVariable:
		setVariable(cmd.Text, cmd.Part2, cmd.Part3, ctx, res)

	case types.CmdDisplayPicture:
		res.Media = strings.TrimSpace(cmd.Text)

	case types.CmdPauseGame:
		if text := Interpolate(cmd.Text, ctx); text != "" {
			res.Texts = append(res.Texts, text)
		}
		res.Paused = true

	case types.CmdStartCombat:
		enemy := strings.TrimSpace(cmd.Text)
		if enemy == "<Self>" {
			if ctx.Self == nil {
				res.Errors = append(res.Errors, "START_COMBAT: <Self> is not bound")
				return
			}
			enemy = ctx.Self.ID
		}
		if enemy == "" {
			res.Errors = append(res.Errors, "START_COMBAT: no enemy given")
			return
		}
		res.StartCombatEnemyID = enemy

	case types.CmdPlayerSetCustomProperty:
		setCustomProperty(ctx.State.Player, cmd.Text, cmd.Part2, Interpolate(cmd.Part3, ctx), res)

	case types.CmdRoomSetCustomProperty:
		setEntityCustomProperty(types.KindRoom, cmd, ctx, res)

	case types.CmdObjectSetCustomProperty:
		setEntityCustomProperty(types.KindObject, cmd, ctx, res)

	case types.CmdCharacterSetCustomProperty:
		setEntityCustomProperty(types.KindCharacter, cmd, ctx, res)

	case types.CmdSpawnRandomCitizen:
		SpawnCitizen(cmd.Text, ctx, res)

	case types.CmdSpawnRandomEnemyEncounter:
		SpawnEnemyEncounter(cmd.Text, ctx, res)

	case types.CmdTrySpicyEvent:
		trySpicyEvent(cmd, ctx, res)

	case types.CmdStartScene:
		startScene(strings.TrimSpace(cmd.Text), ctx, res)

	case types.CmdSetFlag:
		value := true
		if strings.TrimSpace(cmd.Part2) != "" {
			value = resolve.Truthy(resolve.CoerceLiteral(cmd.Part2))
		}
		state.SetFlag(ctx.State, strings.TrimSpace(cmd.Text), value)

	case types.CmdGiveItem:
		state.GiveItem(ctx.State, strings.TrimSpace(cmd.Text))

	case types.CmdRemoveItem:
		if !state.RemoveItem(ctx.State, strings.TrimSpace(cmd.Text)) {
			ctx.Logger().Debug("remove item: not carried", "item", cmd.Text)
		}

	case types.CmdMovePlayer:
		room := strings.TrimSpace(cmd.Text)
		if _, ok := ctx.State.Rooms[room]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("MOVE_PLAYER: unknown room %q", room))
			return
		}
		ctx.State.CurrentRoom = room

	case types.CmdEndGame:
		if text := Interpolate(cmd.Text, ctx); text != "" {
			res.Texts = append(res.Texts, text)
		}
		ctx.State.GameOver = true

	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unimplemented command %q", cmd.Kind))
		ctx.Logger().Warn("unknown command", "kind", string(cmd.Kind))
		return
	}
	res.DidSomething = true
}

// Execute applies commands in order.
func Execute(cmds []types.Command, ctx *state.Context, res *types.Result) {
	for _, cmd := range cmds {
		Apply(cmd, ctx, res)
	}
}

// HandedOff reports whether control has left the current action sequence.
func HandedOff(res *types.Result) bool {
	return res.SceneData != nil || res.StartCombatEnemyID != ""
}

// Merge folds src into dst: lists are appended, later media, scene and
// combat hand-offs win.
func Merge(dst, src *types.Result) {
	if src == nil {
		return
	}
	dst.Texts = append(dst.Texts, src.Texts...)
	dst.Errors = append(dst.Errors, src.Errors...)
	dst.Choices = append(dst.Choices, src.Choices...)
	if src.Media != "" {
		dst.Media = src.Media
	}
	if src.SceneData != nil {
		dst.SceneData = src.SceneData
	}
	if src.StartCombatEnemyID != "" {
		dst.StartCombatEnemyID = src.StartCombatEnemyID
	}
	dst.Paused = dst.Paused || src.Paused
	dst.DidSomething = dst.DidSomething || src.DidSomething
}

func wantsPause(flag string) bool {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "pause", "wait", "true":
		return true
	}
	return false
}

func setVariable(ref, op, raw string, ctx *state.Context, res *types.Result) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		res.Errors = append(res.Errors, "SET_VARIABLE: no variable given")
		return
	}
	current, _ := resolve.Resolve(ref, ctx)
	next, ok := resolve.ApplyOperation(current, op, Interpolate(raw, ctx))
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("SET_VARIABLE %s: cannot apply %q", ref, op))
		return
	}
	if !resolve.Assign(ref, next, ctx) {
		res.Errors = append(res.Errors, fmt.Sprintf("SET_VARIABLE: cannot assign %q", ref))
	}
}

func setCustomProperty(e *types.Entity, key, op, raw string, res *types.Result) {
	key = strings.TrimSpace(key)
	if e == nil || key == "" {
		res.Errors = append(res.Errors, "SET_CUSTOM_PROPERTY: no property given")
		return
	}
	current, _ := state.GetCustomProperty(e, key)
	next, ok := resolve.ApplyOperation(current, op, raw)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("SET_CUSTOM_PROPERTY %s: cannot apply %q", key, op))
		return
	}
	state.SetCustomProperty(e, key, next)
}

// setEntityCustomProperty handles the room/object/character variants:
// Text is the entity id, Part2 the key, Part3 the operation, Part4 the value.
func setEntityCustomProperty(kind types.EntityKind, cmd types.Command, ctx *state.Context, res *types.Result) {
	id := strings.TrimSpace(cmd.Text)
	e, ok := resolve.Entity(kind, id, ctx)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: unknown %s %q", cmd.Kind, kind, id))
		return
	}
	setCustomProperty(e, cmd.Part2, cmd.Part3, Interpolate(cmd.Part4, ctx), res)
}

func startScene(sceneID string, ctx *state.Context, res *types.Result) {
	if ctx.Scenes == nil {
		res.Errors = append(res.Errors, fmt.Sprintf("START_SCENE %q: no scene runner", sceneID))
		return
	}
	if !ctx.Scenes.StartScene(sceneID, ctx, res) {
		ctx.Logger().Debug("scene did not start", "scene", sceneID)
	}
}
