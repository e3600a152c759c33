package engine

import (
	"sort"
	"strings"

	"github.com/nathoo/taleweaver/engine/effects"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// goTo moves the player. Rooms with an Exits field only lead where their
// exits point; rooms without one let the player walk to any room.
func (e *Engine) goTo(where string, res *types.Result) {
	if where == "" {
		res.Texts = append(res.Texts, "Go where?")
		return
	}
	room, ok := e.Context().CurrentRoom()
	if !ok {
		res.Errors = append(res.Errors, "player is in unknown room "+e.State.CurrentRoom)
		return
	}
	target, ok := e.findExit(room, where)
	if !ok {
		res.Texts = append(res.Texts, "You can't go that way.")
		return
	}
	if target == e.State.CurrentRoom {
		res.Texts = append(res.Texts, "You are already there.")
		return
	}
	e.State.CurrentRoom = target
	res.DidSomething = true
}

func (e *Engine) findExit(room *types.Entity, where string) (string, bool) {
	exits := roomExits(room)
	if exits == nil {
		return e.roomNamed(where, nil)
	}
	for dir, id := range exits {
		if strings.EqualFold(dir, where) {
			return id, true
		}
	}
	allowed := make(map[string]bool, len(exits))
	for _, id := range exits {
		allowed[id] = true
	}
	return e.roomNamed(where, allowed)
}

// roomNamed finds a room by id or name, restricted to allowed when set.
func (e *Engine) roomNamed(where string, allowed map[string]bool) (string, bool) {
	ids := make([]string, 0, len(e.State.Rooms))
	for id := range e.State.Rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if allowed != nil && !allowed[id] {
			continue
		}
		r := e.State.Rooms[id]
		if strings.EqualFold(id, where) || strings.EqualFold(r.Name, where) ||
			strings.EqualFold(strings.ReplaceAll(id, "_", " "), where) {
			return id, true
		}
	}
	return "", false
}

// roomExits reads Exits as a direction map or as a list of room ids, where
// each id doubles as its own direction. It returns nil when the room has no
// Exits field.
func roomExits(room *types.Entity) map[string]string {
	switch raw := room.Fields["Exits"].(type) {
	case map[string]any:
		exits := make(map[string]string, len(raw))
		for dir, v := range raw {
			if id, ok := v.(string); ok {
				exits[dir] = id
			}
		}
		return exits
	case []any:
		exits := make(map[string]string, len(raw))
		for _, v := range raw {
			if id, ok := v.(string); ok {
				exits[id] = id
			}
		}
		return exits
	}
	return nil
}

// describe renders the current room: name, description, what is here and
// where the player can go.
func (e *Engine) describe(res *types.Result) {
	ctx := e.Context()
	room, ok := ctx.CurrentRoom()
	if !ok {
		res.Texts = append(res.Texts, "You are somewhere unknown.")
		return
	}
	sub := ctx.WithSelf(room)
	if room.Name != "" {
		res.Texts = append(res.Texts, room.Name)
	}
	if desc, ok := room.Fields["Description"].(string); ok && desc != "" {
		res.Texts = append(res.Texts, effects.Interpolate(desc, sub))
	}

	var here []string
	for _, kind := range []types.EntityKind{types.KindCharacter, types.KindObject} {
		here = append(here, e.entitiesHere(kind)...)
	}
	if len(here) > 0 {
		res.Texts = append(res.Texts, "You see: "+strings.Join(here, ", ")+".")
	}

	if exits := roomExits(room); len(exits) > 0 {
		dirs := make([]string, 0, len(exits))
		for dir := range exits {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs)
		res.Texts = append(res.Texts, "Exits: "+strings.Join(dirs, ", ")+".")
	}
}

func (e *Engine) entitiesHere(kind types.EntityKind) []string {
	coll := state.Collection(e.State, kind)
	ids := make([]string, 0, len(coll))
	for id, ent := range coll {
		if loc, _ := ent.Fields["Location"].(string); loc != e.State.CurrentRoom {
			continue
		}
		if hidden, _ := ent.Fields["Hidden"].(bool); hidden {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = displayName(coll[id])
	}
	return names
}

func (e *Engine) inventory(res *types.Result) {
	items := state.Inventory(e.State)
	if len(items) == 0 {
		res.Texts = append(res.Texts, "You are carrying nothing.")
		return
	}
	names := make([]string, len(items))
	for i, id := range items {
		names[i] = id
		if obj, ok := e.State.Objects[id]; ok {
			names[i] = displayName(obj)
		}
	}
	res.Texts = append(res.Texts, "You are carrying: "+strings.Join(names, ", ")+".")
}

func displayName(ent *types.Entity) string {
	if ent.Name != "" {
		return ent.Name
	}
	return ent.ID
}
