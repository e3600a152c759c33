// Package resolve reads and writes variables across the scoped namespaces
// (player, room, object, character, timer, global) using dotted references.
package resolve

import (
	"strconv"
	"strings"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

const (
	aliasSelf        = "<Self>"
	aliasCurrentRoom = "<CurrentRoom>"
	customProps      = "CustomProperties"
)

// target is what a reference points at before the remaining path is walked.
type target struct {
	entity  *types.Entity
	globals map[string]any
	texts   bool
	missing bool
	path    []string
}

// Resolve returns the value a reference points at. Unresolved references
// return (nil, false); they never error.
func Resolve(ref string, ctx *state.Context) (any, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}

	if name, ok := flagName(ref); ok {
		return state.GetFlag(ctx.State, name), true
	}

	t, ok := locate(ref, ctx)
	if !ok {
		return resolveBare(ref, ctx)
	}

	switch {
	case t.missing:
		return nil, false
	case t.entity != nil:
		return entityValue(t.entity, t.path)
	case t.texts:
		if text, ok := ctx.Defs.Texts[strings.Join(t.path, ".")]; ok {
			return text, true
		}
		return nil, false
	default:
		return walk(t.globals, t.path)
	}
}

// Assign writes value at ref. It mirrors Resolve's addressing, creating
// intermediate maps where absent; it never replaces a non-map with a map.
func Assign(ref string, value any, ctx *state.Context) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}

	if name, ok := flagName(ref); ok {
		state.SetFlag(ctx.State, name, Truthy(value))
		return true
	}

	t, ok := locate(ref, ctx)
	if !ok {
		return assignBare(ref, value, ctx)
	}

	switch {
	case t.missing:
		return false
	case t.entity != nil:
		return assignEntity(t.entity, t.path, value)
	case t.texts:
		return false
	default:
		if len(t.path) == 0 {
			return false
		}
		return assignPath(t.globals, t.path, value)
	}
}

// flagName recognizes "flag:name" and "flags.name".
func flagName(ref string) (string, bool) {
	if rest, ok := strings.CutPrefix(ref, "flag:"); ok && rest != "" {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(ref, "flags."); ok && rest != "" {
		return rest, true
	}
	return "", false
}

// locate maps a prefixed reference to its root. Unprefixed references
// return false.
func locate(ref string, ctx *state.Context) (target, bool) {
	parts := strings.Split(ref, ".")
	root := parts[0]

	switch root {
	case aliasSelf:
		if ctx.Self == nil {
			return target{missing: true}, true
		}
		return target{entity: ctx.Self, path: parts[1:]}, true
	case aliasCurrentRoom:
		room, ok := ctx.CurrentRoom()
		if !ok {
			return target{missing: true}, true
		}
		return target{entity: room, path: parts[1:]}, true
	}

	switch strings.ToLower(root) {
	case "global", "vars":
		if len(parts) < 2 {
			return target{}, false
		}
		return target{globals: ctx.State.Globals, path: parts[1:]}, true
	case "texts":
		if len(parts) < 2 {
			return target{}, false
		}
		return target{texts: true, path: parts[1:]}, true
	case "player":
		return target{entity: ctx.State.Player, path: parts[1:]}, true
	}

	kind, ok := state.ParseKind(root)
	if !ok || len(parts) < 2 {
		return target{}, false
	}
	e, ok := lookupEntity(kind, parts[1], ctx)
	if !ok {
		// A namespaced miss never falls back to globals.
		return target{missing: true}, true
	}
	return target{entity: e, path: parts[2:]}, true
}

// Entity resolves an entity by kind and id, honoring the <Self> and
// <CurrentRoom> aliases.
func Entity(kind types.EntityKind, id string, ctx *state.Context) (*types.Entity, bool) {
	return lookupEntity(kind, id, ctx)
}

func lookupEntity(kind types.EntityKind, id string, ctx *state.Context) (*types.Entity, bool) {
	switch id {
	case aliasSelf:
		if ctx.Self == nil {
			return nil, false
		}
		return ctx.Self, true
	case aliasCurrentRoom:
		return ctx.CurrentRoom()
	}
	return state.Entity(ctx.State, kind, id)
}

// resolveBare handles unprefixed references: globals, then the text library,
// then the alias table.
func resolveBare(ref string, ctx *state.Context) (any, bool) {
	if v, ok := ctx.State.Globals[ref]; ok {
		return v, true
	}
	if strings.Contains(ref, ".") {
		if v, ok := walk(ctx.State.Globals, strings.Split(ref, ".")); ok {
			return v, true
		}
	}
	if text, ok := ctx.Defs.Texts[ref]; ok {
		return text, true
	}
	if alias, ok := aliasFor(ref, ctx); ok {
		return Resolve(alias, ctx)
	}
	return nil, false
}

func assignBare(ref string, value any, ctx *state.Context) bool {
	if _, ok := ctx.State.Globals[ref]; ok {
		ctx.State.Globals[ref] = value
		return true
	}
	if alias, ok := aliasFor(ref, ctx); ok {
		return Assign(alias, value, ctx)
	}
	if strings.Contains(ref, ".") {
		return assignPath(ctx.State.Globals, strings.Split(ref, "."), value)
	}
	ctx.State.Globals[ref] = value
	return true
}

// aliasFor looks up a bare name in the content alias table, then the
// built-in one. Alias targets must be prefixed references.
func aliasFor(ref string, ctx *state.Context) (string, bool) {
	if a, ok := ctx.Defs.Aliases[ref]; ok && strings.Contains(a, ".") {
		return a, true
	}
	if a, ok := state.DefaultAliases[ref]; ok {
		return a, true
	}
	return "", false
}

func entityValue(e *types.Entity, path []string) (any, bool) {
	if len(path) == 0 {
		if e.ID == "" {
			return nil, false
		}
		return e.ID, true
	}

	head := path[0]
	if head == customProps {
		if len(path) < 2 {
			return nil, false
		}
		v, ok := state.GetCustomProperty(e, path[1])
		if !ok {
			return nil, false
		}
		return descend(v, path[2:])
	}

	if v, ok := walk(e.Fields, path); ok {
		return v, true
	}
	if len(path) == 1 {
		switch strings.ToLower(head) {
		case "id":
			return e.ID, e.ID != ""
		case "name":
			return e.Name, e.Name != ""
		}
	}
	return nil, false
}

func assignEntity(e *types.Entity, path []string, value any) bool {
	if len(path) == 0 {
		return false
	}

	if path[0] == customProps {
		if len(path) < 2 {
			return false
		}
		if len(path) == 2 {
			state.SetCustomProperty(e, path[1], value)
			return true
		}
		current, ok := state.GetCustomProperty(e, path[1])
		if !ok {
			current = map[string]any{}
			state.SetCustomProperty(e, path[1], current)
		}
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		return assignPath(m, path[2:], value)
	}

	if len(path) == 1 && strings.EqualFold(path[0], "name") {
		if _, inFields := findKey(e.Fields, "Name"); !inFields {
			e.Name = Format(value)
			return true
		}
	}

	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	return assignPath(e.Fields, path, value)
}

// walk follows path through nested maps.
func walk(m map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	return descend(m, path)
}

func descend(v any, path []string) (any, bool) {
	cur := v
	for i := 0; i < len(path); i++ {
		seg := path[i]
		switch node := cur.(type) {
		case map[string]any:
			key, ok := findKey(node, seg)
			if !ok {
				return nil, false
			}
			cur = node[key]
		case []any:
			if seg == customProps {
				return nil, false
			}
			if rec, ok := recordList(node, seg); ok {
				cur = rec
				continue
			}
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// recordList finds a {name, value} record by name inside a nested list.
func recordList(list []any, name string) (any, bool) {
	for _, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		nk, ok := findKey(rec, "name")
		if !ok {
			return nil, false
		}
		if n, ok := rec[nk].(string); ok && strings.EqualFold(n, name) {
			vk, ok := findKey(rec, "value")
			if !ok {
				return nil, false
			}
			return rec[vk], true
		}
	}
	return nil, false
}

func assignPath(m map[string]any, path []string, value any) bool {
	cur := m
	for i, seg := range path {
		key, ok := findKey(cur, seg)
		if !ok {
			key = seg
		}
		if i == len(path)-1 {
			cur[key] = value
			return true
		}
		next, exists := cur[key]
		if !exists || next == nil {
			child := map[string]any{}
			cur[key] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return false
		}
		cur = child
	}
	return false
}

// findKey matches a map key exactly, then case-insensitively.
func findKey(m map[string]any, seg string) (string, bool) {
	if m == nil {
		return "", false
	}
	if _, ok := m[seg]; ok {
		return seg, true
	}
	for k := range m {
		if strings.EqualFold(k, seg) {
			return k, true
		}
	}
	return "", false
}
