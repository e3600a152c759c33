// Package state manages the mutable game state, entity lookup and the
// ordered custom-property lists. Content definitions are immutable; NewState
// copies every entity so runtime mutation never touches Defs.
package state

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleweaver/types"
)

// Defs holds the immutable content produced by the loader.
type Defs struct {
	Game       types.GameDef
	Player     *types.Entity
	Rooms      map[string]*types.Entity
	Objects    map[string]*types.Entity
	Characters map[string]*types.Entity
	Timers     map[string]*types.Entity
	Scenes     map[string]*types.Scene
	SceneOrder []string
	Events     []types.PlannedEvent
	Texts      map[string]string
	Globals    map[string]any
	Aliases    map[string]string
	Citizens   []types.SpawnTemplate
	Enemies    []types.SpawnTemplate
}

// DefaultAliases maps bare names to the player stats that back them.
var DefaultAliases = map[string]string{
	"Level":     "player.Stats.Level",
	"Notoriety": "player.Stats.Notoriety",
	"Wanted":    "player.Stats.Wanted",
	"InCombat":  "player.Stats.InCombat",
	"Exhausted": "player.Stats.Exhausted",
}

// NewDefs returns empty definitions with every map allocated.
func NewDefs() *Defs {
	return &Defs{
		Rooms:      map[string]*types.Entity{},
		Objects:    map[string]*types.Entity{},
		Characters: map[string]*types.Entity{},
		Timers:     map[string]*types.Entity{},
		Scenes:     map[string]*types.Scene{},
		Texts:      map[string]string{},
		Globals:    map[string]any{},
		Aliases:    map[string]string{},
	}
}

// NewState creates a fresh game state from definitions.
func NewState(defs *Defs) *types.State {
	player := defs.Player
	if player == nil {
		player = &types.Entity{ID: "player", Kind: types.KindPlayer, Name: "Player"}
	}
	s := &types.State{
		Player:          CloneEntity(player),
		Rooms:           cloneEntities(defs.Rooms),
		Objects:         cloneEntities(defs.Objects),
		Characters:      cloneEntities(defs.Characters),
		Timers:          cloneEntities(defs.Timers),
		Globals:         map[string]any{},
		Flags:           map[string]bool{},
		CurrentRoom:     defs.Game.Start,
		FirstTimes:      map[string]bool{},
		CompletedScenes: map[string]int{},
		CompletedEvents: map[string]bool{},
		Clock:           types.Clock{Day: 1, Hour: 8},
	}
	if _, ok := s.Player.Fields["Stats"].(map[string]any); !ok {
		s.Player.Fields["Stats"] = map[string]any{}
	}
	for k, v := range defs.Globals {
		s.Globals[k] = cloneValue(v)
	}
	return s
}

// CloneEntity deep-copies an entity's mutable parts. Actions are shared.
func CloneEntity(e *types.Entity) *types.Entity {
	c := &types.Entity{
		ID:      e.ID,
		Kind:    e.Kind,
		Name:    e.Name,
		Fields:  map[string]any{},
		Actions: e.Actions,
	}
	for k, v := range e.Fields {
		c.Fields[k] = cloneValue(v)
	}
	for _, cp := range e.CustomProperties {
		c.CustomProperties = append(c.CustomProperties, types.CustomProperty{Name: cp.Name, Value: cloneValue(cp.Value)})
	}
	return c
}

func cloneEntities(m map[string]*types.Entity) map[string]*types.Entity {
	out := make(map[string]*types.Entity, len(m))
	for id, e := range m {
		out[id] = CloneEntity(e)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		arr := make([]any, len(val))
		for i, inner := range val {
			arr[i] = cloneValue(inner)
		}
		return arr
	default:
		return v
	}
}

// Collection returns the entity map for a kind. Player is not a collection.
func Collection(s *types.State, kind types.EntityKind) map[string]*types.Entity {
	switch kind {
	case types.KindRoom:
		return s.Rooms
	case types.KindObject:
		return s.Objects
	case types.KindCharacter:
		return s.Characters
	case types.KindTimer:
		return s.Timers
	default:
		return nil
	}
}

// Entity looks up an entity by kind and id. Unknown kinds and ids return false.
func Entity(s *types.State, kind types.EntityKind, id string) (*types.Entity, bool) {
	if kind == types.KindPlayer {
		return s.Player, s.Player != nil
	}
	coll := Collection(s, kind)
	if coll == nil {
		return nil, false
	}
	e, ok := coll[id]
	return e, ok
}

// ParseKind maps a namespace word to an EntityKind.
func ParseKind(word string) (types.EntityKind, bool) {
	switch strings.ToLower(word) {
	case "player":
		return types.KindPlayer, true
	case "room":
		return types.KindRoom, true
	case "object":
		return types.KindObject, true
	case "character":
		return types.KindCharacter, true
	case "timer":
		return types.KindTimer, true
	default:
		return "", false
	}
}

// GetFlag returns the value of a flag. Unset flags return false.
func GetFlag(s *types.State, name string) bool {
	return s.Flags[name]
}

// SetFlag sets a flag.
func SetFlag(s *types.State, name string, value bool) {
	s.Flags[name] = value
}

// FirstTimeKey identifies one first-time trigger for one entity.
func FirstTimeKey(kind types.EntityKind, id, trigger string) string {
	return fmt.Sprintf("%s:%s:%s", kind, id, strings.ToLower(trigger))
}

// MarkFirstTime records a first-time key. It returns false when the key was
// already recorded.
func MarkFirstTime(s *types.State, key string) bool {
	if s.FirstTimes[key] {
		return false
	}
	s.FirstTimes[key] = true
	return true
}

// SceneCompleted reports whether a scene has been completed at least once.
func SceneCompleted(s *types.State, sceneID string) bool {
	return s.CompletedScenes[sceneID] > 0
}

// MarkSceneCompleted increments a scene's completion count.
func MarkSceneCompleted(s *types.State, sceneID string) {
	s.CompletedScenes[sceneID]++
}

// GetCustomProperty returns the first property whose name matches
// case-insensitively.
func GetCustomProperty(e *types.Entity, name string) (any, bool) {
	for _, cp := range e.CustomProperties {
		if strings.EqualFold(cp.Name, name) {
			return cp.Value, true
		}
	}
	return nil, false
}

// SetCustomProperty updates the first matching property in place, or appends
// a new record so authoring order is preserved.
func SetCustomProperty(e *types.Entity, name string, value any) {
	for i, cp := range e.CustomProperties {
		if strings.EqualFold(cp.Name, name) {
			e.CustomProperties[i].Value = value
			return
		}
	}
	e.CustomProperties = append(e.CustomProperties, types.CustomProperty{Name: name, Value: value})
}

// DuplicateCustomProperties returns property names that occur more than once.
func DuplicateCustomProperties(e *types.Entity) []string {
	seen := map[string]int{}
	var dups []string
	for _, cp := range e.CustomProperties {
		key := strings.ToLower(cp.Name)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, cp.Name)
		}
	}
	return dups
}

// Stat returns a numeric player-style stat from an entity's Stats map.
func Stat(e *types.Entity, name string) float64 {
	stats, ok := e.Fields["Stats"].(map[string]any)
	if !ok {
		return 0
	}
	return ToFloat(stats[name])
}

// SetStat writes a stat into an entity's Stats map, creating it if needed.
func SetStat(e *types.Entity, name string, value float64) {
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	stats, ok := e.Fields["Stats"].(map[string]any)
	if !ok {
		stats = map[string]any{}
		e.Fields["Stats"] = stats
	}
	stats[name] = value
}

// HasItem returns true if the player carries the given item.
func HasItem(s *types.State, item string) bool {
	for _, v := range inventory(s) {
		if str, ok := v.(string); ok && strings.EqualFold(str, item) {
			return true
		}
	}
	return false
}

// GiveItem appends an item to the player's inventory.
func GiveItem(s *types.State, item string) {
	s.Player.Fields["Inventory"] = append(inventory(s), item)
}

// RemoveItem removes the first matching item from the player's inventory.
func RemoveItem(s *types.State, item string) bool {
	inv := inventory(s)
	for i, v := range inv {
		if str, ok := v.(string); ok && strings.EqualFold(str, item) {
			s.Player.Fields["Inventory"] = append(inv[:i], inv[i+1:]...)
			return true
		}
	}
	return false
}

// Inventory returns the player's items as strings.
func Inventory(s *types.State) []string {
	var out []string
	for _, v := range inventory(s) {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

func inventory(s *types.State) []any {
	inv, _ := s.Player.Fields["Inventory"].([]any)
	return inv
}

// ToFloat converts an any value to float64, handling JSON/Lua numbers.
func ToFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}
