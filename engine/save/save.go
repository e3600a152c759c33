// Package save implements JSON serialization and deserialization of game state.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// FormatVersion is bumped when SaveData changes shape.
const FormatVersion = 1

// EntityData is the mutable part of an entity. Actions are content and come
// back from the definitions on load.
type EntityData struct {
	Kind             types.EntityKind       `json:"kind"`
	Name             string                 `json:"name,omitempty"`
	Fields           map[string]any         `json:"fields,omitempty"`
	CustomProperties []types.CustomProperty `json:"custom_properties,omitempty"`
}

// SceneData records where an in-progress scene stands.
type SceneData struct {
	SceneID string `json:"scene_id"`
	StageID string `json:"stage_id"`
	Page    int    `json:"page"`
}

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Format          int                   `json:"format"`
	Version         string                `json:"version"`
	Game            string                `json:"game"`
	Turn            int                   `json:"turn"`
	Player          EntityData            `json:"player"`
	Rooms           map[string]EntityData `json:"rooms"`
	Objects         map[string]EntityData `json:"objects"`
	Characters      map[string]EntityData `json:"characters"`
	Timers          map[string]EntityData `json:"timers"`
	Globals         map[string]any        `json:"globals"`
	Flags           map[string]bool       `json:"flags"`
	CurrentRoom     string                `json:"current_room"`
	FirstTimes      map[string]bool       `json:"first_times"`
	CompletedScenes map[string]int        `json:"completed_scenes"`
	CompletedEvents map[string]bool       `json:"completed_events"`
	Spawned         int                   `json:"spawned"`
	Clock           types.Clock           `json:"clock"`
	GameOver        bool                  `json:"game_over"`
	RNGSeed         int64                 `json:"rng_seed"`
	RNGPosition     int64                 `json:"rng_position"`
	Scene           *SceneData            `json:"scene,omitempty"`
}

// Save serializes game state to JSON bytes. scene may be nil.
func Save(s *types.State, defs *state.Defs, scene *SceneData) ([]byte, error) {
	data := SaveData{
		Format:          FormatVersion,
		Version:         defs.Game.Version,
		Game:            defs.Game.Title,
		Turn:            s.TurnCount,
		Player:          entityData(s.Player),
		Rooms:           entityMap(s.Rooms),
		Objects:         entityMap(s.Objects),
		Characters:      entityMap(s.Characters),
		Timers:          entityMap(s.Timers),
		Globals:         s.Globals,
		Flags:           s.Flags,
		CurrentRoom:     s.CurrentRoom,
		FirstTimes:      s.FirstTimes,
		CompletedScenes: s.CompletedScenes,
		CompletedEvents: s.CompletedEvents,
		Spawned:         s.Spawn.Spawned,
		Clock:           s.Clock,
		GameOver:        s.GameOver,
		RNGSeed:         s.RNGSeed,
		RNGPosition:     s.RNGPosition,
		Scene:           scene,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Format > FormatVersion {
		return nil, fmt.Errorf("save format %d is newer than supported format %d", sd.Format, FormatVersion)
	}
	// Ensure maps are never nil after load.
	if sd.Globals == nil {
		sd.Globals = map[string]any{}
	}
	if sd.Flags == nil {
		sd.Flags = map[string]bool{}
	}
	if sd.FirstTimes == nil {
		sd.FirstTimes = map[string]bool{}
	}
	if sd.CompletedScenes == nil {
		sd.CompletedScenes = map[string]int{}
	}
	if sd.CompletedEvents == nil {
		sd.CompletedEvents = map[string]bool{}
	}
	return &sd, nil
}

// ApplySave applies loaded save data onto a state built from defs. Entities
// that only exist at runtime (spawns) are recreated without Actions.
func ApplySave(s *types.State, defs *state.Defs, sd *SaveData) {
	s.Player = restoreEntity("player", sd.Player, defs.Player)
	s.Rooms = restoreMap(sd.Rooms, defs.Rooms, s.Rooms)
	s.Objects = restoreMap(sd.Objects, defs.Objects, s.Objects)
	s.Characters = restoreMap(sd.Characters, defs.Characters, s.Characters)
	s.Timers = restoreMap(sd.Timers, defs.Timers, s.Timers)
	s.Globals = sd.Globals
	s.Flags = sd.Flags
	s.CurrentRoom = sd.CurrentRoom
	s.FirstTimes = sd.FirstTimes
	s.CompletedScenes = sd.CompletedScenes
	s.CompletedEvents = sd.CompletedEvents
	s.Spawn = types.SpawnState{Spawned: sd.Spawned}
	s.Clock = sd.Clock
	s.GameOver = sd.GameOver
	s.TurnCount = sd.Turn
	s.RNGSeed = sd.RNGSeed
	s.RNGPosition = sd.RNGPosition
}

func entityData(e *types.Entity) EntityData {
	return EntityData{Kind: e.Kind, Name: e.Name, Fields: e.Fields, CustomProperties: e.CustomProperties}
}

func entityMap(m map[string]*types.Entity) map[string]EntityData {
	out := make(map[string]EntityData, len(m))
	for id, e := range m {
		out[id] = entityData(e)
	}
	return out
}

func restoreEntity(id string, d EntityData, def *types.Entity) *types.Entity {
	e := &types.Entity{
		ID:               id,
		Kind:             d.Kind,
		Name:             d.Name,
		Fields:           d.Fields,
		CustomProperties: d.CustomProperties,
	}
	if def != nil {
		e.ID = def.ID
		e.Actions = def.Actions
	}
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	return e
}

// restoreMap rebuilds a collection from saved data. An entity missing from
// the save keeps its fresh state.
func restoreMap(saved map[string]EntityData, defs, fresh map[string]*types.Entity) map[string]*types.Entity {
	out := make(map[string]*types.Entity, len(fresh)+len(saved))
	for id, e := range fresh {
		out[id] = e
	}
	for id, d := range saved {
		out[id] = restoreEntity(id, d, defs[id])
	}
	return out
}
