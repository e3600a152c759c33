// Package types defines the shared data structures for the Taleweaver runtime.
// This package contains only type definitions: no logic, no methods.
package types

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// CommandKind tags a Command. The set is closed but content may carry
// kinds the runtime does not know; those are reported, never fatal.
type CommandKind string

const (
	CmdDisplayText                CommandKind = "DISPLAY_TEXT"
	CmdSetVariable                CommandKind = "SET_VARIABLE"
	CmdDisplayPicture             CommandKind = "DISPLAY_PICTURE"
	CmdPauseGame                  CommandKind = "PAUSE_GAME"
	CmdStartCombat                CommandKind = "START_COMBAT"
	CmdSpawnRandomCitizen         CommandKind = "SPAWN_RANDOM_CITIZEN"
	CmdSpawnRandomEnemyEncounter  CommandKind = "SPAWN_RANDOM_ENEMY_ENCOUNTER"
	CmdTrySpicyEvent              CommandKind = "TRY_SPICY_EVENT"
	CmdPlayerSetCustomProperty    CommandKind = "PLAYER_SET_CUSTOM_PROPERTY"
	CmdRoomSetCustomProperty      CommandKind = "ROOM_SET_CUSTOM_PROPERTY"
	CmdObjectSetCustomProperty    CommandKind = "OBJECT_SET_CUSTOM_PROPERTY"
	CmdCharacterSetCustomProperty CommandKind = "CHARACTER_SET_CUSTOM_PROPERTY"
	CmdStartScene                 CommandKind = "START_SCENE"
	CmdSetFlag                    CommandKind = "SET_FLAG"
	CmdGiveItem                   CommandKind = "GIVE_ITEM"
	CmdRemoveItem                 CommandKind = "REMOVE_ITEM"
	CmdMovePlayer                 CommandKind = "MOVE_PLAYER"
	CmdEndGame                    CommandKind = "END_GAME"
)

// Command is a single executable instruction. The meaning of Text and the
// Part fields depends on Kind.
type Command struct {
	Kind  CommandKind
	Text  string
	Part2 string
	Part3 string
	Part4 string
}

// CondType tags a Check.
type CondType string

const (
	CTUninitialized   CondType = "CT_Uninitialized"
	CTVariableCompare CondType = "CT_Variable_Compare"
	CTPercentChance   CondType = "CT_Percent_Chance"
	CTEntityProperty  CondType = "CT_Entity_Property"
	CTLoopWhile       CondType = "CT_Loop_While"
	CTFlag            CondType = "CT_Flag"
	CTSceneCompleted  CondType = "CT_Scene_Completed"
	CTExpression      CondType = "CT_Expression"
	CTHasItem         CondType = "CT_Has_Item"
)

// JoinType determines how a Check combines with the running result.
type JoinType string

const (
	JoinNone JoinType = ""
	JoinAnd  JoinType = "And"
	JoinOr   JoinType = "Or"
)

// Check is one boolean test inside a Condition.
type Check struct {
	CondType CondType
	Join     JoinType
	Step2    string
	Step3    string
	Step4    string
}

// Node is a Command or a nested Condition. Exactly one field is set on a
// well-formed node; a node with neither is skipped.
type Node struct {
	Command   *Command
	Condition *Condition
}

// Condition is an ordered list of Checks plus the two branches chosen by
// their combined result.
type Condition struct {
	Name         string
	Checks       []Check
	PassCommands []Node
	FailCommands []Node
}

// CustomChoice is a menu entry an Action offers once it has run. Picking
// it fires Trigger on the same entity.
type CustomChoice struct {
	Text    string
	Trigger string
}

// Action is the trigger-matched unit attached to an entity.
type Action struct {
	Name                 string
	OverrideName         string
	Active               bool
	RequireAllConditions bool
	Conditions           []Condition
	PassCommands         []Node
	FailCommands         []Node
	CustomChoices        []CustomChoice

	// TriggerScene is started once the Action's commands finish. When
	// TriggerSceneCandidates is set, the first scene not yet completed wins.
	TriggerScene           string
	TriggerSceneCandidates []string
}

// EntityKind names a namespace of world entities.
type EntityKind string

const (
	KindPlayer    EntityKind = "player"
	KindRoom      EntityKind = "room"
	KindObject    EntityKind = "object"
	KindCharacter EntityKind = "character"
	KindTimer     EntityKind = "timer"
)

// CustomProperty is one record of an entity's ordered property list.
type CustomProperty struct {
	Name  string
	Value any
}

// Entity is a player, room, object, character or timer. Fields holds
// arbitrarily nested authored data (maps of maps); Actions are read-only.
type Entity struct {
	ID               string
	Kind             EntityKind
	Name             string
	Fields           map[string]any
	CustomProperties []CustomProperty
	Actions          []Action
}

// Reward is granted on scene completion or by a planned event.
type Reward struct {
	Exp     int
	Credits int
	Flags   []string
	Items   []string
}

// SceneRewards groups the rewards a scene can grant.
type SceneRewards struct {
	OnComplete Reward
}

// Scene is an identified unit of branching dialogue.
type Scene struct {
	ID            string
	Title         string
	Repeatable    bool
	RequiredFlags []string
	StartIf       string // condStr guard
	StartStage    string // defaults to the first stage
	Stages        []Stage
	Rewards       SceneRewards
}

// Stage is one node of a scene's stage graph.
type Stage struct {
	ID                 string
	Text               string
	Paragraphs         []string
	Media              string
	Effects            []Command
	Choices            []Choice
	NextStage          string
	IsEnd              bool
	AutoAdvance        bool
	AutoAdvanceDelayMs int
	ChunkByParagraphs  bool
	ParagraphsPerPage  int
}

// Choice is a player option on a stage.
type Choice struct {
	ID            string
	Text          string
	ShowIf        string // condStr guard
	Effects       []Command
	EnergyCost    int
	ExpCost       int
	ChanceSuccess *int
	OnSuccess     *Outcome
	OnFailure     *Outcome
	NextStage     string
}

// Outcome is a chance branch target: either a stage id, or inline text that
// is shown before moving on to NextStage.
type Outcome struct {
	StageID   string
	Text      string
	NextStage string
	GainExp   int
}

// PlannedEvent is a schedulable trigger evaluated by the scheduler.
type PlannedEvent struct {
	ID                string
	When              string // "enter", "tick" or "" for both
	Location          string // room id or "*"
	Target            string // "kind:id" entity the action runs on
	Day               string // weekday name or day number, "" for any
	Hour              *int
	Prob              *int
	Reqs              []string // flags that must be set
	CondStr           string
	Action            string // trigger name, or "scene:<id>"
	Priority          int
	ThreadName        string
	Rewards           Reward
	Repeatable        bool
	CompleteOnTrigger bool
}

// SpawnTemplate describes a citizen or enemy that can be spawned.
type SpawnTemplate struct {
	ID     string
	Name   string
	Weight int
	Tags   []string
	Fields map[string]any
}

// ChoiceView is a choice as presented to the player.
type ChoiceView struct {
	ID   string
	Text string
}

// SceneView is what the Scene Runner asks the UI to render.
type SceneView struct {
	SceneID       string
	StageID       string
	Text          string
	Media         string
	Choices       []ChoiceView
	ChunkIndex    int
	ChunkCount    int
	AutoAdvanceMs int
	IsEnd         bool
}

// Result is the accumulator produced by one interpreter run.
type Result struct {
	Texts              []string
	Media              string
	StartCombatEnemyID string
	SceneData          *SceneView
	Paused             bool
	Errors             []string
	DidSomething       bool
	Choices            []CustomChoice
}

// Encounter is a spawn waiting to be picked up by the caller.
type Encounter struct {
	Kind     string // "combat" or "citizen"
	EntityID string
}

// SpawnState tracks encounter spawning.
type SpawnState struct {
	PendingEncounter *Encounter
	Spawned          int
}

// Clock is the in-game time.
type Clock struct {
	Day  int
	Hour int
}

// GameDef holds game metadata.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   string // starting room ID
	Intro   string
}

// State is the complete mutable game state.
type State struct {
	Player          *Entity
	Rooms           map[string]*Entity
	Objects         map[string]*Entity
	Characters      map[string]*Entity
	Timers          map[string]*Entity
	Globals         map[string]any
	Flags           map[string]bool
	CurrentRoom     string
	FirstTimes      map[string]bool
	CompletedScenes map[string]int
	CompletedEvents map[string]bool
	Spawn           SpawnState
	Clock           Clock
	GameOver        bool
	TurnCount       int
	RNGSeed         int64
	RNGPosition     int64
}
