// Package engine provides the Engine facade that wires the interpreter into
// a playable game: movement, triggers, scenes, the clock and the planned
// event scheduler. Frontends talk to the Engine only.
package engine

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/taleweaver/engine/effects"
	"github.com/nathoo/taleweaver/engine/events"
	"github.com/nathoo/taleweaver/engine/parser"
	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/engine/runner"
	"github.com/nathoo/taleweaver/engine/save"
	"github.com/nathoo/taleweaver/engine/scene"
	"github.com/nathoo/taleweaver/engine/schedule"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// What the engine is waiting on before it accepts free input again.
const (
	WaitingNone  = ""
	WaitingScene = "scene"
	WaitingPause = "paused"
)

// maxArrivals bounds room changes chained by enter triggers in one step.
const maxArrivals = 16

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Engine holds the game definitions, the mutable state and the runners.
type Engine struct {
	Defs     *state.Defs
	State    *types.State
	RNG      *RNG
	Log      *slog.Logger
	Runner   *runner.Runner
	Scenes   *scene.Runner
	Schedule *schedule.Scheduler

	lastRoom string
	queue    []func(res *types.Result)
	choices  []types.CustomChoice
	chooser  *types.Entity
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed seeds the RNG.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.State.RNGSeed = seed }
}

// WithLogger sets the logger handed to every run.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Log = l
		}
	}
}

// New creates a new engine from definitions.
func New(defs *state.Defs, opts ...Option) *Engine {
	e := &Engine{
		Defs:   defs,
		State:  state.NewState(defs),
		Log:    discard,
		Runner: runner.New(),
		Scenes: scene.New(),
	}
	for _, o := range opts {
		o(e)
	}
	e.RNG = NewRNG(e.State.RNGSeed).Bind(e.State)
	e.Schedule = schedule.New(e.Scenes, e.Runner)
	return e
}

// Context builds the world handle for one call into the interpreter.
func (e *Engine) Context() *state.Context {
	return &state.Context{
		State:  e.State,
		Defs:   e.Defs,
		Roll:   e.RNG.Roll,
		Log:    e.Log,
		Scenes: e.Scenes,
	}
}

// Waiting reports what must happen before free input is accepted.
func (e *Engine) Waiting() string {
	switch {
	case e.Scenes.Active():
		return WaitingScene
	case e.Runner.IsPaused():
		return WaitingPause
	}
	return WaitingNone
}

// Choices are the custom choices offered by the last Action that ran.
func (e *Engine) Choices() []types.CustomChoice {
	return e.choices
}

// Start shows the intro and enters the starting room.
func (e *Engine) Start() *types.Result {
	res := &types.Result{}
	if intro := e.Defs.Game.Intro; intro != "" {
		res.Texts = append(res.Texts, effects.Interpolate(intro, e.Context()))
	}
	e.settle(res)
	return res
}

// Step processes one line of player input.
func (e *Engine) Step(input string) *types.Result {
	res := &types.Result{}
	if e.State.GameOver {
		res.Texts = append(res.Texts, "The story is over. Use /load to restore a save or /quit to exit.")
		return res
	}

	intent := parser.Parse(input)
	if intent.Verb == "" {
		res.Texts = append(res.Texts, "What do you want to do?")
		return res
	}
	e.Log.Debug("step", "verb", intent.Verb, "object", intent.Object, "target", intent.Target, "waiting", e.Waiting())
	e.State.TurnCount++

	switch e.Waiting() {
	case WaitingScene:
		e.sceneInput(intent, input, res)
	case WaitingPause:
		if intent.Verb == parser.VerbContinue {
			owner := e.Runner.Entity()
			e.absorb(e.Runner.Resume(), owner, res)
		} else {
			res.Texts = append(res.Texts, "(type continue)")
		}
	default:
		e.dispatch(intent, res)
	}

	e.settle(res)
	return res
}

// Resume continues whatever the engine is waiting on.
func (e *Engine) Resume() *types.Result {
	res := &types.Result{}
	switch e.Waiting() {
	case WaitingScene:
		effects.Merge(res, e.Scenes.Advance())
	case WaitingPause:
		owner := e.Runner.Entity()
		e.absorb(e.Runner.Resume(), owner, res)
	}
	e.settle(res)
	return res
}

// Trigger starts a named trigger on an entity, the current room when e is
// nil.
func (e *Engine) Trigger(name string, ent *types.Entity) *types.Result {
	res := &types.Result{}
	if ent == nil {
		ent, _ = e.Context().CurrentRoom()
	}
	e.start(name, ent, res)
	e.settle(res)
	return res
}

// Wait advances the clock hour by hour. Each hour ticks every timer and
// then the scheduler; waiting stops early when something needs the player.
func (e *Engine) Wait(hours int) *types.Result {
	res := &types.Result{}
	e.wait(hours, res)
	e.settle(res)
	return res
}

func (e *Engine) wait(hours int, res *types.Result) {
	if hours <= 0 {
		hours = 1
	}
	for h := 0; h < hours; h++ {
		e.State.Clock.Hour++
		if e.State.Clock.Hour >= 24 {
			e.State.Clock.Hour = 0
			e.State.Clock.Day++
		}
		e.tickTimers(res)
		if e.Waiting() != WaitingNone || e.State.GameOver {
			return
		}
		e.absorb(e.Schedule.Tick(schedule.WhenTick, e.Context()), nil, res)
		if e.Waiting() != WaitingNone || e.State.GameOver {
			return
		}
	}
}

// tickTimers fires <<On Tick>> on every timer, run to completion. A timer
// whose Active field is false is skipped.
func (e *Engine) tickTimers(res *types.Result) {
	ids := make([]string, 0, len(e.State.Timers))
	for id := range e.State.Timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ctx := e.Context()
	for _, id := range ids {
		timer := e.State.Timers[id]
		if active, ok := timer.Fields["Active"].(bool); ok && !active {
			continue
		}
		effects.Merge(res, events.RunTrigger(events.TriggerTick, timer, ctx))
	}
}

// sceneInput routes input while a scene is active. Text that names a
// visible choice by id or label picks it.
func (e *Engine) sceneInput(intent types.Intent, input string, res *types.Result) {
	switch intent.Verb {
	case parser.VerbContinue:
		effects.Merge(res, e.Scenes.Advance())
	case parser.VerbChoose:
		effects.Merge(res, e.Scenes.Choose(intent.Object))
	case parser.VerbLook:
		res.SceneData = e.Scenes.View()
	default:
		if id, ok := sceneChoice(e.Scenes.View(), input); ok {
			effects.Merge(res, e.Scenes.Choose(id))
			return
		}
		res.Texts = append(res.Texts, "(continue, or choose an option)")
		res.SceneData = e.Scenes.View()
	}
}

func sceneChoice(v *types.SceneView, input string) (string, bool) {
	if v == nil {
		return "", false
	}
	input = strings.TrimSpace(input)
	for _, ch := range v.Choices {
		if strings.EqualFold(ch.ID, input) || strings.EqualFold(ch.Text, input) {
			return ch.ID, true
		}
	}
	return "", false
}

// SceneView renders the active scene, or nil.
func (e *Engine) SceneView() *types.SceneView {
	return e.Scenes.View()
}

func (e *Engine) dispatch(intent types.Intent, res *types.Result) {
	switch intent.Verb {
	case parser.VerbGo:
		e.goTo(intent.Object, res)

	case parser.VerbUse:
		e.interact(intent.Object, types.KindObject, events.TriggerUse, "Nothing happens.", res)

	case parser.VerbTalk:
		e.interact(intent.Object, types.KindCharacter, events.TriggerTalk, "There is no answer.", res)

	case parser.VerbTrigger:
		ent, ok := e.triggerTarget(intent.Target)
		if !ok {
			res.Texts = append(res.Texts, "There is no "+intent.Target+" here.")
			return
		}
		e.start(intent.Object, ent, res)

	case parser.VerbChoose:
		e.chooseCustom(intent.Object, res)

	case parser.VerbWait:
		hours, err := strconv.Atoi(intent.Object)
		if err != nil {
			hours = 1
		}
		res.Texts = append(res.Texts, "Time passes.")
		e.wait(hours, res)

	case parser.VerbLook:
		e.describe(res)

	case parser.VerbInventory:
		e.inventory(res)

	case parser.VerbContinue:
		res.Texts = append(res.Texts, "There is nothing to continue.")

	default:
		res.Texts = append(res.Texts, "I don't understand that.")
	}
}

func (e *Engine) interact(name string, kind types.EntityKind, trigger, nothing string, res *types.Result) {
	if name == "" {
		res.Texts = append(res.Texts, "With what?")
		return
	}
	m, err := resolve.ResolveName(e.State, name, kind)
	if err != nil {
		res.Texts = append(res.Texts, err.Error())
		return
	}
	ent, _ := state.Entity(e.State, m.Kind, m.ID)
	out := e.start(trigger, ent, res)
	if !out.DidSomething && out.SceneData == nil && len(out.Choices) == 0 {
		res.Texts = append(res.Texts, nothing)
	}
}

func (e *Engine) triggerTarget(ref string) (*types.Entity, bool) {
	ctx := e.Context()
	if ref == "" {
		return ctx.CurrentRoom()
	}
	return rules.EntityRef(ref, ctx)
}

func (e *Engine) chooseCustom(choice string, res *types.Result) {
	if len(e.choices) == 0 || e.chooser == nil {
		res.Texts = append(res.Texts, "There is nothing to choose.")
		return
	}
	picked, ok := pickChoice(e.choices, choice)
	if !ok {
		res.Texts = append(res.Texts, "That is not one of the options.")
		return
	}
	ent := e.chooser
	e.choices, e.chooser = nil, nil
	e.start(picked.Trigger, ent, res)
}

func pickChoice(choices []types.CustomChoice, choice string) (types.CustomChoice, bool) {
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	for _, c := range choices {
		if strings.EqualFold(c.Trigger, choice) || strings.EqualFold(c.Text, choice) {
			return c, true
		}
	}
	return types.CustomChoice{}, false
}

// start begins a trigger on the Command Runner and returns the run's own
// output, already merged into res.
func (e *Engine) start(trigger string, ent *types.Entity, res *types.Result) *types.Result {
	if ent == nil {
		return &types.Result{}
	}
	out := e.Runner.Start(trigger, ent, e.Context())
	e.absorb(out, ent, res)
	return out
}

// absorb merges a run's output and remembers the custom choices it offered.
// A nil ent means the run was started elsewhere, so the choices belong to
// the Runner's latest entity.
func (e *Engine) absorb(out *types.Result, ent *types.Entity, res *types.Result) {
	if out == nil {
		return
	}
	effects.Merge(res, out)
	if len(out.Choices) > 0 {
		if ent == nil {
			ent = e.Runner.Entity()
		}
		e.choices, e.chooser = out.Choices, ent
	}
}

// settle finishes a step: surfaces spawned encounters, handles room changes
// and drains queued triggers while nothing waits on the player.
func (e *Engine) settle(res *types.Result) {
	arrivals := 0
	for !e.State.GameOver {
		e.surfaceEncounter(res)
		if e.Waiting() != WaitingNone {
			break
		}
		if e.State.CurrentRoom != e.lastRoom {
			if arrivals >= maxArrivals {
				res.Errors = append(res.Errors, "too many room changes in one step")
				e.lastRoom = e.State.CurrentRoom
				break
			}
			arrivals++
			e.arrive(res)
			continue
		}
		if len(e.queue) == 0 {
			break
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		next(res)
	}
}

// arrive fires the leave trigger of the previous room, describes the new
// one and queues its enter triggers and planned events.
func (e *Engine) arrive(res *types.Result) {
	ctx := e.Context()
	if old, ok := e.State.Rooms[e.lastRoom]; ok {
		effects.Merge(res, events.RunTrigger(events.TriggerPlayerLeave, old, ctx))
	}
	e.lastRoom = e.State.CurrentRoom
	e.queue = nil
	e.choices, e.chooser = nil, nil
	e.Log.Debug("player entered room", "room", e.lastRoom)

	e.describe(res)
	room, ok := ctx.CurrentRoom()
	if !ok {
		return
	}
	e.queue = append(e.queue,
		func(res *types.Result) { e.start(events.TriggerPlayerEnterFirstTime, room, res) },
		func(res *types.Result) { e.start(events.TriggerPlayerEnter, room, res) },
		func(res *types.Result) {
			e.absorb(e.Schedule.Tick(schedule.WhenEnter, e.Context()), nil, res)
		},
	)
}

// surfaceEncounter reports a spawn left by the last run and clears it.
func (e *Engine) surfaceEncounter(res *types.Result) {
	enc := e.State.Spawn.PendingEncounter
	if enc == nil {
		return
	}
	e.State.Spawn.PendingEncounter = nil
	if enc.EntityID == "" {
		return
	}
	name := enc.EntityID
	if c, ok := e.State.Characters[enc.EntityID]; ok && c.Name != "" {
		name = c.Name
	}
	switch enc.Kind {
	case "combat":
		res.Texts = append(res.Texts, name+" attacks!")
		if res.StartCombatEnemyID == "" {
			res.StartCombatEnemyID = enc.EntityID
		}
	default:
		res.Texts = append(res.Texts, name+" approaches.")
	}
}

// SaveGame serializes the state and the position of an active scene.
// Paused action runs are not saved.
func (e *Engine) SaveGame() ([]byte, error) {
	var sd *save.SceneData
	if id, stage, page, ok := e.Scenes.Position(); ok {
		sd = &save.SceneData{SceneID: id, StageID: stage, Page: page}
	}
	return save.Save(e.State, e.Defs, sd)
}

// ErrSceneNotRestored is returned when a save names a scene position the
// content no longer has. The rest of the save is applied.
var ErrSceneNotRestored = errors.New("saved scene position no longer exists")

// LoadGame replaces the state with a save.
func (e *Engine) LoadGame(data []byte) (*save.SaveData, error) {
	sd, err := save.Load(data)
	if err != nil {
		return nil, err
	}
	save.ApplySave(e.State, e.Defs, sd)
	e.RNG = RestoreRNG(sd.RNGSeed, sd.RNGPosition).Bind(e.State)
	e.Runner.Clear()
	e.Scenes.Clear()
	e.queue = nil
	e.choices, e.chooser = nil, nil
	e.lastRoom = e.State.CurrentRoom

	if sd.Scene != nil && !e.Scenes.Restore(sd.Scene.SceneID, sd.Scene.StageID, sd.Scene.Page, e.Context()) {
		return sd, ErrSceneNotRestored
	}
	return sd, nil
}
