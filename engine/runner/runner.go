// Package runner implements the resumable Command Runner. A run walks the
// matching Actions of one trigger and can stop after any Command: on a
// pause it keeps its place for Resume, on a hand-off to a scene or combat it
// is dropped.
package runner

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/nathoo/taleweaver/engine/effects"
	"github.com/nathoo/taleweaver/engine/events"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

type phase int

const (
	phaseConditions phase = iota
	phaseAction
	phaseScene
)

// actionState is the progress through the current Action.
type actionState struct {
	condIndex int
	passed    bool
	phase     phase
	iter      *Iterator
}

type run struct {
	id          string
	trigger     string
	ctx         *state.Context
	log         *slog.Logger
	actions     []types.Action
	actionIndex int
	state       actionState
}

// Runner holds at most one active run.
type Runner struct {
	run  *run
	last *types.Entity
}

// New returns an idle Runner.
func New() *Runner {
	return &Runner{}
}

// Start begins a run of every active Action on e that answers trigger,
// replacing any run in progress. It executes until the run finishes, pauses
// or hands off.
func (r *Runner) Start(trigger string, e *types.Entity, ctx *state.Context) *types.Result {
	res := &types.Result{}
	if r.run != nil {
		r.run.log.Debug("run replaced", "trigger", trigger)
		r.run = nil
	}
	r.last = nil
	if e == nil {
		return res
	}

	sub := ctx.WithSelf(e)
	actions := events.Matching(e, trigger, sub)
	if len(actions) == 0 {
		return res
	}
	r.last = e

	id := uuid.NewString()
	r.run = &run{
		id:      id,
		trigger: trigger,
		ctx:     sub,
		log:     sub.Logger().With("run_id", id, "trigger", trigger, "entity", e.ID),
		actions: actions,
		state:   newActionState(actions[0]),
	}
	r.run.log.Debug("run started", "actions", len(actions))
	r.step(res)
	return res
}

// Resume continues a paused run from the Command after the one that paused
// it. Without a run it returns an empty Result.
func (r *Runner) Resume() *types.Result {
	res := &types.Result{}
	if r.run == nil {
		return res
	}
	r.run.log.Debug("run resumed")
	r.step(res)
	return res
}

// IsPaused reports whether a run is waiting for Resume.
func (r *Runner) IsPaused() bool {
	return r.run != nil
}

// Clear abandons the active run.
func (r *Runner) Clear() {
	r.run, r.last = nil, nil
}

// Entity is the entity the latest run was started on. It outlives the run
// so callers can attribute its output, and is nil when the latest Start
// matched no Action.
func (r *Runner) Entity() *types.Entity {
	return r.last
}

// RunID identifies the active run, or is empty when idle.
func (r *Runner) RunID() string {
	if r.run == nil {
		return ""
	}
	return r.run.id
}

func newActionState(a types.Action) actionState {
	return actionState{
		passed: events.InitialOutcome(a),
		phase:  phaseConditions,
		iter:   &Iterator{},
	}
}

// step drives the run until it finishes, pauses or hands off.
func (r *Runner) step(res *types.Result) {
	for r.run != nil {
		run := r.run
		if !r.drain(res) {
			return
		}

		a := run.actions[run.actionIndex]
		st := &run.state
		switch st.phase {
		case phaseConditions:
			if st.condIndex < len(a.Conditions) {
				c := a.Conditions[st.condIndex]
				st.condIndex++
				ok := st.iter.Enter(c, run.ctx, res)
				st.passed = events.Accumulate(a, st.passed, ok)
				continue
			}
			st.iter.Push(events.Branch(a, st.passed))
			st.phase = phaseAction

		case phaseAction:
			res.Choices = append(res.Choices, a.CustomChoices...)
			st.phase = phaseScene

		case phaseScene:
			events.StartTriggerScene(a, run.ctx, res)
			if effects.HandedOff(res) {
				r.handOff(res)
				return
			}
			run.actionIndex++
			if run.actionIndex >= len(run.actions) {
				run.log.Debug("run finished")
				r.run = nil
				return
			}
			run.state = newActionState(run.actions[run.actionIndex])
		}
	}
}

// drain applies Commands from the current iterator. It returns false when
// a Command paused the run or handed control elsewhere.
func (r *Runner) drain(res *types.Result) bool {
	run := r.run
	for {
		cmd, ok := run.state.iter.Next(run.ctx, res)
		if !ok {
			return true
		}
		effects.Apply(cmd, run.ctx, res)
		if effects.HandedOff(res) {
			r.handOff(res)
			return false
		}
		if res.Paused {
			run.log.Debug("run paused", "action", run.actions[run.actionIndex].Name)
			return false
		}
	}
}

func (r *Runner) handOff(res *types.Result) {
	r.run.log.Debug("run handed off", "scene", sceneID(res), "combat", res.StartCombatEnemyID)
	r.run = nil
	res.Paused = true
}

func sceneID(res *types.Result) string {
	if res.SceneData == nil {
		return ""
	}
	return res.SceneData.SceneID
}
