// Package schedule selects and fires PlannedEvents: triggers that depend on
// where and when the player is rather than on an entity's Actions.
package schedule

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/taleweaver/engine/effects"
	"github.com/nathoo/taleweaver/engine/rewards"
	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/engine/runner"
	"github.com/nathoo/taleweaver/engine/scene"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// Moments at which the scheduler is consulted.
const (
	WhenEnter = "enter"
	WhenTick  = "tick"
)

const scenePrefix = "scene:"

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Scheduler fires planned events through the shared runners.
type Scheduler struct {
	Scenes  *scene.Runner
	Runner  *runner.Runner
	Rewards rewards.Func
}

// New returns a scheduler that dispatches to the given runners.
func New(scenes *scene.Runner, r *runner.Runner) *Scheduler {
	return &Scheduler{Scenes: scenes, Runner: r, Rewards: rewards.Apply}
}

// Due returns the events eligible at moment when, highest priority first
// and in authored order within a priority. Each event's probability is
// rolled only after every other gate has passed.
func Due(when string, ctx *state.Context) []types.PlannedEvent {
	var due []types.PlannedEvent
	for _, ev := range ctx.Defs.Events {
		if !eligible(ev, when, ctx) {
			continue
		}
		if ev.Prob != nil && ctx.RollPercent() > *ev.Prob {
			ctx.Logger().Debug("planned event lost its roll", "event", ev.ID, "prob", *ev.Prob)
			continue
		}
		due = append(due, ev)
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Priority > due[j].Priority })
	return due
}

func eligible(ev types.PlannedEvent, when string, ctx *state.Context) bool {
	s := ctx.State
	if ev.When != "" && when != "" && !strings.EqualFold(ev.When, when) {
		return false
	}
	if ev.Location != "" && ev.Location != "*" && ev.Location != s.CurrentRoom {
		return false
	}
	if !dayMatches(ev.Day, s.Clock.Day) {
		return false
	}
	if ev.Hour != nil && *ev.Hour != s.Clock.Hour {
		return false
	}
	if s.CompletedEvents[ev.ID] && !ev.Repeatable {
		return false
	}
	for _, f := range ev.Reqs {
		if !state.GetFlag(s, f) {
			return false
		}
	}
	return ev.CondStr == "" || rules.EvalCondStr(ev.CondStr, ctx)
}

// dayMatches accepts a weekday name (or its first three letters) or a day
// number. Day 1 is a Monday.
func dayMatches(want string, day int) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	if n, err := strconv.Atoi(want); err == nil {
		return n == day
	}
	name := weekdays[((day-1)%7+7)%7]
	return want == name || (len(want) == 3 && strings.HasPrefix(name, want))
}

// Tick fires the due events for moment when. At most one event per thread
// fires, and firing stops once an event leaves a paused run or an active
// scene waiting on the player.
func (s *Scheduler) Tick(when string, ctx *state.Context) *types.Result {
	res := &types.Result{}
	threads := map[string]bool{}
	for _, ev := range Due(when, ctx) {
		if ev.ThreadName != "" && threads[ev.ThreadName] {
			continue
		}
		out, fired := s.Fire(ev, ctx)
		effects.Merge(res, out)
		if !fired {
			continue
		}
		if ev.ThreadName != "" {
			threads[ev.ThreadName] = true
		}
		if s.Runner.IsPaused() || s.Scenes.Active() {
			break
		}
	}
	return res
}

// Fire dispatches one event. "scene:<id>" begins a scene; anything else is
// a trigger name started on the event's target entity, or on the current
// room. fired is false when the scene would not begin, the target does
// not exist or no Action on the target answers the trigger.
func (s *Scheduler) Fire(ev types.PlannedEvent, ctx *state.Context) (res *types.Result, fired bool) {
	log := ctx.Logger().With("event", ev.ID)

	if sceneID, ok := strings.CutPrefix(ev.Action, scenePrefix); ok {
		res = s.Scenes.Begin(strings.TrimSpace(sceneID), ctx)
		if res == nil {
			log.Debug("planned event scene did not begin", "scene", sceneID)
			return &types.Result{}, false
		}
	} else {
		target, ok := s.target(ev, ctx)
		if !ok {
			log.Debug("planned event target not found", "target", ev.Target)
			return &types.Result{Errors: []string{"event " + ev.ID + ": unknown target " + ev.Target}}, false
		}
		res = s.Runner.Start(ev.Action, target, ctx)
		if s.Runner.Entity() == nil {
			log.Debug("planned event matched no action", "target", target.ID, "action", ev.Action)
			return res, false
		}
	}

	if s.Rewards != nil {
		s.Rewards(ev.Rewards, ctx)
	}
	if ev.CompleteOnTrigger {
		ctx.State.CompletedEvents[ev.ID] = true
	}
	log.Debug("planned event fired", "action", ev.Action)
	return res, true
}

func (s *Scheduler) target(ev types.PlannedEvent, ctx *state.Context) (*types.Entity, bool) {
	if strings.TrimSpace(ev.Target) == "" {
		return ctx.CurrentRoom()
	}
	return rules.EntityRef(ev.Target, ctx)
}
