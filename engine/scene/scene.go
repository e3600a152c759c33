// Package scene implements the Scene Runner, a state machine over a scene's
// stage graph. At most one scene is active at a time.
package scene

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nathoo/taleweaver/engine/effects"
	"github.com/nathoo/taleweaver/engine/rewards"
	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// maxAutoHops bounds how many auto-advancing stages one call walks through.
const maxAutoHops = 64

type session struct {
	id    string
	scene *types.Scene
	stage *types.Stage
	pages []string
	page  int
	skips int
	ctx   *state.Context
	log   *slog.Logger
}

// Runner holds the active scene session.
type Runner struct {
	active *session

	// Rewards is applied to Rewards.OnComplete when a scene ends.
	Rewards rewards.Func
}

// New returns an idle Runner that applies rewards with rewards.Apply.
func New() *Runner {
	return &Runner{Rewards: rewards.Apply}
}

// Begin starts a scene and enters its first stage. It returns nil, and
// changes nothing, when the scene is unknown, already completed and not
// repeatable, gated by RequiredFlags or StartIf, or has no start stage.
func (r *Runner) Begin(sceneID string, ctx *state.Context) *types.Result {
	res := &types.Result{}
	if !r.begin(sceneID, ctx, res) {
		return nil
	}
	return res
}

// StartScene lets commands hand off to the Runner.
func (r *Runner) StartScene(sceneID string, ctx *state.Context, res *types.Result) bool {
	return r.begin(sceneID, ctx, res)
}

// Active reports whether a scene is in progress.
func (r *Runner) Active() bool {
	return r.active != nil
}

// SceneID is the active scene's id, or empty.
func (r *Runner) SceneID() string {
	if r.active == nil {
		return ""
	}
	return r.active.scene.ID
}

// View renders the current stage again without side effects. It returns
// nil when no scene is active.
func (r *Runner) View() *types.SceneView {
	if r.active == nil {
		return nil
	}
	return r.view(r.active)
}

// Position reports where the active scene stands, for saving.
func (r *Runner) Position() (sceneID, stageID string, page int, ok bool) {
	if r.active == nil {
		return "", "", 0, false
	}
	return r.active.scene.ID, r.active.stage.ID, r.active.page, true
}

// Restore puts a saved scene position back without firing stage effects.
func (r *Runner) Restore(sceneID, stageID string, page int, ctx *state.Context) bool {
	sc, ok := ctx.Defs.Scenes[sceneID]
	if !ok {
		return false
	}
	st, ok := findStage(sc, stageID)
	if !ok {
		return false
	}
	id := uuid.NewString()
	sess := &session{
		id:    id,
		scene: sc,
		stage: st,
		pages: chunks(st),
		ctx:   ctx,
		log:   ctx.Logger().With("scene", sceneID, "session_id", id),
	}
	sess.page = min(max(page, 0), len(sess.pages)-1)
	r.active = sess
	sess.log.Debug("scene restored", "stage", stageID, "page", sess.page)
	return true
}

// Clear abandons the active scene without completing it.
func (r *Runner) Clear() {
	r.active = nil
}

// Advance shows the next page of the current stage or, on the last page,
// follows NextStage. A stage with choices waits for Choose.
func (r *Runner) Advance() *types.Result {
	res := &types.Result{}
	sess := r.active
	if sess == nil {
		return res
	}
	sess.skips = 0

	if sess.page < len(sess.pages)-1 {
		sess.page++
		r.settle(sess, res)
		return res
	}
	if len(r.visibleChoices(sess)) > 0 {
		res.Errors = append(res.Errors, "pick one of the choices to continue")
		res.SceneData = r.view(sess)
		return res
	}
	r.goTo(sess, sess.stage.NextStage, res)
	return res
}

// Choose picks a choice on the current stage by id, or by its 1-based
// position among the visible choices. A choice the player cannot afford
// leaves the state unchanged.
func (r *Runner) Choose(choice string) *types.Result {
	res := &types.Result{}
	sess := r.active
	if sess == nil {
		res.Errors = append(res.Errors, "no scene is active")
		return res
	}
	sess.skips = 0

	ch, ok := r.findChoice(sess, choice)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("no choice %q here", choice))
		res.SceneData = r.view(sess)
		return res
	}
	if msg, ok := affordable(ch, sess.ctx); !ok {
		res.Errors = append(res.Errors, msg)
		res.SceneData = r.view(sess)
		return res
	}

	ctx := sess.ctx
	p := ctx.State.Player
	if ch.EnergyCost > 0 {
		state.SetStat(p, rewards.StatEnergy, state.Stat(p, rewards.StatEnergy)-float64(ch.EnergyCost))
	}
	if ch.ExpCost > 0 {
		state.SetStat(p, rewards.StatExp, state.Stat(p, rewards.StatExp)-float64(ch.ExpCost))
	}
	sess.log.Debug("choice picked", "stage", sess.stage.ID, "choice", ch.ID)

	effects.Execute(ch.Effects, ctx, res)
	if r.active != sess {
		return res
	}

	next := ch.NextStage
	if ch.ChanceSuccess != nil {
		roll := ctx.RollPercent()
		success := roll <= *ch.ChanceSuccess
		sess.log.Debug("choice chance rolled", "chance", *ch.ChanceSuccess, "roll", roll, "success", success)
		out := ch.OnFailure
		if success {
			out = ch.OnSuccess
		}
		if out != nil {
			next = r.outcome(sess, out, res)
		}
	}
	r.goTo(sess, next, res)
	return res
}

func (r *Runner) begin(sceneID string, ctx *state.Context, res *types.Result) bool {
	log := ctx.Logger().With("scene", sceneID)
	sc, ok := ctx.Defs.Scenes[sceneID]
	if !ok {
		log.Debug("scene not found")
		return false
	}
	if !sc.Repeatable && state.SceneCompleted(ctx.State, sceneID) {
		log.Debug("scene already completed")
		return false
	}
	for _, f := range sc.RequiredFlags {
		if !state.GetFlag(ctx.State, f) {
			log.Debug("scene gated by flag", "flag", f)
			return false
		}
	}
	if sc.StartIf != "" && !rules.EvalCondStr(sc.StartIf, ctx) {
		log.Debug("scene gated by start condition", "start_if", sc.StartIf)
		return false
	}
	start := startStage(sc)
	if _, ok := findStage(sc, start); !ok {
		log.Debug("scene has no start stage", "stage", start)
		return false
	}

	if r.active != nil {
		r.active.log.Debug("scene replaced", "by", sceneID)
	}
	id := uuid.NewString()
	sess := &session{
		id:    id,
		scene: sc,
		ctx:   ctx,
		log:   log.With("session_id", id),
	}
	r.active = sess
	sess.log.Debug("scene begin", "stage", start)

	if r.enter(sess, start, res) {
		r.settle(sess, res)
	}
	return true
}

// enter makes stageID current and fires its effects. It returns false when
// the session is over: the stage is missing or an effect started another
// scene.
func (r *Runner) enter(sess *session, stageID string, res *types.Result) bool {
	st, ok := findStage(sess.scene, stageID)
	if !ok {
		r.abort(sess, fmt.Sprintf("scene %s: unknown stage %q", sess.scene.ID, stageID), res)
		return false
	}
	sess.stage = st
	sess.pages = chunks(st)
	sess.page = 0
	sess.log.Debug("stage entered", "stage", st.ID, "pages", len(sess.pages))

	if st.Media != "" {
		res.Media = st.Media
	}
	effects.Execute(st.Effects, sess.ctx, res)
	if r.active != sess {
		return false
	}

	if r.duplicateIntro(sess, st) {
		sess.skips++
		sess.log.Debug("duplicate intro skipped", "stage", st.ID, "next", st.NextStage)
		return r.enter(sess, st.NextStage, res)
	}
	return true
}

// duplicateIntro reports whether st only repeats the opening line of the
// stage it leads to. At most one stage is skipped per call.
func (r *Runner) duplicateIntro(sess *session, st *types.Stage) bool {
	if sess.skips > 0 || st.IsEnd || len(st.Choices) > 0 || st.NextStage == "" {
		return false
	}
	next, ok := findStage(sess.scene, st.NextStage)
	if !ok {
		return false
	}
	line := openingLine(st)
	return line != "" && line == openingLine(next)
}

// settle decides what the current stage shows: a page, the end of the
// scene, or an immediate move through an auto-advancing stage.
func (r *Runner) settle(sess *session, res *types.Result) {
	delay := 0
	for hops := 0; ; hops++ {
		st := sess.stage
		if sess.page < len(sess.pages)-1 {
			break
		}
		if r.terminal(sess) {
			r.finish(sess, res, delay)
			return
		}
		if !autoAdvances(st) || len(r.visibleChoices(sess)) > 0 {
			break
		}
		if hops >= maxAutoHops {
			res.Errors = append(res.Errors, fmt.Sprintf("scene %s: too many auto-advancing stages", sess.scene.ID))
			break
		}
		if text := r.pageText(sess); text != "" {
			res.Texts = append(res.Texts, text)
		}
		delay = max(delay, st.AutoAdvanceDelayMs)
		if !r.enter(sess, st.NextStage, res) {
			return
		}
	}
	view := r.view(sess)
	view.AutoAdvanceMs = delay
	res.SceneData = view
}

// goTo follows a transition. An empty target ends the scene.
func (r *Runner) goTo(sess *session, stageID string, res *types.Result) {
	if stageID == "" {
		r.finish(sess, res, 0)
		return
	}
	if r.enter(sess, stageID, res) {
		r.settle(sess, res)
	}
}

// outcome applies an inline chance outcome and returns the stage to move
// to.
func (r *Runner) outcome(sess *session, out *types.Outcome, res *types.Result) string {
	if out.StageID != "" {
		return out.StageID
	}
	if text := effects.Interpolate(out.Text, sess.ctx); text != "" {
		res.Texts = append(res.Texts, text)
	}
	if out.GainExp != 0 {
		p := sess.ctx.State.Player
		state.SetStat(p, rewards.StatExp, state.Stat(p, rewards.StatExp)+float64(out.GainExp))
	}
	return out.NextStage
}

// finish completes the scene, grants its rewards and renders the closing
// view.
func (r *Runner) finish(sess *session, res *types.Result, delay int) {
	view := r.view(sess)
	view.Choices = nil
	view.IsEnd = true
	view.AutoAdvanceMs = delay

	state.MarkSceneCompleted(sess.ctx.State, sess.scene.ID)
	if r.Rewards != nil {
		r.Rewards(sess.scene.Rewards.OnComplete, sess.ctx)
	}
	r.active = nil
	res.SceneData = view
	sess.log.Debug("scene ended", "stage", sess.stage.ID)
}

func (r *Runner) abort(sess *session, msg string, res *types.Result) {
	res.Errors = append(res.Errors, msg)
	sess.log.Warn("scene aborted", "reason", msg)
	view := &types.SceneView{SceneID: sess.scene.ID, IsEnd: true}
	if sess.stage != nil {
		view.StageID = sess.stage.ID
	}
	r.active = nil
	res.SceneData = view
}

// terminal reports whether the current stage ends the scene: IsEnd, or
// nowhere left to go.
func (r *Runner) terminal(sess *session) bool {
	st := sess.stage
	return st.IsEnd || (st.NextStage == "" && len(r.visibleChoices(sess)) == 0)
}

func (r *Runner) view(sess *session) *types.SceneView {
	st := sess.stage
	v := &types.SceneView{
		SceneID:    sess.scene.ID,
		StageID:    st.ID,
		Text:       r.pageText(sess),
		Media:      st.Media,
		ChunkIndex: sess.page,
		ChunkCount: len(sess.pages),
	}
	if sess.page == len(sess.pages)-1 {
		for _, ch := range r.visibleChoices(sess) {
			v.Choices = append(v.Choices, types.ChoiceView{ID: ch.ID, Text: effects.Interpolate(ch.Text, sess.ctx)})
		}
	}
	return v
}

func (r *Runner) pageText(sess *session) string {
	return effects.Interpolate(sess.pages[sess.page], sess.ctx)
}

// visibleChoices returns the current stage's choices whose ShowIf passes.
func (r *Runner) visibleChoices(sess *session) []*types.Choice {
	var out []*types.Choice
	for i := range sess.stage.Choices {
		ch := &sess.stage.Choices[i]
		if ch.ShowIf == "" || rules.EvalCondStr(ch.ShowIf, sess.ctx) {
			out = append(out, ch)
		}
	}
	return out
}

func (r *Runner) findChoice(sess *session, choice string) (*types.Choice, bool) {
	if sess.page < len(sess.pages)-1 {
		return nil, false
	}
	visible := r.visibleChoices(sess)
	choice = strings.TrimSpace(choice)
	for _, ch := range visible {
		if ch.ID == choice {
			return ch, true
		}
	}
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(visible) {
		return visible[n-1], true
	}
	return nil, false
}

func affordable(ch *types.Choice, ctx *state.Context) (string, bool) {
	p := ctx.State.Player
	if ch.EnergyCost > 0 && state.Stat(p, rewards.StatEnergy) < float64(ch.EnergyCost) {
		return fmt.Sprintf("not enough energy (needs %d)", ch.EnergyCost), false
	}
	if ch.ExpCost > 0 && state.Stat(p, rewards.StatExp) < float64(ch.ExpCost) {
		return fmt.Sprintf("not enough experience (needs %d)", ch.ExpCost), false
	}
	return "", true
}

func autoAdvances(st *types.Stage) bool {
	return (st.AutoAdvance || st.AutoAdvanceDelayMs > 0) && st.NextStage != ""
}

func startStage(sc *types.Scene) string {
	if sc.StartStage != "" {
		return sc.StartStage
	}
	if len(sc.Stages) > 0 {
		return sc.Stages[0].ID
	}
	return ""
}

func findStage(sc *types.Scene, id string) (*types.Stage, bool) {
	if id == "" {
		return nil, false
	}
	for i := range sc.Stages {
		if sc.Stages[i].ID == id {
			return &sc.Stages[i], true
		}
	}
	return nil, false
}
