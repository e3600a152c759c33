package loader

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// content accumulates authored definitions from every file before they are
// compiled. Lua constructors and JSON documents both feed it.
type content struct {
	game       fields
	player     fields
	rooms      []sourced
	objects    []sourced
	characters []sourced
	timers     []sourced
	scenes     []sourced
	events     []sourced
	citizens   []sourced
	enemies    []sourced
	texts      map[string]string
	globals    map[string]any
	aliases    map[string]string

	seen     map[string]string
	problems []string
}

// sourced is an entry tagged with the file it came from.
type sourced struct {
	entry
	source string
}

func newContent() *content {
	return &content{
		texts:   map[string]string{},
		globals: map[string]any{},
		aliases: map[string]string{},
		seen:    map[string]string{},
	}
}

// add records one definition of a section, reporting a missing or repeated
// id.
func (c *content) add(section string, list *[]sourced, e entry, source string) {
	if e.fields == nil {
		c.problems = append(c.problems, fmt.Sprintf("%s: %s entry is not an object", source, section))
		return
	}
	if e.id == "" {
		c.problems = append(c.problems, fmt.Sprintf("%s: %s entry without an id", source, section))
		return
	}
	key := section + ":" + e.id
	if first, dup := c.seen[key]; dup {
		c.problems = append(c.problems, fmt.Sprintf("%s: duplicate %s id %q (first defined in %s)", source, section, e.id, first))
		return
	}
	c.seen[key] = source
	*list = append(*list, sourced{entry: e, source: source})
}

func (c *content) setGame(f fields, source string) {
	if c.game != nil {
		c.problems = append(c.problems, source+": game defined more than once")
		return
	}
	c.game = f
}

// addDocument reads the sections of one JSON document.
func (c *content) addDocument(doc fields, source string) {
	if g := doc.object("game"); g != nil {
		c.setGame(g, source)
	}
	if p := doc.object("player"); p != nil {
		c.player = p
	}
	sections := []struct {
		name string
		list *[]sourced
	}{
		{"room", &c.rooms},
		{"object", &c.objects},
		{"character", &c.characters},
		{"timer", &c.timers},
		{"scene", &c.scenes},
		{"event", &c.events},
		{"citizen", &c.citizens},
		{"enemy", &c.enemies},
	}
	plural := map[string]string{"enemy": "enemies", "citizen": "citizens"}
	for _, s := range sections {
		key := s.name + "s"
		if p, ok := plural[s.name]; ok {
			key = p
		}
		v, _ := doc.pick(key)
		for _, e := range entries(v) {
			c.add(s.name, s.list, e, source)
		}
	}
	for k, v := range doc.object("texts") {
		c.texts[k] = textValue(v)
	}
	for k, v := range doc.object("globals") {
		c.globals[k] = v
	}
	for k, v := range doc.object("aliases") {
		if s, ok := v.(string); ok {
			c.aliases[k] = s
		}
	}
}

func textValue(v any) string {
	return fields{"t": v}.text("t")
}

// compile converts the collected definitions into Defs.
func compile(c *content) (*state.Defs, error) {
	if c.game == nil {
		return nil, fmt.Errorf("no game definition found")
	}
	defs := state.NewDefs()
	defs.Game = compileGame(c.game)
	if c.player != nil {
		defs.Player = compileEntity(types.KindPlayer, "player", c.player)
	}

	for _, s := range []struct {
		kind types.EntityKind
		list []sourced
		into map[string]*types.Entity
	}{
		{types.KindRoom, c.rooms, defs.Rooms},
		{types.KindObject, c.objects, defs.Objects},
		{types.KindCharacter, c.characters, defs.Characters},
		{types.KindTimer, c.timers, defs.Timers},
	} {
		for _, e := range s.list {
			s.into[e.id] = compileEntity(s.kind, e.id, e.fields)
		}
	}

	for _, e := range c.scenes {
		defs.Scenes[e.id] = compileScene(e.id, e.fields)
		defs.SceneOrder = append(defs.SceneOrder, e.id)
	}
	for _, e := range c.events {
		defs.Events = append(defs.Events, compileEvent(e.id, e.fields))
	}
	for _, e := range c.citizens {
		defs.Citizens = append(defs.Citizens, compileTemplate(e.id, e.fields))
	}
	for _, e := range c.enemies {
		defs.Enemies = append(defs.Enemies, compileTemplate(e.id, e.fields))
	}
	for k, v := range c.texts {
		defs.Texts[k] = v
	}
	for k, v := range c.globals {
		defs.Globals[k] = v
	}
	for k, v := range c.aliases {
		defs.Aliases[k] = v
	}
	return defs, nil
}

func compileGame(f fields) types.GameDef {
	return types.GameDef{
		Title:   f.str("Title", "title"),
		Author:  f.str("Author", "author"),
		Version: f.str("Version", "version"),
		Start:   f.str("Start", "start", "StartRoom", "start_room"),
		Intro:   f.text("Intro", "intro"),
	}
}

// entity keys that are not copied into Fields.
var entityMeta = map[string]bool{
	"id": true, "name": true, "kind": true,
	"actions": true, "customproperties": true, "custom_properties": true,
}

// canonical spellings of the Fields the runtime reads.
var fieldNames = map[string]string{
	"location":    "Location",
	"description": "Description",
	"desc":        "Description",
	"exits":       "Exits",
	"stats":       "Stats",
	"inventory":   "Inventory",
	"type":        "Type",
	"hidden":      "Hidden",
	"active":      "Active",
}

func compileEntity(kind types.EntityKind, id string, f fields) *types.Entity {
	e := &types.Entity{
		ID:     id,
		Kind:   kind,
		Name:   f.str("Name", "name"),
		Fields: map[string]any{},
	}
	for k, v := range f {
		lower := strings.ToLower(k)
		if entityMeta[lower] {
			continue
		}
		if canon, ok := fieldNames[lower]; ok {
			k = canon
		}
		e.Fields[k] = v
	}
	e.CustomProperties = compileCustomProperties(f)
	for _, a := range f.list("Actions", "actions") {
		if af := asFields(a); af != nil {
			e.Actions = append(e.Actions, compileAction(af))
		}
	}
	return e
}

// compileCustomProperties keeps list order. An object form is read in key
// order since it carries none.
func compileCustomProperties(f fields) []types.CustomProperty {
	v, ok := f.pick("CustomProperties", "custom_properties")
	if !ok {
		return nil
	}
	var out []types.CustomProperty
	if list, isList := v.([]any); isList {
		for _, item := range list {
			pf := asFields(item)
			name := pf.str("Name", "name", "Property")
			if name == "" {
				continue
			}
			val, _ := pf.pick("Value", "value")
			out = append(out, types.CustomProperty{Name: name, Value: val})
		}
		return out
	}
	m, _ := v.(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, types.CustomProperty{Name: k, Value: m[k]})
	}
	return out
}

func compileAction(f fields) types.Action {
	a := types.Action{
		Name:                 f.str("Name", "name", "Trigger", "trigger"),
		OverrideName:         f.str("OverrideName", "override_name", "override"),
		Active:               f.boolean(true, "Active", "bActive"),
		RequireAllConditions: f.boolean(true, "RequireAllConditions", "bConditionFailOnFirst", "require_all"),
		PassCommands:         compileNodes(f.list("PassCommands", "pass", "then", "commands")),
		FailCommands:         compileNodes(f.list("FailCommands", "fail", "else")),
		TriggerScene:         f.str("TriggerScene", "trigger_scene", "scene"),
	}
	for _, c := range f.list("Conditions", "conditions") {
		if cf := asFields(c); cf != nil {
			a.Conditions = append(a.Conditions, compileCondition(cf))
		}
	}
	for _, c := range f.list("CustomChoices", "custom_choices", "choices") {
		if s, ok := c.(string); ok {
			a.CustomChoices = append(a.CustomChoices, types.CustomChoice{Text: s, Trigger: s})
			continue
		}
		cf := asFields(c)
		text := cf.str("Text", "text", "Name")
		trigger := cf.str("Trigger", "trigger", "Action")
		if trigger == "" {
			trigger = text
		}
		if trigger != "" {
			a.CustomChoices = append(a.CustomChoices, types.CustomChoice{Text: text, Trigger: trigger})
		}
	}
	a.TriggerSceneCandidates = f.strings("TriggerSceneCandidates", "scene_candidates", "scenes")
	return a
}

// compileNodes keeps authored order. A string is shorthand for displaying
// it; something that is neither a command nor a condition is dropped.
func compileNodes(list []any) []types.Node {
	var nodes []types.Node
	for _, item := range list {
		switch v := item.(type) {
		case string:
			nodes = append(nodes, types.Node{Command: &types.Command{Kind: types.CmdDisplayText, Text: v}})
		case map[string]any:
			f := fields(v)
			if f.has("Checks", "checks") {
				c := compileCondition(f)
				nodes = append(nodes, types.Node{Condition: &c})
				continue
			}
			if cmd, ok := compileCommand(f); ok {
				nodes = append(nodes, types.Node{Command: &cmd})
			}
		}
	}
	return nodes
}

func compileCondition(f fields) types.Condition {
	c := types.Condition{
		Name:         f.str("Name", "name"),
		PassCommands: compileNodes(f.list("PassCommands", "pass", "then")),
		FailCommands: compileNodes(f.list("FailCommands", "fail", "else")),
	}
	for _, ch := range f.list("Checks", "checks") {
		if cf := asFields(ch); cf != nil {
			c.Checks = append(c.Checks, compileCheck(cf))
		}
	}
	return c
}

func compileCheck(f fields) types.Check {
	return types.Check{
		CondType: condType(f.str("condType", "CondType", "ConditionType", "type")),
		Join:     joinType(f.str("Join", "CkType", "join", "JoinType")),
		Step2:    f.str("Step2", "ConditionStep2", "step2"),
		Step3:    f.str("Step3", "ConditionStep3", "step3"),
		Step4:    f.str("Step4", "ConditionStep4", "step4"),
	}
}

func compileCommand(f fields) (types.Command, bool) {
	kind := f.str("kind", "Kind", "cmdtype", "CommandName", "cmd")
	if kind == "" {
		return types.Command{}, false
	}
	return types.Command{
		Kind:  commandKind(kind),
		Text:  f.text("CommandText", "Text", "text", "run"),
		Part2: f.str("CommandPart2", "Part2", "part2"),
		Part3: f.str("CommandPart3", "Part3", "part3"),
		Part4: f.str("CommandPart4", "Part4", "part4"),
	}, true
}

func compileCommands(list []any) []types.Command {
	var out []types.Command
	for _, n := range compileNodes(list) {
		if n.Command != nil {
			out = append(out, *n.Command)
		}
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func squash(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

var commandKinds = func() map[string]types.CommandKind {
	m := map[string]types.CommandKind{}
	for _, k := range []types.CommandKind{
		types.CmdDisplayText, types.CmdSetVariable, types.CmdDisplayPicture,
		types.CmdPauseGame, types.CmdStartCombat, types.CmdSpawnRandomCitizen,
		types.CmdSpawnRandomEnemyEncounter, types.CmdTrySpicyEvent,
		types.CmdPlayerSetCustomProperty, types.CmdRoomSetCustomProperty,
		types.CmdObjectSetCustomProperty, types.CmdCharacterSetCustomProperty,
		types.CmdStartScene, types.CmdSetFlag, types.CmdGiveItem,
		types.CmdRemoveItem, types.CmdMovePlayer, types.CmdEndGame,
	} {
		m[squash(string(k))] = k
	}
	for alias, k := range map[string]types.CommandKind{
		"say": types.CmdDisplayText, "text": types.CmdDisplayText,
		"setvar": types.CmdSetVariable, "picture": types.CmdDisplayPicture,
		"pause": types.CmdPauseGame, "scene": types.CmdStartScene,
		"moveto": types.CmdMovePlayer, "end": types.CmdEndGame,
		"flag": types.CmdSetFlag, "give": types.CmdGiveItem,
	} {
		m[alias] = k
	}
	return m
}()

// commandKind maps any spelling of a known kind ("DISPLAY_TEXT",
// "CT_DISPLAYTEXT", "say") to its constant. Unknown kinds are kept so the
// runtime can report them.
func commandKind(raw string) types.CommandKind {
	key := strings.TrimPrefix(squash(raw), "ct")
	if k, ok := commandKinds[key]; ok {
		return k
	}
	if k, ok := commandKinds[squash(raw)]; ok {
		return k
	}
	return types.CommandKind(strings.ToUpper(strings.TrimSpace(raw)))
}

// KnownCommand reports whether kind is one the runtime executes.
func KnownCommand(kind types.CommandKind) bool {
	k, ok := commandKinds[squash(string(kind))]
	return ok && k == kind
}

var condTypes = map[string]types.CondType{
	"uninitialized":   types.CTUninitialized,
	"always":          types.CTUninitialized,
	"variablecompare": types.CTVariableCompare,
	"compare":         types.CTVariableCompare,
	"percentchance":   types.CTPercentChance,
	"chance":          types.CTPercentChance,
	"entityproperty":  types.CTEntityProperty,
	"property":        types.CTEntityProperty,
	"loopwhile":       types.CTLoopWhile,
	"while":           types.CTLoopWhile,
	"flag":            types.CTFlag,
	"scenecompleted":  types.CTSceneCompleted,
	"expression":      types.CTExpression,
	"condstr":         types.CTExpression,
	"hasitem":         types.CTHasItem,
}

// condType maps any spelling of a known check type to its constant. An
// empty type is an unconditional pass.
func condType(raw string) types.CondType {
	key := squash(raw)
	if key == "" {
		return types.CTUninitialized
	}
	if t, ok := condTypes[strings.TrimPrefix(key, "ct")]; ok {
		return t
	}
	if t, ok := condTypes[key]; ok {
		return t
	}
	return types.CondType(strings.TrimSpace(raw))
}

// KnownCondType reports whether t is a check type the evaluator knows.
func KnownCondType(t types.CondType) bool {
	for _, known := range condTypes {
		if known == t {
			return true
		}
	}
	return false
}

func joinType(raw string) types.JoinType {
	key := squash(raw)
	switch {
	case strings.HasSuffix(key, "and"):
		return types.JoinAnd
	case strings.HasSuffix(key, "or"):
		return types.JoinOr
	}
	return types.JoinNone
}

func compileScene(id string, f fields) *types.Scene {
	sc := &types.Scene{
		ID:            id,
		Title:         f.str("Title", "title", "Name"),
		Repeatable:    f.boolean(false, "Repeatable", "repeatable"),
		RequiredFlags: f.strings("RequiredFlags", "required_flags", "requires"),
		StartIf:       f.str("StartIf", "start_if"),
		StartStage:    f.str("StartStage", "start_stage", "start"),
	}
	stages, _ := f.pick("Stages", "stages")
	for _, e := range entries(stages) {
		sc.Stages = append(sc.Stages, compileStage(e.id, e.fields))
	}
	rewards := f.object("Rewards", "rewards")
	if on := rewards.object("OnComplete", "on_complete"); on != nil {
		rewards = on
	}
	sc.Rewards.OnComplete = compileReward(rewards)
	return sc
}

func compileStage(id string, f fields) types.Stage {
	if own := f.str("StageID", "stage_id"); own != "" {
		id = own
	}
	st := types.Stage{
		ID:                id,
		Text:              f.text("Text", "text", "TextLines", "text_lines"),
		Paragraphs:        f.strings("Paragraphs", "paragraphs"),
		Media:             f.str("Media", "media", "Image"),
		Effects:           compileCommands(f.list("Effects", "effects")),
		NextStage:         f.str("NextStage", "next_stage", "next"),
		IsEnd:             f.boolean(false, "IsEnd", "is_end", "end"),
		ChunkByParagraphs: f.boolean(false, "ChunkByParagraphs", "chunk_by_paragraphs"),
		ParagraphsPerPage: f.intOr(0, "ParagraphsPerPage", "paragraphs_per_page"),
	}
	// AutoAdvance is a flag or a delay in milliseconds.
	if v, ok := f.pick("AutoAdvance", "auto_advance"); ok {
		if _, isBool := v.(bool); isBool {
			st.AutoAdvance = v.(bool)
		} else if ms, ok := f.integer("AutoAdvance", "auto_advance"); ok && ms > 0 {
			st.AutoAdvance = true
			st.AutoAdvanceDelayMs = ms
		}
	}
	if ms, ok := f.integer("AutoAdvanceDelayMs", "AutoAdvanceMs", "auto_advance_ms"); ok && ms > 0 {
		st.AutoAdvanceDelayMs = ms
	}
	for _, c := range f.list("Choices", "choices") {
		if cf := asFields(c); cf != nil {
			st.Choices = append(st.Choices, compileChoice(cf))
		}
	}
	return st
}

func compileChoice(f fields) types.Choice {
	return types.Choice{
		ID:            f.str("ID", "id", "ChoiceID"),
		Text:          f.text("Text", "text"),
		ShowIf:        f.str("ShowIf", "show_if"),
		Effects:       compileCommands(f.list("Effects", "effects")),
		EnergyCost:    f.intOr(0, "EnergyCost", "energy_cost"),
		ExpCost:       f.intOr(0, "ExpCost", "exp_cost"),
		ChanceSuccess: f.intPtr("ChanceSuccess", "chance_success", "chance"),
		OnSuccess:     compileOutcome(f, "OnSuccess", "on_success"),
		OnFailure:     compileOutcome(f, "OnFailure", "on_failure"),
		NextStage:     f.str("NextStage", "next_stage", "next"),
	}
}

// compileOutcome reads a stage id or an inline outcome object.
func compileOutcome(f fields, keys ...string) *types.Outcome {
	v, ok := f.pick(keys...)
	if !ok {
		return nil
	}
	if s, isStr := v.(string); isStr {
		if s == "" {
			return nil
		}
		return &types.Outcome{StageID: s}
	}
	of := asFields(v)
	if of == nil {
		return nil
	}
	return &types.Outcome{
		StageID:   of.str("StageID", "stage_id", "stage"),
		Text:      of.text("Text", "text"),
		NextStage: of.str("NextStage", "next_stage", "next"),
		GainExp:   of.intOr(0, "GainExp", "gain_exp", "exp"),
	}
}

func compileReward(f fields) types.Reward {
	return types.Reward{
		Exp:     f.intOr(0, "Exp", "exp", "Experience"),
		Credits: f.intOr(0, "Credits", "credits"),
		Flags:   f.strings("Flags", "flags"),
		Items:   f.strings("Items", "items"),
	}
}

func compileEvent(id string, f fields) types.PlannedEvent {
	return types.PlannedEvent{
		ID:                id,
		When:              strings.ToLower(f.str("When", "when")),
		Location:          f.str("Location", "location", "loc"),
		Target:            f.str("Target", "target"),
		Day:               f.str("Day", "day"),
		Hour:              f.intPtr("Hour", "hour"),
		Prob:              f.intPtr("Prob", "prob", "probability"),
		Reqs:              f.strings("Reqs", "reqs", "requires"),
		CondStr:           f.str("CondStr", "cond_str", "condition"),
		Action:            f.str("Action", "action"),
		Priority:          f.intOr(0, "Priority", "priority"),
		ThreadName:        f.str("ThreadName", "thread_name", "thread"),
		Rewards:           compileReward(f.object("Rewards", "rewards")),
		Repeatable:        f.boolean(false, "Repeatable", "repeatable"),
		CompleteOnTrigger: f.boolean(false, "CompleteOnTrigger", "complete_on_trigger"),
	}
}

func compileTemplate(id string, f fields) types.SpawnTemplate {
	t := types.SpawnTemplate{
		ID:     id,
		Name:   f.str("Name", "name"),
		Weight: f.intOr(1, "Weight", "weight"),
		Tags:   f.strings("Tags", "tags"),
		Fields: map[string]any{},
	}
	for k, v := range f {
		switch strings.ToLower(k) {
		case "id", "name", "weight", "tags":
			continue
		}
		if canon, ok := fieldNames[strings.ToLower(k)]; ok {
			k = canon
		}
		t.Fields[k] = v
	}
	return t
}
