package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/nathoo/taleweaver/engine"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the Taleweaver TUI.
type Model struct {
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)
	lastTurn []string  // plain text of the most recent game output, for /copy

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
	saveDir  string
}

// gameOutputMsg carries output from the engine into the Update loop.
type gameOutputMsg struct {
	input    string    // echoed player input (empty for intro)
	lines    []rawLine // output lines
	isSystem bool      // true for meta-command output
}

// New creates a TUI model wired to the given engine. An empty saveDir
// falls back to ~/.taleweaver/saves.
func New(eng *engine.Engine, saveDir string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	if saveDir == "" {
		home, _ := os.UserHomeDir()
		saveDir = filepath.Join(home, ".taleweaver", "saves")
	}
	return Model{
		engine:  eng,
		input:   ti,
		history: NewHistory(100),
		saveDir: saveDir,
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, saveDir string, trace bool) error {
	m := New(eng, saveDir)
	m.trace = trace
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that produces the title, intro and
// first room.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	eng := m.engine
	trace := m.trace
	return func() tea.Msg {
		game := eng.Defs.Game
		title := game.Title
		if game.Version != "" {
			title += " v" + game.Version
		}
		if game.Author != "" {
			title += " by " + game.Author
		}
		lines := []rawLine{{text: title, kind: kindTitle}, {}}
		lines = append(lines, resultLines(eng.Start(), trace)...)
		return gameOutputMsg{lines: lines}
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line. Enter on an empty line
// continues a paused run or turns a scene page.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		if m.engine.Waiting() == engine.WaitingNone {
			return m, nil
		}
		input = "continue"
	}

	m.history.Push(input)
	m.history.ResetCursor()

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: systemLines("Nothing to repeat."), isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	res := m.engine.Step(input)
	lines := resultLines(res, m.trace)
	m.lastTurn = make([]string, 0, len(lines))
	for _, l := range lines {
		m.lastTurn = append(m.lastTurn, l.text)
	}
	m = m.appendOutput(gameOutputMsg{input: input, lines: lines})
	return m, nil
}

// resultLines flattens a Result into classified narrative lines.
func resultLines(res *types.Result, trace bool) []rawLine {
	var lines []rawLine
	for _, text := range res.Texts {
		for _, line := range strings.Split(text, "\n") {
			lines = append(lines, rawLine{text: line, kind: classifyLine(line)})
		}
	}
	if res.Media != "" {
		lines = append(lines, rawLine{text: "image: " + res.Media, isSystem: true})
	}
	if res.SceneData != nil {
		lines = append(lines, sceneLines(res.SceneData)...)
	}
	for i, ch := range res.Choices {
		lines = append(lines, rawLine{text: fmt.Sprintf("%d. %s", i+1, ch.Text), kind: kindChoice})
	}
	if res.StartCombatEnemyID != "" {
		lines = append(lines, rawLine{text: "combat: " + res.StartCombatEnemyID, isSystem: true})
	}
	if trace {
		for _, e := range res.Errors {
			lines = append(lines, rawLine{text: "[trace] " + e, kind: kindTrace})
		}
		lines = append(lines, rawLine{
			text: fmt.Sprintf("[trace] paused=%v did=%v", res.Paused, res.DidSomething),
			kind: kindTrace,
		})
	}
	return lines
}

func sceneLines(v *types.SceneView) []rawLine {
	var lines []rawLine
	for _, line := range strings.Split(v.Text, "\n") {
		if line != "" {
			lines = append(lines, rawLine{text: line, kind: kindScene})
		}
	}
	if v.Media != "" {
		lines = append(lines, rawLine{text: "image: " + v.Media, isSystem: true})
	}
	if v.ChunkCount > 1 && v.ChunkIndex < v.ChunkCount-1 {
		lines = append(lines, rawLine{
			text:     fmt.Sprintf("page %d/%d, press Enter", v.ChunkIndex+1, v.ChunkCount),
			isSystem: true,
		})
	}
	for i, ch := range v.Choices {
		lines = append(lines, rawLine{text: fmt.Sprintf("%d. %s", i+1, ch.Text), kind: kindChoice})
	}
	return lines
}

func systemLines(texts ...string) []rawLine {
	lines := make([]rawLine, len(texts))
	for i, t := range texts {
		lines[i] = rawLine{text: t}
	}
	return lines
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, rl := range msg.lines {
		if msg.isSystem {
			rl.isSystem = true
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindTitle:
		return styleTitle.Render(line)
	case kindYouSee:
		return styledYouSee(line)
	case kindExits:
		return styleExits.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindScene:
		return styleScene.Render(line)
	case kindChoice:
		return styleChoice.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleRoomDesc.Render(line)
	}
}

// wordWrap wraps text at word boundaries, then hard-wraps any word that is
// still longer than width.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wrap.String(wordwrap.String(text, width), width)
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]rawLine, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return systemLines("Goodbye."), true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return systemLines(helpText...), false

	case "/state":
		return m.cmdState(), false

	case "/copy":
		return m.cmdCopy(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return systemLines("Trace output enabled."), false
		}
		return systemLines("Trace output disabled."), false

	default:
		return systemLines(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)), false
	}
}

func (m *Model) savePath(name string) (string, string) {
	if name == "" {
		name = "quicksave"
	}
	name = filepath.Base(name)
	return name, filepath.Join(m.saveDir, name+".json")
}

func (m *Model) cmdSave(arg string) []rawLine {
	name, path := m.savePath(arg)

	data, err := m.engine.SaveGame()
	if err != nil {
		return systemLines(fmt.Sprintf("Save failed: %v", err))
	}
	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return systemLines(fmt.Sprintf("Save failed: %v", err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return systemLines(fmt.Sprintf("Save failed: %v", err))
	}
	return systemLines(fmt.Sprintf("Game saved to %s.", name))
}

func (m *Model) cmdLoad(arg string) []rawLine {
	name, path := m.savePath(arg)

	data, err := os.ReadFile(path)
	if err != nil {
		return systemLines(fmt.Sprintf("Load failed: %v", err))
	}

	sd, err := m.engine.LoadGame(data)
	var output []rawLine
	switch {
	case errors.Is(err, engine.ErrSceneNotRestored):
		output = systemLines("The saved scene no longer exists; continuing outside it.")
	case err != nil:
		return systemLines(fmt.Sprintf("Load failed: %v", err))
	}
	output = append(output, systemLines(fmt.Sprintf("Game loaded from %s (turn %d).", name, sd.Turn))...)

	if view := m.engine.SceneView(); view != nil {
		return append(output, sceneLines(view)...)
	}
	return append(output, resultLines(m.engine.Step("look"), false)...)
}

// copyText writes to the system clipboard; tests replace it.
var copyText = clipboard.WriteAll

func (m *Model) cmdCopy() []rawLine {
	if len(m.lastTurn) == 0 {
		return systemLines("Nothing to copy yet.")
	}
	if err := copyText(strings.Join(m.lastTurn, "\n")); err != nil {
		return systemLines(fmt.Sprintf("Copy failed: %v", err))
	}
	return systemLines("Copied the last output to the clipboard.")
}

var helpText = []string{
	"System:",
	"  /save [name]  Save game (default: quicksave)",
	"  /load [name]  Load game (default: quicksave)",
	"  /quit         Exit game",
	"  /help         Show this help",
	"  /state        Debug: dump current state",
	"  /trace        Toggle debug trace output",
	"  /copy         Copy the last output to the clipboard",
	"",
	"Game commands:",
	"  look (l)                   Describe the room",
	"  go <place>                 Move to another room",
	"  use <object>               Use something",
	"  talk <character>           Talk to someone",
	"  trigger <name> [kind:id]   Fire a named trigger",
	"  continue (c, Enter)        Continue after a pause or a page",
	"  <number> / choose <id>     Pick a choice",
	"  wait [hours] (z)           Let time pass",
	"  inventory (i)              Check what you're carrying",
	"  again (g)                  Repeat your last command",
	"",
	"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
}

func (m *Model) cmdState() []rawLine {
	s := m.engine.State
	output := systemLines(
		fmt.Sprintf("Turn: %d", s.TurnCount),
		fmt.Sprintf("Location: %s", s.CurrentRoom),
		fmt.Sprintf("Day %d, %02d:00", s.Clock.Day, s.Clock.Hour),
		fmt.Sprintf("Inventory: %v", state.Inventory(s)),
	)
	if len(s.Flags) > 0 {
		output = append(output, systemLines(fmt.Sprintf("Flags: %v", s.Flags))...)
	}
	if len(s.Globals) > 0 {
		output = append(output, systemLines(fmt.Sprintf("Globals: %v", s.Globals))...)
	}
	if w := m.engine.Waiting(); w != engine.WaitingNone {
		output = append(output, systemLines("Waiting: "+w)...)
	}
	return output
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
