// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the Taleweaver runtime.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/taleweaver/engine"
	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	Log       *slog.Logger
	SaveDir   string
	Wrap      int
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, saveDir string) *CLI {
	return &CLI{
		Engine:  eng,
		In:      os.Stdin,
		Out:     os.Stdout,
		Log:     slog.Default(),
		SaveDir: saveDir,
		Wrap:    80,
	}
}

// Run starts the game loop: intro and first room, then prompt, input,
// dispatch and output until /quit or end of input.
func (c *CLI) Run() {
	c.printResult(c.Engine.Start())

	scanner := bufio.NewScanner(c.In)
	for {
		c.print(c.prompt())
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(input, "#") {
			continue
		}
		if input == "" {
			// Enter alone continues a paused run or a scene page.
			if c.Engine.Waiting() == engine.WaitingNone {
				continue
			}
			input = "continue"
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.printResult(c.Engine.Step(input))
	}
}

func (c *CLI) prompt() string {
	switch c.Engine.Waiting() {
	case engine.WaitingPause:
		return "[continue] > "
	case engine.WaitingScene:
		return "[scene] > "
	}
	return "> "
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) savePath(name string) string {
	if name == "" {
		name = "quicksave"
	}
	return filepath.Join(c.SaveDir, filepath.Base(name)+".json")
}

func (c *CLI) cmdSave(name string) {
	data, err := c.Engine.SaveGame()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	path := c.savePath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.logger().Debug("game saved", "path", path)
	c.printSystem(fmt.Sprintf("Game saved to %s.", strings.TrimSuffix(filepath.Base(path), ".json")))
}

func (c *CLI) cmdLoad(name string) {
	path := c.savePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := c.Engine.LoadGame(data)
	switch {
	case errors.Is(err, engine.ErrSceneNotRestored):
		c.printSystem("The saved scene no longer exists; continuing outside it.")
	case err != nil:
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", strings.TrimSuffix(filepath.Base(path), ".json"), sd.Turn))

	if view := c.Engine.SceneView(); view != nil {
		c.printScene(view)
		return
	}
	c.printResult(c.Engine.Step("look"))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  Save game (default: quicksave)",
		"  /load [name]  Load game (default: quicksave)",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump current state",
		"  /trace        Toggle debug trace output",
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
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	c.printSystem(fmt.Sprintf("Turn: %d", s.TurnCount))
	c.printSystem(fmt.Sprintf("Location: %s", s.CurrentRoom))
	c.printSystem(fmt.Sprintf("Day %d, %02d:00", s.Clock.Day, s.Clock.Hour))
	c.printSystem(fmt.Sprintf("Inventory: %v", state.Inventory(s)))
	if stats, ok := s.Player.Fields["Stats"].(map[string]any); ok && len(stats) > 0 {
		c.printSystem("Stats: " + formatMap(stats))
	}
	if len(s.Flags) > 0 {
		flags := make(map[string]any, len(s.Flags))
		for k, v := range s.Flags {
			flags[k] = v
		}
		c.printSystem("Flags: " + formatMap(flags))
	}
	if len(s.Globals) > 0 {
		c.printSystem("Globals: " + formatMap(s.Globals))
	}
	if w := c.Engine.Waiting(); w != engine.WaitingNone {
		c.printSystem("Waiting: " + w)
	}
}

func formatMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + resolve.Format(m[k])
	}
	return strings.Join(parts, " ")
}

func (c *CLI) printResult(res *types.Result) {
	for _, line := range res.Texts {
		c.printText(line)
	}
	if res.Media != "" {
		c.printSystem("image: " + res.Media)
	}
	if res.SceneData != nil {
		c.printScene(res.SceneData)
	}
	for i, ch := range res.Choices {
		c.printLine(fmt.Sprintf("  %d. %s", i+1, ch.Text))
	}
	if res.StartCombatEnemyID != "" {
		c.printSystem("combat: " + res.StartCombatEnemyID)
	}
	for _, e := range res.Errors {
		c.logger().Debug("content error", "error", e)
		if c.Trace {
			c.printSystem("[trace] " + e)
		}
	}
	if c.Trace {
		c.printSystem(fmt.Sprintf("[trace] paused=%v did=%v waiting=%q", res.Paused, res.DidSomething, c.Engine.Waiting()))
	}
}

func (c *CLI) printScene(v *types.SceneView) {
	if v.Text != "" {
		c.printText(v.Text)
	}
	if v.Media != "" {
		c.printSystem("image: " + v.Media)
	}
	if v.ChunkCount > 1 {
		c.printSystem(fmt.Sprintf("page %d/%d", v.ChunkIndex+1, v.ChunkCount))
	}
	for i, ch := range v.Choices {
		c.printLine(fmt.Sprintf("  %d. %s", i+1, ch.Text))
	}
	if v.IsEnd {
		c.printLine("")
	}
}

func (c *CLI) printText(text string) {
	if c.Wrap > 0 {
		text = wordwrap.String(text, c.Wrap)
	}
	c.printLine(text)
}

func (c *CLI) logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
