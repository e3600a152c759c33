// Taleweaver runs data-driven narrative games authored in Lua or JSON.
// Usage: taleweaver [--version] [--plain] [--script <file>] [--trace] [--seed <n>] <content_dir>
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nathoo/taleweaver/cli"
	"github.com/nathoo/taleweaver/engine"
	"github.com/nathoo/taleweaver/internal/config"
	"github.com/nathoo/taleweaver/internal/logger"
	"github.com/nathoo/taleweaver/loader"
	"github.com/nathoo/taleweaver/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: taleweaver [--version] [--plain] [--script <file>] [--trace] [--seed <n>] <content_dir>\n"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	plain := cfg.Plain
	trace := false
	var gameDir string
	var scriptFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("taleweaver %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script", "--seed":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a value\n", args[i])
				os.Exit(1)
			}
			i++
			if args[i-1] == "--script" {
				scriptFile = args[i]
				continue
			}
			seed, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--seed: %v\n", err)
				os.Exit(1)
			}
			cfg.Seed = seed
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}

	if gameDir == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	// The alt-screen owns the terminal, so the TUI only logs to a file.
	useTUI := scriptFile == "" && !plain && isTerminal()
	var fallback io.Writer = os.Stderr
	if useTUI {
		fallback = io.Discard
	}
	out, closeLog, err := logger.Output(cfg.LogFile, fallback)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	log := logger.Setup(cfg, out)

	defs, warnings, err := loader.Load(gameDir)
	for _, w := range warnings {
		log.Warn("content warning", "warning", w)
	}
	if err != nil {
		logger.WithError(log, err).Error("loading game failed", "dir", gameDir)
		fmt.Fprintf(os.Stderr, "Error loading game: %v\n", err)
		os.Exit(1)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Debug("starting game", "title", defs.Game.Title, "seed", seed)
	eng := engine.New(defs, engine.WithSeed(seed), engine.WithLogger(log))

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := newCLI(eng, cfg, trace)
		c.In = f
		c.EchoInput = true
		printBanner(eng)
		c.Run()
		return
	}

	// Use plain CLI if --plain or stdout is not a terminal.
	if !useTUI {
		printBanner(eng)
		newCLI(eng, cfg, trace).Run()
		return
	}

	if err := tui.Run(eng, cfg.SaveDir, trace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCLI(eng *engine.Engine, cfg *config.Config, trace bool) *cli.CLI {
	c := cli.New(eng, cfg.SaveDir)
	c.Wrap = cfg.Wrap
	c.Trace = trace
	c.Log = eng.Log
	return c
}

func printBanner(eng *engine.Engine) {
	g := eng.Defs.Game
	banner := g.Title
	if g.Version != "" {
		banner += " v" + g.Version
	}
	if g.Author != "" {
		banner += " by " + g.Author
	}
	fmt.Printf("%s\n\n", banner)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
