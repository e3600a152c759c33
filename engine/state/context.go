package state

import (
	"io"
	"log/slog"

	"github.com/nathoo/taleweaver/types"
)

// RollFunc returns a uniform integer in [1, sides].
type RollFunc func(sides int) int

// SceneStarter begins a scene on behalf of a command, writing its opening
// into res. It returns false when the scene cannot start.
type SceneStarter interface {
	StartScene(sceneID string, ctx *Context, res *types.Result) bool
}

// Context is the explicit world handle threaded through every evaluation.
// Nothing in the interpreter reaches for ambient state.
type Context struct {
	State  *types.State
	Defs   *Defs
	Self   *types.Entity
	Roll   RollFunc
	Log    *slog.Logger
	Scenes SceneStarter
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// NewContext builds a context with a discarding logger.
func NewContext(s *types.State, defs *Defs, roll RollFunc) *Context {
	return &Context{State: s, Defs: defs, Roll: roll, Log: discard}
}

// WithSelf returns a shallow copy bound to a different <Self> entity.
func (c *Context) WithSelf(e *types.Entity) *Context {
	cp := *c
	cp.Self = e
	return &cp
}

// Logger never returns nil.
func (c *Context) Logger() *slog.Logger {
	if c.Log == nil {
		return discard
	}
	return c.Log
}

// CurrentRoom returns the room the player is in.
func (c *Context) CurrentRoom() (*types.Entity, bool) {
	e, ok := c.State.Rooms[c.State.CurrentRoom]
	return e, ok
}

// RollPercent draws a uniform integer in [1, 100]. A context without a
// roll function always rolls 100.
func (c *Context) RollPercent() int {
	if c.Roll == nil {
		return 100
	}
	return c.Roll(100)
}

// RollN draws a uniform integer in [1, sides], or sides when no roll
// function is set.
func (c *Context) RollN(sides int) int {
	if sides <= 1 || c.Roll == nil {
		return sides
	}
	return c.Roll(sides)
}
