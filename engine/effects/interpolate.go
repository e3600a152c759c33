package effects

import (
	"regexp"
	"strings"

	"github.com/nathoo/taleweaver/engine/resolve"
	"github.com/nathoo/taleweaver/engine/state"
)

var placeholder = regexp.MustCompile(`\{([^{}\s]+)\}`)

// Interpolate replaces {reference} tokens with resolved values. Unresolved
// tokens are left as written.
func Interpolate(text string, ctx *state.Context) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(tok string) string {
		ref := tok[1 : len(tok)-1]
		if strings.EqualFold(ref, "player.inventory") {
			return formatInventory(ctx)
		}
		v, ok := resolve.Resolve(ref, ctx)
		if !ok {
			return tok
		}
		return resolve.Format(v)
	})
}

// formatInventory lists carried items by object name where one is known.
func formatInventory(ctx *state.Context) string {
	items := state.Inventory(ctx.State)
	if len(items) == 0 {
		return "nothing"
	}
	names := make([]string, len(items))
	for i, id := range items {
		names[i] = id
		if obj, ok := ctx.State.Objects[id]; ok && obj.Name != "" {
			names[i] = obj.Name
		}
	}
	return strings.Join(names, ", ")
}
