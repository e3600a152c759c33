package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/taleweaver/engine"
	"github.com/nathoo/taleweaver/engine/state"
)

// roomDisplayName derives a human-readable name from a room ID.
// "great_hall" -> "Great Hall", "castle_gates" -> "Castle Gates".
func roomDisplayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line showing the
// current room, the clock, what the engine waits for, inventory and turn.
func (m Model) renderStatusBar() string {
	s := m.engine.State

	roomName := roomDisplayName(s.CurrentRoom)
	if room, ok := s.Rooms[s.CurrentRoom]; ok && room.Name != "" {
		roomName = room.Name
	}

	left := fmt.Sprintf(" %s | Day %d %02d:00", roomName, s.Clock.Day, s.Clock.Hour)
	switch m.engine.Waiting() {
	case engine.WaitingScene:
		left += " | scene"
	case engine.WaitingPause:
		left += " | more"
	}
	right := fmt.Sprintf("T:%d ", s.TurnCount)

	// Show inventory items if they fit, otherwise just count.
	if inv := state.Inventory(s); len(inv) > 0 {
		names := make([]string, len(inv))
		for i, id := range inv {
			names[i] = id
			if obj, ok := s.Objects[id]; ok && obj.Name != "" {
				names[i] = obj.Name
			}
		}
		candidate := fmt.Sprintf("Inv: %s | T:%d ", strings.Join(names, ", "), s.TurnCount)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | T:%d ", len(inv), s.TurnCount)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
