package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal palette (256-color indexes).
const (
	colorBar     = lipgloss.Color("236")
	colorBarText = lipgloss.Color("252")
	colorPrompt  = lipgloss.Color("34")
	colorTitle   = lipgloss.Color("213")
	colorText    = lipgloss.Color("255")
	colorDim     = lipgloss.Color("243")
	colorFaint   = lipgloss.Color("240")
	colorSpeech  = lipgloss.Color("228")
	colorScene   = lipgloss.Color("153")
	colorChoice  = lipgloss.Color("81")
	colorProblem = lipgloss.Color("196")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	styleStatusBar   = fg(colorBarText).Background(colorBar).Bold(true)
	styleInputPrompt = fg(colorPrompt)
	stylePlayerInput = fg(colorPrompt)
	styleTitle       = fg(colorTitle).Bold(true)
	styleRoomDesc    = fg(colorText)
	styleYouSee      = lipgloss.NewStyle().Bold(true)
	styleExits       = fg(colorDim)
	styleSystem      = fg(colorDim)
	styleTrace       = fg(colorFaint)
	styleDialogue    = fg(colorSpeech)
	styleScene       = fg(colorScene).Italic(true)
	styleChoice      = fg(colorChoice).PaddingLeft(2)
	styleError       = fg(colorProblem)
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindRoomDesc lineKind = iota
	kindTitle
	kindYouSee
	kindExits
	kindDialogue
	kindScene
	kindChoice
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of narrative line this is. Scene text
// and choices are classified by where they come from, not here.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")"),
		strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "You see:"):
		return kindYouSee
	case strings.HasPrefix(line, "Exits:"):
		return kindExits
	case strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "There is no "),
		strings.HasPrefix(line, "I don't understand"):
		return kindError
	case containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindRoomDesc
	}
}

// containsQuotedSpeech reports whether a line carries speech in double
// quotes or in single quotes longer than a contraction.
func containsQuotedSpeech(line string) bool {
	if strings.Count(line, "\"") >= 2 {
		return true
	}
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '\'' {
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

// styledYouSee renders "You see: a, b." with the names bold.
func styledYouSee(line string) string {
	const prefix = "You see: "
	if !strings.HasPrefix(line, prefix) {
		return styleRoomDesc.Render(line)
	}
	return styleRoomDesc.Render(prefix) + styleYouSee.Render(line[len(prefix):])
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
