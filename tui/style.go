package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	stylePlain = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeading = lipgloss.NewStyle().
			Bold(true)

	stylePlanIndex = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	stylePlanStep = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleFactTrue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleFactFalse = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleUserInput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindPlain lineKind = iota
	kindHeading
	kindPlan
	kindFactTrue
	kindFactFalse
	kindSystem
	kindError
	kindTrace
)

// planLine matches "  2. steal_money -> buy_item".
var planLine = regexp.MustCompile(`^\s+\d+\.\s`)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "  [x] "):
		return kindFactTrue
	case strings.HasPrefix(line, "  [ ] "):
		return kindFactFalse
	case planLine.MatchString(line):
		return kindPlan
	case strings.HasPrefix(line, "Found "),
		strings.HasSuffix(line, "is blocked by:"),
		strings.HasSuffix(line, "commands:"):
		return kindHeading
	case strings.HasPrefix(line, "Nothing can achieve"),
		strings.HasPrefix(line, "no plan for"),
		strings.Contains(line, ": no plan for"),
		strings.HasPrefix(line, "unknown "),
		strings.HasPrefix(line, "unplannable "),
		strings.HasPrefix(line, "I don't know how"),
		strings.HasPrefix(line, "Planning for"),
		strings.HasPrefix(line, "Planning failed"):
		return kindError
	default:
		return kindPlain
	}
}

// styledPlan renders "  1. a -> b" with a dim index and highlighted steps.
func styledPlan(line string) string {
	loc := planLine.FindStringIndex(line)
	if loc == nil {
		return stylePlain.Render(line)
	}
	return stylePlanIndex.Render(line[:loc[1]]) + stylePlanStep.Render(line[loc[1]:])
}

// styledUserInput renders the echoed input in green with "> " prefix.
func styledUserInput(input string) string {
	return styleUserInput.Render("> " + input)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
