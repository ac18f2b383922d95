package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/goapcore/engine/state"
)

// factDisplayName derives a human-readable name from a fact ID.
// "have_item" -> "Have Item", "am_alive" -> "Am Alive".
func factDisplayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line showing the
// domain, default goal, how many facts hold, and the last plan count.
func (m Model) renderStatusBar() string {
	world := m.engine.World()
	trueCount := len(state.TrueFacts(world))

	goal := "none"
	if g := m.engine.Goal(); g != "" {
		goal = factDisplayName(string(g))
	}

	left := fmt.Sprintf(" %s | Goal: %s", m.defs.Domain.Name, goal)

	plans := "-"
	if n := m.engine.LastPlanCount(); n >= 0 {
		plans = fmt.Sprintf("%d", n)
	}
	right := fmt.Sprintf("Facts: %d/%d | Plans: %s ", trueCount, len(world), plans)

	// Drop the fact ratio first when the terminal is narrow.
	if lipgloss.Width(left)+lipgloss.Width(right)+2 > m.width {
		right = fmt.Sprintf("Plans: %s ", plans)
	}
	if m.engine.Trace() {
		right = "TRACE | " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
