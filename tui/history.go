// Package tui provides a Bubble Tea terminal UI for the GOAPCore planner.
package tui

// History keeps submitted commands for Up/Down recall. It is seeded from
// a session's command log after /load, so recall survives a restore.
type History struct {
	entries []string
	max     int
	cursor  int // -1 while editing fresh input
}

// NewHistory creates a history holding at most max commands, oldest first.
func NewHistory(max int, seed ...string) *History {
	h := &History{
		entries: make([]string, 0, max),
		max:     max,
		cursor:  -1,
	}
	h.Replace(seed)
	return h
}

// Replace discards the current entries and pushes cmds in order.
func (h *History) Replace(cmds []string) {
	h.entries = h.entries[:0]
	h.cursor = -1
	for _, c := range cmds {
		h.Push(c)
	}
}

// Push records a command. Repeating the newest entry is a no-op.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	if len(h.entries) == h.max {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.max-1]
	}
	h.entries = append(h.entries, cmd)
}

// Prev steps to an older entry and stops at the oldest.
func (h *History) Prev() (string, bool) {
	switch {
	case len(h.entries) == 0:
		return "", false
	case h.cursor == -1:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps to a newer entry. Past the newest it reports false and
// returns to fresh input.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	if h.cursor == len(h.entries)-1 {
		h.cursor = -1
		return "", false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// ResetCursor returns to fresh input.
func (h *History) ResetCursor() {
	h.cursor = -1
}

// Len returns the number of stored commands.
func (h *History) Len() int {
	return len(h.entries)
}
