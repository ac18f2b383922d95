// Package events records the search trace of a single planning call.
// A Recorder is owned by one call and never shared.
package events

import (
	"fmt"
	"strings"

	"github.com/nathoo/goapcore/types"
)

// Recorder accumulates trace events. A nil or disabled Recorder ignores
// everything, so callers never need to check before recording.
type Recorder struct {
	enabled bool
	events  []types.TraceEvent
}

// NewRecorder returns a Recorder that keeps events only when enabled.
func NewRecorder(enabled bool) *Recorder {
	return &Recorder{enabled: enabled}
}

// Record appends an event. The chain is copied.
func (r *Recorder) Record(kind types.TraceKind, chain []types.Behavior, fact types.Fact, detail string) {
	if r == nil || !r.enabled {
		return
	}
	r.events = append(r.events, types.TraceEvent{
		Kind:   kind,
		Chain:  append([]types.Behavior(nil), chain...),
		Fact:   fact,
		Detail: detail,
	})
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []types.TraceEvent {
	if r == nil {
		return nil
	}
	return r.events
}

// Count returns how many events of the given kind are in the list.
func Count(events []types.TraceEvent, kind types.TraceKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Format renders one event as a "[trace]" line. Chains are shown goal-first,
// joined with " <- " so the newest frontier is on the right.
func Format(e types.TraceEvent) string {
	chain := make([]string, len(e.Chain))
	for i, b := range e.Chain {
		chain[i] = string(b)
	}
	line := fmt.Sprintf("[trace] %-8s %s", e.Kind, strings.Join(chain, " <- "))
	if e.Fact != "" {
		line += fmt.Sprintf(" (for %s)", e.Fact)
	}
	if e.Detail != "" {
		line += ": " + e.Detail
	}
	return line
}

// FormatAll renders every event, prefixed by a summary line.
func FormatAll(events []types.TraceEvent) []string {
	if len(events) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("[trace] Events: %d (seed %d, expand %d, complete %d, drop %d)",
		len(events),
		Count(events, types.TraceSeed),
		Count(events, types.TraceExpand),
		Count(events, types.TraceComplete),
		Count(events, types.TraceDrop))}
	for _, e := range events {
		lines = append(lines, Format(e))
	}
	return lines
}
