// Package state holds the immutable domain definitions and the helpers for
// reading and updating world-state snapshots against them.
package state

import (
	"fmt"
	"sort"

	"github.com/nathoo/goapcore/types"
)

// Defs holds the immutable domain definitions loaded from Lua.
type Defs struct {
	Domain    types.DomainDef
	Facts     map[types.Fact]types.FactDef
	Behaviors map[types.Behavior]types.BehaviorDef
	Agents    map[string]types.AgentDef

	// Declaration order, for stable listings.
	FactOrder     []types.Fact
	BehaviorOrder []types.Behavior
	AgentOrder    []string

	// Tables are the planning tables derived from the definitions.
	Tables types.Domain
}

// NewWorld creates a snapshot holding the initial value of every declared
// fact.
func NewWorld(defs *Defs) types.WorldState {
	w := make(types.WorldState, len(defs.Facts))
	for id, f := range defs.Facts {
		w[id] = f.Initial
	}
	return w
}

// AgentWorld returns the initial world with the agent's overrides applied.
func AgentWorld(defs *Defs, agentID string) (types.WorldState, error) {
	agent, ok := defs.Agents[agentID]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", agentID)
	}
	w := NewWorld(defs)
	for f, v := range agent.World {
		if _, ok := defs.Facts[f]; !ok {
			return nil, fmt.Errorf("agent %q overrides undeclared fact %q", agentID, f)
		}
		w[f] = v
	}
	return w, nil
}

// GetFact returns the value of a fact and whether the snapshot has it.
// Absent facts are unknown, not false.
func GetFact(w types.WorldState, f types.Fact) (bool, bool) {
	v, ok := w[f]
	return v, ok
}

// SetFact assigns a declared fact. Undeclared facts are refused so a typo
// never silently creates a new condition.
func SetFact(w types.WorldState, defs *Defs, f types.Fact, value bool) error {
	if _, ok := defs.Facts[f]; !ok {
		return fmt.Errorf("unknown fact %q", f)
	}
	w[f] = value
	return nil
}

// Clone returns an independent copy of a snapshot.
func Clone(w types.WorldState) types.WorldState {
	c := make(types.WorldState, len(w))
	for k, v := range w {
		c[k] = v
	}
	return c
}

// TrueFacts returns the facts that hold in the snapshot, sorted.
func TrueFacts(w types.WorldState) []types.Fact {
	var out []types.Fact
	for f, v := range w {
		if v {
			out = append(out, f)
		}
	}
	sortFacts(out)
	return out
}

// SortedFacts returns every fact in the snapshot, sorted.
func SortedFacts(w types.WorldState) []types.Fact {
	out := make([]types.Fact, 0, len(w))
	for f := range w {
		out = append(out, f)
	}
	sortFacts(out)
	return out
}

func sortFacts(fs []types.Fact) {
	sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
}
