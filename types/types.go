// Package types defines the shared data structures for the GOAPCore engine.
// This package contains only type definitions, no logic.
package types

// Fact names a boolean world condition ("have_item", "am_alive").
type Fact string

// Behavior names an action whose preconditions are a set of Facts.
type Behavior string

// WorldState is a truth assignment for facts. A fact that is absent is
// unknown, not false.
type WorldState map[Fact]bool

// Plan is a behavior sequence in execution order: index 0 is immediately
// executable, the last behavior establishes the goal.
type Plan []Behavior

// Domain holds the static planning tables.
type Domain struct {
	Facts         []Fact              // declared facts; nil disables fact checks
	Enablers      map[Fact][]Behavior // fact → behaviors that establish it
	Preconditions map[Behavior][]Fact // behavior → facts it requires
}

// DomainDef holds domain metadata from Lua.
type DomainDef struct {
	Name        string
	Description string
	Version     string
	Goal        Fact // default goal for "plan" with no argument
}

// FactDef is the definition of a single fact.
type FactDef struct {
	ID          Fact
	Initial     bool
	Description string
}

// BehaviorDef is the definition of a single behavior.
type BehaviorDef struct {
	ID          Behavior
	Requires    []Fact
	Achieves    []Fact
	Description string
}

// AgentDef is a named planning subject with its own goal and
// overrides on top of the initial world.
type AgentDef struct {
	ID    string
	Goal  Fact
	World map[Fact]bool
}

// TraceKind identifies a search trace event.
type TraceKind string

const (
	TraceSeed     TraceKind = "seed"
	TraceExpand   TraceKind = "expand"
	TraceComplete TraceKind = "complete"
	TraceDrop     TraceKind = "drop"
)

// TraceEvent is one step of a plan search.
type TraceEvent struct {
	Kind   TraceKind
	Chain  []Behavior // goal-first chain at the time of the event
	Fact   Fact       // unmet fact being resolved (expand only)
	Detail string
}

// Intent is the parsed representation of a REPL command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// Result is the output of a single engine step.
type Result struct {
	Output []string
	Trace  []TraceEvent
}
