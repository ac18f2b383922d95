// Package planner implements backward-chaining plan search over a domain's
// fact/behavior graph. A Planner is immutable after New and safe for
// concurrent FindPlans calls on independent world snapshots.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/nathoo/goapcore/engine/events"
	"github.com/nathoo/goapcore/types"
)

// DefaultMaxDepth bounds the length of a behavior chain.
const DefaultMaxDepth = 32

// Option configures a Planner.
type Option func(*Planner)

// WithMaxDepth sets the longest chain a branch may grow to. Values below 1
// are ignored.
func WithMaxDepth(n int) Option {
	return func(p *Planner) {
		if n >= 1 {
			p.maxDepth = n
		}
	}
}

// WithTrace makes every FindPlans result carry its search trace.
func WithTrace(enabled bool) Option {
	return func(p *Planner) {
		p.trace = enabled
	}
}

// WithLogger sets the logger used for search summaries.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// Planner owns the static enabler and precondition tables.
type Planner struct {
	enablers      map[types.Fact][]types.Behavior
	preconditions map[types.Behavior][]types.Fact
	maxDepth      int
	trace         bool
	logger        *slog.Logger
}

// New validates the domain and builds a Planner from a private copy of its
// tables. Integrity problems are returned together as a *ConfigError.
func New(d types.Domain, opts ...Option) (*Planner, error) {
	if err := validate(d); err != nil {
		return nil, err
	}

	p := &Planner{
		enablers:      make(map[types.Fact][]types.Behavior, len(d.Enablers)),
		preconditions: make(map[types.Behavior][]types.Fact, len(d.Preconditions)),
		maxDepth:      DefaultMaxDepth,
		logger:        slog.Default(),
	}
	for f, bs := range d.Enablers {
		p.enablers[f] = slices.Clone(bs)
	}
	for b, fs := range d.Preconditions {
		p.preconditions[b] = slices.Clone(fs)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// validate checks that every enabler has a precondition entry and, when the
// domain declares its facts, that every referenced fact is declared.
func validate(d types.Domain) error {
	ce := &ConfigError{}

	for _, f := range sortedFacts(d.Enablers) {
		for _, b := range d.Enablers[f] {
			if _, ok := d.Preconditions[b]; !ok {
				ce.Errors = append(ce.Errors, fmt.Errorf(
					"%w: %q enables %q but has no precondition entry", ErrUnknownBehavior, b, f))
			}
		}
	}

	if d.Facts != nil {
		declared := make(map[types.Fact]bool, len(d.Facts))
		for _, f := range d.Facts {
			declared[f] = true
		}
		for _, f := range sortedFacts(d.Enablers) {
			if !declared[f] {
				ce.Errors = append(ce.Errors, fmt.Errorf(
					"%w: %q has enablers but is not declared", ErrUnknownFact, f))
			}
		}
		for _, b := range sortedBehaviors(d.Preconditions) {
			for _, f := range d.Preconditions[b] {
				if !declared[f] {
					ce.Errors = append(ce.Errors, fmt.Errorf(
						"%w: %q required by %q is not declared", ErrUnknownFact, f, b))
				}
			}
		}
	}

	if len(ce.Errors) > 0 {
		return ce
	}
	return nil
}

// UnmetPreconditions returns the preconditions of behavior that are false in
// world, in declaration order.
func (p *Planner) UnmetPreconditions(world types.WorldState, behavior types.Behavior) ([]types.Fact, error) {
	reqs, ok := p.preconditions[behavior]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBehavior, behavior)
	}
	var unmet []types.Fact
	for _, f := range reqs {
		v, ok := world[f]
		if !ok {
			return nil, fmt.Errorf("%w: %q required by %q", ErrMissingWorldStateEntry, f, behavior)
		}
		if !v {
			unmet = append(unmet, f)
		}
	}
	return unmet, nil
}

// DroppedBranch is a candidate abandoned during search.
type DroppedBranch struct {
	Chain []types.Behavior // goal-first
	Err   error
}

// Result is the outcome of one FindPlans call.
type Result struct {
	Goal          types.Fact
	GoalSatisfied bool // goal already true in the snapshot
	Plans         []types.Plan
	Dropped       []DroppedBranch
	Expanded      int
	Trace         []types.TraceEvent
}

// Diagnostic explains an empty result. It returns "" when plans were found.
func (r *Result) Diagnostic() string {
	if len(r.Plans) > 0 {
		return ""
	}
	if len(r.Dropped) == 0 {
		return fmt.Sprintf("no plan for %q", r.Goal)
	}
	var cyclic, deadEnds int
	for _, d := range r.Dropped {
		switch {
		case errors.Is(d.Err, ErrCyclicPlanningGraph):
			cyclic++
		case errors.Is(d.Err, ErrNoEnabler):
			deadEnds++
		}
	}
	return fmt.Sprintf("no plan for %q: %d branch(es) dropped (%d cyclic, %d dead end)",
		r.Goal, len(r.Dropped), cyclic, deadEnds)
}

func (r *Result) drop(rec *events.Recorder, chain []types.Behavior, err error) {
	r.Dropped = append(r.Dropped, DroppedBranch{Chain: chain, Err: err})
	rec.Record(types.TraceDrop, chain, "", err.Error())
}

// FindPlans enumerates every plan that establishes goal starting from world.
// The search is breadth-first over goal-first behavior chains: a chain is
// complete when its newest behavior has no unmet preconditions; otherwise it
// branches once per (unmet fact, enabling behavior) pair. Branches that
// revisit a behavior or exceed the depth limit are dropped, not fatal.
func (p *Planner) FindPlans(ctx context.Context, world types.WorldState, goal types.Fact) (*Result, error) {
	seeds := p.enablers[goal]
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnplannableGoal, goal)
	}
	if missing := p.missingFacts(world, goal); len(missing) > 0 {
		return nil, &MissingFactsError{Goal: goal, Facts: missing}
	}

	rec := events.NewRecorder(p.trace)
	res := &Result{Goal: goal, GoalSatisfied: world[goal]}
	queued := map[string]bool{}

	queue := make([][]types.Behavior, 0, len(seeds))
	for _, b := range seeds {
		chain := []types.Behavior{b}
		if queued[chainKey(chain)] {
			continue
		}
		queued[chainKey(chain)] = true
		rec.Record(types.TraceSeed, chain, goal, "")
		queue = append(queue, chain)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning %q: %w", goal, err)
		}
		chain := queue[0]
		queue = queue[1:]
		res.Expanded++

		frontier := chain[len(chain)-1]
		unmet, err := p.UnmetPreconditions(world, frontier)
		if err != nil {
			res.drop(rec, chain, err)
			continue
		}
		if len(unmet) == 0 {
			res.Plans = append(res.Plans, executionOrder(chain))
			rec.Record(types.TraceComplete, chain, "", "")
			continue
		}

		for _, f := range unmet {
			enablers := p.enablers[f]
			if len(enablers) == 0 {
				res.drop(rec, chain, fmt.Errorf("%w: nothing establishes %q", ErrNoEnabler, f))
				continue
			}
			for _, b := range enablers {
				branch := make([]types.Behavior, len(chain), len(chain)+1)
				copy(branch, chain)
				branch = append(branch, b)

				if slices.Contains(chain, b) {
					res.drop(rec, branch, fmt.Errorf("%w: %q is already on the chain", ErrCyclicPlanningGraph, b))
					continue
				}
				if len(branch) > p.maxDepth {
					res.drop(rec, branch, fmt.Errorf("%w: depth limit %d exceeded", ErrCyclicPlanningGraph, p.maxDepth))
					continue
				}
				key := chainKey(branch)
				if queued[key] {
					continue
				}
				queued[key] = true
				rec.Record(types.TraceExpand, branch, f, "")
				queue = append(queue, branch)
			}
		}
	}

	res.Trace = rec.Events()

	p.logger.Debug("plan search finished",
		"goal", goal,
		"plans", len(res.Plans),
		"dropped", len(res.Dropped),
		"expanded", res.Expanded)
	if len(res.Plans) == 0 {
		p.logger.Debug("no plan found", "goal", goal, "diagnostic", res.Diagnostic())
	}

	return res, nil
}

// missingFacts returns the facts reachable from goal that world lacks,
// sorted by name.
func (p *Planner) missingFacts(world types.WorldState, goal types.Fact) []types.Fact {
	seen := map[types.Fact]bool{goal: true}
	visited := map[types.Behavior]bool{}
	stack := []types.Fact{goal}
	var missing []types.Fact

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := world[f]; !ok {
			missing = append(missing, f)
		}
		for _, b := range p.enablers[f] {
			if visited[b] {
				continue
			}
			visited[b] = true
			for _, req := range p.preconditions[b] {
				if !seen[req] {
					seen[req] = true
					stack = append(stack, req)
				}
			}
		}
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// Enablers returns the behaviors that establish f, in declaration order.
func (p *Planner) Enablers(f types.Fact) []types.Behavior {
	return slices.Clone(p.enablers[f])
}

// Preconditions returns the facts behavior requires and whether the
// behavior is known.
func (p *Planner) Preconditions(b types.Behavior) ([]types.Fact, bool) {
	fs, ok := p.preconditions[b]
	return slices.Clone(fs), ok
}

// Goals returns every fact that has at least one enabler, sorted.
func (p *Planner) Goals() []types.Fact {
	var goals []types.Fact
	for f, bs := range p.enablers {
		if len(bs) > 0 {
			goals = append(goals, f)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i] < goals[j] })
	return goals
}

// Frontier returns the behavior to execute first, or "" for an empty plan.
func Frontier(plan types.Plan) types.Behavior {
	if len(plan) == 0 {
		return ""
	}
	return plan[0]
}

// FormatPlan renders a plan in execution order: "get_job -> buy_item".
func FormatPlan(plan types.Plan) string {
	names := make([]string, len(plan))
	for i, b := range plan {
		names[i] = string(b)
	}
	return strings.Join(names, " -> ")
}

// executionOrder reverses a goal-first chain into a Plan.
func executionOrder(chain []types.Behavior) types.Plan {
	plan := make(types.Plan, len(chain))
	for i, b := range chain {
		plan[len(chain)-1-i] = b
	}
	return plan
}

func chainKey(chain []types.Behavior) string {
	var sb strings.Builder
	for i, b := range chain {
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(string(b))
	}
	return sb.String()
}

func sortedFacts(m map[types.Fact][]types.Behavior) []types.Fact {
	keys := make([]types.Fact, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedBehaviors(m map[types.Behavior][]types.Fact) []types.Behavior {
	keys := make([]types.Behavior, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
