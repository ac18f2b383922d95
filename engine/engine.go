// Package engine provides the Step() orchestrator that wires together
// parsing, world edits, and plan search into a single REPL command.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nathoo/goapcore/config"
	"github.com/nathoo/goapcore/engine/events"
	"github.com/nathoo/goapcore/engine/parser"
	"github.com/nathoo/goapcore/engine/planner"
	"github.com/nathoo/goapcore/engine/save"
	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// Engine holds the domain definitions, the planner built from them, and the
// mutable session: world snapshot, default goal and command log. It is safe
// for concurrent use; planning runs on a snapshot outside the lock.
type Engine struct {
	Defs *state.Defs

	cfg    config.Config
	logger *slog.Logger

	mu        sync.RWMutex
	planner   *planner.Planner
	world     types.WorldState
	goal      types.Fact
	trace     bool
	log       []string
	lastPlans int // -1 until the first plan command
}

// New creates an engine from definitions. The planner is built here, so a
// domain whose tables are inconsistent is rejected with a *planner.ConfigError.
func New(defs *state.Defs, cfg config.Config) (*Engine, error) {
	e := &Engine{
		Defs:      defs,
		cfg:       cfg,
		logger:    slog.Default().With("domain", defs.Domain.Name),
		world:     state.NewWorld(defs),
		goal:      defs.Domain.Goal,
		trace:     cfg.Trace,
		lastPlans: -1,
	}
	p, err := e.newPlanner(cfg.Trace)
	if err != nil {
		return nil, fmt.Errorf("building planner: %w", err)
	}
	e.planner = p
	return e, nil
}

func (e *Engine) newPlanner(trace bool) (*planner.Planner, error) {
	return planner.New(e.Defs.Tables,
		planner.WithMaxDepth(e.cfg.MaxDepth),
		planner.WithTrace(trace),
		planner.WithLogger(e.logger),
	)
}

// World returns a copy of the current snapshot.
func (e *Engine) World() types.WorldState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return state.Clone(e.world)
}

// Goal returns the default goal used by a bare "plan".
func (e *Engine) Goal() types.Fact {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.goal
}

// SetGoal changes the default goal. The fact must be declared and achievable.
func (e *Engine) SetGoal(f types.Fact) error {
	if _, ok := e.Defs.Facts[f]; !ok {
		return fmt.Errorf("unknown fact %q", f)
	}
	if len(e.Defs.Tables.Enablers[f]) == 0 {
		return fmt.Errorf("%w: %q", planner.ErrUnplannableGoal, f)
	}
	e.mu.Lock()
	e.goal = f
	e.mu.Unlock()
	return nil
}

// Trace reports whether plan results carry their search trace.
func (e *Engine) Trace() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trace
}

// SetTrace turns search tracing on or off.
func (e *Engine) SetTrace(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if on == e.trace {
		return
	}
	// Tables were accepted in New, so rebuilding cannot fail.
	p, err := e.newPlanner(on)
	if err != nil {
		e.logger.Error("rebuilding planner", "error", err)
		return
	}
	e.planner = p
	e.trace = on
}

// CommandLog returns a copy of every command entered this session.
func (e *Engine) CommandLog() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.log...)
}

// LastPlanCount returns how many plans the last plan command found, or -1.
func (e *Engine) LastPlanCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastPlans
}

// Reset restores the initial world and default goal. The command log is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world = state.NewWorld(e.Defs)
	e.goal = e.Defs.Domain.Goal
	e.lastPlans = -1
}

// Snapshot serializes the session for /save.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return save.Save(e.world, e.Defs, e.goal, e.log)
}

// Restore replaces the session with saved data. Facts the domain no longer
// declares are skipped and returned.
func (e *Engine) Restore(sd *save.SaveData) ([]types.Fact, error) {
	if err := save.CheckDomain(e.Defs, sd); err != nil {
		return nil, err
	}
	goal := types.Fact(sd.Goal)
	if goal == "" {
		goal = e.Defs.Domain.Goal
	} else if _, ok := e.Defs.Facts[goal]; !ok {
		return nil, fmt.Errorf("saved goal %q is not a declared fact", goal)
	}

	w := state.NewWorld(e.Defs)
	unknown := save.ApplySave(w, e.Defs, sd)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.world = w
	e.goal = goal
	e.log = append([]string(nil), sd.CommandLog...)
	e.lastPlans = -1
	return unknown, nil
}

// Inherit carries prev's session into e after the domain was reloaded.
// Facts the new domain dropped are returned; a goal it no longer declares
// falls back to the new default.
func (e *Engine) Inherit(prev *Engine) ([]types.Fact, error) {
	data, err := prev.Snapshot()
	if err != nil {
		return nil, err
	}
	sd, err := save.Load(data)
	if err != nil {
		return nil, err
	}
	sd.Domain = e.Defs.Domain.Name
	if _, ok := e.Defs.Facts[types.Fact(sd.Goal)]; !ok {
		sd.Goal = string(e.Defs.Domain.Goal)
	}
	e.SetTrace(prev.Trace())
	return e.Restore(sd)
}

// Plan searches for every plan that establishes goal from the current world.
func (e *Engine) Plan(ctx context.Context, goal types.Fact) (*planner.Result, error) {
	e.mu.RLock()
	p := e.planner
	world := state.Clone(e.world)
	e.mu.RUnlock()

	res, err := p.FindPlans(ctx, world, goal)
	if err != nil {
		return nil, err
	}
	if len(res.Trace) > 0 {
		e.logger.Debug("plan search traced",
			"goal", goal,
			"plans", len(res.Plans),
			"expanded", events.Count(res.Trace, types.TraceExpand),
			"dropped", events.Count(res.Trace, types.TraceDrop))
	}

	e.mu.Lock()
	e.lastPlans = len(res.Plans)
	e.mu.Unlock()
	return res, nil
}

// Step processes one REPL command and returns the result.
func (e *Engine) Step(ctx context.Context, input string) types.Result {
	var result types.Result

	// 1. Parse input.
	intent := parser.Parse(input)

	// 2. Empty input.
	if intent.Verb == "" {
		result.Output = append(result.Output, "What do you want to plan?")
		return result
	}

	// 3. Log the command.
	e.mu.Lock()
	e.log = append(e.log, strings.TrimSpace(input))
	e.mu.Unlock()

	// 4. Dispatch.
	switch intent.Verb {
	case "plan":
		e.cmdPlan(ctx, intent, &result)
	case "why":
		e.cmdWhy(intent, &result)
	case "set":
		e.cmdSet(intent, &result)
	case "unset":
		e.cmdAssign(types.Fact(intent.Object), false, &result)
	case "toggle":
		e.cmdToggle(intent, &result)
	case "facts":
		e.cmdFacts(&result)
	case "behaviors":
		e.cmdBehaviors(&result)
	case "goal":
		e.cmdGoal(intent, &result)
	case "agents":
		e.cmdAgents(&result)
	case "planall":
		e.cmdPlanAll(ctx, &result)
	case "reset":
		e.Reset()
		result.Output = append(result.Output, "World reset to its initial facts.")
	case "help":
		result.Output = append(result.Output, HelpLines()...)
	default:
		result.Output = append(result.Output,
			fmt.Sprintf("I don't know how to %q. Type help for commands.", intent.Verb))
	}

	return result
}

// describePlanError turns a planning failure into a REPL message.
func describePlanError(goal types.Fact, err error) string {
	var mfe *planner.MissingFactsError
	switch {
	case errors.Is(err, planner.ErrUnplannableGoal):
		return fmt.Sprintf("Nothing can achieve %q.", goal)
	case errors.As(err, &mfe):
		return fmt.Sprintf("The world has no value for: %s.", joinFacts(mfe.Facts))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Planning for %q was interrupted.", goal)
	default:
		return fmt.Sprintf("Planning for %q failed: %v", goal, err)
	}
}

func joinFacts(fs []types.Fact) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func joinBehaviors(bs []types.Behavior) string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
