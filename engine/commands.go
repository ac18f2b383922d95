package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/nathoo/goapcore/engine/parser"
	"github.com/nathoo/goapcore/engine/planner"
	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// HelpLines lists the planning commands understood by Step.
func HelpLines() []string {
	return []string{
		"Planning commands:",
		"  plan [goal] (p)         Find every plan for a goal (default goal if omitted)",
		"  why <behavior> (check)  Show which preconditions block a behavior",
		"  set <fact>[=false]      Set a fact (true unless a value is given)",
		"  unset <fact> (clear)    Set a fact to false",
		"  toggle <fact>           Flip a fact",
		"  facts (f)               List the world state",
		"  behaviors (b)           List behaviors with preconditions and effects",
		"  goal [fact]             Show or change the default goal",
		"  agents                  List agents and their goals",
		"  planall (pa)            Plan for every agent in parallel",
		"  reset                   Restore the initial world",
		"  again (g)               Repeat your last command",
	}
}

func (e *Engine) cmdPlan(ctx context.Context, intent types.Intent, result *types.Result) {
	goal := types.Fact(intent.Object)
	if goal == "" {
		goal = e.Goal()
	}
	if goal == "" {
		result.Output = append(result.Output, "Plan for what? Set a default with: goal <fact>")
		return
	}

	res, err := e.Plan(ctx, goal)
	if err != nil {
		result.Output = append(result.Output, describePlanError(goal, err))
		return
	}
	result.Trace = res.Trace
	result.Output = append(result.Output, formatResult(res)...)
}

// formatResult renders a planner result as REPL output.
func formatResult(res *planner.Result) []string {
	var out []string
	if res.GoalSatisfied {
		out = append(out, fmt.Sprintf("%s already holds.", res.Goal))
	}
	if len(res.Plans) == 0 {
		return append(out, res.Diagnostic()+".")
	}
	out = append(out, fmt.Sprintf("Found %d plan(s) for %s:", len(res.Plans), res.Goal))
	for i, plan := range res.Plans {
		out = append(out, fmt.Sprintf("  %d. %s", i+1, planner.FormatPlan(plan)))
	}
	return out
}

func (e *Engine) cmdWhy(intent types.Intent, result *types.Result) {
	b := types.Behavior(intent.Object)
	if b == "" {
		result.Output = append(result.Output, "Why what? Name a behavior.")
		return
	}

	e.mu.RLock()
	p := e.planner
	world := state.Clone(e.world)
	e.mu.RUnlock()

	unmet, err := p.UnmetPreconditions(world, b)
	if err != nil {
		result.Output = append(result.Output, err.Error()+".")
		return
	}
	if len(unmet) == 0 {
		result.Output = append(result.Output, fmt.Sprintf("%s can run now.", b))
		return
	}

	result.Output = append(result.Output, fmt.Sprintf("%s is blocked by:", b))
	for _, f := range unmet {
		enablers := p.Enablers(f)
		if len(enablers) == 0 {
			result.Output = append(result.Output, fmt.Sprintf("  %s (nothing achieves it)", f))
			continue
		}
		result.Output = append(result.Output,
			fmt.Sprintf("  %s (achieved by %s)", f, joinBehaviors(enablers)))
	}
}

func (e *Engine) cmdSet(intent types.Intent, result *types.Result) {
	value, ok := parser.ParseBool(intent.Target)
	if !ok {
		result.Output = append(result.Output,
			fmt.Sprintf("%q is not true or false.", intent.Target))
		return
	}
	e.cmdAssign(types.Fact(intent.Object), value, result)
}

func (e *Engine) cmdAssign(f types.Fact, value bool, result *types.Result) {
	if f == "" {
		result.Output = append(result.Output, "Which fact?")
		return
	}

	e.mu.Lock()
	err := state.SetFact(e.world, e.Defs, f, value)
	e.mu.Unlock()

	if err != nil {
		result.Output = append(result.Output, err.Error()+".")
		return
	}
	result.Output = append(result.Output, fmt.Sprintf("%s is now %t.", f, value))
}

func (e *Engine) cmdToggle(intent types.Intent, result *types.Result) {
	f := types.Fact(intent.Object)
	if f == "" {
		result.Output = append(result.Output, "Which fact?")
		return
	}

	e.mu.Lock()
	cur, _ := state.GetFact(e.world, f)
	err := state.SetFact(e.world, e.Defs, f, !cur)
	e.mu.Unlock()

	if err != nil {
		result.Output = append(result.Output, err.Error()+".")
		return
	}
	result.Output = append(result.Output, fmt.Sprintf("%s is now %t.", f, !cur))
}

func (e *Engine) cmdFacts(result *types.Result) {
	world := e.World()
	for _, f := range e.Defs.FactOrder {
		mark := "[ ]"
		if world[f] {
			mark = "[x]"
		}
		line := fmt.Sprintf("  %s %s", mark, f)
		if desc := e.Defs.Facts[f].Description; desc != "" {
			line += "  " + desc
		}
		result.Output = append(result.Output, line)
	}
}

func (e *Engine) cmdBehaviors(result *types.Result) {
	for _, id := range e.Defs.BehaviorOrder {
		b := e.Defs.Behaviors[id]
		parts := []string{"requires " + orNone(joinFacts(b.Requires))}
		parts = append(parts, "achieves "+orNone(joinFacts(b.Achieves)))
		result.Output = append(result.Output, fmt.Sprintf("  %s: %s", id, strings.Join(parts, "; ")))
	}
}

func (e *Engine) cmdGoal(intent types.Intent, result *types.Result) {
	if intent.Object == "" {
		if g := e.Goal(); g != "" {
			result.Output = append(result.Output, fmt.Sprintf("Default goal: %s", g))
		} else {
			result.Output = append(result.Output, "No default goal. Set one with: goal <fact>")
		}
		return
	}
	f := types.Fact(intent.Object)
	if err := e.SetGoal(f); err != nil {
		result.Output = append(result.Output, err.Error()+".")
		return
	}
	result.Output = append(result.Output, fmt.Sprintf("Default goal is now %s.", f))
}

func (e *Engine) cmdAgents(result *types.Result) {
	agents := e.Agents()
	if len(agents) == 0 {
		result.Output = append(result.Output, "This domain declares no agents.")
		return
	}
	for _, a := range agents {
		line := fmt.Sprintf("  %s: goal %s", a.ID, a.Goal)
		if len(a.World) > 0 {
			var overrides []string
			for _, f := range state.SortedFacts(a.World) {
				overrides = append(overrides, fmt.Sprintf("%s=%t", f, a.World[f]))
			}
			line += " (" + strings.Join(overrides, ", ") + ")"
		}
		result.Output = append(result.Output, line)
	}
}

func (e *Engine) cmdPlanAll(ctx context.Context, result *types.Result) {
	agents := e.Agents()
	if len(agents) == 0 {
		result.Output = append(result.Output, "This domain declares no agents.")
		return
	}
	results, err := e.PlanAll(ctx)
	if err != nil {
		result.Output = append(result.Output, fmt.Sprintf("Planning failed: %v", err))
		return
	}
	for _, a := range agents {
		res := results[a.ID]
		if len(res.Plans) == 0 {
			result.Output = append(result.Output, fmt.Sprintf("%s: %s.", a.ID, res.Diagnostic()))
			continue
		}
		result.Output = append(result.Output, fmt.Sprintf("%s: %d plan(s), next step %s (%s)",
			a.ID, len(res.Plans), planner.Frontier(res.Plans[0]), planner.FormatPlan(res.Plans[0])))
	}
}

func orNone(s string) string {
	if s == "" {
		return "nothing"
	}
	return s
}
