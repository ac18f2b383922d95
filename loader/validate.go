package loader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled defs for referential integrity and consistency.
func validate(defs *state.Defs) error {
	ve := &ValidationError{}

	// Domain name required.
	if defs.Domain.Name == "" {
		ve.Errors = append(ve.Errors, "Domain.name is required")
	}

	if len(defs.Facts) == 0 {
		ve.Errors = append(ve.Errors, "at least one Fact is required")
	}

	// Duplicate declarations.
	factOrder, dupFacts := dedupe(defs.FactOrder)
	for _, id := range dupFacts {
		ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate fact %q", id))
	}
	behaviorOrder, dupBehaviors := dedupe(defs.BehaviorOrder)
	for _, id := range dupBehaviors {
		ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate behavior %q", id))
	}
	agentOrder, dupAgents := dedupe(defs.AgentOrder)
	for _, id := range dupAgents {
		ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate agent %q", id))
	}

	// Behavior references.
	referenced := map[types.Fact]bool{}
	for _, id := range behaviorOrder {
		b := defs.Behaviors[id]
		for _, f := range b.Requires {
			referenced[f] = true
			if _, ok := defs.Facts[f]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"behavior %q requires undeclared fact %q", id, f))
			}
		}
		for _, f := range b.Achieves {
			referenced[f] = true
			if _, ok := defs.Facts[f]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"behavior %q achieves undeclared fact %q", id, f))
			}
		}

		if len(b.Achieves) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"behavior %q achieves nothing and can never appear in a plan", id))
		}
		for _, f := range b.Achieves {
			if contains(b.Requires, f) {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"behavior %q requires the fact it achieves (%q); planning through it always cycles", id, f))
			}
		}
	}

	// Default goal.
	if defs.Domain.Goal != "" {
		referenced[defs.Domain.Goal] = true
		validateGoal(fmt.Sprintf("Domain.goal %q", defs.Domain.Goal), defs.Domain.Goal, defs, ve)
	}

	// Agents.
	for _, id := range agentOrder {
		agent := defs.Agents[id]
		if agent.Goal == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("agent %q has no goal", id))
		} else {
			referenced[agent.Goal] = true
			validateGoal(fmt.Sprintf("agent %q goal %q", id, agent.Goal), agent.Goal, defs, ve)
		}
		for f := range agent.World {
			if _, ok := defs.Facts[f]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"agent %q sets undeclared fact %q", id, f))
			}
		}
	}

	// Warnings: facts nothing refers to.
	for _, f := range factOrder {
		if !referenced[f] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"fact %q is not used by any behavior or goal", f))
		}
	}

	for _, w := range ve.Warnings {
		slog.Warn("domain validation", "domain", defs.Domain.Name, "warning", w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateGoal checks that a goal is a declared fact some behavior achieves.
func validateGoal(label string, goal types.Fact, defs *state.Defs, ve *ValidationError) {
	if _, ok := defs.Facts[goal]; !ok {
		ve.Errors = append(ve.Errors, label+" is not a declared fact")
		return
	}
	if len(defs.Tables.Enablers[goal]) == 0 {
		ve.Errors = append(ve.Errors, label+" is not achieved by any behavior")
	}
}

// dedupe returns ids without repeats, in first-seen order, and each repeated
// id once.
func dedupe[T comparable](ids []T) (unique, dups []T) {
	seen := make(map[T]int, len(ids))
	for _, id := range ids {
		seen[id]++
		switch seen[id] {
		case 1:
			unique = append(unique, id)
		case 2:
			dups = append(dups, id)
		}
	}
	return unique, dups
}

func contains(facts []types.Fact, f types.Fact) bool {
	for _, x := range facts {
		if x == f {
			return true
		}
	}
	return false
}
