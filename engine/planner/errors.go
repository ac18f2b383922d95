package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/goapcore/types"
)

var (
	// ErrUnplannableGoal means the goal fact has no enabling behavior.
	ErrUnplannableGoal = errors.New("unplannable goal")

	// ErrUnknownBehavior means a behavior is referenced but has no
	// precondition entry.
	ErrUnknownBehavior = errors.New("unknown behavior")

	// ErrUnknownFact means a fact is referenced but not declared.
	ErrUnknownFact = errors.New("unknown fact")

	// ErrMissingWorldStateEntry means the world snapshot has no value for a
	// fact the search needs.
	ErrMissingWorldStateEntry = errors.New("missing world state entry")

	// ErrCyclicPlanningGraph means a branch revisited a behavior already on
	// its chain, or grew past the depth limit.
	ErrCyclicPlanningGraph = errors.New("cyclic planning graph")

	// ErrNoEnabler means a branch needs a fact that no behavior establishes.
	ErrNoEnabler = errors.New("no enabling behavior")
)

// ConfigError collects every integrity problem found in a domain.
// errors.Is matches any of the wrapped sentinels.
type ConfigError struct {
	Errors []error
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid planning domain with %d error(s):\n  %s",
		len(e.Errors), strings.Join(msgs, "\n  "))
}

func (e *ConfigError) Unwrap() []error {
	return e.Errors
}

// MissingFactsError lists the facts a world snapshot lacks.
type MissingFactsError struct {
	Goal  types.Fact
	Facts []types.Fact
}

func (e *MissingFactsError) Error() string {
	names := make([]string, len(e.Facts))
	for i, f := range e.Facts {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: planning %q needs %s",
		ErrMissingWorldStateEntry, e.Goal, strings.Join(names, ", "))
}

func (e *MissingFactsError) Unwrap() error {
	return ErrMissingWorldStateEntry
}
