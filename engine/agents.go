package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/goapcore/engine/planner"
	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// Agents returns the declared agents in declaration order.
func (e *Engine) Agents() []types.AgentDef {
	out := make([]types.AgentDef, 0, len(e.Defs.AgentOrder))
	for _, id := range e.Defs.AgentOrder {
		out = append(out, e.Defs.Agents[id])
	}
	return out
}

// PlanAgent plans for one agent's goal from its own world. The session world
// is not involved.
func (e *Engine) PlanAgent(ctx context.Context, id string) (*planner.Result, error) {
	agent, ok := e.Defs.Agents[id]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", id)
	}
	world, err := state.AgentWorld(e.Defs, id)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	p := e.planner
	e.mu.RUnlock()

	res, err := p.FindPlans(ctx, world, agent.Goal)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", id, err)
	}
	return res, nil
}

// PlanAll plans for every agent concurrently, at most cfg.Workers at a time.
// The first failure cancels the remaining searches.
func (e *Engine) PlanAll(ctx context.Context) (map[string]*planner.Result, error) {
	runID := uuid.NewString()
	agents := e.Defs.AgentOrder
	logger := e.logger.With("run", runID)
	logger.Info("planning all agents", "agents", len(agents), "workers", e.cfg.Workers)

	results := make([]*planner.Result, len(agents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))
	for i, id := range agents {
		g.Go(func() error {
			res, err := e.PlanAgent(gctx, id)
			if err != nil {
				return err
			}
			results[i] = res
			logger.Debug("agent planned", "agent", id, "plans", len(res.Plans))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("planning all agents failed", "error", err)
		return nil, err
	}

	out := make(map[string]*planner.Result, len(agents))
	for i, id := range agents {
		out[id] = results[i]
	}
	logger.Info("planned all agents", "agents", len(out))
	return out, nil
}
