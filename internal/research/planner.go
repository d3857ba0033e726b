package research

import (
	"context"
	"errors"
	"fmt"
)

// Planner turns a query into a structured research plan. It is the one
// stage with no synthetic fallback: a plan cannot be meaningfully
// fabricated, so extraction failure fails the run.
type Planner struct {
	llm     Completer
	limiter Limiter
}

func NewPlanner(llm Completer, limiter Limiter) Planner {
	return Planner{llm: llm, limiter: limiter}
}

func (p Planner) Plan(ctx context.Context, query string) (Plan, error) {
	if p.llm == nil {
		return Plan{}, errors.New("planner completer unavailable")
	}
	if err := waitFor(ctx, p.limiter); err != nil {
		return Plan{}, err
	}

	raw, err := p.llm.Complete(ctx, plannerSystemPrompt, buildPlannerUserPrompt(query))
	if err != nil {
		return Plan{}, fmt.Errorf("planning failed: %w", err)
	}
	return parsePlan(raw)
}

func parsePlan(raw string) (Plan, error) {
	var plan Plan
	if err := unmarshalRecord(raw, &plan); err != nil {
		return Plan{}, err
	}
	if len(plan.Subtasks) == 0 {
		return Plan{}, &ExtractionError{
			Reason: ReasonSchemaMismatch,
			Raw:    raw,
			Err:    errors.New("plan has no subtasks"),
		}
	}

	if plan.Complexity == "" {
		plan.Complexity = "moderate"
	}
	for i := range plan.Subtasks {
		if plan.Subtasks[i].ID == 0 {
			plan.Subtasks[i].ID = i + 1
		}
		if plan.Subtasks[i].Priority == "" {
			plan.Subtasks[i].Priority = "medium"
		}
	}
	return plan, nil
}
