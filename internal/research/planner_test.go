package research

import (
	"context"
	"errors"
	"testing"
)

type completerStub struct {
	response string
	err      error
}

func (s completerStub) Complete(_ context.Context, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const validPlanJSON = `{
  "query_understanding": "The user wants an overview of vector search",
  "complexity": "moderate",
  "subtasks": [
    {"id": 1, "description": "Define vector search", "tools_needed": ["wikipedia", "tavily"], "priority": "high"},
    {"id": 2, "description": "Survey vector search algorithms", "tools_needed": ["arxiv"], "priority": "medium"}
  ],
  "expected_sections": ["Introduction", "Core Concepts", "Algorithms", "Applications", "Conclusion"],
  "estimated_sources": 6
}`

func TestPlannerValidJSON(t *testing.T) {
	planner := NewPlanner(completerStub{response: validPlanJSON}, NopLimiter{})

	plan, err := planner.Plan(context.Background(), "what is vector search")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(plan.Subtasks))
	}
	if plan.Subtasks[0].Description != "Define vector search" {
		t.Fatalf("unexpected subtask: %+v", plan.Subtasks[0])
	}
	if plan.Complexity != "moderate" {
		t.Fatalf("unexpected complexity: %s", plan.Complexity)
	}
}

func TestPlannerAppliesDefaults(t *testing.T) {
	planner := NewPlanner(completerStub{response: `{"subtasks": [{"description": "look things up", "tools_needed": ["tavily"]}]}`}, NopLimiter{})

	plan, err := planner.Plan(context.Background(), "q")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Complexity != "moderate" {
		t.Fatalf("expected default complexity, got %q", plan.Complexity)
	}
	if plan.Subtasks[0].ID != 1 {
		t.Fatalf("expected assigned id 1, got %d", plan.Subtasks[0].ID)
	}
	if plan.Subtasks[0].Priority != "medium" {
		t.Fatalf("expected default priority, got %q", plan.Subtasks[0].Priority)
	}
}

func TestPlannerProseIsUnparseable(t *testing.T) {
	planner := NewPlanner(completerStub{response: "I could not produce a plan, apologies."}, NopLimiter{})

	_, err := planner.Plan(context.Background(), "q")
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Reason != ReasonUnparseable {
		t.Fatalf("unexpected reason: %s", extractionErr.Reason)
	}
}

func TestPlannerEmptySubtasksIsSchemaMismatch(t *testing.T) {
	planner := NewPlanner(completerStub{response: `{"query_understanding": "x", "subtasks": []}`}, NopLimiter{})

	_, err := planner.Plan(context.Background(), "q")
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Reason != ReasonSchemaMismatch {
		t.Fatalf("unexpected reason: %s", extractionErr.Reason)
	}
}

func TestPlannerCompleterError(t *testing.T) {
	planner := NewPlanner(completerStub{err: errors.New("upstream unavailable")}, NopLimiter{})

	if _, err := planner.Plan(context.Background(), "q"); err == nil {
		t.Fatal("expected error from failing completer")
	}
}
