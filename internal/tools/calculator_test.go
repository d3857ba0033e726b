package tools

import (
	"context"
	"strings"
	"testing"
)

func TestCalculatorEvaluatesArithmetic(t *testing.T) {
	results, err := NewCalculator().Evaluate(context.Background(), "2 + 3")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].String("result") != "5" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if results[0].String("source_type") != "calculation" {
		t.Fatalf("unexpected source type: %q", results[0].String("source_type"))
	}
}

func TestCalculatorRejectsForbiddenPatterns(t *testing.T) {
	for _, expression := range []string{
		`import "os"`,
		"os.Getenv(\"HOME\")",
		"exec something",
		"func() {}()",
	} {
		results, err := NewCalculator().Evaluate(context.Background(), expression)
		if err != nil {
			t.Fatalf("evaluate %q: %v", expression, err)
		}
		if len(results) != 1 || !results[0].HasError() {
			t.Fatalf("expected error record for %q, got %v", expression, results)
		}
		if !strings.Contains(results[0].String("error"), "forbidden pattern") {
			t.Fatalf("unexpected error text: %q", results[0].String("error"))
		}
	}
}

func TestCalculatorInvalidExpressionIsErrorRecord(t *testing.T) {
	results, err := NewCalculator().Evaluate(context.Background(), "2 +")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(results) != 1 || !results[0].HasError() {
		t.Fatalf("expected error record, got %v", results)
	}
}

func TestCalculatorEmptyExpression(t *testing.T) {
	results, err := NewCalculator().Evaluate(context.Background(), "  ")
	if err != nil || results != nil {
		t.Fatalf("expected nil/nil, got %v/%v", results, err)
	}
}
