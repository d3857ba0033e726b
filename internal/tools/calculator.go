package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Patterns that must never appear in an expression. The interpreter is
// already restricted to expression evaluation, but screening keeps
// obviously hostile input from ever reaching it.
var calculatorForbidden = []string{
	"import", "os.", "exec", "syscall", "unsafe", "go ", "func", "make(", "new(", "__",
}

// Calculator evaluates a single arithmetic expression in a sandboxed Go
// interpreter with the math package preloaded. It lives in the registry
// for direct invocation but is never selected by the automatic research
// loop.
type Calculator struct{}

func NewCalculator() Calculator {
	return Calculator{}
}

func (Calculator) Evaluate(ctx context.Context, expression string) ([]Result, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, nil
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range calculatorForbidden {
		if strings.Contains(lower, pattern) {
			return []Result{{"error": fmt.Sprintf("expression contains forbidden pattern: %s", strings.TrimSpace(pattern))}}, nil
		}
	}

	type evalOutcome struct {
		value string
		err   error
	}
	outcome := make(chan evalOutcome, 1)
	go func() {
		i := interp.New(interp.Options{})
		if err := i.Use(stdlib.Symbols); err != nil {
			outcome <- evalOutcome{err: fmt.Errorf("load interpreter stdlib: %w", err)}
			return
		}
		if _, err := i.Eval(`import "math"`); err != nil {
			outcome <- evalOutcome{err: fmt.Errorf("preload math package: %w", err)}
			return
		}
		value, err := i.Eval(trimmed)
		if err != nil {
			outcome <- evalOutcome{err: err}
			return
		}
		outcome <- evalOutcome{value: fmt.Sprintf("%v", value.Interface())}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-outcome:
		if result.err != nil {
			return []Result{{"error": fmt.Sprintf("calculation failed: %v", result.err)}}, nil
		}
		return []Result{{
			"expression":  trimmed,
			"result":      result.value,
			"source_type": "calculation",
		}}, nil
	}
}
