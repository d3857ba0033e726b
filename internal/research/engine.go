package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deepresearch/backend/internal/tools"
)

// NotifyFunc receives fire-and-forget progress notifications. Step is
// one of the four active workflow steps.
type NotifyFunc func(step Step, message string)

// Options tunes one engine. MaxVerificationRetries bounds the
// executing-verifying loop; without the bound the loop is not guaranteed
// to terminate, since approval is LLM-judged.
type Options struct {
	MaxVerificationRetries int
	LLMCallDelay           time.Duration
	SubtaskPause           time.Duration

	// SynthesisCompleter overrides the completer for the synthesis
	// stage, which runs with different sampling settings. Defaults to
	// the main completer.
	SynthesisCompleter Completer

	Notify NotifyFunc
}

// Engine is the workflow state machine. It owns the State for the
// duration of one Run call and sequences the four stages, looping from
// verification back to execution until the verifier approves or the
// retry bound is reached.
type Engine struct {
	planner     Planner
	executor    Executor
	verifier    Verifier
	synthesizer Synthesizer
	maxRetries  int
	notify      NotifyFunc
}

func NewEngine(llm Completer, registry tools.Registry, opts Options) *Engine {
	llmLimiter := NewFixedDelayLimiter(opts.LLMCallDelay)
	pause := NewFixedDelayLimiter(opts.SubtaskPause)
	synthLLM := opts.SynthesisCompleter
	if synthLLM == nil {
		synthLLM = llm
	}
	maxRetries := opts.MaxVerificationRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Engine{
		planner:     NewPlanner(llm, llmLimiter),
		executor:    NewExecutor(llm, NewInvoker(registry), llmLimiter, pause),
		verifier:    NewVerifier(llm, llmLimiter),
		synthesizer: NewSynthesizer(synthLLM, llmLimiter),
		maxRetries:  maxRetries,
		notify:      opts.Notify,
	}
}

// Run drives the workflow to a terminal state and returns the full
// state, including the report (absent on planning failure) and any
// accumulated errors.
func (e *Engine) Run(ctx context.Context, query string) *State {
	state := &State{
		Query:       strings.TrimSpace(query),
		Findings:    []Finding{},
		CurrentStep: StepPlanning,
		Messages:    []string{},
		Errors:      []string{},
	}

	for {
		if state.CurrentStep == StepComplete || state.CurrentStep == StepError {
			return state
		}
		if err := ctx.Err(); err != nil {
			state.Errors = append(state.Errors, fmt.Sprintf("research cancelled: %v", err))
			state.CurrentStep = StepError
			return state
		}

		switch state.CurrentStep {
		case StepPlanning:
			e.planNode(ctx, state)
		case StepExecuting:
			e.executeNode(ctx, state)
		case StepVerifying:
			e.verifyNode(ctx, state)
		case StepSynthesizing:
			e.synthesizeNode(ctx, state)
		default:
			return state
		}
	}
}

func (e *Engine) planNode(ctx context.Context, state *State) {
	e.emit(StepPlanning, "Creating research plan...")

	plan, err := e.planner.Plan(ctx, state.Query)
	if err != nil {
		state.Errors = append(state.Errors, err.Error())
		state.CurrentStep = StepError
		e.emit(StepPlanning, fmt.Sprintf("Planning failed: %v", err))
		return
	}

	state.Plan = &plan
	state.CurrentStep = StepExecuting
	state.Messages = append(state.Messages, "Research plan created")
	e.emit(StepPlanning, fmt.Sprintf("Plan ready: %d subtasks", len(plan.Subtasks)))
}

func (e *Engine) executeNode(ctx context.Context, state *State) {
	e.emit(StepExecuting, "Executing research plan...")

	findings, err := e.executor.ExecutePlan(ctx, *state.Plan, func(message string) {
		e.emit(StepExecuting, message)
	})
	state.Findings = append(state.Findings, findings...)
	if err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("execution interrupted: %v", err))
		state.CurrentStep = StepError
		return
	}

	state.CurrentStep = StepVerifying
	state.Messages = append(state.Messages, fmt.Sprintf("Gathered %d findings", len(findings)))
	e.emit(StepExecuting, fmt.Sprintf("Research complete: %d sources collected", countSources(findings)))
}

func (e *Engine) verifyNode(ctx context.Context, state *State) {
	e.emit(StepVerifying, "Verifying research quality...")

	verification := e.verifier.Verify(ctx, state.Query, *state.Plan, state.Findings)
	state.Verification = &verification

	if verification.Approved {
		state.CurrentStep = StepSynthesizing
		state.Messages = append(state.Messages,
			fmt.Sprintf("Research verified (confidence: %.0f%%)", verification.ConfidenceScore*100))
		e.emit(StepVerifying, fmt.Sprintf("Verified with %.0f%% confidence", verification.ConfidenceScore*100))
		return
	}

	state.Iteration++
	if state.Iteration < e.maxRetries {
		state.CurrentStep = StepExecuting
		state.Messages = append(state.Messages,
			"Need more research: "+strings.Join(verification.MissingAspects, ", "))
		e.emit(StepVerifying, "Requesting additional research...")
		return
	}

	state.CurrentStep = StepSynthesizing
	state.Messages = append(state.Messages, "Max iterations reached, proceeding anyway")
	e.emit(StepVerifying, "Proceeding with available findings")
}

func (e *Engine) synthesizeNode(ctx context.Context, state *State) {
	e.emit(StepSynthesizing, "Writing research report...")

	report, err := e.synthesizer.Synthesize(ctx, state.Query, *state.Plan, state.Findings)
	if err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("synthesis failed: %v", err))
		state.CurrentStep = StepError
		return
	}

	state.Report = &report
	state.CurrentStep = StepComplete
	state.Messages = append(state.Messages, "Report generated successfully")
	e.emit(StepSynthesizing, "Report complete")
}

func (e *Engine) emit(step Step, message string) {
	if e.notify == nil {
		return
	}
	e.notify(step, message)
}
