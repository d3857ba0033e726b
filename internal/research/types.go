// Package research implements the four-stage pipeline that turns a
// free-text query into a cited report: plan, execute, verify,
// synthesize. The engine owns the run state and sequences the stages;
// every LLM response passes through the JSON extractor before it is
// trusted.
package research

import "context"

// Completer is the LLM boundary. Implementations return raw completion
// text with no format guarantee; callers must assume prose, markdown
// fences, truncated JSON, or control characters.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Step names the workflow states. The four active steps double as the
// progress-notification vocabulary.
type Step string

const (
	StepPlanning     Step = "planning"
	StepExecuting    Step = "executing"
	StepVerifying    Step = "verifying"
	StepSynthesizing Step = "synthesizing"
	StepComplete     Step = "complete"
	StepError        Step = "error"
)

// State is the mutable research state for one run. It is created by
// Engine.Run, mutated in place by each stage, and returned in its
// terminal form; nothing retains a reference to it afterwards.
type State struct {
	Query        string              `json:"query"`
	Plan         *Plan               `json:"plan,omitempty"`
	Findings     []Finding           `json:"findings"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Report       *Report             `json:"report,omitempty"`
	CurrentStep  Step                `json:"current_step"`
	Iteration    int                 `json:"iteration"`
	Messages     []string            `json:"messages"`
	Errors       []string            `json:"errors"`
}

type Plan struct {
	QueryUnderstanding string    `json:"query_understanding"`
	Complexity         string    `json:"complexity"`
	Subtasks           []Subtask `json:"subtasks"`
	ExpectedSections   []string  `json:"expected_sections"`
	EstimatedSources   int       `json:"estimated_sources"`
}

type Subtask struct {
	ID          int      `json:"id"`
	Description string   `json:"description"`
	ToolsNeeded []string `json:"tools_needed"`
	Priority    string   `json:"priority"`
}

// Finding is the synthesized result of executing one subtask. The
// fallback tiers in the executor guarantee Findings is never empty.
type Finding struct {
	SubtaskID         int            `json:"subtask_id"`
	Findings          string         `json:"findings"`
	Sources           []SourceRecord `json:"sources"`
	CodeExamples      string         `json:"code_examples,omitempty"`
	NeedsMoreResearch bool           `json:"needs_more_research"`
}

// SourceRecord is a normalized citation unit. Index is assigned only at
// synthesis time, 1-based across all findings; it is a display position,
// not a stable identity.
type SourceRecord struct {
	Index      int    `json:"index,omitempty"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	SourceType string `json:"source_type"`
	Snippet    string `json:"snippet"`
}

// VerificationResult is the verifier's judgment. Approved is the only
// field that drives control flow.
type VerificationResult struct {
	IsComplete      bool     `json:"is_complete"`
	IsAccurate      bool     `json:"is_accurate"`
	MissingAspects  []string `json:"missing_aspects"`
	Suggestions     []string `json:"suggestions"`
	ConfidenceScore float64  `json:"confidence_score"`
	Approved        bool     `json:"approved"`
	Reasoning       string   `json:"reasoning"`
}

type ReportSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type Report struct {
	Title            string          `json:"title"`
	ExecutiveSummary string          `json:"executive_summary"`
	Sections         []ReportSection `json:"sections"`
	References       []SourceRecord  `json:"references"`
	GeneratedAt      string          `json:"generated_at"`
}
