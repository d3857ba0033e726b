package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const fallbackConfidence = 0.7

// Verifier reviews accumulated findings for completeness and accuracy.
// By policy it never blocks the pipeline: any internal failure defaults
// to approval with a stated confidence penalty.
type Verifier struct {
	llm     Completer
	limiter Limiter
}

func NewVerifier(llm Completer, limiter Limiter) Verifier {
	return Verifier{llm: llm, limiter: limiter}
}

// Verify never returns an error; all failure modes collapse into an
// auto-approved result.
func (v Verifier) Verify(ctx context.Context, query string, plan Plan, findings []Finding) VerificationResult {
	result, err := v.fromLLM(ctx, query, plan, findings)
	if err != nil {
		return approvedFallback(err)
	}
	return result
}

func (v Verifier) fromLLM(ctx context.Context, query string, plan Plan, findings []Finding) (VerificationResult, error) {
	if v.llm == nil {
		return VerificationResult{}, fmt.Errorf("verifier completer unavailable")
	}
	if err := waitFor(ctx, v.limiter); err != nil {
		return VerificationResult{}, err
	}

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return VerificationResult{}, err
	}

	raw, err := v.llm.Complete(ctx, verifierSystemPrompt,
		buildVerifierUserPrompt(query, string(planJSON), reviewDigest(findings), countSources(findings)))
	if err != nil {
		return VerificationResult{}, err
	}

	var result VerificationResult
	if err := unmarshalRecord(raw, &result); err != nil {
		return VerificationResult{}, err
	}
	if result.ConfidenceScore < 0 {
		result.ConfidenceScore = 0
	}
	if result.ConfidenceScore > 1 {
		result.ConfidenceScore = 1
	}
	return result, nil
}

// reviewDigest lists each finding's subtask id, text, and source count
// for the review prompt.
func reviewDigest(findings []Finding) string {
	var b strings.Builder
	for _, finding := range findings {
		text := finding.Findings
		if text == "" {
			text = "No findings"
		}
		fmt.Fprintf(&b, "\n\nSubtask %d:\n%s\nSources: %d", finding.SubtaskID, text, len(finding.Sources))
	}
	return b.String()
}

func approvedFallback(cause error) VerificationResult {
	return VerificationResult{
		IsComplete:      true,
		IsAccurate:      true,
		MissingAspects:  []string{},
		Suggestions:     []string{},
		ConfidenceScore: fallbackConfidence,
		Approved:        true,
		Reasoning:       fmt.Sprintf("Auto-approved due to verification error: %v", cause),
	}
}
