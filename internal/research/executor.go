package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"deepresearch/backend/internal/tools"
)

const (
	contextResultLimit   = 5
	contextResultRunes   = 500
	rawFallbackLimit     = 3
	rawFallbackRunes     = 400
	minFindingsRunes     = 50
	priorFindingsRunes   = 200
	subtaskProgressRunes = 50
)

// Executor runs the plan's subtasks strictly in order. Each subtask
// invokes tools, then asks the LLM to synthesize the results; a chain of
// fallback strategies guarantees every subtask yields a non-empty
// Finding even when tools and LLM both fail.
type Executor struct {
	llm     Completer
	invoker Invoker
	limiter Limiter
	pause   Limiter
}

func NewExecutor(llm Completer, invoker Invoker, limiter, pause Limiter) Executor {
	return Executor{llm: llm, invoker: invoker, limiter: limiter, pause: pause}
}

// ExecutePlan processes subtasks sequentially with a pause between them
// to respect provider rate limits. A digest of prior findings is carried
// forward for context. An error is returned only when the context ends
// mid-plan.
func (e Executor) ExecutePlan(ctx context.Context, plan Plan, notify func(string)) ([]Finding, error) {
	findings := make([]Finding, 0, len(plan.Subtasks))
	var priorDigest strings.Builder

	for i, subtask := range plan.Subtasks {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if notify != nil {
			notify(fmt.Sprintf("Executing subtask %d/%d: %s...",
				i+1, len(plan.Subtasks), trimToRunes(subtask.Description, subtaskProgressRunes)))
		}

		finding := e.ExecuteSubtask(ctx, subtask, priorDigest.String())
		findings = append(findings, finding)

		if finding.Findings != "" {
			priorDigest.WriteString("\n- ")
			priorDigest.WriteString(trimToRunes(finding.Findings, priorFindingsRunes))
		}

		if i < len(plan.Subtasks)-1 {
			if err := waitFor(ctx, e.pause); err != nil {
				return findings, err
			}
		}
	}
	return findings, nil
}

// ExecuteSubtask gathers tool results for one subtask and synthesizes
// them into findings text. The priorDigest parameter carries earlier
// findings for context; it is logged but not yet fed into tool
// selection.
func (e Executor) ExecuteSubtask(ctx context.Context, subtask Subtask, priorDigest string) Finding {
	kept, sources := e.invoker.Invoke(ctx, subtask)
	if priorDigest != "" {
		log.Printf("executor context: subtask=%d prior_digest_len=%d", subtask.ID, len(priorDigest))
	}

	// Ordered fallback strategies, first acceptable result wins. The
	// generic sentence is always acceptable so the chain cannot fail.
	strategies := []func() string{
		func() string { return e.synthesizeFindings(ctx, subtask, kept) },
		func() string { return rawFindingsText(subtask.Description, kept) },
		func() string {
			return fmt.Sprintf("Explored %s. Found %d relevant sources.", subtask.Description, len(sources))
		},
	}

	var text string
	for i, strategy := range strategies {
		text = strategy()
		if utf8.RuneCountInString(text) >= minFindingsRunes || i == len(strategies)-1 {
			break
		}
	}

	return Finding{
		SubtaskID: subtask.ID,
		Findings:  text,
		Sources:   sources,
	}
}

// synthesizeFindings asks the LLM for a 2-3 paragraph summary of the
// tool results. Returns "" on any failure so the caller moves to the
// next strategy.
func (e Executor) synthesizeFindings(ctx context.Context, subtask Subtask, kept []tools.Result) string {
	if e.llm == nil {
		return ""
	}
	if err := waitFor(ctx, e.limiter); err != nil {
		return ""
	}

	data := contextDigest(subtask.Description, kept)
	raw, err := e.llm.Complete(ctx, executorSynthesisSystemPrompt, buildExecutorUserPrompt(subtask.Description, data))
	if err != nil {
		log.Printf("executor synthesis failed: subtask=%d err=%v", subtask.ID, err)
		return ""
	}

	var synthesis struct {
		Findings  string   `json:"findings"`
		KeyPoints []string `json:"key_points"`
	}
	if err := unmarshalRecord(raw, &synthesis); err != nil {
		log.Printf("executor synthesis unparseable: subtask=%d err=%v", subtask.ID, err)
		return ""
	}
	return synthesis.Findings
}

// contextDigest formats up to five tool results as prompt context, or a
// general-knowledge placeholder when nothing was found.
func contextDigest(topic string, kept []tools.Result) string {
	var b strings.Builder
	limit := len(kept)
	if limit > contextResultLimit {
		limit = contextResultLimit
	}
	for _, record := range kept[:limit] {
		content := resultText(record)
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]: %s\n", record.String("title"), trimToRunes(content, contextResultRunes))
	}
	if strings.TrimSpace(b.String()) == "" {
		return fmt.Sprintf("Topic: %s. Provide general knowledge about this topic.", topic)
	}
	return b.String()
}

// rawFindingsText concatenates raw content from up to three results.
func rawFindingsText(topic string, kept []tools.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research on %s:\n\n", topic)
	limit := len(kept)
	if limit > rawFallbackLimit {
		limit = rawFallbackLimit
	}
	appended := false
	for _, record := range kept[:limit] {
		content := resultText(record)
		if content == "" {
			continue
		}
		b.WriteString(trimToRunes(content, rawFallbackRunes))
		b.WriteString("\n\n")
		appended = true
	}
	if !appended {
		return ""
	}
	return b.String()
}
