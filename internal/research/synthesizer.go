package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	fullDigestRunes     = 3000
	simpleDigestRunes   = 2000
	citedSourcesLimit   = 15
	fallbackSectionMin  = 50
	fallbackHeadingSize = 60
)

// Synthesizer compiles accumulated findings into the final report. Two
// LLM attempts are made (full prompt, then a simplified one); if neither
// yields a section with content, the report is built deterministically
// from the raw findings, so synthesis always terminates with a
// well-formed Report.
type Synthesizer struct {
	llm     Completer
	limiter Limiter
	now     func() time.Time
}

func NewSynthesizer(llm Completer, limiter Limiter) Synthesizer {
	return Synthesizer{llm: llm, limiter: limiter, now: time.Now}
}

type reportDraft struct {
	Title            string          `json:"title"`
	ExecutiveSummary string          `json:"executive_summary"`
	Sections         []ReportSection `json:"sections"`
}

// Synthesize returns an error only when the context ends; every other
// failure falls through to the deterministic report.
func (s Synthesizer) Synthesize(ctx context.Context, query string, plan Plan, findings []Finding) (Report, error) {
	references := indexedSources(findings)
	digest := findingsDigest(query, findings)
	sources := sourcesDigest(references)

	draft, err := s.attempt(ctx, synthesizerSystemPrompt,
		buildSynthesizerUserPrompt(query, trimToRunes(digest, fullDigestRunes), sources))
	if err == nil {
		return s.reportFromDraft(query, draft, references), nil
	}
	if ctx.Err() != nil {
		return Report{}, ctx.Err()
	}
	log.Printf("synthesizer primary attempt failed: err=%v", err)

	// Extra pause before the retry: the primary failure is often a
	// rate-limit symptom.
	if waitErr := waitFor(ctx, s.limiter); waitErr != nil {
		return Report{}, waitErr
	}
	draft, err = s.attempt(ctx, synthesizerSimpleSystemPrompt,
		buildSynthesizerSimpleUserPrompt(query, trimToRunes(digest, simpleDigestRunes)))
	if err == nil {
		return s.reportFromDraft(query, draft, references), nil
	}
	if ctx.Err() != nil {
		return Report{}, ctx.Err()
	}
	log.Printf("synthesizer retry attempt failed: err=%v", err)

	return s.fallbackReport(query, findings, references), nil
}

func (s Synthesizer) attempt(ctx context.Context, systemPrompt, userPrompt string) (reportDraft, error) {
	if s.llm == nil {
		return reportDraft{}, fmt.Errorf("synthesizer completer unavailable")
	}
	if err := waitFor(ctx, s.limiter); err != nil {
		return reportDraft{}, err
	}

	raw, err := s.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return reportDraft{}, err
	}

	var draft reportDraft
	if err := unmarshalRecord(raw, &draft); err != nil {
		return reportDraft{}, err
	}
	draft.Sections = validSections(draft.Sections)
	if len(draft.Sections) == 0 {
		return reportDraft{}, fmt.Errorf("no valid sections generated")
	}
	return draft, nil
}

// validSections keeps sections with non-empty content, defaulting a
// missing heading.
func validSections(sections []ReportSection) []ReportSection {
	valid := make([]ReportSection, 0, len(sections))
	for _, section := range sections {
		if strings.TrimSpace(section.Content) == "" {
			continue
		}
		if strings.TrimSpace(section.Heading) == "" {
			section.Heading = "Section"
		}
		valid = append(valid, section)
	}
	return valid
}

func (s Synthesizer) reportFromDraft(query string, draft reportDraft, references []SourceRecord) Report {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = "Research Report: " + query
	}
	summary := strings.TrimSpace(draft.ExecutiveSummary)
	if summary == "" {
		summary = fmt.Sprintf("This report examines %s in detail.", query)
	}
	return Report{
		Title:            title,
		ExecutiveSummary: summary,
		Sections:         draft.Sections,
		References:       references,
		GeneratedAt:      s.timestamp(),
	}
}

// fallbackReport builds the report deterministically from raw findings:
// an introduction, one section per substantial finding, a conclusion.
func (s Synthesizer) fallbackReport(query string, findings []Finding, references []SourceRecord) Report {
	sections := []ReportSection{{
		Heading: "Introduction to " + query,
		Content: fmt.Sprintf(
			"This report provides a comprehensive analysis of %s. The research draws from %d sources including web resources, academic papers, and knowledge bases.\n\nThe following sections present detailed findings on various aspects of this topic.",
			query, len(references)),
	}}

	for _, finding := range findings {
		content := finding.Findings
		if utf8.RuneCountInString(content) <= fallbackSectionMin {
			continue
		}
		sections = append(sections, ReportSection{
			Heading: "Research Findings: " + headingFromFindings(content) + "...",
			Content: content,
		})
	}

	sections = append(sections, ReportSection{
		Heading: "Conclusion",
		Content: fmt.Sprintf(
			"This research has provided insights into %s. The analysis covered multiple aspects and drew from %d sources to present a comprehensive view of the topic.\n\nKey areas explored include the fundamental concepts, technical implementation, and practical applications.",
			query, len(references)),
	})

	return Report{
		Title: "Research Report: " + query,
		ExecutiveSummary: fmt.Sprintf(
			"This comprehensive report examines %s. The research synthesizes information from %d sources to provide detailed insights into the core concepts, technical aspects, and real-world applications of this topic.",
			query, len(references)),
		Sections:    sections,
		References:  references,
		GeneratedAt: s.timestamp(),
	}
}

func (s Synthesizer) timestamp() string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().Format(time.RFC3339)
}

// indexedSources flattens sources across findings and assigns 1-based
// display indices. Indices are recomputed per synthesis call, never
// stable identities.
func indexedSources(findings []Finding) []SourceRecord {
	var flattened []SourceRecord
	index := 1
	for _, finding := range findings {
		for _, source := range finding.Sources {
			source.Index = index
			flattened = append(flattened, source)
			index++
		}
	}
	return flattened
}

// findingsDigest concatenates substantial finding texts, or a
// general-knowledge placeholder when there are none.
func findingsDigest(query string, findings []Finding) string {
	var b strings.Builder
	for _, finding := range findings {
		if utf8.RuneCountInString(finding.Findings) <= 20 {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s\n", finding.Findings)
	}
	if strings.TrimSpace(b.String()) == "" {
		return fmt.Sprintf("Topic: %s. Provide comprehensive information about this topic.", query)
	}
	return b.String()
}

func sourcesDigest(references []SourceRecord) string {
	var b strings.Builder
	limit := len(references)
	if limit > citedSourcesLimit {
		limit = citedSourcesLimit
	}
	for _, source := range references[:limit] {
		fmt.Fprintf(&b, "[%d] %s", source.Index, source.Title)
		if source.URL != "" {
			fmt.Fprintf(&b, " - %s", source.URL)
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "General knowledge sources"
	}
	return b.String()
}
