package research

import (
	"context"
	"log"
	"strings"

	"deepresearch/backend/internal/tools"
)

const (
	maxToolsPerSubtask = 2
	sourceSnippetRunes = 400
)

// directOnlyTools exist in the registry for manual invocation but are
// never selected by the automatic research loop.
var directOnlyTools = map[string]struct{}{
	tools.NameCalculator: {},
	tools.NameGoExec:     {},
	tools.NameReader:     {},
}

// Invoker dispatches a subtask's tool requests against the registry and
// normalizes the heterogeneous provider records into SourceRecords.
type Invoker struct {
	registry tools.Registry
}

func NewInvoker(registry tools.Registry) Invoker {
	return Invoker{registry: registry}
}

// Invoke runs up to two of the subtask's requested tools against the
// subtask description. Unknown names and direct-only names are skipped;
// a failing tool is logged and excluded, never fatal. It returns the
// kept raw records for downstream LLM context and the derived
// SourceRecords for citation.
func (inv Invoker) Invoke(ctx context.Context, subtask Subtask) ([]tools.Result, []SourceRecord) {
	selected := subtask.ToolsNeeded
	if len(selected) > maxToolsPerSubtask {
		selected = selected[:maxToolsPerSubtask]
	}

	var kept []tools.Result
	var sources []SourceRecord
	for _, name := range selected {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if _, reserved := directOnlyTools[normalized]; reserved {
			continue
		}
		fn, ok := inv.registry.Lookup(normalized)
		if !ok {
			continue
		}

		records, err := fn(ctx, subtask.Description)
		if err != nil {
			log.Printf("research tool failed: tool=%s subtask=%d err=%v", normalized, subtask.ID, err)
			continue
		}
		for _, record := range records {
			if record.HasError() {
				continue
			}
			kept = append(kept, record)
			sources = append(sources, sourceFromRecord(record))
		}
	}
	return kept, sources
}

// sourceFromRecord tolerates absent fields: providers disagree on which
// of content/abstract/summary carries the text.
func sourceFromRecord(record tools.Result) SourceRecord {
	title := record.String("title")
	if title == "" {
		title = "Source"
	}
	snippet := record.String("content")
	if snippet == "" {
		snippet = record.String("abstract")
	}
	if snippet == "" {
		snippet = record.String("summary")
	}
	sourceType := record.String("source_type")
	if sourceType == "" {
		sourceType = "web"
	}
	return SourceRecord{
		Title:      title,
		URL:        record.String("url"),
		SourceType: sourceType,
		Snippet:    trimToRunes(snippet, sourceSnippetRunes),
	}
}

// resultText returns the first non-empty text field of a raw record,
// matching the snippet preference order.
func resultText(record tools.Result) string {
	if text := record.String("content"); text != "" {
		return text
	}
	if text := record.String("abstract"); text != "" {
		return text
	}
	return record.String("summary")
}
