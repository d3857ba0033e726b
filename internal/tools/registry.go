// Package tools provides the search and compute capabilities the research
// pipeline can invoke. Every tool is a stateless function from a query
// string to a bounded list of result records; providers differ in the
// fields they populate, so results are loosely typed maps and consumers
// must tolerate absent or extra fields.
package tools

import (
	"context"
	"net/http"
	"strings"

	"deepresearch/backend/internal/config"
)

// Registry keys. The planner prompt offers exactly these names; anything
// else in a plan is silently skipped by the invoker.
const (
	NameTavily     = "tavily"
	NameArxiv      = "arxiv"
	NameWikipedia  = "wikipedia"
	NameCalculator = "calculator"
	NameGoExec     = "goexec"
	NameReader     = "reader"
)

// Result is one record returned by a tool. A record carrying an "error"
// key describes a provider-level failure and is excluded from findings.
type Result map[string]any

// String returns the trimmed string value under key, or "" when the key
// is absent or not a string.
func (r Result) String(key string) string {
	if r == nil {
		return ""
	}
	value, ok := r[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// HasError reports whether the record carries a provider error.
func (r Result) HasError() bool {
	_, ok := r["error"]
	return ok
}

// Func is the uniform tool boundary: query in, records out. Transport
// failures surface as the error; per-record failures surface as records
// with an "error" key.
type Func func(ctx context.Context, query string) ([]Result, error)

// Registry maps tool names to implementations. Adding a provider means
// adding an entry; the invoker never needs to change.
type Registry map[string]Func

func (r Registry) Lookup(name string) (Func, bool) {
	fn, ok := r[strings.TrimSpace(strings.ToLower(name))]
	return fn, ok
}

// NewRegistry wires the default providers from configuration.
func NewRegistry(cfg config.Config, httpClient *http.Client) Registry {
	tavily := NewTavilyClient(cfg, httpClient)
	arxiv := NewArxivClient(cfg, httpClient)
	wikipedia := NewWikipediaClient(cfg, httpClient)
	calculator := NewCalculator()
	runner := NewGoRunner()
	reader := NewReader(ReaderConfig{RequestTimeout: cfg.ToolFetchTimeout}, nil)

	return Registry{
		NameTavily:     tavily.Search,
		NameArxiv:      arxiv.Search,
		NameWikipedia:  wikipedia.Search,
		NameCalculator: calculator.Evaluate,
		NameGoExec:     runner.Run,
		NameReader:     reader.Read,
	}
}
