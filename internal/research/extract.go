package research

import (
	"encoding/json"
	"strings"
)

// Extraction failure reasons.
const (
	ReasonUnparseable    = "unparseable"
	ReasonSchemaMismatch = "schema-mismatch"
)

// ExtractionError reports that raw LLM text could not be coerced into a
// validated record. Stages recover from it with their documented
// fallbacks; it never reaches the end user as a fatal failure.
type ExtractionError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return "extraction failed (" + e.Reason + "): " + e.Err.Error()
	}
	return "extraction failed (" + e.Reason + ")"
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractJSON recovers a JSON object from raw LLM text. The scan is a
// best-effort heuristic, not a parser: after unwrapping an optional
// fenced block it takes the span from the first "{" to the last "}",
// which over-captures when multiple objects appear sequentially. That
// over-capture fails to parse and surfaces as unparseable rather than
// silently merging objects.
func ExtractJSON(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if block, ok := fencedBlock(text); ok {
		text = block
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, &ExtractionError{Reason: ReasonUnparseable, Raw: raw}
	}
	span := text[start : end+1]

	// Strict pass mirrors LLM output that keeps JSON on one line:
	// every literal newline, carriage return, and tab becomes its
	// two-character escape, remaining control bytes are stripped.
	strict := stripControlBytes(escapeAllWhitespace(span))
	if json.Valid([]byte(strict)) {
		return []byte(strict), nil
	}

	// Lenient pass keeps structural whitespace and only escapes control
	// characters found inside string literals, recovering pretty-printed
	// output that the strict pass mangles.
	lenient := escapeInStrings(span)
	if json.Valid([]byte(lenient)) {
		return []byte(lenient), nil
	}

	return nil, &ExtractionError{Reason: ReasonUnparseable, Raw: raw}
}

// unmarshalRecord extracts the JSON object from raw text and decodes it
// into out. Parse failures keep their unparseable reason; decode
// failures become schema-mismatch.
func unmarshalRecord(raw string, out any) error {
	data, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ExtractionError{Reason: ReasonSchemaMismatch, Raw: raw, Err: err}
	}
	return nil
}

// fencedBlock returns the content of the first complete triple-backtick
// block, with an optional leading "json" tag removed.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	block := strings.TrimPrefix(rest[:end], "json")
	return strings.TrimSpace(block), true
}

var whitespaceEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

func escapeAllWhitespace(span string) string {
	return whitespaceEscaper.Replace(span)
}

// stripControlBytes removes the control characters that corrupt strict
// JSON parsing: 0x00-0x08, 0x0B-0x0C, 0x0E-0x1F.
func stripControlBytes(span string) string {
	var b strings.Builder
	b.Grow(len(span))
	for _, r := range span {
		if r <= 0x08 || r == 0x0B || r == 0x0C || (r >= 0x0E && r <= 0x1F) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeInStrings walks the span tracking string-literal state and
// escapes control characters only inside strings, leaving whitespace
// between tokens intact.
func escapeInStrings(span string) string {
	var b strings.Builder
	b.Grow(len(span))
	inString := false
	escaped := false
	for _, r := range span {
		if inString {
			if escaped {
				escaped = false
				b.WriteRune(r)
				continue
			}
			switch r {
			case '\\':
				escaped = true
				b.WriteRune(r)
			case '"':
				inString = false
				b.WriteRune(r)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				if r < 0x20 {
					continue
				}
				b.WriteRune(r)
			}
			continue
		}
		if r == '"' {
			inString = true
			b.WriteRune(r)
			continue
		}
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
