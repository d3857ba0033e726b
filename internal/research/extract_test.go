package research

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSONFromFencedBlock(t *testing.T) {
	raw := "Here is the plan you asked for:\n```json\n{\"title\": \"Vector Search\"}\n```\nLet me know if you need more."

	data, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["title"] != "Vector Search" {
		t.Fatalf("unexpected title: %q", decoded["title"])
	}
}

func TestExtractJSONUntaggedFence(t *testing.T) {
	raw := "```\n{\"ok\": true}\n```"
	data, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var decoded map[string]bool
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded["ok"] {
		t.Fatalf("expected ok=true, got %+v", decoded)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	raw := `Sure! {"answer": 42} Hope that helps.`
	data, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["answer"] != 42 {
		t.Fatalf("unexpected answer: %d", decoded["answer"])
	}
}

func TestExtractJSONEscapesLiteralNewlineInString(t *testing.T) {
	raw := "{\"text\": \"line one\nline two\"}"

	data, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["text"] != "line one\nline two" {
		t.Fatalf("newline not restored: %q", decoded["text"])
	}
}

func TestExtractJSONPrettyPrintedWithEmbeddedControl(t *testing.T) {
	raw := "{\n  \"summary\": \"first\tsecond\",\n  \"done\": true\n}"

	data, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var decoded struct {
		Summary string `json:"summary"`
		Done    bool   `json:"done"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Summary != "first\tsecond" || !decoded.Done {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestExtractJSONStripsControlBytes(t *testing.T) {
	raw := "{\"value\": \"a\x01b\x1fc\"}"

	data, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["value"] != "abc" {
		t.Fatalf("control bytes not stripped: %q", decoded["value"])
	}
}

func TestExtractJSONUnparseable(t *testing.T) {
	_, err := ExtractJSON("no structured output here, sorry")
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Reason != ReasonUnparseable {
		t.Fatalf("unexpected reason: %s", extractionErr.Reason)
	}
}

func TestExtractJSONMultipleObjectsOverCapture(t *testing.T) {
	// The greedy span covers both objects and fails to parse; the scan
	// must not silently pick one of them.
	_, err := ExtractJSON(`{"a": 1} {"b": 2}`)
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Reason != ReasonUnparseable {
		t.Fatalf("unexpected reason: %s", extractionErr.Reason)
	}
}

func TestUnmarshalRecordSchemaMismatch(t *testing.T) {
	var out struct {
		Approved bool `json:"approved"`
	}
	err := unmarshalRecord(`{"approved": "definitely"}`, &out)
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Reason != ReasonSchemaMismatch {
		t.Fatalf("unexpected reason: %s", extractionErr.Reason)
	}
}
