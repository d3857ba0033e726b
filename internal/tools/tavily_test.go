package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deepresearch/backend/internal/config"
)

func TestTavilySearchAnswerComesFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req tavilyAPIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.APIKey != "tvly-test" || req.Query != "vector search" {
			t.Fatalf("unexpected request payload: %+v", req)
		}
		if !req.IncludeAnswer {
			t.Fatal("expected include_answer")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"answer": "Vector search compares embeddings.",
			"results": [
				{"title": "Guide", "url": "https://example.com/guide", "content": "long page text"},
				{"title": "", "url": "https://example.com/untitled", "content": "more text"}
			]
		}`))
	}))
	defer server.Close()

	client := NewTavilyClient(config.Config{
		TavilyAPIKey:     "tvly-test",
		TavilyBaseURL:    server.URL,
		MaxSearchResults: 5,
	}, server.Client())

	results, err := client.Search(context.Background(), "vector search")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].String("title") != "AI Summary" {
		t.Fatalf("expected AI answer first, got %+v", results[0])
	}
	if results[1].String("title") != "Guide" || results[1].String("source_type") != "web" {
		t.Fatalf("unexpected result: %+v", results[1])
	}
	if results[2].String("title") != "Untitled" {
		t.Fatalf("expected title fallback, got %+v", results[2])
	}
}

func TestTavilySearchCapsContent(t *testing.T) {
	long := strings.Repeat("x", 700)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{{"title": "Long", "url": "https://e.com", "content": long}},
		})
	}))
	defer server.Close()

	client := NewTavilyClient(config.Config{TavilyAPIKey: "k", TavilyBaseURL: server.URL}, server.Client())
	results, err := client.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := len([]rune(results[0].String("content"))); got != tavilyContentRunes {
		t.Fatalf("expected content capped at %d runes, got %d", tavilyContentRunes, got)
	}
}

func TestTavilySearchMissingKey(t *testing.T) {
	client := NewTavilyClient(config.Config{TavilyBaseURL: "https://api.tavily.com"}, nil)
	if _, err := client.Search(context.Background(), "q"); !errors.Is(err, ErrMissingTavilyKey) {
		t.Fatalf("expected ErrMissingTavilyKey, got %v", err)
	}
}

func TestTavilySearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewTavilyClient(config.Config{TavilyAPIKey: "k", TavilyBaseURL: server.URL}, server.Client())
	_, err := client.Search(context.Background(), "q")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Provider != "tavily" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestTavilySearchEmptyQuery(t *testing.T) {
	client := NewTavilyClient(config.Config{TavilyAPIKey: "k", TavilyBaseURL: "https://api.tavily.com"}, nil)
	results, err := client.Search(context.Background(), "   ")
	if err != nil || results != nil {
		t.Fatalf("expected nil/nil for empty query, got %v/%v", results, err)
	}
}
