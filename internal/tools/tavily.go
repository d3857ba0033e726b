package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"deepresearch/backend/internal/config"
)

const maxErrorBodyBytes = 8 * 1024

const tavilyContentRunes = 500

var ErrMissingTavilyKey = errors.New("tavily api key is not configured")

type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type tavilyAPIRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyAPIResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func NewTavilyClient(cfg config.Config, httpClient *http.Client) TavilyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxResults := cfg.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return TavilyClient{
		apiKey:     strings.TrimSpace(cfg.TavilyAPIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.TavilyBaseURL), "/"),
		maxResults: maxResults,
		httpClient: httpClient,
	}
}

// Search queries the Tavily web search API. When the provider includes a
// synthesized answer it is returned first, ahead of the page results.
func (c TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingTavilyKey
	}
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, nil
	}

	payload, err := json.Marshal(tavilyAPIRequest{
		APIKey:            c.apiKey,
		Query:             trimmedQuery,
		MaxResults:        c.maxResults,
		IncludeAnswer:     true,
		IncludeRawContent: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tavily request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Provider:   "tavily",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed tavilyAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results)+1)
	if answer := strings.TrimSpace(parsed.Answer); answer != "" {
		results = append(results, Result{
			"title":       "AI Summary",
			"content":     answer,
			"source_type": "web",
		})
	}
	for _, item := range parsed.Results {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled"
		}
		results = append(results, Result{
			"title":       title,
			"url":         strings.TrimSpace(item.URL),
			"content":     trimToRunes(strings.TrimSpace(item.Content), tavilyContentRunes),
			"source_type": "web",
		})
	}
	return results, nil
}
