package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"deepresearch/backend/internal/config"
)

const wikipediaSummaryRunes = 800

type WikipediaClient struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type wikipediaAPIResponse struct {
	Query struct {
		Pages map[string]wikipediaAPIPage `json:"pages"`
	} `json:"query"`
}

type wikipediaAPIPage struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	FullURL string `json:"fullurl"`
	Index   int    `json:"index"`
}

func NewWikipediaClient(cfg config.Config, httpClient *http.Client) WikipediaClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxResults := cfg.MaxWikiResults
	if maxResults <= 0 {
		maxResults = 2
	}
	return WikipediaClient{
		baseURL:    strings.TrimSpace(cfg.WikipediaBaseURL),
		maxResults: maxResults,
		httpClient: httpClient,
	}
}

// Search runs a MediaWiki generator=search query so article matching and
// intro extraction happen in a single round trip.
func (c WikipediaClient) Search(ctx context.Context, query string) ([]Result, error) {
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, nil
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse wikipedia endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", trimmedQuery)
	params.Set("gsrlimit", fmt.Sprintf("%d", c.maxResults))
	params.Set("prop", "extracts|info")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build wikipedia request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Provider:   "wikipedia",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed wikipediaAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode wikipedia response: %w", err)
	}

	pages := make([]wikipediaAPIPage, 0, len(parsed.Query.Pages))
	for _, page := range parsed.Query.Pages {
		if strings.TrimSpace(page.Title) == "" {
			continue
		}
		pages = append(pages, page)
	}
	// The pages object is keyed by page id; the search rank lives in index.
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	results := make([]Result, 0, len(pages))
	for _, page := range pages {
		if len(results) >= c.maxResults {
			break
		}
		summary := strings.TrimSpace(page.Extract)
		if len([]rune(summary)) > wikipediaSummaryRunes {
			summary = trimToRunes(summary, wikipediaSummaryRunes) + "..."
		}
		results = append(results, Result{
			"title":       strings.TrimSpace(page.Title),
			"summary":     summary,
			"url":         strings.TrimSpace(page.FullURL),
			"source_type": "wikipedia",
		})
	}
	return results, nil
}
