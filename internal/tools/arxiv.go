package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deepresearch/backend/internal/config"
)

const (
	arxivAbstractRunes = 600
	arxivMaxBodyBytes  = 4 * 1024 * 1024
)

type ArxivClient struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

func NewArxivClient(cfg config.Config, httpClient *http.Client) ArxivClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxResults := cfg.MaxArxivResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return ArxivClient{
		baseURL:    strings.TrimSpace(cfg.ArxivBaseURL),
		maxResults: maxResults,
		httpClient: httpClient,
	}
}

// Search queries the arXiv Atom API, sorted by relevance.
func (c ArxivClient) Search(ctx context.Context, query string) ([]Result, error) {
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, nil
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse arxiv endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("search_query", "all:"+trimmedQuery)
	params.Set("max_results", fmt.Sprintf("%d", c.maxResults))
	params.Set("sortBy", "relevance")
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Provider:   "arxiv",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, arxivMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read arxiv response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(payload, &feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	results := make([]Result, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		abstract := strings.TrimSpace(entry.Summary)
		if len([]rune(abstract)) > arxivAbstractRunes {
			abstract = trimToRunes(abstract, arxivAbstractRunes) + "..."
		}

		result := Result{
			"title":       collapseWhitespace(entry.Title),
			"authors":     formatArxivAuthors(entry),
			"abstract":    abstract,
			"url":         strings.TrimSpace(entry.ID),
			"source_type": "arxiv",
		}
		for _, link := range entry.Links {
			if strings.EqualFold(link.Title, "pdf") && link.Href != "" {
				result["pdf_url"] = link.Href
				break
			}
		}
		if published := parseArxivDate(entry.Published); published != "" {
			result["published"] = published
		}
		results = append(results, result)
	}
	return results, nil
}

func formatArxivAuthors(entry arxivEntry) string {
	names := make([]string, 0, 3)
	for _, author := range entry.Authors {
		name := strings.TrimSpace(author.Name)
		if name == "" {
			continue
		}
		if len(names) == 3 {
			return strings.Join(names, ", ") + " et al."
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func parseArxivDate(raw string) string {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.Format("2006-01-02")
}

func collapseWhitespace(raw string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(raw)), " ")
}
