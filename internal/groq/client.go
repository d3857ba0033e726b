package groq

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

const defaultTemperature = 0.1

var ErrMissingAPIKey = errors.New("groq api key is not configured")

// APIError is returned for non-2xx upstream responses so callers can
// inspect the status code (rate limits in particular).
type APIError struct {
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("groq returned %d: %s", e.StatusCode, e.Body)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatAPIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatAPIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewClient(cfg config.Config, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return Client{
		apiKey:      strings.TrimSpace(cfg.GroqAPIKey),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.GroqBaseURL), "/"),
		model:       strings.TrimSpace(cfg.ModelName),
		temperature: defaultTemperature,
		httpClient:  httpClient,
	}
}

// WithSampling returns a copy of the client using the given sampling
// parameters. A maxTokens of 0 leaves the provider default in place.
func (c Client) WithSampling(temperature float64, maxTokens int) Client {
	out := c
	out.temperature = temperature
	out.maxTokens = maxTokens
	return out
}

// Complete sends a single system+user exchange and returns the raw text
// of the first choice. The response carries no format guarantee; callers
// must treat it as free text.
func (c Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(c.model) == "" {
		return "", errors.New("model is required")
	}
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("user prompt is empty")
	}

	messages := make([]Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	payload, err := json.Marshal(chatAPIRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal groq request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build groq request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request groq: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed chatAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return "", errors.New(strings.TrimSpace(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("groq response contained no choices")
	}

	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("groq response was empty")
	}
	return content, nil
}

// IsRateLimitError reports whether err is an upstream 429.
func IsRateLimitError(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
