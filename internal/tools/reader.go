package tools

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultReaderTimeout   = 12 * time.Second
	defaultReaderRedirects = 3
	defaultReaderMaxRunes  = 16_000
	defaultReaderMaxBytes  = int64(1_500_000)
	readerUserAgent        = "deepresearch-bot/1.0"
	readerSnippetRunes     = 900
)

type ReaderConfig struct {
	RequestTimeout time.Duration
	MaxBytes       int64
	MaxRedirects   int
	MaxTextRunes   int
}

// Reader fetches a URL and extracts its readable text. It is registered
// under the "reader" name for direct invocation; the automatic loop
// skips it because its query is a URL, not a search phrase.
type Reader struct {
	cfg        ReaderConfig
	httpClient *http.Client
}

func NewReader(cfg ReaderConfig, httpClient *http.Client) *Reader {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultReaderTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultReaderMaxBytes
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultReaderRedirects
	}
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = defaultReaderMaxRunes
	}

	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = guardedDialContext(&net.Dialer{Timeout: cfg.RequestTimeout})
		httpClient = &http.Client{Transport: transport}
	}
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("too many redirects")
		}
		if _, err := validateFetchURL(req.URL.String()); err != nil {
			return err
		}
		return nil
	}

	return &Reader{cfg: cfg, httpClient: httpClient}
}

// Read treats the query as a URL, fetches it, and returns a single
// record with the extracted text.
func (r *Reader) Read(ctx context.Context, rawURL string) ([]Result, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}

	parsed, err := validateFetchURL(rawURL)
	if err != nil {
		return nil, err
	}

	requestCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", readerUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,text/markdown,application/json,application/pdf;q=0.9,*/*;q=0.2")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if parsedType, _, parseErr := mime.ParseMediaType(contentType); parseErr == nil {
		contentType = parsedType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	payload, err := readBoundedBody(resp.Body, r.cfg.MaxBytes)
	if err != nil {
		return nil, err
	}

	title, text, err := extractReadableText(contentType, payload, r.cfg.MaxTextRunes)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extracted content is empty")
	}
	if strings.TrimSpace(title) == "" {
		title = parsed.String()
	}

	finalURL := parsed.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return []Result{{
		"title":       title,
		"url":         finalURL,
		"content":     text,
		"summary":     trimToRunes(text, readerSnippetRunes),
		"source_type": "web",
	}}, nil
}

func readBoundedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = defaultReaderMaxBytes
	}
	payload, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > maxBytes {
		return payload[:maxBytes], nil
	}
	return payload, nil
}
