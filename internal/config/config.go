package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                 = "8080"
	defaultModelName            = "llama-3.1-8b-instant"
	defaultGroqBaseURL          = "https://api.groq.com/openai/v1"
	defaultTavilyBaseURL        = "https://api.tavily.com"
	defaultArxivBaseURL         = "https://export.arxiv.org/api/query"
	defaultWikipediaBaseURL     = "https://en.wikipedia.org/w/api.php"
	defaultDatabaseURL          = "file:deepresearch.db"
	defaultFrontendOrigin       = "http://localhost:5173"
	defaultLLMCallDelayMillis   = 500
	defaultSubtaskPauseMillis   = 300
	defaultVerificationRetries  = 2
	defaultMaxSearchResults     = 5
	defaultMaxArxivResults      = 3
	defaultMaxWikiResults       = 2
	defaultResearchTimeoutSecs  = 300
	defaultHistoryLimit         = 50
	defaultToolFetchTimeoutSecs = 12
)

type Config struct {
	Port           string
	Environment    string
	FrontendOrigin string
	AllowedOrigins []string

	GroqAPIKey  string
	GroqBaseURL string
	ModelName   string

	TavilyAPIKey     string
	TavilyBaseURL    string
	ArxivBaseURL     string
	WikipediaBaseURL string

	DatabaseURL   string
	DatabaseToken string

	LLMCallDelay           time.Duration
	SubtaskPause           time.Duration
	MaxVerificationRetries int
	MaxSearchResults       int
	MaxArxivResults        int
	MaxWikiResults         int
	ResearchTimeoutSeconds int
	HistoryLimit           int
	ToolFetchTimeout       time.Duration
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func Load() (Config, error) {
	cfg := Config{
		Port:                   envOrDefault("PORT", defaultPort),
		Environment:            envOrDefault("APP_ENV", "development"),
		FrontendOrigin:         envOrDefault("FRONTEND_ORIGIN", defaultFrontendOrigin),
		GroqAPIKey:             strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL:            envOrDefault("GROQ_BASE_URL", defaultGroqBaseURL),
		ModelName:              envOrDefault("MODEL_NAME", defaultModelName),
		TavilyAPIKey:           strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),
		TavilyBaseURL:          envOrDefault("TAVILY_BASE_URL", defaultTavilyBaseURL),
		ArxivBaseURL:           envOrDefault("ARXIV_BASE_URL", defaultArxivBaseURL),
		WikipediaBaseURL:       envOrDefault("WIKIPEDIA_BASE_URL", defaultWikipediaBaseURL),
		DatabaseURL:            envOrDefault("RESEARCH_DATABASE_URL", defaultDatabaseURL),
		DatabaseToken:          strings.TrimSpace(os.Getenv("RESEARCH_DATABASE_AUTH_TOKEN")),
		MaxVerificationRetries: intOrDefault("MAX_VERIFICATION_RETRIES", defaultVerificationRetries),
		MaxSearchResults:       intOrDefault("MAX_SEARCH_RESULTS", defaultMaxSearchResults),
		MaxArxivResults:        intOrDefault("MAX_ARXIV_RESULTS", defaultMaxArxivResults),
		MaxWikiResults:         intOrDefault("MAX_WIKI_RESULTS", defaultMaxWikiResults),
		ResearchTimeoutSeconds: intOrDefault("RESEARCH_TIMEOUT_SECONDS", defaultResearchTimeoutSecs),
		HistoryLimit:           intOrDefault("HISTORY_LIMIT", defaultHistoryLimit),
	}

	cfg.LLMCallDelay = time.Duration(intOrDefault("LLM_CALL_DELAY_MS", defaultLLMCallDelayMillis)) * time.Millisecond
	cfg.SubtaskPause = time.Duration(intOrDefault("SUBTASK_PAUSE_MS", defaultSubtaskPauseMillis)) * time.Millisecond
	cfg.ToolFetchTimeout = time.Duration(intOrDefault("TOOL_FETCH_TIMEOUT_SECONDS", defaultToolFetchTimeoutSecs)) * time.Second

	origins := parseList(envOrDefault("CORS_ALLOWED_ORIGINS", cfg.FrontendOrigin+",http://localhost:4173"))
	if len(origins) == 0 {
		return Config{}, errors.New("CORS_ALLOWED_ORIGINS must include at least one origin")
	}
	cfg.AllowedOrigins = origins

	if cfg.MaxVerificationRetries < 0 {
		return Config{}, errors.New("MAX_VERIFICATION_RETRIES must be >= 0")
	}
	if strings.HasPrefix(cfg.DatabaseURL, "libsql://") && cfg.DatabaseToken == "" {
		return Config{}, errors.New("RESEARCH_DATABASE_AUTH_TOKEN is required for libsql:// URLs")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
