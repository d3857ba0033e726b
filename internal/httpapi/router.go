package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"deepresearch/backend/internal/config"
	"deepresearch/backend/internal/groq"
	"deepresearch/backend/internal/research"
	"deepresearch/backend/internal/store"
	"deepresearch/backend/internal/tools"
)

// Synthesis runs with warmer sampling and a larger completion budget
// than the other stages.
const (
	synthesisTemperature = 0.3
	synthesisMaxTokens   = 4000
)

// engineRunner builds a fresh workflow engine per run so each run's
// notification callback is independent.
type engineRunner struct {
	cfg      config.Config
	llm      groq.Client
	registry tools.Registry
}

func newEngineRunner(cfg config.Config) engineRunner {
	return engineRunner{
		cfg:      cfg,
		llm:      groq.NewClient(cfg, nil),
		registry: tools.NewRegistry(cfg, nil),
	}
}

func (r engineRunner) Run(ctx context.Context, query string, notify research.NotifyFunc) *research.State {
	engine := research.NewEngine(r.llm, r.registry, research.Options{
		MaxVerificationRetries: r.cfg.MaxVerificationRetries,
		LLMCallDelay:           r.cfg.LLMCallDelay,
		SubtaskPause:           r.cfg.SubtaskPause,
		SynthesisCompleter:     r.llm.WithSampling(synthesisTemperature, synthesisMaxTokens),
		Notify:                 notify,
	})
	return engine.Run(ctx, query)
}

func NewRouter(cfg config.Config, db *sql.DB) http.Handler {
	h := NewHandler(cfg, store.NewStore(db), newEngineRunner(cfg))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/research", h.StartResearch)
		v1.Get("/research", h.ListResearch)
		v1.Get("/research/{id}", h.GetResearch)
	})

	return r
}
