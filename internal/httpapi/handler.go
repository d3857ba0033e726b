// Package httpapi exposes the research pipeline over HTTP: a streaming
// run endpoint plus a persisted run history.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"deepresearch/backend/internal/config"
	"deepresearch/backend/internal/research"
	"deepresearch/backend/internal/store"
)

// Runner starts one research run, forwarding engine notifications to
// notify. The production implementation builds a fresh engine per run;
// tests substitute stubs.
type Runner interface {
	Run(ctx context.Context, query string, notify research.NotifyFunc) *research.State
}

type Handler struct {
	cfg    config.Config
	runs   store.Store
	runner Runner
}

func NewHandler(cfg config.Config, runs store.Store, runner Runner) Handler {
	return Handler{cfg: cfg, runs: runs, runner: runner}
}

func (h Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListResearch returns recent runs, newest first.
func (h Handler) ListResearch(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.runs.ListRuns(r.Context(), h.cfg.HistoryLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_unavailable", "could not load research history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": summaries})
}

// GetResearch returns one stored run with its full report.
func (h Handler) GetResearch(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "run id is required")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "research run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "run_unavailable", "could not load research run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
