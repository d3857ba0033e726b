package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"deepresearch/backend/internal/research"
)

const maxQueryRunes = 2000

type researchRequest struct {
	Query string `json:"query"`
}

// StartResearch runs the pipeline for one query and streams progress as
// SSE until the terminal state, which is persisted before the final
// report event is sent.
func (h Handler) StartResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if utf8.RuneCountInString(query) > maxQueryRunes {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is too long")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "server does not support streaming")
		return
	}

	timeoutSeconds := h.cfg.ResearchTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 300
	}
	runCtx, cancel := context.WithTimeout(r.Context(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	startedAt := time.Now()
	log.Printf("research run started: query_len=%d timeout_s=%d", utf8.RuneCountInString(query), timeoutSeconds)

	state := h.runner.Run(runCtx, query, func(step research.Step, message string) {
		_ = writeSSEEvent(w, map[string]any{
			"type":    "progress",
			"step":    step,
			"message": message,
		})
		flusher.Flush()
	})

	runID := h.persistRun(state)

	if state.CurrentStep == research.StepError || state.Report == nil {
		message := "research failed, please retry"
		if err := runCtx.Err(); errors.Is(err, context.DeadlineExceeded) {
			message = fmt.Sprintf("research timed out after %d seconds", timeoutSeconds)
		}
		log.Printf("research run failed: run_id=%s errors=%d elapsed_ms=%d",
			runID, len(state.Errors), time.Since(startedAt).Milliseconds())
		_ = writeSSEEvent(w, map[string]any{"type": "error", "message": message, "runId": runID})
		_ = writeSSEEvent(w, map[string]any{"type": "done"})
		flusher.Flush()
		return
	}

	if state.Verification != nil && !state.Verification.Approved {
		_ = writeSSEEvent(w, map[string]any{
			"type":    "warning",
			"scope":   "verification",
			"message": "Verification did not approve the findings; the report uses the best available evidence.",
		})
	}

	log.Printf("research run completed: run_id=%s findings=%d sections=%d iterations=%d elapsed_ms=%d",
		runID, len(state.Findings), len(state.Report.Sections), state.Iteration,
		time.Since(startedAt).Milliseconds())

	_ = writeSSEEvent(w, map[string]any{
		"type":   "report",
		"runId":  runID,
		"report": state.Report,
	})
	_ = writeSSEEvent(w, map[string]any{"type": "done"})
	flusher.Flush()
}

// persistRun saves the terminal state with a background context so a
// client disconnect cannot lose the run. Persistence failure is logged,
// never surfaced: the stream still carries the report.
func (h Handler) persistRun(state *research.State) string {
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run, err := h.runs.SaveRun(saveCtx, state)
	if err != nil {
		log.Printf("research run persistence failed: err=%v", err)
		return ""
	}
	return run.ID
}
