// Package store persists completed research runs so the history list
// and report download survive restarts. Runs are write-once: a run is
// saved in its terminal state and never updated.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"deepresearch/backend/internal/config"
	"deepresearch/backend/internal/research"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("research run not found")

// Run is a persisted research run. Report is nil for failed runs.
type Run struct {
	ID        string           `json:"id"`
	Query     string           `json:"query"`
	Status    string           `json:"status"`
	Report    *research.Report `json:"report,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
	CreatedAt string           `json:"createdAt"`
}

// RunSummary is the history-list projection: no report body.
type RunSummary struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Status    string `json:"status"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func Open(cfg config.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg.DatabaseURL, cfg.DatabaseToken)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(driverFor(cfg.DatabaseURL), dsn)
	if err != nil {
		return nil, fmt.Errorf("open research db: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("ping research db: %w", err)
	}

	return database, nil
}

// driverFor picks the local sqlite driver for file DSNs and the remote
// libsql driver for everything else.
func driverFor(rawURL string) string {
	if strings.HasPrefix(strings.TrimSpace(rawURL), "file:") {
		return "sqlite"
	}
	return "libsql"
}

func buildDSN(rawURL, authToken string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("empty database url")
	}

	if strings.HasPrefix(rawURL, "file:") {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}

	if strings.HasPrefix(rawURL, "libsql://") {
		query := parsed.Query()
		if query.Get("authToken") == "" && strings.TrimSpace(authToken) != "" {
			query.Set("authToken", strings.TrimSpace(authToken))
			parsed.RawQuery = query.Encode()
		}
	}

	return parsed.String(), nil
}

const schema = `
CREATE TABLE IF NOT EXISTS research_runs (
  id TEXT PRIMARY KEY,
  query TEXT NOT NULL,
  status TEXT NOT NULL,
  report_json TEXT,
  errors_json TEXT,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_research_runs_created_at ON research_runs (created_at DESC);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate research schema: %w", err)
	}
	return nil
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

// SaveRun persists a terminal research state and returns the stored run.
func (s Store) SaveRun(ctx context.Context, state *research.State) (Run, error) {
	if state == nil {
		return Run{}, errors.New("nil research state")
	}

	var reportJSON sql.NullString
	if state.Report != nil {
		encoded, err := json.Marshal(state.Report)
		if err != nil {
			return Run{}, fmt.Errorf("encode report: %w", err)
		}
		reportJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	var errorsJSON sql.NullString
	if len(state.Errors) > 0 {
		encoded, err := json.Marshal(state.Errors)
		if err != nil {
			return Run{}, fmt.Errorf("encode errors: %w", err)
		}
		errorsJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	run := Run{
		ID:        uuid.NewString(),
		Query:     state.Query,
		Status:    string(state.CurrentStep),
		Report:    state.Report,
		Errors:    state.Errors,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	query := `INSERT INTO research_runs (id, query, status, report_json, errors_json, created_at) VALUES (?, ?, ?, ?, ?, ?);`
	if _, err := s.db.ExecContext(ctx, query, run.ID, run.Query, run.Status, reportJSON, errorsJSON, run.CreatedAt); err != nil {
		return Run{}, fmt.Errorf("save research run: %w", err)
	}
	return run, nil
}

// ListRuns returns recent runs, newest first.
func (s Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, query, status, COALESCE(report_json, ''), created_at
FROM research_runs
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list research runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]RunSummary, 0, limit)
	for rows.Next() {
		var summary RunSummary
		var reportJSON string
		if err := rows.Scan(&summary.ID, &summary.Query, &summary.Status, &reportJSON, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan research run: %w", err)
		}
		summary.Title = reportTitle(reportJSON)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate research runs: %w", err)
	}
	return summaries, nil
}

// GetRun returns one stored run with its full report.
func (s Store) GetRun(ctx context.Context, id string) (Run, error) {
	query := `
SELECT id, query, status, COALESCE(report_json, ''), COALESCE(errors_json, ''), created_at
FROM research_runs
WHERE id = ?
LIMIT 1;
`
	var run Run
	var reportJSON, errorsJSON string
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(id)).Scan(
		&run.ID,
		&run.Query,
		&run.Status,
		&reportJSON,
		&errorsJSON,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get research run: %w", err)
	}

	if reportJSON != "" {
		var report research.Report
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return Run{}, fmt.Errorf("decode stored report: %w", err)
		}
		run.Report = &report
	}
	if errorsJSON != "" {
		if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
			return Run{}, fmt.Errorf("decode stored errors: %w", err)
		}
	}
	return run, nil
}

func reportTitle(reportJSON string) string {
	if reportJSON == "" {
		return ""
	}
	var partial struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(reportJSON), &partial); err != nil {
		return ""
	}
	return strings.TrimSpace(partial.Title)
}
