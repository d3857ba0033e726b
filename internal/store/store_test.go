package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"deepresearch/backend/internal/config"
	"deepresearch/backend/internal/research"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(config.Config{DatabaseURL: "file:" + filepath.Join(t.TempDir(), "runs.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func completedState(query string) *research.State {
	return &research.State{
		Query:       query,
		CurrentStep: research.StepComplete,
		Report: &research.Report{
			Title:            "Report: " + query,
			ExecutiveSummary: "Summary.",
			Sections:         []research.ReportSection{{Heading: "Intro", Content: "Content."}},
			GeneratedAt:      "2026-08-23T10:00:00Z",
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	saved, err := store.SaveRun(ctx, completedState("vector search"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || saved.Status != "complete" {
		t.Fatalf("unexpected saved run: %+v", saved)
	}

	loaded, err := store.GetRun(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Query != "vector search" {
		t.Fatalf("unexpected query: %q", loaded.Query)
	}
	if loaded.Report == nil || loaded.Report.Title != "Report: vector search" {
		t.Fatalf("report not round-tripped: %+v", loaded.Report)
	}
	if len(loaded.Report.Sections) != 1 {
		t.Fatalf("sections not round-tripped: %+v", loaded.Report)
	}
	if len(loaded.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", loaded.Errors)
	}
}

func TestSaveRunErrorState(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	saved, err := store.SaveRun(ctx, &research.State{
		Query:       "broken",
		CurrentStep: research.StepError,
		Errors:      []string{"planning failed"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.GetRun(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != "error" {
		t.Fatalf("unexpected status: %q", loaded.Status)
	}
	if loaded.Report != nil {
		t.Fatal("failed run must have no report")
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0] != "planning failed" {
		t.Fatalf("errors not round-tripped: %v", loaded.Errors)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := NewStore(openTestDB(t))

	if _, err := store.GetRun(context.Background(), "missing-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	insert := `INSERT INTO research_runs (id, query, status, report_json, errors_json, created_at) VALUES (?, ?, ?, ?, ?, ?);`
	rows := []struct {
		id, query, report, createdAt string
	}{
		{"run-old", "older query", `{"title": "Older Report"}`, "2026-08-23T09:00:00Z"},
		{"run-new", "newer query", `{"title": "Newer Report"}`, "2026-08-23T11:00:00Z"},
	}
	for _, row := range rows {
		if _, err := db.ExecContext(ctx, insert, row.id, row.query, "complete", row.report, nil, row.createdAt); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	summaries, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != "run-new" || summaries[1].ID != "run-old" {
		t.Fatalf("not newest-first: %+v", summaries)
	}
	if summaries[0].Title != "Newer Report" {
		t.Fatalf("title projection missing: %+v", summaries[0])
	}
}

func TestListRunsHonorsLimit(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.SaveRun(ctx, completedState("q")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	summaries, err := store.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
}

func TestDriverFor(t *testing.T) {
	if got := driverFor("file:runs.db"); got != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", got)
	}
	if got := driverFor("libsql://runs.turso.io"); got != "libsql" {
		t.Fatalf("expected libsql driver, got %q", got)
	}
}

func TestBuildDSN(t *testing.T) {
	if _, err := buildDSN("", ""); err == nil {
		t.Fatal("expected error for empty url")
	}

	dsn, err := buildDSN("file:runs.db", "ignored")
	if err != nil || dsn != "file:runs.db" {
		t.Fatalf("file dsn mangled: %q, %v", dsn, err)
	}

	dsn, err = buildDSN("libsql://runs.turso.io", "tok-123")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	if !strings.Contains(dsn, "authToken=tok-123") {
		t.Fatalf("auth token not appended: %q", dsn)
	}

	dsn, err = buildDSN("libsql://runs.turso.io?authToken=explicit", "tok-123")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	if !strings.Contains(dsn, "authToken=explicit") || strings.Contains(dsn, "tok-123") {
		t.Fatalf("explicit token must win: %q", dsn)
	}
}
