package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/scorer"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestRun builds a run for the given username with one result per confidence.
func newTestRun(username string, at time.Time, platforms map[string]float64) *model.Run {
	run := model.NewRun(model.AnalysisInput{Username: username}, at)
	for name, weight := range platforms {
		run.Results = append(run.Results, scorer.NewPlatformResult(name, model.StatusFound, []model.Signal{
			model.NewSignal(model.KindUsername, username, weight, "match", name),
		}))
	}
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("returns ErrDatabaseNotFound without CreateIfNotExists", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("reopens existing database without CreateIfNotExists", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestSaveAndGetRun tests the save/get round trip.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	run := newTestRun("octocat", at, map[string]float64{"GitHub": 35})
	run.Trace = []string{"> [INIT] Starting..."}

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := db.GetRunByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.TargetKey != run.TargetKey || got.Target.Username != "octocat" {
		t.Errorf("unexpected target: %+v", got.Target)
	}
	if !got.DateScanned.Equal(at) {
		t.Errorf("got date %v, expected %v", got.DateScanned, at)
	}
	if len(got.Results) != 1 || got.Results[0].Confidence != 35 || got.Results[0].RiskLevel != model.RiskLow {
		t.Errorf("unexpected results: %+v", got.Results)
	}
	if len(got.Trace) != 1 {
		t.Errorf("expected trace to round trip, got %v", got.Trace)
	}

	missing, err := db.GetRunByID(ctx, id+100)
	if err != nil || missing != nil {
		t.Errorf("expected nil run for unknown id, got %v, %v", missing, err)
	}
}

// TestRunHistory tests history ordering and lookup by label or key.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	older := newTestRun("octocat", base, map[string]float64{"GitHub": 35})
	newer := newTestRun("octocat", base.Add(500*time.Millisecond), map[string]float64{"GitHub": 75, "Twitter": 50})
	other := newTestRun("someone", base.Add(time.Hour), map[string]float64{"Twitter": 45})

	for _, r := range []*model.Run{newer, older, other} {
		if _, err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	for _, target := range []string{"octocat", older.TargetKey} {
		runs, err := db.GetRunHistory(ctx, target)
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs for %q, got %d", target, len(runs))
		}
		if !runs[0].DateScanned.Equal(newer.DateScanned) {
			t.Errorf("expected newest run first, got %v", runs[0].DateScanned)
		}
	}

	latest, err := db.GetLatestRun(ctx, "octocat")
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if latest == nil || len(latest.Results) != 2 {
		t.Errorf("unexpected latest run: %+v", latest)
	}

	none, err := db.GetLatestRun(ctx, "nobody")
	if err != nil || none != nil {
		t.Errorf("expected nil for unknown target, got %v, %v", none, err)
	}

	metas, err := db.GetRunHistoryWithMetadata(ctx, "octocat")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 metadata rows, got %d", len(metas))
	}
	if metas[0].ResultCount != 2 || metas[0].RiskSummary["HIGH"] != 1 || metas[0].RiskSummary["MEDIUM"] != 1 {
		t.Errorf("unexpected metadata: %+v", metas[0])
	}
	if metas[1].RiskSummary["LOW"] != 1 {
		t.Errorf("unexpected metadata: %+v", metas[1])
	}
	if metas[0].Label != "octocat" {
		t.Errorf("got label %q", metas[0].Label)
	}
}

// TestSharedLabel tests that targets sharing a label are never mixed.
func TestSharedLabel(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	usernameOnly := newTestRun("octocat", base, map[string]float64{"GitHub": 35})
	withEmail := model.NewRun(model.AnalysisInput{Username: "octocat", Email: "a@b.io"}, base.Add(time.Hour))
	withEmail.Results = append(withEmail.Results, scorer.NewPlatformResult("Gravatar", model.StatusFound, []model.Signal{
		model.NewSignal(model.KindEmail, "a@b.io", 45, "match", "Gravatar"),
	}))
	for _, r := range []*model.Run{usernameOnly, withEmail} {
		if _, err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	if usernameOnly.TargetKey == withEmail.TargetKey {
		t.Fatal("expected distinct target keys")
	}

	t.Run("label is ambiguous", func(t *testing.T) {
		t.Parallel()

		if _, err := db.ResolveTargetKey(ctx, "octocat"); !errors.Is(err, ErrAmbiguousTarget) {
			t.Errorf("expected ErrAmbiguousTarget, got %v", err)
		}
		if runs, err := db.GetRunHistory(ctx, "octocat"); !errors.Is(err, ErrAmbiguousTarget) || runs != nil {
			t.Errorf("expected ErrAmbiguousTarget and no runs, got %d runs, %v", len(runs), err)
		}
		if _, err := db.GetRunHistoryWithMetadata(ctx, "octocat"); !errors.Is(err, ErrAmbiguousTarget) {
			t.Errorf("expected ErrAmbiguousTarget, got %v", err)
		}
	})

	t.Run("full key selects one target", func(t *testing.T) {
		t.Parallel()

		runs, err := db.GetRunHistory(ctx, withEmail.TargetKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 1 || runs[0].TargetKey != withEmail.TargetKey {
			t.Errorf("expected only the email target, got %d runs", len(runs))
		}
	})

	t.Run("key prefix selects one target", func(t *testing.T) {
		t.Parallel()

		key, err := db.ResolveTargetKey(ctx, usernameOnly.TargetKey[:12])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != usernameOnly.TargetKey {
			t.Errorf("got key %q", key)
		}
	})

	t.Run("short prefix is not a reference", func(t *testing.T) {
		t.Parallel()

		key, err := db.ResolveTargetKey(ctx, usernameOnly.TargetKey[:4])
		if err != nil || key != "" {
			t.Errorf("expected no match, got %q, %v", key, err)
		}
	})
}

// TestListTargets tests target listing.
func TestListTargets(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	targets, err := db.ListTargets(ctx)
	if err != nil {
		t.Fatalf("failed to list targets: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("expected no targets, got %d", len(targets))
	}

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*model.Run{
		newTestRun("octocat", base, nil),
		newTestRun("octocat", base.Add(time.Minute), nil),
		newTestRun("someone", base.Add(time.Hour), nil),
	}
	for _, r := range runs {
		if _, err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	targets, err = db.ListTargets(ctx)
	if err != nil {
		t.Fatalf("failed to list targets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].Label != "someone" || targets[0].Runs != 1 {
		t.Errorf("unexpected first target: %+v", targets[0])
	}
	if targets[1].Label != "octocat" || targets[1].Runs != 2 {
		t.Errorf("unexpected second target: %+v", targets[1])
	}
	if !targets[1].LastScan.Equal(base.Add(time.Minute)) {
		t.Errorf("got last scan %v", targets[1].LastScan)
	}
}

// TestParseTimestamp tests timestamp parsing with various layouts.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"stored layout", "2025-03-01T12:00:00.500000000Z", time.Date(2025, 3, 1, 12, 0, 0, 500000000, time.UTC)},
		{"RFC3339", "2025-03-01T12:00:00Z", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"SQLite default", "2025-03-01 12:00:00", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"invalid", "not a date", time.Time{}},
		{"empty", "", time.Time{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tc.input); !got.Equal(tc.expected) {
				t.Errorf("parseTimestamp(%q) = %v, expected %v", tc.input, got, tc.expected)
			}
		})
	}
}
