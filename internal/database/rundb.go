package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/footprint/internal/model"
)

// FileName is the name of the SQLite file inside the database directory.
const FileName = "footprint.db"

// storedTimeLayout is fixed width so that stored dates sort as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrDatabaseNotFound is returned by Open when the database does not
	// exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrAmbiguousTarget is returned when a label or key prefix matches more
	// than one target.
	ErrAmbiguousTarget = errors.New("target is ambiguous")
)

// minKeyPrefix is the shortest target key prefix accepted as a reference.
const minKeyPrefix = 8

// RunDB stores analysis runs.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run database in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.dbPath
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

func (r *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_key TEXT NOT NULL,
		label TEXT NOT NULL,
		date_scanned TEXT NOT NULL,
		result_count INTEGER NOT NULL DEFAULT 0,
		run_json TEXT NOT NULL,
		risk_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target_key);
	CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
	CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date_scanned);
	`
	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata summarizes a stored run without decoding it.
type RunMetadata struct {
	// ID is the row id of the run.
	ID int64

	// TargetKey is the fingerprint of the analyzed input.
	TargetKey string

	// Label is the display label of the analyzed input.
	Label string

	// DateScanned is when the run started.
	DateScanned time.Time

	// ResultCount is the number of platform results in the run.
	ResultCount int

	// RiskSummary counts results per risk level ("HIGH", "MEDIUM", "LOW").
	RiskSummary map[string]int
}

// Target is one distinct analyzed target.
type Target struct {
	TargetKey string
	Label     string
	Runs      int
	LastScan  time.Time
}

// SaveRun stores a completed run and returns its id.
func (r *RunDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run: %w", err)
	}

	summary := make(map[string]int)
	for level, n := range run.RiskCounts() {
		summary[string(level)] = n
	}
	riskJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // map of ints always marshals

	query := `
	INSERT INTO runs (target_key, label, date_scanned, result_count, run_json, risk_summary)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		run.TargetKey,
		run.Target.Label(),
		run.DateScanned.UTC().Format(storedTimeLayout),
		len(run.Results),
		string(runJSON),
		string(riskJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return result.LastInsertId()
}

// ResolveTargetKey maps a target reference to a single target key. The
// reference may be a full target key, a label, or a key prefix of at least
// eight characters, tried in that order. Different inputs can share a label
// (a username alone, and the same username with an email), so a label or
// prefix matching several keys returns ErrAmbiguousTarget. An unknown
// reference yields "" and no error.
func (r *RunDB) ResolveTargetKey(ctx context.Context, target string) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx, `SELECT target_key FROM runs WHERE target_key = ? LIMIT 1`, target).Scan(&key)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to resolve target: %w", err)
	}

	keys, err := r.distinctKeys(ctx, `label = ?`, target)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 && len(target) >= minKeyPrefix {
		if keys, err = r.distinctKeys(ctx, `substr(target_key, 1, ?) = ?`, len(target), target); err != nil {
			return "", err
		}
	}

	switch len(keys) {
	case 0:
		return "", nil
	case 1:
		return keys[0], nil
	}
	short := make([]string, len(keys))
	for i, k := range keys {
		short[i] = k[:min(len(k), 12)]
	}
	return "", fmt.Errorf("%w: %s matches %d targets (%s); use a target key",
		ErrAmbiguousTarget, target, len(keys), strings.Join(short, ", "))
}

// distinctKeys returns the target keys of rows matching where, most recently
// scanned first.
func (r *RunDB) distinctKeys(ctx context.Context, where string, args ...any) ([]string, error) {
	query := `SELECT target_key FROM runs WHERE ` + where + `
	GROUP BY target_key
	ORDER BY MAX(date_scanned) DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan target key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetLatestRun returns the most recent run for a target reference (see
// ResolveTargetKey). It returns nil and no error when nothing is stored.
func (r *RunDB) GetLatestRun(ctx context.Context, target string) (*model.Run, error) {
	key, err := r.ResolveTargetKey(ctx, target)
	if err != nil || key == "" {
		return nil, err
	}

	query := `
	SELECT run_json FROM runs
	WHERE target_key = ?
	ORDER BY date_scanned DESC, id DESC
	LIMIT 1
	`
	var runJSON string
	err = r.db.QueryRowContext(ctx, query, key).Scan(&runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(runJSON)
}

// GetRunByID returns a stored run, or nil when the id is unknown.
func (r *RunDB) GetRunByID(ctx context.Context, id int64) (*model.Run, error) {
	var runJSON string
	err := r.db.QueryRowContext(ctx, `SELECT run_json FROM runs WHERE id = ?`, id).Scan(&runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(runJSON)
}

// GetRunHistory returns all runs of one target, newest first. Rows that
// fail to decode are skipped.
func (r *RunDB) GetRunHistory(ctx context.Context, target string) ([]*model.Run, error) {
	key, err := r.ResolveTargetKey(ctx, target)
	if err != nil || key == "" {
		return nil, err
	}

	query := `
	SELECT run_json FROM runs
	WHERE target_key = ?
	ORDER BY date_scanned DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var runJSON string
		if err := rows.Scan(&runJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := decodeRun(runJSON)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunHistoryWithMetadata returns run metadata for one target, newest first.
func (r *RunDB) GetRunHistoryWithMetadata(ctx context.Context, target string) ([]RunMetadata, error) {
	key, err := r.ResolveTargetKey(ctx, target)
	if err != nil || key == "" {
		return nil, err
	}

	query := `
	SELECT id, target_key, label, date_scanned, result_count, risk_summary
	FROM runs
	WHERE target_key = ?
	ORDER BY date_scanned DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var date string
		var riskJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.TargetKey, &meta.Label, &date, &meta.ResultCount, &riskJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.DateScanned = parseTimestamp(date)

		meta.RiskSummary = make(map[string]int)
		if riskJSON.Valid && riskJSON.String != "" {
			if err := json.Unmarshal([]byte(riskJSON.String), &meta.RiskSummary); err != nil {
				meta.RiskSummary = make(map[string]int)
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ListTargets returns every analyzed target with its run count, most
// recently scanned first.
func (r *RunDB) ListTargets(ctx context.Context) ([]Target, error) {
	query := `
	SELECT target_key, MAX(label), COUNT(*), MAX(date_scanned)
	FROM runs
	GROUP BY target_key
	ORDER BY MAX(date_scanned) DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		var last string
		if err := rows.Scan(&t.TargetKey, &t.Label, &t.Runs, &last); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		t.LastScan = parseTimestamp(last)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func decodeRun(runJSON string) (*model.Run, error) {
	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

// timestampFormats lists the layouts a stored timestamp may use, most
// specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with each known layout and returns the zero time
// if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
