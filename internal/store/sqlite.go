// Package store persists finished run records to SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/batch"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	input_dir TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	test_run INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	original_bytes INTEGER NOT NULL DEFAULT 0,
	optimized_bytes INTEGER NOT NULL DEFAULT 0,
	error TEXT DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// SQLiteStore implements batch.Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex // Protects concurrent access
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
// The database file is created if it doesn't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert schema version: %w", err)
		}
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// SaveRun inserts (or replaces) one finished run record.
func (s *SQLiteStore) SaveRun(rec *batch.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO runs (
			id, mode, input_dir, output_dir, test_run, status,
			total, processed, skipped, failed,
			original_bytes, optimized_bytes, error,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.InputDir, rec.OutputDir, boolToInt(rec.TestRun), rec.Status,
		rec.Total, rec.Processed, rec.Skipped, rec.Failed,
		rec.OriginalBytes, rec.OptimizedBytes, rec.Error,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, most recently started first.
// limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(limit int) ([]*batch.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, mode, input_dir, output_dir, test_run, status,
			total, processed, skipped, failed,
			original_bytes, optimized_bytes, error,
			started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var recs []*batch.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// TotalSavedBytes sums the size reduction across all optimize runs.
func (s *SQLiteStore) TotalSavedBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var saved int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(original_bytes - optimized_bytes), 0)
		FROM runs WHERE optimized_bytes > 0`).Scan(&saved)
	if err != nil {
		return 0, fmt.Errorf("total saved bytes: %w", err)
	}
	return saved, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func scanRun(rows *sql.Rows) (*batch.RunRecord, error) {
	var (
		rec                 batch.RunRecord
		testRun             int
		startedAt, finished string
	)
	err := rows.Scan(
		&rec.ID, &rec.Mode, &rec.InputDir, &rec.OutputDir, &testRun, &rec.Status,
		&rec.Total, &rec.Processed, &rec.Skipped, &rec.Failed,
		&rec.OriginalBytes, &rec.OptimizedBytes, &rec.Error,
		&startedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	rec.TestRun = testRun != 0
	rec.StartedAt = parseTime(startedAt)
	rec.FinishedAt = parseTime(finished)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
