package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory catalog.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// Every pooled connection to ":memory:" would otherwise get its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db, path: dbPath}, nil
}

// Path returns the database path the catalog was opened with.
func (s *SQLiteCatalog) Path() string {
	return s.path
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		doc_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_builds_status ON builds(status);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := db.Exec(schema)
	return err
}

// BeginBuild records a new generation in the building state.
func (s *SQLiteCatalog) BeginBuild(ctx context.Context, id, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, path, status, started_at) VALUES (?, ?, ?, ?)`,
		id, path, string(StatusBuilding), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record build %s: %w", id, err)
	}
	return nil
}

// CommitBuild marks id committed and supersedes any other committed generation atomically.
func (s *SQLiteCatalog) CommitBuild(ctx context.Context, id string, docCount int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE builds SET status = ? WHERE status = ? AND id != ?`,
		string(StatusSuperseded), string(StatusCommitted), id,
	); err != nil {
		return fmt.Errorf("failed to supersede previous build: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE builds SET status = ?, doc_count = ?, finished_at = ? WHERE id = ? AND status = ?`,
		string(StatusCommitted), docCount, now, id, string(StatusBuilding),
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("build not found or not in progress: %s", id)
	}
	return tx.Commit()
}

// FailBuild marks id failed with cause's message.
func (s *SQLiteCatalog) FailBuild(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE builds SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(StatusFailed), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("build not found: %s", id)
	}
	return nil
}

// ActiveGeneration returns the committed build, or nil if there is none.
func (s *SQLiteCatalog) ActiveGeneration(ctx context.Context) (*Build, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, status, doc_count, error, started_at, finished_at
		 FROM builds WHERE status = ? ORDER BY finished_at DESC LIMIT 1`,
		string(StatusCommitted),
	)
	b, err := scanBuild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBuilds returns up to limit builds, newest first.
func (s *SQLiteCatalog) ListBuilds(ctx context.Context, limit int) ([]*Build, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, status, doc_count, error, started_at, finished_at
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*Build, error) {
	var b Build
	var status string
	var finished sql.NullTime
	if err := row.Scan(&b.ID, &b.Path, &status, &b.DocCount, &b.Error, &b.StartedAt, &finished); err != nil {
		return nil, err
	}
	b.Status = BuildStatus(status)
	if finished.Valid {
		t := finished.Time
		b.FinishedAt = &t
	}
	return &b, nil
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}
