package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wikiexport/internal/model"
)

// CrawlDB is the SQLite crawl history.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	// The history command opens with false so it never creates an empty file.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the crawl command.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the crawl history at dbPath.
func Open(dbPath string, opts Options) (*CrawlDB, error) {
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		exported INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		outcome TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		md_path TEXT NOT NULL DEFAULT '',
		fetched_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_run ON crawls(run_id);
	CREATE INDEX IF NOT EXISTS idx_crawls_url ON crawls(url);
	`
	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts a running run and returns its ID.
func (cdb *CrawlDB) StartRun(ctx context.Context, startURL string, startedAt time.Time) (int64, error) {
	result, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (start_url, started_at, state) VALUES (?, ?, ?)`,
		startURL,
		formatTimestamp(startedAt),
		model.RunStateRunning.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun stores the terminal state of a run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, summary *model.RunSummary) error {
	finishedAt := summary.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	result, err := cdb.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, state = ?, exported = ?, error = ? WHERE id = ?`,
		formatTimestamp(finishedAt),
		summary.State.String(),
		summary.Exported,
		summary.Error,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// RecordCrawl stores the outcome of one URL. A second record for the same
// URL in the same run replaces the first.
func (cdb *CrawlDB) RecordCrawl(ctx context.Context, runID int64, entry model.CrawlEntry) error {
	query := `
	INSERT INTO crawls (run_id, url, outcome, status_code, content_type, title, md_path, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		outcome = excluded.outcome,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		md_path = excluded.md_path,
		fetched_at = excluded.fetched_at
	`
	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		entry.URL.String(),
		string(entry.Outcome),
		entry.StatusCode,
		entry.ContentType,
		entry.Title,
		entry.MDPath,
		formatTimestamp(entry.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert crawl record: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first. limit <= 0 returns all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	query := `
	SELECT id, start_url, state, exported, started_at, finished_at
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (cdb *CrawlDB) GetRun(ctx context.Context, runID int64) (*model.RunRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, start_url, state, exported, started_at, finished_at
	FROM runs
	WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunCrawls returns the per-URL outcomes of a run in insertion order.
func (cdb *CrawlDB) GetRunCrawls(ctx context.Context, runID int64) ([]model.CrawlEntry, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, outcome, status_code, content_type, title, md_path, fetched_at
	FROM crawls
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawls: %w", err)
	}
	defer rows.Close()

	var entries []model.CrawlEntry
	for rows.Next() {
		var (
			entry     model.CrawlEntry
			rawURL    string
			outcome   string
			fetchedAt string
		)
		if err := rows.Scan(&rawURL, &outcome, &entry.StatusCode, &entry.ContentType,
			&entry.Title, &entry.MDPath, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan crawl record: %w", err)
		}
		entry.URL = model.CrawlURL(rawURL)
		entry.Outcome = model.Outcome(outcome)
		entry.FetchedAt = parseTimestamp(fetchedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// OutcomeCounts counts the URLs of a run by outcome.
func (cdb *CrawlDB) OutcomeCounts(ctx context.Context, runID int64) (map[model.Outcome]int, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT outcome, COUNT(*) FROM crawls
	WHERE run_id = ?
	GROUP BY outcome
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[model.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (model.RunRecord, error) {
	var (
		run        model.RunRecord
		startedAt  string
		finishedAt string
	)
	if err := s.Scan(&run.ID, &run.StartURL, &run.State, &run.Exported, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	return run, nil
}

// timestampLayout sorts lexically in time order, which MAX(fetched_at) relies on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time for empty or unparsable values.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
