package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteResultStore persists result blobs to SQLite. It is suitable
// for single-process production use.
type SQLiteResultStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteResultStore creates a SQLite-backed result store. The path
// should be a file path (e.g., "./results.db") or ":memory:" for
// testing.
func NewSQLiteResultStore(path string) (*SQLiteResultStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			context_key TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}

	return &SQLiteResultStore{db: db}, nil
}

// Put implements ResultStore. ON CONFLICT DO NOTHING keeps writes
// idempotent: the first writer wins and repeat writes succeed without
// touching the row.
func (s *SQLiteResultStore) Put(ctx context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (context_key, blob, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(context_key) DO NOTHING
	`, key, blob, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put result: %w", err)
	}
	return nil
}

// Get implements ResultStore.
func (s *SQLiteResultStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT blob FROM results WHERE context_key = ?
	`, key).Scan(&blob)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return blob, nil
}

// Contains implements ResultStore.
func (s *SQLiteResultStore) Contains(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM results WHERE context_key = ?
	`, key).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("contains result: %w", err)
	}
	return true, nil
}

// Close implements ResultStore.
func (s *SQLiteResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// SQLiteMetadataStore persists execution records to SQLite.
type SQLiteMetadataStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteMetadataStore creates a SQLite-backed metadata store.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	// runs orders run creation; records is the append-only history.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			code_fingerprint TEXT NOT NULL,
			input_fingerprints TEXT,
			output_fingerprint TEXT NOT NULL,
			context_key TEXT NOT NULL,
			outcome TEXT NOT NULL,
			format TEXT,
			indexed INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_context_key
		ON records(context_key)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create context key index: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_run_id
		ON records(run_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create run index: %w", err)
	}

	return &SQLiteMetadataStore{db: db}, nil
}

// BeginRun implements MetadataStore.
func (s *SQLiteMetadataStore) BeginRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, runID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Append implements MetadataStore.
func (s *SQLiteMetadataStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var inputs []byte
	if rec.InputFingerprints != nil {
		var err error
		inputs, err = json.Marshal(rec.InputFingerprints)
		if err != nil {
			return fmt.Errorf("marshal input fingerprints: %w", err)
		}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	indexed := 0
	if rec.Indexed {
		indexed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			run_id, node_name, code_fingerprint, input_fingerprints,
			output_fingerprint, context_key, outcome, format, indexed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.NodeName, rec.CodeFingerprint, string(inputs),
		rec.OutputFingerprint, rec.ContextKey, string(rec.Outcome),
		rec.Format, indexed, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// QueryByContextKey implements MetadataStore.
func (s *SQLiteMetadataStore) QueryByContextKey(ctx context.Context, key string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, node_name, code_fingerprint, input_fingerprints,
		       output_fingerprint, context_key, outcome, format, indexed, created_at
		FROM records
		WHERE context_key = ? AND indexed = 1
		ORDER BY id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query by context key: %w", err)
	}
	return scanRecords(rows)
}

// LatestRun implements MetadataStore.
func (s *SQLiteMetadataStore) LatestRun(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	var runID string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id FROM runs ORDER BY id DESC LIMIT 1
	`).Scan(&runID)

	if err == sql.ErrNoRows {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return runID, nil
}

// QueryRun implements MetadataStore.
func (s *SQLiteMetadataStore) QueryRun(ctx context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, node_name, code_fingerprint, input_fingerprints,
		       output_fingerprint, context_key, outcome, format, indexed, created_at
		FROM records
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return scanRecords(rows)
}

// Close implements MetadataStore.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// openSQLite opens a database with WAL mode for better concurrent
// read performance.
func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	return db, nil
}

// scanRecords drains a records query into a slice.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var inputs string
		var outcome string
		var indexed int
		var createdAt string
		if err := rows.Scan(&rec.RunID, &rec.NodeName, &rec.CodeFingerprint,
			&inputs, &rec.OutputFingerprint, &rec.ContextKey,
			&outcome, &rec.Format, &indexed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if inputs != "" {
			if err := json.Unmarshal([]byte(inputs), &rec.InputFingerprints); err != nil {
				return nil, fmt.Errorf("unmarshal input fingerprints: %w", err)
			}
		}
		rec.Outcome = Outcome(outcome)
		rec.Indexed = indexed == 1
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
