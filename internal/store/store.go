// Package store provides the durable operational store for the sync
// pipeline: resumable sync state, the processing lock, the enrichment retry
// queue, and the marker keys read by operational tooling.
//
// Everything lives in a single SQLite database. Read-modify-write is atomic
// at single-key granularity; no multi-key transactions are required by the
// pipeline.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Marker keys exposed to operational tooling.
const (
	MarkerStatus        = "sync_status"
	MarkerRunning       = "sync_running"
	MarkerLastSync      = "last_sync"
	MarkerLastSyncDate  = "last_sync_date"
	MarkerLastError     = "last_error"
	MarkerCompletedDate = "completed_date"
	MarkerStopRequested = "stop_requested"
	MarkerManualStart   = "manual_start"
)

// Status values persisted under MarkerStatus.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusStopped   = "stopped"
)

// SyncRecord is the durable snapshot of an in-progress run. Items holds the
// normalized work items as a JSON array; the pipeline owns its shape.
type SyncRecord struct {
	ItemsJSON string
	Cursor    int
	Total     int
	StartedAt time.Time
	ForDate   string // calendar date, YYYY-MM-DD
}

// RetryRecord is one deferred enrichment call. Consumed at most once.
type RetryRecord struct {
	ID          string
	Kind        string
	PayloadJSON string
	NotBefore   time.Time
}

// Store wraps the SQLite operational database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the operational database at dbPath.
func Open(dbPath string) (*Store, error) {
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sync_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			items TEXT NOT NULL,
			cursor INTEGER NOT NULL,
			total INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			for_date TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS processing_lock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			acquired_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS retry_queue (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			not_before DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS markers (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_retry_not_before ON retry_queue(not_before);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for components sharing the database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- sync state ---

// SaveSyncState inserts or replaces the single sync-state row.
func (s *Store) SaveSyncState(rec *SyncRecord) error {
	if rec.Cursor < 0 || rec.Cursor > rec.Total {
		return fmt.Errorf("store: invalid cursor %d of %d", rec.Cursor, rec.Total)
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_state (id, items, cursor, total, started_at, for_date)
		VALUES (1, ?, ?, ?, ?, ?)
	`, rec.ItemsJSON, rec.Cursor, rec.Total, rec.StartedAt, rec.ForDate)
	return err
}

// UpdateCursor advances the cursor of the existing sync-state row.
func (s *Store) UpdateCursor(cursor int) error {
	res, err := s.db.Exec(`
		UPDATE sync_state SET cursor = ? WHERE id = 1 AND ? <= total
	`, cursor, cursor)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSyncState returns the current sync state, or ErrNotFound.
func (s *Store) GetSyncState() (*SyncRecord, error) {
	row := s.db.QueryRow(`
		SELECT items, cursor, total, started_at, for_date FROM sync_state WHERE id = 1
	`)

	var rec SyncRecord
	err := row.Scan(&rec.ItemsJSON, &rec.Cursor, &rec.Total, &rec.StartedAt, &rec.ForDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ClearSyncState removes the sync-state row if present.
func (s *Store) ClearSyncState() error {
	_, err := s.db.Exec(`DELETE FROM sync_state WHERE id = 1`)
	return err
}

// --- processing lock ---

// AcquireLock writes the lock row with the given timestamp, replacing any
// existing (possibly stale) lock. Staleness policy belongs to the caller.
func (s *Store) AcquireLock(now time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO processing_lock (id, acquired_at) VALUES (1, ?)
	`, now)
	return err
}

// RefreshLock updates the lock timestamp so a live run never appears stale.
func (s *Store) RefreshLock(now time.Time) error {
	_, err := s.db.Exec(`UPDATE processing_lock SET acquired_at = ? WHERE id = 1`, now)
	return err
}

// ReleaseLock removes the lock row.
func (s *Store) ReleaseLock() error {
	_, err := s.db.Exec(`DELETE FROM processing_lock WHERE id = 1`)
	return err
}

// LockAcquiredAt returns the lock timestamp, or ErrNotFound when no lock
// is held.
func (s *Store) LockAcquiredAt() (time.Time, error) {
	row := s.db.QueryRow(`SELECT acquired_at FROM processing_lock WHERE id = 1`)
	var at time.Time
	if err := row.Scan(&at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return at, nil
}

// --- retry queue ---

// EnqueueRetry stores a deferred enrichment call.
func (s *Store) EnqueueRetry(rec *RetryRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO retry_queue (id, kind, payload, not_before) VALUES (?, ?, ?, ?)
	`, rec.ID, rec.Kind, rec.PayloadJSON, rec.NotBefore)
	return err
}

// DueRetries returns entries whose not_before has passed, oldest first.
func (s *Store) DueRetries(now time.Time) ([]*RetryRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, payload, not_before FROM retry_queue
		WHERE not_before <= ?
		ORDER BY not_before ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*RetryRecord
	for rows.Next() {
		var rec RetryRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.PayloadJSON, &rec.NotBefore); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// DeleteRetry removes an entry. Called before the retried attempt so an
// entry is consumed exactly once regardless of outcome.
func (s *Store) DeleteRetry(id string) error {
	_, err := s.db.Exec(`DELETE FROM retry_queue WHERE id = ?`, id)
	return err
}

// --- markers ---

// SetMarker writes a marker key.
func (s *Store) SetMarker(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO markers (key, value) VALUES (?, ?)
	`, key, value)
	return err
}

// Marker reads a marker key; missing keys return an empty string.
func (s *Store) Marker(key string) (string, error) {
	row := s.db.QueryRow(`SELECT value FROM markers WHERE key = ?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// DeleteMarker removes a marker key if present.
func (s *Store) DeleteMarker(key string) error {
	_, err := s.db.Exec(`DELETE FROM markers WHERE key = ?`, key)
	return err
}
