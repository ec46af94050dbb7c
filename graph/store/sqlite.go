package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It keeps one row per session in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process deployments requiring persistence across restarts
//
// WAL mode is enabled so readers don't block the writer, and each Put is a
// single upsert statement, which SQLite applies atomically.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db        *sql.DB
	summarize SummaryFunc[S]
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	summary    TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL,
	state      TEXT NOT NULL
)`

// NewSQLiteStore creates a SQLite-backed store at the given path
// (":memory:" for an in-memory database). The sessions table is created on
// first use.
func NewSQLiteStore[S any](path string, summarize SummaryFunc[S]) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &SQLiteStore[S]{db: db, summarize: summarize}, nil
}

// Put upserts the session's snapshot row.
func (s *SQLiteStore[S]) Put(ctx context.Context, sessionID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	summary := ""
	if s.summarize != nil {
		summary = s.summarize(state)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, summary, updated_at, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			summary = excluded.summary,
			updated_at = excluded.updated_at,
			state = excluded.state`,
		sessionID, summary, time.Now().UTC(), string(data))
	return err
}

// Get returns the latest snapshot or ErrNotFound. Rows whose state column
// fails to decode are treated as absent.
func (s *SQLiteStore[S]) Get(ctx context.Context, sessionID string) (S, error) {
	var zero S

	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM sessions WHERE session_id = ?", sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}

	var state S
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return zero, ErrNotFound
	}
	return state, nil
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteStore[S]) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, summary, updated_at FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]SessionInfo, 0)
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.SessionID, &info.Summary, &info.LastUpdated); err != nil {
			// Skip unreadable rows rather than failing the listing.
			continue
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// Forget deletes the session's row and reports whether one existed.
func (s *SQLiteStore[S]) Forget(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearAll deletes every session row.
func (s *SQLiteStore[S]) ClearAll(ctx context.Context) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions")
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Close releases the database handle.
func (s *SQLiteStore[S]) Close() error {
	return s.db.Close()
}
