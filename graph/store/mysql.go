package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL implementation of Store[S].
//
// It uses the same canonical session schema as SQLiteStore with MySQL upsert
// syntax. Each Put is a single INSERT ... ON DUPLICATE KEY UPDATE, which the
// server applies atomically per row, so snapshots for one session id are
// linearizable and unrelated ids never contend beyond normal row locking.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db        *sql.DB
	summarize SummaryFunc[S]
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id VARCHAR(255) PRIMARY KEY,
	summary    TEXT NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL,
	state      LONGTEXT NOT NULL
)`

// NewMySQLStore creates a MySQL-backed store from a DSN such as
// "user:pass@tcp(localhost:3306)/knowbot?parseTime=true". parseTime is
// required so updated_at scans into time.Time.
func NewMySQLStore[S any](dsn string, summarize SummaryFunc[S]) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach MySQL: %w", err)
	}
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &MySQLStore[S]{db: db, summarize: summarize}, nil
}

// Put upserts the session's snapshot row.
func (m *MySQLStore[S]) Put(ctx context.Context, sessionID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	summary := ""
	if m.summarize != nil {
		summary = m.summarize(state)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, summary, updated_at, state)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			summary = VALUES(summary),
			updated_at = VALUES(updated_at),
			state = VALUES(state)`,
		sessionID, summary, time.Now().UTC(), string(data))
	return err
}

// Get returns the latest snapshot or ErrNotFound.
func (m *MySQLStore[S]) Get(ctx context.Context, sessionID string) (S, error) {
	var zero S

	var data string
	err := m.db.QueryRowContext(ctx,
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
func (m *MySQLStore[S]) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT session_id, summary, updated_at FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]SessionInfo, 0)
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.SessionID, &info.Summary, &info.LastUpdated); err != nil {
			continue
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// Forget deletes the session's row and reports whether one existed.
func (m *MySQLStore[S]) Forget(ctx context.Context, sessionID string) (bool, error) {
	res, err := m.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
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
func (m *MySQLStore[S]) ClearAll(ctx context.Context) (bool, error) {
	res, err := m.db.ExecContext(ctx, "DELETE FROM sessions")
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
func (m *MySQLStore[S]) Close() error {
	return m.db.Close()
}
