package sessionlog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SessionMeta is the indexed view of a session, kept in sqlite so
// listing and maintenance do not have to scan every JSONL file.
type SessionMeta struct {
	ID          string
	Key         string
	State       State
	StartedAt   time.Time
	LastEntryAt time.Time
	EntryCount  int
}

// Index is the sqlite session-metadata mirror. It is derived state:
// the JSONL files stay authoritative and the index can always be
// rebuilt from them.
type Index struct {
	db *sql.DB
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	key           TEXT NOT NULL,
	state         TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	last_entry_at INTEGER,
	entry_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
`

// OpenIndex opens (or creates) the index database.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Upsert inserts or replaces a session row.
func (ix *Index) Upsert(meta SessionMeta) error {
	var lastEntry any
	if !meta.LastEntryAt.IsZero() {
		lastEntry = meta.LastEntryAt.UnixMilli()
	}

	_, err := ix.db.Exec(`
		INSERT INTO sessions (id, key, state, started_at, last_entry_at, entry_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			key = excluded.key,
			state = excluded.state,
			started_at = excluded.started_at,
			last_entry_at = excluded.last_entry_at,
			entry_count = excluded.entry_count`,
		meta.ID, meta.Key, string(meta.State), meta.StartedAt.UnixMilli(), lastEntry, meta.EntryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", meta.ID, err)
	}
	return nil
}

// RecordAppend bumps the entry count and last-entry timestamp.
func (ix *Index) RecordAppend(sessionID string, at time.Time) error {
	res, err := ix.db.Exec(`
		UPDATE sessions
		SET entry_count = entry_count + 1, last_entry_at = ?
		WHERE id = ?`,
		at.UnixMilli(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to record append for %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SetState updates a session's lifecycle state.
func (ix *Index) SetState(sessionID string, state State) error {
	res, err := ix.db.Exec(`UPDATE sessions SET state = ? WHERE id = ?`, string(state), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update state for %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Remove deletes a session row. Removing an unknown session is not an
// error; the watcher and SyncIndex race benignly here.
func (ix *Index) Remove(sessionID string) error {
	if _, err := ix.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", sessionID, err)
	}
	return nil
}

// Get returns one session's metadata.
func (ix *Index) Get(sessionID string) (SessionMeta, error) {
	row := ix.db.QueryRow(`
		SELECT id, key, state, started_at, last_entry_at, entry_count
		FROM sessions WHERE id = ?`, sessionID)

	meta, err := scanMeta(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionMeta{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionMeta{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return meta, nil
}

// List returns sessions newest first, optionally filtered by state
// (empty state means all).
func (ix *Index) List(state State) ([]SessionMeta, error) {
	query := `
		SELECT id, key, state, started_at, last_entry_at, entry_count
		FROM sessions`
	args := []any{}
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY started_at DESC`

	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		meta, err := scanMeta(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return metas, nil
}

func scanMeta(scan func(dest ...any) error) (SessionMeta, error) {
	var (
		meta      SessionMeta
		state     string
		startedAt int64
		lastEntry sql.NullInt64
	)
	if err := scan(&meta.ID, &meta.Key, &state, &startedAt, &lastEntry, &meta.EntryCount); err != nil {
		return SessionMeta{}, err
	}
	meta.State = State(state)
	meta.StartedAt = time.UnixMilli(startedAt).UTC()
	if lastEntry.Valid {
		meta.LastEntryAt = time.UnixMilli(lastEntry.Int64).UTC()
	}
	return meta, nil
}
