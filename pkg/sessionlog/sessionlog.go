// Package sessionlog persists recorded tool sessions as JSONL files,
// one file per session, with a sqlite index over session metadata.
//
// A session file starts with a single header line describing the
// session, followed by one line per entry. Active sessions live at
// <dir>/<id>.jsonl and move to <dir>/<id>.archived.jsonl when
// archived. Session and entry identifiers come from internal/ident and
// are filename-safe by contract.
package sessionlog

import (
	"encoding/json"
	"errors"
	"time"
)

// State is the lifecycle state of a session.
type State string

const (
	StateActive   State = "active"
	StateArchived State = "archived"
)

// Kind classifies an entry.
type Kind string

const (
	// KindCommand is a recorded shell-command execution.
	KindCommand Kind = "command"
	// KindNote is free-form operator annotation.
	KindNote Kind = "note"
	// KindEvent is a structured application event.
	KindEvent Kind = "event"
)

// Session is the header record of a session file.
type Session struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// Entry is one recorded line within a session.
type Entry struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

var (
	// ErrSessionNotFound is returned when no session file exists for
	// the given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionArchived is returned when appending to an archived
	// session.
	ErrSessionArchived = errors.New("session is archived")

	// ErrSessionFull is returned when a session has reached the
	// configured entry cap.
	ErrSessionFull = errors.New("session entry limit reached")

	// ErrInvalidSessionKey is returned for keys that are empty or
	// unsafe as filename components.
	ErrInvalidSessionKey = errors.New("invalid session key")

	// ErrInvalidKind is returned for unknown entry kinds.
	ErrInvalidKind = errors.New("invalid entry kind")
)
