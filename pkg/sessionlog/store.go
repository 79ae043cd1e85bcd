package sessionlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dimasfr/logtrail/internal/ident"
)

const (
	activeSuffix   = ".jsonl"
	archivedSuffix = ".archived.jsonl"
)

// Config holds store configuration.
type Config struct {
	// Dir is the sessions directory; created if missing.
	Dir string

	// IndexPath is the sqlite index file; empty means index.db inside
	// Dir.
	IndexPath string

	// MaxEntries caps entries per session; 0 disables the cap.
	MaxEntries int
}

// Store manages session files and their index.
type Store struct {
	dir        string
	maxEntries int
	index      *Index

	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates the sessions directory and opens the index, then
// reconciles the index with what is on disk.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("sessions directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(cfg.Dir, "index.db")
	}
	index, err := OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:        cfg.Dir,
		maxEntries: cfg.MaxEntries,
		index:      index,
		writeLocks: make(map[string]*sync.Mutex),
	}

	if err := s.SyncIndex(); err != nil {
		index.Close()
		return nil, err
	}

	log.Info().Str("dir", cfg.Dir).Msg("Session store initialized")
	return s, nil
}

// Close releases the index.
func (s *Store) Close() error {
	return s.index.Close()
}

// Dir returns the sessions directory.
func (s *Store) Dir() string {
	return s.dir
}

// Begin starts a new session under the given key and writes its header
// line. The key is an operator-facing label; the returned session ID is
// the canonical handle.
func (s *Store) Begin(key string) (Session, error) {
	if err := validateKey(key); err != nil {
		return Session{}, err
	}

	id, err := ident.SessionID()
	if err != nil {
		return Session{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	sess := Session{
		ID:        id,
		Key:       key,
		State:     StateActive,
		StartedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal session header: %w", err)
	}

	path := s.activePath(id)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return Session{}, fmt.Errorf("failed to write session header: %w", err)
	}
	if err := file.Sync(); err != nil {
		return Session{}, fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := s.index.Upsert(SessionMeta{
		ID:        sess.ID,
		Key:       sess.Key,
		State:     sess.State,
		StartedAt: sess.StartedAt,
	}); err != nil {
		return Session{}, err
	}

	log.Info().Str("session_id", id).Str("key", key).Msg("Session started")
	return sess, nil
}

// Append adds an entry to an active session and returns it with its
// generated entry ID filled in.
func (s *Store) Append(sessionID string, kind Kind, payload json.RawMessage) (Entry, error) {
	switch kind {
	case KindCommand, KindNote, KindEvent:
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	lock := s.writeLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.stateOf(sessionID)
	if err != nil {
		return Entry{}, err
	}
	if state == StateArchived {
		return Entry{}, ErrSessionArchived
	}

	if s.maxEntries > 0 {
		meta, err := s.index.Get(sessionID)
		if err == nil && meta.EntryCount >= s.maxEntries {
			return Entry{}, ErrSessionFull
		}
	}

	entryID, err := ident.EntryID()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to generate entry id: %w", err)
	}

	entry := Entry{
		ID:        entryID,
		SessionID: sessionID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal entry: %w", err)
	}

	file, err := os.OpenFile(s.activePath(sessionID), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return Entry{}, fmt.Errorf("failed to write entry: %w", err)
	}
	if err := file.Sync(); err != nil {
		return Entry{}, fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := s.index.RecordAppend(sessionID, entry.Timestamp); err != nil {
		return Entry{}, err
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("entry_id", entryID).
		Str("kind", string(kind)).
		Msg("Entry appended")

	return entry, nil
}

// Read loads a session header and all of its entries, whether the
// session is active or archived.
func (s *Store) Read(sessionID string) (Session, []Entry, error) {
	path := s.activePath(sessionID)
	state := StateActive
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = s.archivedPath(sessionID)
		state = StateArchived
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Session{}, nil, ErrSessionNotFound
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return Session{}, nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Session{}, nil, fmt.Errorf("failed to read session header: %w", err)
		}
		return Session{}, nil, fmt.Errorf("session file %s is empty", sessionID)
	}

	var sess Session
	if err := json.Unmarshal(scanner.Bytes(), &sess); err != nil {
		return Session{}, nil, fmt.Errorf("failed to parse session header: %w", err)
	}
	sess.State = state

	var entries []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Skip torn or corrupt lines rather than losing the
			// whole session.
			log.Warn().Str("session_id", sessionID).Msg("Skipping corrupt entry line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return Session{}, nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return sess, entries, nil
}

// List returns session metadata from the index, newest first.
func (s *Store) List() ([]SessionMeta, error) {
	return s.index.List("")
}

// ListByState returns session metadata filtered by state.
func (s *Store) ListByState(state State) ([]SessionMeta, error) {
	return s.index.List(state)
}

// Archive moves a session out of the active set. Archived sessions are
// readable but reject appends.
func (s *Store) Archive(sessionID string) error {
	lock := s.writeLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.stateOf(sessionID)
	if err != nil {
		return err
	}
	if state == StateArchived {
		return nil
	}

	if err := os.Rename(s.activePath(sessionID), s.archivedPath(sessionID)); err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	if err := s.index.SetState(sessionID, StateArchived); err != nil {
		return err
	}

	log.Info().Str("session_id", sessionID).Msg("Session archived")
	return nil
}

// Delete removes a session file and its index row.
func (s *Store) Delete(sessionID string) error {
	lock := s.writeLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	removed := false
	for _, path := range []string{s.activePath(sessionID), s.archivedPath(sessionID)} {
		if err := os.Remove(path); err == nil {
			removed = true
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	if !removed {
		return ErrSessionNotFound
	}

	if err := s.index.Remove(sessionID); err != nil {
		return err
	}

	s.locksMu.Lock()
	delete(s.writeLocks, sessionID)
	s.locksMu.Unlock()

	log.Info().Str("session_id", sessionID).Msg("Session deleted")
	return nil
}

// SyncIndex rebuilds the index from the session files on disk. Used at
// startup and when the directory watcher sees external changes.
func (s *Store) SyncIndex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read sessions directory: %w", err)
	}

	seen := make(map[string]struct{})
	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if !strings.HasSuffix(name, activeSuffix) {
			continue
		}

		id := strings.TrimSuffix(name, activeSuffix)
		state := StateActive
		if strings.HasSuffix(name, archivedSuffix) {
			id = strings.TrimSuffix(name, archivedSuffix)
			state = StateArchived
		}

		sess, sessionEntries, err := s.Read(id)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable session file")
			continue
		}

		meta := SessionMeta{
			ID:         sess.ID,
			Key:        sess.Key,
			State:      state,
			StartedAt:  sess.StartedAt,
			EntryCount: len(sessionEntries),
		}
		if n := len(sessionEntries); n > 0 {
			meta.LastEntryAt = sessionEntries[n-1].Timestamp
		}
		if err := s.index.Upsert(meta); err != nil {
			return err
		}
		seen[id] = struct{}{}
	}

	// Drop index rows whose files disappeared.
	known, err := s.index.List("")
	if err != nil {
		return err
	}
	for _, meta := range known {
		if _, ok := seen[meta.ID]; !ok {
			if err := s.index.Remove(meta.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Store) activePath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+activeSuffix)
}

func (s *Store) archivedPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+archivedSuffix)
}

func (s *Store) stateOf(sessionID string) (State, error) {
	if _, err := os.Stat(s.activePath(sessionID)); err == nil {
		return StateActive, nil
	}
	if _, err := os.Stat(s.archivedPath(sessionID)); err == nil {
		return StateArchived, nil
	}
	return "", ErrSessionNotFound
}

func (s *Store) writeLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, ok := s.writeLocks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.writeLocks[sessionID] = lock
	return lock
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidSessionKey)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: key cannot contain '..'", ErrInvalidSessionKey)
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("%w: key cannot contain path separators", ErrInvalidSessionKey)
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("%w: key cannot contain null bytes", ErrInvalidSessionKey)
	}
	return nil
}
