package sessionlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreBegin(t *testing.T) {
	t.Run("creates a session with a generated id", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("deploy-check")
		require.NoError(t, err)

		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, "deploy-check", sess.Key)
		assert.Equal(t, StateActive, sess.State)
		assert.False(t, sess.StartedAt.IsZero())

		_, err = os.Stat(filepath.Join(store.Dir(), sess.ID+".jsonl"))
		assert.NoError(t, err)
	})

	t.Run("distinct ids per session", func(t *testing.T) {
		store := newTestStore(t)

		a, err := store.Begin("same-key")
		require.NoError(t, err)
		b, err := store.Begin("same-key")
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects unsafe keys", func(t *testing.T) {
		store := newTestStore(t)

		for _, key := range []string{"", "../escape", "a/b", `a\b`, "nul\x00byte"} {
			_, err := store.Begin(key)
			assert.ErrorIs(t, err, ErrInvalidSessionKey, "key %q", key)
		}
	})
}

func TestStoreAppendAndRead(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("roundtrip")
		require.NoError(t, err)

		payload := json.RawMessage(`{"command":"ls","exit_code":0}`)
		entry, err := store.Append(sess.ID, KindCommand, payload)
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, sess.ID, entry.SessionID)

		_, err = store.Append(sess.ID, KindNote, json.RawMessage(`"looked fine"`))
		require.NoError(t, err)

		got, entries, err := store.Read(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, "roundtrip", got.Key)
		require.Len(t, entries, 2)
		assert.Equal(t, KindCommand, entries[0].Kind)
		assert.JSONEq(t, string(payload), string(entries[0].Payload))
		assert.Equal(t, KindNote, entries[1].Kind)
	})

	t.Run("unknown session", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.Append("missing", KindNote, nil)
		assert.ErrorIs(t, err, ErrSessionNotFound)

		_, _, err = store.Read("missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("kinds")
		require.NoError(t, err)

		_, err = store.Append(sess.ID, Kind("selfie"), nil)
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("entry cap", func(t *testing.T) {
		store, err := NewStore(Config{Dir: t.TempDir(), MaxEntries: 2})
		require.NoError(t, err)
		defer store.Close()

		sess, err := store.Begin("capped")
		require.NoError(t, err)

		_, err = store.Append(sess.ID, KindNote, nil)
		require.NoError(t, err)
		_, err = store.Append(sess.ID, KindNote, nil)
		require.NoError(t, err)

		_, err = store.Append(sess.ID, KindNote, nil)
		assert.ErrorIs(t, err, ErrSessionFull)
	})

	t.Run("skips corrupt entry lines", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("corrupt")
		require.NoError(t, err)
		_, err = store.Append(sess.ID, KindNote, nil)
		require.NoError(t, err)

		path := filepath.Join(store.Dir(), sess.ID+".jsonl")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		require.NoError(t, err)
		_, err = f.WriteString("{torn line\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, entries, err := store.Read(sess.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestStoreArchive(t *testing.T) {
	t.Run("archived sessions reject appends but stay readable", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("to-archive")
		require.NoError(t, err)
		_, err = store.Append(sess.ID, KindNote, nil)
		require.NoError(t, err)

		require.NoError(t, store.Archive(sess.ID))

		_, err = store.Append(sess.ID, KindNote, nil)
		assert.ErrorIs(t, err, ErrSessionArchived)

		got, entries, err := store.Read(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, StateArchived, got.State)
		assert.Len(t, entries, 1)
	})

	t.Run("archiving twice is a no-op", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("twice")
		require.NoError(t, err)

		require.NoError(t, store.Archive(sess.ID))
		require.NoError(t, store.Archive(sess.ID))
	})

	t.Run("archiving unknown session fails", func(t *testing.T) {
		store := newTestStore(t)
		assert.ErrorIs(t, store.Archive("missing"), ErrSessionNotFound)
	})
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Begin("doomed")
	require.NoError(t, err)

	require.NoError(t, store.Delete(sess.ID))

	_, _, err = store.Read(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, store.Delete(sess.ID), ErrSessionNotFound)
}

func TestStoreList(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Begin("first")
	require.NoError(t, err)
	b, err := store.Begin("second")
	require.NoError(t, err)
	require.NoError(t, store.Archive(b.ID))

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := store.ListByState(StateActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	archived, err := store.ListByState(StateArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, b.ID, archived[0].ID)
}

func TestStoreSyncIndex(t *testing.T) {
	t.Run("reopening a directory rebuilds the index", func(t *testing.T) {
		dir := t.TempDir()

		store, err := NewStore(Config{Dir: dir})
		require.NoError(t, err)

		sess, err := store.Begin("persistent")
		require.NoError(t, err)
		_, err = store.Append(sess.ID, KindNote, nil)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		reopened, err := NewStore(Config{Dir: dir})
		require.NoError(t, err)
		defer reopened.Close()

		metas, err := reopened.List()
		require.NoError(t, err)
		require.Len(t, metas, 1)
		assert.Equal(t, sess.ID, metas[0].ID)
		assert.Equal(t, "persistent", metas[0].Key)
		assert.Equal(t, 1, metas[0].EntryCount)
	})

	t.Run("drops rows for files removed externally", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("vanishing")
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(store.Dir(), sess.ID+".jsonl")))
		require.NoError(t, store.SyncIndex())

		metas, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, metas)
	})
}
