package sessionlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintainerRunOnce(t *testing.T) {
	t.Run("archives idle sessions", func(t *testing.T) {
		store := newTestStore(t)

		idle, err := store.Begin("idle")
		require.NoError(t, err)

		m := NewMaintainer(store, MaintainerConfig{
			IdleTimeout: time.Nanosecond,
			Retention:   24 * time.Hour,
		})

		time.Sleep(time.Millisecond)
		require.NoError(t, m.RunOnce())

		got, _, err := store.Read(idle.ID)
		require.NoError(t, err)
		assert.Equal(t, StateArchived, got.State)
	})

	t.Run("leaves recently active sessions alone", func(t *testing.T) {
		store := newTestStore(t)

		busy, err := store.Begin("busy")
		require.NoError(t, err)
		_, err = store.Append(busy.ID, KindNote, nil)
		require.NoError(t, err)

		m := NewMaintainer(store, MaintainerConfig{
			IdleTimeout: time.Hour,
			Retention:   24 * time.Hour,
		})
		require.NoError(t, m.RunOnce())

		got, _, err := store.Read(busy.ID)
		require.NoError(t, err)
		assert.Equal(t, StateActive, got.State)
	})

	t.Run("purges expired archives", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("expired")
		require.NoError(t, err)
		require.NoError(t, store.Archive(sess.ID))

		m := NewMaintainer(store, MaintainerConfig{
			IdleTimeout: time.Hour,
			Retention:   time.Nanosecond,
		})

		time.Sleep(time.Millisecond)
		require.NoError(t, m.RunOnce())

		_, _, err = store.Read(sess.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("keeps archives inside retention", func(t *testing.T) {
		store := newTestStore(t)

		sess, err := store.Begin("fresh-archive")
		require.NoError(t, err)
		require.NoError(t, store.Archive(sess.ID))

		m := NewMaintainer(store, MaintainerConfig{
			IdleTimeout: time.Hour,
			Retention:   24 * time.Hour,
		})
		require.NoError(t, m.RunOnce())

		_, _, err = store.Read(sess.ID)
		assert.NoError(t, err)
	})
}

func TestMaintainerLifecycle(t *testing.T) {
	store := newTestStore(t)

	m := NewMaintainer(store, MaintainerConfig{
		IdleTimeout: time.Hour,
		Retention:   24 * time.Hour,
		Schedule:    "* * * * *",
	})

	require.NoError(t, m.Start())
	assert.Error(t, m.Start())

	require.NoError(t, m.Stop())
	assert.Error(t, m.Stop())
}

func TestMaintainerDefaults(t *testing.T) {
	store := newTestStore(t)

	m := NewMaintainer(store, MaintainerConfig{})
	assert.Equal(t, DefaultIdleTimeout, m.cfg.IdleTimeout)
	assert.Equal(t, DefaultRetention, m.cfg.Retention)
	assert.NotEmpty(t, m.cfg.Schedule)
}

func TestMaintainerRejectsBadSchedule(t *testing.T) {
	store := newTestStore(t)

	m := NewMaintainer(store, MaintainerConfig{Schedule: "not a schedule"})
	assert.Error(t, m.Start())
}
