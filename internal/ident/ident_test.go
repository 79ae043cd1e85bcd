package ident

import (
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-z_]+$`)

func TestSessionID(t *testing.T) {
	t.Run("matches permitted charset", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			id, err := SessionID()
			require.NoError(t, err)
			assert.Regexp(t, tokenPattern, id)
		}
	})

	t.Run("non-empty and bounded length", func(t *testing.T) {
		id, err := SessionID()
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Less(t, len(id), 64)
	})

	t.Run("no collisions over 100k calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 100_000)
		for i := 0; i < 100_000; i++ {
			id, err := SessionID()
			require.NoError(t, err)
			seen[id] = struct{}{}
		}
		assert.Len(t, seen, 100_000)
	})
}

func TestEntryID(t *testing.T) {
	t.Run("distinct within the same millisecond", func(t *testing.T) {
		// A tight loop produces many IDs per millisecond; every one
		// must differ even when the timestamp prefix is identical.
		seen := make(map[string]struct{}, 100_000)
		for i := 0; i < 100_000; i++ {
			id, err := EntryID()
			require.NoError(t, err)
			seen[id] = struct{}{}
		}
		assert.Len(t, seen, 100_000)
	})

	t.Run("safe as filename component", func(t *testing.T) {
		for i := 0; i < 100_000; i++ {
			id, err := EntryID()
			require.NoError(t, err)
			assert.NotContains(t, id, "/")
			assert.NotContains(t, id, "\\")
			assert.NotContains(t, id, " ")
		}
	})

	t.Run("roughly sortable by creation order", func(t *testing.T) {
		first, err := EntryID()
		require.NoError(t, err)
		last := first
		for i := 0; i < 10_000; i++ {
			last, err = EntryID()
			require.NoError(t, err)
		}
		firstTS, _, ok := strings.Cut(first, "_")
		require.True(t, ok)
		lastTS, _, ok := strings.Cut(last, "_")
		require.True(t, ok)
		assert.LessOrEqual(t, firstTS, lastTS)
	})
}

func TestUUID(t *testing.T) {
	t.Run("charset and length", func(t *testing.T) {
		id, err := UUID()
		require.NoError(t, err)
		assert.Regexp(t, tokenPattern, id)
		assert.Len(t, id, 32)
	})

	t.Run("unique", func(t *testing.T) {
		seen := make(map[string]struct{}, 10_000)
		for i := 0; i < 10_000; i++ {
			id, err := UUID()
			require.NoError(t, err)
			seen[id] = struct{}{}
		}
		assert.Len(t, seen, 10_000)
	})
}

func TestConcurrentGeneration(t *testing.T) {
	const (
		workers = 16
		perWork = 2000
	)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWork)
		wg   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWork)
			for i := 0; i < perWork; i++ {
				id, err := EntryID()
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, id)
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWork)
}
