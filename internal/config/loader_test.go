package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := NewLoader(filepath.Join(t.TempDir(), "nope.json")).Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logtrail.json")
		content := `{
			"data_dir": "/tmp/logtrail-test",
			"logging": {"level": "debug", "pretty": false},
			"sessions": {"idle_timeout": "10m", "max_entries": 50},
			"exec": {"max_output_bytes": 4096}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)

		assert.Equal(t, "/tmp/logtrail-test", cfg.DataDir)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.False(t, cfg.Logging.Pretty)
		assert.Equal(t, 10*time.Minute, cfg.Sessions.IdleTimeout)
		assert.Equal(t, 50, cfg.Sessions.MaxEntries)
		assert.Equal(t, 4096, cfg.Exec.MaxOutputBytes)

		// Untouched sections keep their defaults.
		assert.Equal(t, DefaultConfig().Sessions.Retention, cfg.Sessions.Retention)
	})

	t.Run("malformed file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logtrail.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := NewLoader(path).Load()
		assert.Error(t, err)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logtrail.json")
		content := `{"logging": {"level": "shouty"}}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		_, err := NewLoader(path).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level")
	})
}
