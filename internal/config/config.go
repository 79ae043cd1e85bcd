// Package config defines the logtrail configuration and its loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root logtrail configuration.
type Config struct {
	// DataDir is the root for sessions, the index database, and the
	// process log. Defaults to ~/.logtrail.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`
	Exec     ExecConfig     `json:"exec" mapstructure:"exec"`
	Fixtures FixturesConfig `json:"fixtures" mapstructure:"fixtures"`
}

// LoggingConfig holds process-logger settings.
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	Console    bool   `json:"console" mapstructure:"console"`
	Pretty     bool   `json:"pretty" mapstructure:"pretty"`
	Redaction  bool   `json:"redaction" mapstructure:"redaction"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// SessionsConfig holds session store and maintenance settings.
type SessionsConfig struct {
	// Dir overrides the sessions directory; empty means <DataDir>/sessions.
	Dir string `json:"dir" mapstructure:"dir"`

	// IdleTimeout is how long a session may go without appends before
	// maintenance archives it.
	IdleTimeout time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`

	// Retention is how long archived sessions are kept before purge.
	Retention time.Duration `json:"retention" mapstructure:"retention"`

	// MaxEntries caps entries per session; 0 disables the cap.
	MaxEntries int `json:"max_entries" mapstructure:"max_entries"`

	// MaintenanceCron schedules archive/purge runs (standard 5-field
	// cron expression).
	MaintenanceCron string `json:"maintenance_cron" mapstructure:"maintenance_cron"`

	// Watch enables the directory watcher that keeps the index in
	// sync with external changes to session files.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// ExecConfig holds shell-execution settings.
type ExecConfig struct {
	// Timeout is the default per-command timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxOutputBytes caps captured stdout/stderr; output beyond the
	// cap is dropped and the result flagged truncated.
	MaxOutputBytes int `json:"max_output_bytes" mapstructure:"max_output_bytes"`

	// AllowedDirs restricts working directories; empty allows any.
	AllowedDirs []string `json:"allowed_dirs" mapstructure:"allowed_dirs"`

	// Env is extra environment appended to every recorded command.
	Env map[string]string `json:"env" mapstructure:"env"`
}

// FixturesConfig holds fixture-export settings.
type FixturesConfig struct {
	// Dir is where exported fixtures land; empty means a logtrail
	// subdirectory of the OS temp dir.
	Dir string `json:"dir" mapstructure:"dir"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			Pretty:     true,
			Redaction:  true,
			MaxSizeMB:  50,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Sessions: SessionsConfig{
			IdleTimeout:     30 * time.Minute,
			Retention:       7 * 24 * time.Hour,
			MaxEntries:      500,
			MaintenanceCron: "0 * * * *",
			Watch:           true,
		},
		Exec: ExecConfig{
			Timeout:        2 * time.Minute,
			MaxOutputBytes: 1 << 20,
		},
	}
}

// ResolveDataDir returns the effective data directory, defaulting to
// ~/.logtrail.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".logtrail"), nil
}

// SessionsDir returns the effective sessions directory.
func (c *Config) SessionsDir() (string, error) {
	if c.Sessions.Dir != "" {
		return c.Sessions.Dir, nil
	}
	dataDir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions"), nil
}

// FixturesDir returns the effective fixtures directory.
func (c *Config) FixturesDir() string {
	if c.Fixtures.Dir != "" {
		return c.Fixtures.Dir
	}
	return filepath.Join(os.TempDir(), "logtrail-fixtures")
}
