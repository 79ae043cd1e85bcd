package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Validate checks the configuration for values that would fail later
// at component construction time.
func (c *Config) Validate() error {
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("invalid logging.level %q: %w", c.Logging.Level, err)
		}
	}
	if c.Logging.MaxSizeMB < 0 {
		return fmt.Errorf("logging.max_size_mb must be >= 0")
	}
	if c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging.max_age_days must be >= 0")
	}

	if c.Sessions.IdleTimeout < 0 {
		return fmt.Errorf("sessions.idle_timeout must be >= 0")
	}
	if c.Sessions.Retention < 0 {
		return fmt.Errorf("sessions.retention must be >= 0")
	}
	if c.Sessions.MaxEntries < 0 {
		return fmt.Errorf("sessions.max_entries must be >= 0")
	}
	if c.Sessions.MaintenanceCron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Sessions.MaintenanceCron); err != nil {
			return fmt.Errorf("invalid sessions.maintenance_cron %q: %w", c.Sessions.MaintenanceCron, err)
		}
	}

	if c.Exec.Timeout < 0 {
		return fmt.Errorf("exec.timeout must be >= 0")
	}
	if c.Exec.MaxOutputBytes < 0 {
		return fmt.Errorf("exec.max_output_bytes must be >= 0")
	}

	return nil
}
