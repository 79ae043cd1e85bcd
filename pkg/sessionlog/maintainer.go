package sessionlog

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultRetention   = 7 * 24 * time.Hour
)

// MaintainerConfig holds maintenance policy.
type MaintainerConfig struct {
	// IdleTimeout is how long an active session may go without
	// appends before it is archived.
	IdleTimeout time.Duration

	// Retention is how long archived sessions are kept before purge.
	Retention time.Duration

	// Schedule is a standard 5-field cron expression for periodic
	// runs.
	Schedule string
}

// Maintainer archives idle sessions and purges expired archives on a
// cron schedule.
type Maintainer struct {
	store   *Store
	cfg     MaintainerConfig
	cron    *cron.Cron
	running bool
}

// NewMaintainer creates a maintainer; zero durations get defaults.
func NewMaintainer(store *Store, cfg MaintainerConfig) *Maintainer {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Retention == 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 * * * *"
	}

	return &Maintainer{
		store: store,
		cfg:   cfg,
	}
}

// Start runs one maintenance pass immediately, then schedules periodic
// passes.
func (m *Maintainer) Start() error {
	if m.running {
		return fmt.Errorf("maintainer is already running")
	}

	if err := m.RunOnce(); err != nil {
		log.Error().Err(err).Msg("Initial maintenance pass failed")
	}

	c := cron.New()
	if _, err := c.AddFunc(m.cfg.Schedule, func() {
		if err := m.RunOnce(); err != nil {
			log.Error().Err(err).Msg("Maintenance pass failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", m.cfg.Schedule, err)
	}
	c.Start()

	m.cron = c
	m.running = true

	log.Info().
		Str("schedule", m.cfg.Schedule).
		Dur("idle_timeout", m.cfg.IdleTimeout).
		Dur("retention", m.cfg.Retention).
		Msg("Session maintenance started")

	return nil
}

// Stop cancels the schedule and waits for an in-flight pass.
func (m *Maintainer) Stop() error {
	if !m.running {
		return fmt.Errorf("maintainer is not running")
	}

	<-m.cron.Stop().Done()
	m.running = false

	log.Info().Msg("Session maintenance stopped")
	return nil
}

// RunOnce executes a single archive-then-purge pass.
func (m *Maintainer) RunOnce() error {
	if err := m.archiveIdle(); err != nil {
		return err
	}
	return m.purgeExpired()
}

// archiveIdle archives active sessions whose last activity is older
// than IdleTimeout.
func (m *Maintainer) archiveIdle() error {
	sessions, err := m.store.ListByState(StateActive)
	if err != nil {
		return fmt.Errorf("failed to list active sessions: %w", err)
	}

	cutoff := time.Now().Add(-m.cfg.IdleTimeout)
	archived := 0

	for _, meta := range sessions {
		last := meta.LastEntryAt
		if last.IsZero() {
			last = meta.StartedAt
		}
		if last.After(cutoff) {
			continue
		}
		if err := m.store.Archive(meta.ID); err != nil {
			log.Error().Err(err).Str("session_id", meta.ID).Msg("Failed to archive session")
			continue
		}
		archived++
	}

	if archived > 0 {
		log.Info().Int("count", archived).Msg("Archived idle sessions")
	}
	return nil
}

// purgeExpired deletes archived sessions whose last activity is older
// than Retention.
func (m *Maintainer) purgeExpired() error {
	sessions, err := m.store.ListByState(StateArchived)
	if err != nil {
		return fmt.Errorf("failed to list archived sessions: %w", err)
	}

	cutoff := time.Now().Add(-m.cfg.Retention)
	purged := 0

	for _, meta := range sessions {
		last := meta.LastEntryAt
		if last.IsZero() {
			last = meta.StartedAt
		}
		if last.After(cutoff) {
			continue
		}
		if err := m.store.Delete(meta.ID); err != nil {
			log.Error().Err(err).Str("session_id", meta.ID).Msg("Failed to purge session")
			continue
		}
		purged++
	}

	if purged > 0 {
		log.Info().Int("count", purged).Msg("Purged expired sessions")
	}
	return nil
}
