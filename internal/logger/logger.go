// Package logger builds the process-wide zerolog logger: console and
// file sinks, size-based rotation, and secret redaction of everything
// that reaches a sink.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	File       string // log file path; empty disables the file sink
	Console    bool   // enable console output
	Pretty     bool   // human-readable console format
	Redaction  bool   // redact secrets before they reach any sink
	MaxSizeMB  int    // rotate the file sink past this size; 0 disables rotation
	MaxAgeDays int    // prune rotated files older than this
	Compress   bool   // gzip rotated files
}

// Logger wraps zerolog.Logger together with the sinks it owns.
type Logger struct {
	logger   zerolog.Logger
	sink     io.Closer
	redactor *Redactor
}

// New builds a logger from cfg and installs it as the global zerolog
// logger. Close must be called to release the file sink.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer

	if cfg.Console {
		var console io.Writer = os.Stderr
		if cfg.Pretty {
			console = zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			}
		}
		writers = append(writers, console)
	}

	var sink io.Closer
	if cfg.File != "" {
		rw, err := NewRotatingWriter(cfg.File, cfg.MaxSizeMB, cfg.MaxAgeDays, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open log sink: %w", err)
		}
		sink = rw
		writers = append(writers, rw)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stderr
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	var redactor *Redactor
	if cfg.Redaction {
		redactor = NewRedactor()
		writer = redactor.Wrap(writer)
	}

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return &Logger{
		logger:   logger,
		sink:     sink,
		redactor: redactor,
	}, nil
}

// Close closes the file sink, if any.
func (l *Logger) Close() error {
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Zerolog returns the underlying zerolog.Logger for injection into
// components that carry their own logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

// Redactor returns the active redactor, or nil when redaction is off.
func (l *Logger) Redactor() *Redactor {
	return l.redactor
}

// DefaultConfig returns the defaults used when no logging section is
// configured.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Console:    true,
		Pretty:     true,
		Redaction:  true,
		MaxSizeMB:  50,
		MaxAgeDays: 14,
		Compress:   true,
	}
}
