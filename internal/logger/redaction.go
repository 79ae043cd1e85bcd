package logger

import (
	"io"
	"regexp"
)

// Redactor scrubs secrets from log output. Recorded shell sessions
// routinely capture environment dumps and command lines, so the
// default patterns lean towards credentials that show up in those.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with the default pattern set.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Provider API keys
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`),
			regexp.MustCompile(`gho_[a-zA-Z0-9]{36}`),

			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),

			// AWS access keys
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

			// KEY=value style env assignments
			regexp.MustCompile(`(?i)(api_?key|access_?token|auth_?token)=[^\s"']+`),

			// password/secret assignments in command lines and JSON
			regexp.MustCompile(`(?i)password["\s:=]+[^\s"]+`),
			regexp.MustCompile(`(?i)secret["\s:=]+[^\s"]+`),

			// PEM private key blocks
			regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
		},
	}
}

// AddPattern compiles and adds a custom redaction pattern.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact replaces every pattern match in s with a placeholder.
func (r *Redactor) Redact(s string) string {
	result := s
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (n int, err error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	// Report the original length so callers upstream do not see a
	// short write when redaction shrinks the payload.
	return len(p), nil
}
