// Package shellexec runs shell commands and records their results as
// session entries. Execution failures that happen after the point of
// no return (non-zero exit, timeout, missing binary) are captured in
// the Result rather than returned as errors, so every attempt can be
// recorded.
package shellexec

import (
	"errors"
	"time"
)

var (
	// ErrEmptyCommand is returned for a request with no command.
	ErrEmptyCommand = errors.New("command cannot be empty")

	// ErrWorkingDirDenied is returned when the working directory is
	// outside the configured allowlist.
	ErrWorkingDirDenied = errors.New("working directory not allowed")
)

// Request describes one shell-command execution.
type Request struct {
	// Command is the binary or shell builtin to run.
	Command string `json:"command"`

	// Args are the command arguments.
	Args []string `json:"args,omitempty"`

	// Env is extra environment appended to the inherited one.
	Env map[string]string `json:"env,omitempty"`

	// WorkingDir is the working directory; empty inherits the
	// process cwd.
	WorkingDir string `json:"working_dir,omitempty"`

	// Stdin is fed to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Timeout overrides the runner default; 0 uses the default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Result captures what one execution produced.
type Result struct {
	// Stdout is the captured standard output, possibly truncated.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error, possibly truncated.
	Stderr string `json:"stderr"`

	// ExitCode is the process exit code; -1 when the process never
	// exited normally (timeout, start failure).
	ExitCode int `json:"exit_code"`

	// Duration is wall-clock execution time.
	Duration time.Duration `json:"duration"`

	// Truncated reports that output was dropped at the capture cap.
	Truncated bool `json:"truncated,omitempty"`

	// TimedOut reports that the command was killed at the deadline.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds a start-failure message (binary not found,
	// permission denied) when the command never ran.
	Error string `json:"error,omitempty"`
}

// Record is the payload stored in a session entry for one execution.
type Record struct {
	Request Request `json:"request"`
	Result  Result  `json:"result"`
}
