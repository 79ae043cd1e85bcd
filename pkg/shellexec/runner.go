package shellexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dimasfr/logtrail/pkg/sessionlog"
)

// RunnerConfig holds runner defaults and policy.
type RunnerConfig struct {
	// Timeout is the default per-command timeout; 0 means no limit.
	Timeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr individually;
	// 0 disables the cap.
	MaxOutputBytes int

	// AllowedDirs restricts working directories to these trees;
	// empty allows any.
	AllowedDirs []string

	// Env is extra environment appended to every command.
	Env map[string]string
}

// Runner executes shell commands under the configured policy.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes one command. The returned error covers only policy and
// input problems; once the command is allowed to start, failures are
// reported inside the Result.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if req.Command == "" {
		return Result{}, ErrEmptyCommand
	}
	if err := r.checkWorkingDir(req.WorkingDir); err != nil {
		return Result{}, err
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.cfg.Timeout
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, req.Command, req.Args...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	cmd.Env = r.buildEnv(req.Env)

	stdout := &cappedBuffer{max: r.cfg.MaxOutputBytes}
	stderr := &cappedBuffer{max: r.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  duration,
		Truncated: stdout.truncated || stderr.truncated,
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		result.ExitCode = -1
		result.TimedOut = true
	case err == nil:
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// The command never started.
			result.ExitCode = -1
			result.Error = err.Error()
		}
	}

	log.Debug().
		Str("command", req.Command).
		Int("exit_code", result.ExitCode).
		Dur("duration", duration).
		Bool("timed_out", result.TimedOut).
		Msg("Command executed")

	return result, nil
}

// RunRecorded executes the request and appends the request/result pair
// as a command entry in the given session.
func (r *Runner) RunRecorded(ctx context.Context, store *sessionlog.Store, sessionID string, req Request) (Result, sessionlog.Entry, error) {
	result, err := r.Run(ctx, req)
	if err != nil {
		return Result{}, sessionlog.Entry{}, err
	}

	payload, err := json.Marshal(Record{Request: req, Result: result})
	if err != nil {
		return result, sessionlog.Entry{}, fmt.Errorf("failed to marshal command record: %w", err)
	}

	entry, err := store.Append(sessionID, sessionlog.KindCommand, payload)
	if err != nil {
		return result, sessionlog.Entry{}, err
	}

	return result, entry, nil
}

func (r *Runner) checkWorkingDir(dir string) error {
	if dir == "" || len(r.cfg.AllowedDirs) == 0 {
		return nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkingDirDenied, err)
	}

	for _, allowed := range r.cfg.AllowedDirs {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		if abs == allowedAbs || strings.HasPrefix(abs, allowedAbs+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrWorkingDirDenied, dir)
}

func (r *Runner) buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range r.cfg.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// cappedBuffer accumulates up to max bytes and silently drops the
// rest, flagging the truncation. Writes never fail so the process is
// not killed by a full capture buffer.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.max <= 0 {
		return b.buf.Write(p)
	}
	remain := b.max - b.buf.Len()
	if remain <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remain {
		b.buf.Write(p[:remain])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
