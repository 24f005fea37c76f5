package gitcmd

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// DefaultMaxOutput caps captured stdout/stderr per invocation.
// Raw output is kept for diagnostic drill-down, not full log retention.
const DefaultMaxOutput = 64 * 1024

const truncationMarker = "\n... [output truncated]"

// OSRunner executes real git commands via exec.CommandContext.
type OSRunner struct {
	// GitPath overrides the git binary name (default "git")
	GitPath string

	// MaxOutput caps captured bytes per stream (default DefaultMaxOutput)
	MaxOutput int
}

func (r OSRunner) git() string {
	if r.GitPath != "" {
		return r.GitPath
	}
	return "git"
}

func (r OSRunner) maxOutput() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return DefaultMaxOutput
}

// Run executes git with the working directory set to dir.
// The caller bounds execution with the context; a deadline kill is
// reported as TimedOut, a cancellation as Canceled.
func (r OSRunner) Run(ctx context.Context, dir string, args ...string) Result {
	cmd := exec.CommandContext(ctx, r.git(), args...)
	cmd.Dir = dir

	// Never let git block a worker on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	stdout := newCapWriter(r.maxOutput())
	stderr := newCapWriter(r.maxOutput())
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Args:     args,
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.StartErr = err
		}
		switch ctx.Err() {
		case context.DeadlineExceeded:
			res.TimedOut = true
			res.StartErr = nil
		case context.Canceled:
			res.Canceled = true
			res.StartErr = nil
		}
	}

	return res
}

// capWriter captures up to max bytes and discards the rest.
type capWriter struct {
	buf       []byte
	max       int
	truncated bool
}

func newCapWriter(max int) *capWriter {
	return &capWriter{max: max}
}

func (w *capWriter) Write(p []byte) (int, error) {
	remaining := w.max - len(w.buf)
	if remaining <= 0 {
		w.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf = append(w.buf, p[:remaining]...)
		w.truncated = true
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *capWriter) String() string {
	if w.truncated {
		return string(w.buf) + truncationMarker
	}
	return string(w.buf)
}
