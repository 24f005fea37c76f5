// Package gitcmd executes git subcommands against a repository working tree.
//
// It treats git as a black box: the exit code and captured text are the only
// channel back. Classification of that text lives in the classify package.
package gitcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEnvironment indicates the git executable is missing or unusable.
// A failed Probe aborts a batch job before any repository is touched.
var ErrEnvironment = errors.New("git executable unavailable")

// Result captures the raw outcome of one git invocation.
type Result struct {
	// Args are the git arguments that were executed
	Args []string

	// ExitCode is the process exit code (0 on success, -1 if it never ran)
	ExitCode int

	// Stdout is captured standard output, possibly truncated
	Stdout string

	// Stderr is captured standard error, possibly truncated
	Stderr string

	// Duration is the wall-clock time spent waiting for the process
	Duration time.Duration

	// TimedOut is true when the invocation hit its deadline and was killed
	TimedOut bool

	// Canceled is true when the surrounding job was cancelled mid-flight
	Canceled bool

	// StartErr is set when the process could not be launched at all
	// (e.g. git binary missing), as opposed to a nonzero exit
	StartErr error
}

// Ok reports whether the invocation ran and exited zero.
func (r Result) Ok() bool {
	return r.StartErr == nil && !r.TimedOut && !r.Canceled && r.ExitCode == 0
}

// CombinedOutput returns stderr followed by stdout, trimmed.
// Diagnostic drill-down keeps both streams; this is the short form.
func (r Result) CombinedOutput() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stderr) + "\n" + strings.TrimSpace(r.Stdout))
}

// Runner executes git commands. The real implementation shells out;
// tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) Result
}

// Output runs a git command and returns trimmed stdout, folding a failure
// into an error that carries stderr. Convenience for metadata queries where
// the caller only needs the text or a yes/no.
func Output(ctx context.Context, r Runner, dir string, args ...string) (string, error) {
	res := r.Run(ctx, dir, args...)
	if res.StartErr != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), res.StartErr)
	}
	if !res.Ok() {
		return "", fmt.Errorf("git %s failed: %s", strings.Join(args, " "), res.CombinedOutput())
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Probe verifies the git binary is runnable. Called once per batch job
// before any repository work is dispatched.
func Probe(ctx context.Context, r Runner) error {
	res := r.Run(ctx, "", "version")
	if res.StartErr != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, res.StartErr)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: git version exited %d: %s", ErrEnvironment, res.ExitCode, res.CombinedOutput())
	}
	return nil
}
