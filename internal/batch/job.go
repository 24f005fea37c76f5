// Package batch executes one git operation across many repositories with
// bounded parallelism, streaming progress events while it runs.
package batch

import (
	"time"

	"github.com/jiehua/gitbatch/internal/classify"
	"github.com/jiehua/gitbatch/internal/scan"
)

// Operation is a batch-executable git subcommand.
type Operation string

const (
	OpPull Operation = "pull"
	OpPush Operation = "push"
)

// Valid reports whether the operation is batch-executable.
func (op Operation) Valid() bool {
	return op == OpPull || op == OpPush
}

// Args builds the git argument vector for the operation. Remote and branch
// are optional; a branch without a remote is meaningless to git, so it is
// only appended after one.
func (op Operation) Args(remote, branch string) []string {
	args := []string{string(op)}
	if remote != "" {
		args = append(args, remote)
		if branch != "" {
			args = append(args, branch)
		}
	}
	return args
}

// State is the lifecycle state of a batch job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateAborted   State = "aborted"
)

// Result is the terminal record for one repository in one job.
// Exactly one Result exists per repository per job; it is immutable
// once the worker writes it.
type Result struct {
	// Repo is the repository this result belongs to
	Repo scan.Repository

	// Operation is the git subcommand that was attempted
	Operation Operation

	// Outcome is the classified terminal outcome
	Outcome classify.Outcome

	// Suggestion is the localized-hint message key for the outcome
	Suggestion string

	// ExitCode is the raw process exit code (-1 if the process never exited)
	ExitCode int

	// Output is the captured raw output, possibly truncated
	Output string

	// Detail is an optional success annotation, e.g. the commit delta
	// observed by a pull
	Detail string

	// Duration is the wall-clock time spent on this repository
	Duration time.Duration
}

// Summary aggregates a finished job's results by outcome.
type Summary struct {
	Operation Operation
	Total     int
	Counts    map[classify.Outcome]int
	Duration  time.Duration
}

// Succeeded returns the number of successful repositories.
func (s Summary) Succeeded() int {
	return s.Counts[classify.Success]
}

// Failed returns the number of repositories with an error outcome.
func (s Summary) Failed() int {
	n := 0
	for outcome, count := range s.Counts {
		if outcome.IsError() {
			n += count
		}
	}
	return n
}

// Cancelled returns the number of repositories cancelled before completion.
func (s Summary) Cancelled() int {
	return s.Counts[classify.Cancelled]
}

func summarize(op Operation, results []Result, duration time.Duration) *Summary {
	s := &Summary{
		Operation: op,
		Total:     len(results),
		Counts:    make(map[classify.Outcome]int),
		Duration:  duration,
	}
	for _, r := range results {
		s.Counts[r.Outcome]++
	}
	return s
}
