package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jiehua/gitbatch/internal/classify"
	"github.com/jiehua/gitbatch/internal/events"
	"github.com/jiehua/gitbatch/internal/gitcmd"
	"github.com/jiehua/gitbatch/internal/scan"
)

// DefaultConcurrency bounds parallel git invocations per job. Each worker
// holds a subprocess and usually a network connection, so the default stays
// well below the host's process and connection limits.
const DefaultConcurrency = 4

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 5 * time.Minute

// probeTimeout bounds the git binary availability check at job start.
const probeTimeout = 10 * time.Second

// Config describes one batch job.
type Config struct {
	// Operation is the git subcommand to run (pull or push)
	Operation Operation

	// Repos are the repositories to operate on. Duplicate paths are
	// collapsed so a repository is never operated on twice in one job.
	Repos []scan.Repository

	// Concurrency caps parallel invocations (default DefaultConcurrency)
	Concurrency int

	// Timeout bounds each repository's invocation (default DefaultTimeout)
	Timeout time.Duration

	// Remote and Branch are optional explicit git arguments
	Remote string
	Branch string
}

// Dependencies bundles external collaborators for injection.
type Dependencies struct {
	Bus    *events.Bus
	Runner gitcmd.Runner
	Table  *classify.Table
}

// Job coordinates one batch run. Create with New, drive with Run; a Job
// is single-use.
type Job struct {
	// ID uniquely identifies the run (ULID, sortable by creation time)
	ID string

	cfg    Config
	bus    *events.Bus
	runner gitcmd.Runner
	table  *classify.Table

	mu      sync.Mutex
	state   State
	results []Result
}

// New creates a job in the Pending state.
func New(cfg Config, deps Dependencies) (*Job, error) {
	if !cfg.Operation.Valid() {
		return nil, fmt.Errorf("unsupported operation: %q", cfg.Operation)
	}
	if deps.Runner == nil {
		deps.Runner = gitcmd.OSRunner{}
	}
	if deps.Table == nil {
		deps.Table = classify.DefaultTable()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Repos = dedupe(cfg.Repos)

	return &Job{
		ID:      ulid.Make().String(),
		cfg:     cfg,
		bus:     deps.Bus,
		runner:  deps.Runner,
		table:   deps.Table,
		state:   StatePending,
		results: make([]Result, len(cfg.Repos)),
	}, nil
}

// dedupe collapses repositories with the same path, keeping first position.
// Two workers must never operate on the same working tree concurrently.
func dedupe(repos []scan.Repository) []scan.Repository {
	seen := make(map[string]bool, len(repos))
	out := repos[:0:0]
	for _, r := range repos {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		out = append(out, r)
	}
	return out
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Results returns the per-repository results, indexed like cfg.Repos.
// Only meaningful after Run returns.
func (j *Job) Results() []Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Result, len(j.results))
	copy(out, j.results)
	return out
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Run executes the job to a terminal state. It always returns a complete
// result set (one terminal Result per repository) unless the environment
// probe fails, in which case no repository is touched and the error wraps
// gitcmd.ErrEnvironment.
//
// Cancelling ctx stops dispatch of new repositories immediately, kills
// in-flight git processes, and marks undispatched repositories Cancelled.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	pctx, cancelProbe := context.WithTimeout(ctx, probeTimeout)
	err := gitcmd.Probe(pctx, j.runner)
	cancelProbe()
	if err != nil {
		j.setState(StateAborted)
		j.emit(events.NewEvent(events.JobAborted, "").WithError(err))
		return nil, err
	}
	j.setState(StateRunning)

	j.emit(events.NewEvent(events.JobStarted, "").WithPayload(map[string]any{
		"job_id":      j.ID,
		"operation":   string(j.cfg.Operation),
		"total":       len(j.cfg.Repos),
		"concurrency": j.cfg.Concurrency,
	}))

	// Work-queue discipline: indices are delivered to workers exactly
	// once, and each worker writes only its own pre-allocated result
	// slot, so the result collection needs no locking.
	queue := make(chan int, len(j.cfg.Repos))
	for i := range j.cfg.Repos {
		queue <- i
	}
	close(queue)

	workers := j.cfg.Concurrency
	if workers > len(j.cfg.Repos) {
		workers = len(j.cfg.Repos)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				j.results[idx] = j.processRepo(ctx, j.cfg.Repos[idx])
			}
		}()
	}
	wg.Wait()

	summary := summarize(j.cfg.Operation, j.results, time.Since(start))
	if ctx.Err() != nil {
		j.setState(StateCancelled)
		j.emit(events.NewEvent(events.JobCancelled, "").WithPayload(summaryPayload(j.ID, summary)))
	} else {
		j.setState(StateCompleted)
		j.emit(events.NewEvent(events.JobFinished, "").WithPayload(summaryPayload(j.ID, summary)))
	}
	return summary, nil
}

// processRepo produces the single terminal Result for one repository and
// emits its events. Per-repository ordering (started before completed) holds
// because both emissions happen on this goroutine.
func (j *Job) processRepo(ctx context.Context, repo scan.Repository) Result {
	if ctx.Err() != nil {
		// Never dispatched: record a Cancelled slot rather than omitting
		// it, preserving one-result-per-repository.
		res := Result{
			Repo:       repo,
			Operation:  j.cfg.Operation,
			Outcome:    classify.Cancelled,
			Suggestion: classify.SuggestionKey(classify.Cancelled),
			ExitCode:   -1,
		}
		j.emitCompleted(res)
		return res
	}

	j.emit(events.NewEvent(events.RepoStarted, repo.Path).WithPayload(map[string]any{
		"name":      repo.Name,
		"operation": string(j.cfg.Operation),
	}))

	res := j.runOne(ctx, repo)
	j.emitCompleted(res)
	return res
}

func (j *Job) runOne(ctx context.Context, repo scan.Repository) Result {
	// HEAD before the operation, for the pull commit-delta annotation.
	var before string
	if j.cfg.Operation == OpPull {
		before, _ = gitcmd.Output(ctx, j.runner, repo.Path, "rev-parse", "--short", "HEAD")
	}

	tctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	raw := j.runner.Run(tctx, repo.Path, j.cfg.Operation.Args(j.cfg.Remote, j.cfg.Branch)...)
	cancel()

	cls := j.table.Classify(raw)
	res := Result{
		Repo:       repo,
		Operation:  j.cfg.Operation,
		Outcome:    cls.Outcome,
		Suggestion: cls.Suggestion,
		ExitCode:   raw.ExitCode,
		Output:     raw.CombinedOutput(),
		Duration:   raw.Duration,
	}

	if res.Outcome == classify.Success && j.cfg.Operation == OpPull && before != "" {
		res.Detail = j.pullDelta(ctx, repo, before)
	}
	return res
}

// pullDelta describes what a successful pull changed: "abc1234 -> def5678
// (3 new commits)", or empty when nothing moved.
func (j *Job) pullDelta(ctx context.Context, repo scan.Repository, before string) string {
	after, err := gitcmd.Output(ctx, j.runner, repo.Path, "rev-parse", "--short", "HEAD")
	if err != nil || after == before {
		return ""
	}
	delta := fmt.Sprintf("%s -> %s", before, after)
	if count, err := gitcmd.Output(ctx, j.runner, repo.Path, "rev-list", "--count",
		before+".."+after); err == nil && strings.TrimSpace(count) != "" {
		delta += fmt.Sprintf(" (%s new commits)", strings.TrimSpace(count))
	}
	return delta
}

func (j *Job) emitCompleted(res Result) {
	j.emit(events.NewEvent(events.RepoCompleted, res.Repo.Path).WithPayload(map[string]any{
		"name":        res.Repo.Name,
		"operation":   string(res.Operation),
		"outcome":     string(res.Outcome),
		"suggestion":  res.Suggestion,
		"exit_code":   res.ExitCode,
		"duration_ms": res.Duration.Milliseconds(),
		"detail":      res.Detail,
	}))
}

func (j *Job) emit(e events.Event) {
	if j.bus != nil {
		j.bus.Emit(e)
	}
}

func summaryPayload(jobID string, s *Summary) map[string]any {
	counts := make(map[string]int, len(s.Counts))
	for outcome, n := range s.Counts {
		counts[string(outcome)] = n
	}
	return map[string]any{
		"job_id":      jobID,
		"operation":   string(s.Operation),
		"total":       s.Total,
		"counts":      counts,
		"duration_ms": s.Duration.Milliseconds(),
	}
}
