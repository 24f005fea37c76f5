package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jiehua/gitbatch/internal/batch"
	"github.com/jiehua/gitbatch/internal/cli/tui"
	"github.com/jiehua/gitbatch/internal/events"
	"github.com/jiehua/gitbatch/internal/gitcmd"
	"github.com/jiehua/gitbatch/internal/history"
	"github.com/jiehua/gitbatch/internal/scan"
)

// BatchOptions holds flags shared by the pull and push commands
type BatchOptions struct {
	Parallelism int
	Timeout     time.Duration
	Depth       int
	Remote      string
	Branch      string
	NoTUI       bool
	JSON        bool
}

// NewPullCmd creates the pull command
func NewPullCmd(app *App) *cobra.Command {
	return newBatchCmd(app, batch.OpPull,
		"Pull every repository under a directory",
		`Pull scans the directory tree for git repositories and runs git pull
in each of them in parallel. Successful pulls report the commit delta;
failures are classified with a suggestion for fixing them.`)
}

// NewPushCmd creates the push command
func NewPushCmd(app *App) *cobra.Command {
	return newBatchCmd(app, batch.OpPush,
		"Push every repository under a directory",
		`Push scans the directory tree for git repositories and runs git push
in each of them in parallel.`)
}

func newBatchCmd(app *App, op batch.Operation, short, long string) *cobra.Command {
	opts := BatchOptions{}

	cmd := &cobra.Command{
		Use:   string(op) + " [root]",
		Short: short,
		Long:  long,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runBatch(op, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Parallelism, "parallelism", "p", 0, "Max concurrent repositories")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Per-repository git timeout")
	cmd.Flags().IntVarP(&opts.Depth, "depth", "d", 0, "Max directory depth to search")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "Remote to pull from / push to")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "Branch to pull / push (requires --remote)")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Disable interactive TUI (use summary-only output)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit progress as JSON lines")

	return cmd
}

// runBatch is the shared pull/push pipeline: scan, run the job with
// progress streaming, record history, print the summary.
func (a *App) runBatch(op batch.Operation, args []string, opts BatchOptions) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	a.applyConfigDefaults(&opts)

	root, err := a.resolveRoot(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := NewSignalHandler(cancel)
	handler.OnShutdown(func() {
		fmt.Fprintln(os.Stderr, "\nCancelling, waiting for in-flight repositories...")
	})
	handler.Start()
	defer handler.Stop()

	bus := events.NewBus(1024)

	jsonMode := events.IsJSONMode(opts.JSON)
	useTUI := !opts.NoTUI && !jsonMode && term.IsTerminal(int(os.Stdout.Fd()))

	var bridge *tui.Bridge
	tuiDone := make(chan struct{})
	switch {
	case useTUI:
		model := tui.NewModel(string(op), opts.Parallelism)
		program := tea.NewProgram(model, tea.WithAltScreen())
		bridge = tui.NewBridge(program)
		bus.Subscribe(bridge.Handler())
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			}
			// If the user quit early, q also cancels the run
			cancel()
		}()
	case jsonMode:
		bus.Subscribe(events.JSONEmitterHandler(events.NewJSONEmitter(os.Stdout)))
		close(tuiDone)
	default:
		if a.verbose {
			bus.Subscribe(events.LogHandler(events.LogConfig{Writer: os.Stderr}))
		}
		close(tuiDone)
	}

	// Flushes remaining events and brings the TUI down before anything
	// else writes to the terminal.
	closeStream := func() {
		bus.Close()
		if bridge != nil {
			bridge.SendDone()
		}
		<-tuiDone
	}

	scanRes, err := scan.Scan(ctx, root, scan.Options{MaxDepth: opts.Depth, Bus: bus})
	if err != nil {
		closeStream()
		return err
	}
	if len(scanRes.Repos) == 0 {
		closeStream()
		fmt.Println(a.trf("scan.found", 0, scanRes.Root))
		return nil
	}

	job, err := batch.New(batch.Config{
		Operation:   op,
		Repos:       scanRes.Repos,
		Concurrency: opts.Parallelism,
		Timeout:     opts.Timeout,
		Remote:      opts.Remote,
		Branch:      opts.Branch,
	}, batch.Dependencies{Bus: bus, Runner: a.gitRunner()})
	if err != nil {
		closeStream()
		return err
	}

	store := a.openHistory(job.ID, op, scanRes.Root, opts.Parallelism)

	summary, runErr := job.Run(ctx)

	closeStream()

	a.recordResults(store, job, summary, runErr)

	a.cfg.LastRoot = scanRes.Root
	a.saveConfig()

	if runErr != nil {
		if errors.Is(runErr, gitcmd.ErrEnvironment) {
			return errors.New(a.trf("run.aborted", runErr))
		}
		return runErr
	}

	if !jsonMode {
		printSummary(os.Stdout, a, job, summary)
	}

	if job.State() == batch.StateCancelled {
		fmt.Println(a.tr("run.cancelled"))
		return nil
	}
	if n := summary.Failed(); n > 0 {
		return fmt.Errorf("%d of %d repositories failed", n, summary.Total)
	}
	return nil
}

// applyConfigDefaults fills unset flags from the loaded config.
func (a *App) applyConfigDefaults(opts *BatchOptions) {
	if opts.Parallelism <= 0 {
		opts.Parallelism = a.cfg.Parallelism
	}
	if opts.Timeout <= 0 {
		if d, err := a.cfg.TimeoutDuration(); err == nil {
			opts.Timeout = d
		}
	}
	if opts.Depth <= 0 {
		opts.Depth = a.cfg.ScanDepth
	}
	if opts.Remote == "" {
		opts.Remote = a.cfg.Remote
	}
	if opts.Branch == "" {
		opts.Branch = a.cfg.Branch
	}
}

// openHistory opens the run history store and records the starting run.
// History is best-effort: a broken database warns but never blocks a run.
func (a *App) openHistory(jobID string, op batch.Operation, root string, parallelism int) *history.Store {
	path, err := a.cfg.HistoryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		return nil
	}
	if err := store.RecordRun(&history.Run{
		ID:          jobID,
		Operation:   string(op),
		Root:        root,
		Parallelism: parallelism,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: record run: %v\n", err)
		store.Close()
		return nil
	}
	return store
}

// recordResults persists the finished job to the history store.
func (a *App) recordResults(store *history.Store, job *batch.Job, summary *batch.Summary, runErr error) {
	if store == nil {
		return
	}
	defer store.Close()

	// An aborted run never dispatched any repository; its result slots
	// are empty placeholders, not outcomes worth persisting.
	results := job.Results()
	if job.State() == batch.StateAborted {
		results = nil
	}
	for _, res := range results {
		rec := &history.Result{
			RunID:      job.ID,
			RepoPath:   res.Repo.Path,
			RepoName:   res.Repo.Name,
			Outcome:    string(res.Outcome),
			ExitCode:   res.ExitCode,
			Detail:     res.Detail,
			Output:     res.Output,
			DurationMS: res.Duration.Milliseconds(),
		}
		if err := store.AppendResult(rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: record result: %v\n", err)
			return
		}
	}

	state := history.RunState(job.State())
	var total, succeeded, failed, cancelled int
	if summary != nil {
		total = summary.Total
		succeeded = summary.Succeeded()
		failed = summary.Failed()
		cancelled = summary.Cancelled()
	}
	var errStr *string
	if runErr != nil {
		s := runErr.Error()
		errStr = &s
	}
	if err := store.FinishRun(job.ID, state, total, succeeded, failed, cancelled, errStr); err != nil {
		fmt.Fprintf(os.Stderr, "warning: finish run: %v\n", err)
	}
}
