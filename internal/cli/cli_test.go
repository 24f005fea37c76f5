package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiehua/gitbatch/internal/batch"
	"github.com/jiehua/gitbatch/internal/config"
	"github.com/jiehua/gitbatch/internal/events"
	"github.com/jiehua/gitbatch/internal/gitcmd"
	"github.com/jiehua/gitbatch/internal/history"
	"github.com/jiehua/gitbatch/internal/scan"
	"github.com/jiehua/gitbatch/internal/testutil"
)

func TestVersionCmd(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "abc1234", "2026-08-30")

	var buf bytes.Buffer
	app.rootCmd.SetOut(&buf)
	app.rootCmd.SetArgs([]string{"version"})
	require.NoError(t, app.Execute())

	out := buf.String()
	assert.Contains(t, out, "gitbatch version 1.2.3")
	assert.Contains(t, out, "commit: abc1234")
	assert.Contains(t, out, "built: 2026-08-30")
}

func TestVersionCmd_Defaults(t *testing.T) {
	app := New()

	var buf bytes.Buffer
	app.rootCmd.SetOut(&buf)
	app.rootCmd.SetArgs([]string{"version"})
	require.NoError(t, app.Execute())

	assert.Contains(t, buf.String(), "gitbatch version dev")
}

func TestApplyConfigDefaults(t *testing.T) {
	app := &App{cfg: config.DefaultConfig()}
	app.cfg.Parallelism = 7
	app.cfg.Timeout = "90s"
	app.cfg.ScanDepth = 5
	app.cfg.Remote = "origin"

	opts := BatchOptions{}
	app.applyConfigDefaults(&opts)

	assert.Equal(t, 7, opts.Parallelism)
	assert.Equal(t, 90*time.Second, opts.Timeout)
	assert.Equal(t, 5, opts.Depth)
	assert.Equal(t, "origin", opts.Remote)
}

func TestApplyConfigDefaults_FlagsWin(t *testing.T) {
	app := &App{cfg: config.DefaultConfig()}
	app.cfg.Parallelism = 7

	opts := BatchOptions{Parallelism: 2, Timeout: time.Minute, Depth: 1}
	app.applyConfigDefaults(&opts)

	assert.Equal(t, 2, opts.Parallelism)
	assert.Equal(t, time.Minute, opts.Timeout)
	assert.Equal(t, 1, opts.Depth)
}

func TestRegisteredCommands(t *testing.T) {
	app := New()

	var names []string
	for _, cmd := range app.rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"scan", "pull", "push", "runs", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestGitRunner_AppliesConfiguredOutputCap(t *testing.T) {
	app := testApp(t)
	app.cfg.MaxOutputBytes = 2048

	runner, ok := app.gitRunner().(gitcmd.OSRunner)
	require.True(t, ok)
	assert.Equal(t, 2048, runner.MaxOutput)
}

func TestRecordResults_AbortedRunPersistsNoRepoRows(t *testing.T) {
	app := testApp(t)

	runner := testutil.NewStubRunner()
	runner.StubDefault("version", gitcmd.Result{ExitCode: -1, StartErr: errors.New(`exec: "git": executable file not found in $PATH`)})

	bus := events.NewBus(16)
	job, err := batch.New(batch.Config{
		Operation: batch.OpPull,
		Repos: []scan.Repository{
			{Path: "/src/a", Name: "a"},
			{Path: "/src/b", Name: "b"},
		},
	}, batch.Dependencies{Bus: bus, Runner: runner})
	require.NoError(t, err)

	summary, runErr := job.Run(context.Background())
	require.NoError(t, bus.Close())
	require.Nil(t, summary)
	require.ErrorIs(t, runErr, gitcmd.ErrEnvironment)

	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(&history.Run{
		ID:          job.ID,
		Operation:   "pull",
		Root:        "/src",
		Parallelism: 2,
	}))

	// Closes the store.
	app.recordResults(store, job, summary, runErr)

	reopened, err := history.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.ResultsForRun(job.ID)
	require.NoError(t, err)
	assert.Empty(t, results, "aborted run never touched a repository")

	run, err := reopened.GetRun(job.ID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, history.RunStateAborted, run.State)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "executable file not found")
}
