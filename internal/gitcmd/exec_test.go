package gitcmd

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	return dir
}

func TestOSRunner_Success(t *testing.T) {
	dir := initRepo(t)

	res := OSRunner{}.Run(context.Background(), dir, "status", "--porcelain")
	assert.True(t, res.Ok())
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, strings.TrimSpace(res.Stdout))
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestOSRunner_NonzeroExit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir() // not a repository

	res := OSRunner{}.Run(context.Background(), dir, "status")
	assert.False(t, res.Ok())
	assert.NotEqual(t, 0, res.ExitCode)
	assert.NoError(t, res.StartErr)
	assert.Contains(t, strings.ToLower(res.Stderr), "not a git repository")
}

func TestOSRunner_StartError(t *testing.T) {
	res := OSRunner{GitPath: "definitely-not-a-real-git-binary"}.Run(
		context.Background(), t.TempDir(), "version")
	assert.Error(t, res.StartErr)
	assert.Equal(t, -1, res.ExitCode)
}

func TestOSRunner_Timeout(t *testing.T) {
	requireGit(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	// The deadline fires before git can launch, but either way the result
	// must be reported as TimedOut, never as a start failure.
	res := OSRunner{}.Run(ctx, t.TempDir(), "version")
	assert.True(t, res.TimedOut)
	assert.NoError(t, res.StartErr)
}

func TestOSRunner_Canceled(t *testing.T) {
	requireGit(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := OSRunner{}.Run(ctx, t.TempDir(), "version")
	assert.True(t, res.Canceled)
	assert.NoError(t, res.StartErr)
}

func TestCapWriter_Truncates(t *testing.T) {
	w := newCapWriter(8)
	n, err := w.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 16, n, "writer must swallow the full input")
	assert.Equal(t, "01234567"+truncationMarker, w.String())
}

func TestCapWriter_NoTruncation(t *testing.T) {
	w := newCapWriter(64)
	_, err := w.Write([]byte("short"))
	require.NoError(t, err)
	assert.Equal(t, "short", w.String())
}

func TestProbe(t *testing.T) {
	requireGit(t)
	assert.NoError(t, Probe(context.Background(), OSRunner{}))
}

func TestProbe_MissingBinary(t *testing.T) {
	err := Probe(context.Background(), OSRunner{GitPath: "no-such-git"})
	assert.ErrorIs(t, err, ErrEnvironment)
}

func TestOutput(t *testing.T) {
	dir := initRepo(t)

	out, err := Output(context.Background(), OSRunner{}, dir, "rev-parse", "--is-inside-work-tree")
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	_, err = Output(context.Background(), OSRunner{}, t.TempDir(), "rev-parse", "HEAD")
	assert.Error(t, err)
}
