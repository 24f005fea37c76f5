package scan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiehua/gitbatch/internal/events"
)

// eventLog subscribes to a bus and records everything it delivers.
type eventLog struct {
	mu   sync.Mutex
	seen []events.Event
}

func (l *eventLog) subscribe(bus *events.Bus) {
	bus.Subscribe(func(e events.Event) {
		l.mu.Lock()
		l.seen = append(l.seen, e)
		l.mu.Unlock()
	})
}

func (l *eventLog) ofType(et events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.seen {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

// mkRepo creates a fake repository: a directory with a .git subdirectory.
// Discovery looks only at the filesystem shape, not repository validity.
func mkRepo(t *testing.T, root string, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	return dir
}

func names(repos []Repository) []string {
	out := make([]string, len(repos))
	for i, r := range repos {
		out[i] = r.Name
	}
	return out
}

func TestScan_FindsRepos(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "alpha")
	mkRepo(t, root, "beta")
	mkRepo(t, root, "gamma")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-repo"), 0o755))

	res, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names(res.Repos))
	assert.Empty(t, res.Warnings)
}

func TestScan_NestedRepos(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "outer")
	mkRepo(t, root, filepath.Join("outer", "vendor", "inner"))
	mkRepo(t, root, filepath.Join("group", "project"))

	res, err := Scan(context.Background(), root, Options{MaxDepth: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"project", "outer", "inner"}, names(res.Repos))
}

func TestScan_DepthBound(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "shallow")
	mkRepo(t, root, filepath.Join("a", "b", "c", "d", "deep"))

	res, err := Scan(context.Background(), root, Options{MaxDepth: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"shallow"}, names(res.Repos))
}

func TestScan_GitFileCountsAsRepo(t *testing.T) {
	// Linked worktrees and submodules use a .git file, not a directory.
	root := t.TempDir()
	dir := filepath.Join(root, "worktree")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git"), []byte("gitdir: /elsewhere\n"), 0o644))

	res, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"worktree"}, names(res.Repos))
}

func TestScan_RootIsRepo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	res, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	require.Len(t, res.Repos, 1)
	assert.Equal(t, mustEval(t, root), mustEval(t, res.Repos[0].Path))
}

func mustEval(t *testing.T, p string) string {
	t.Helper()
	// TempDir may sit behind a symlink (e.g. /tmp on macOS).
	out, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return out
}

func TestScan_InvalidRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.ErrorIs(t, err, ErrInvalidRoot)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Scan(context.Background(), file, Options{})
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestScan_SymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	root := t.TempDir()
	mkRepo(t, root, filepath.Join("dir", "repo"))
	// dir/loop -> root creates a cycle
	require.NoError(t, os.Symlink(root, filepath.Join(root, "dir", "loop")))

	res, err := Scan(context.Background(), root, Options{MaxDepth: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"repo"}, names(res.Repos), "each physical directory visited at most once")
}

func TestScan_SymlinkedRepoFoundOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	root := t.TempDir()
	mkRepo(t, root, "real")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	res, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	require.Len(t, res.Repos, 1)
}

func TestScan_UnreadableDirIsWarning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod-based permission denial not reliable on windows")
	}
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	mkRepo(t, root, "ok")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.MkdirAll(locked, 0o755))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	bus := events.NewBus(16)
	log := &eventLog{}
	log.subscribe(bus)

	res, err := Scan(context.Background(), root, Options{Bus: bus})
	require.NoError(t, err, "permission errors are warnings, not scan failures")
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"ok"}, names(res.Repos))
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0].Path, "locked")

	warnings := log.ofType(events.ScanWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Repo, "locked")
	assert.NotEmpty(t, warnings[0].Error)
}

func TestScan_EmitsLifecycleEvents(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "one")
	mkRepo(t, root, "two")

	bus := events.NewBus(16)
	log := &eventLog{}
	log.subscribe(bus)

	res, err := Scan(context.Background(), root, Options{Bus: bus})
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	started := log.ofType(events.ScanStarted)
	require.Len(t, started, 1)
	assert.Equal(t, res.Root, started[0].Repo)

	finished := log.ofType(events.ScanFinished)
	require.Len(t, finished, 1)
	payload, ok := finished[0].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, payload["found"])
	assert.Equal(t, 0, payload["warnings"])
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "repo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		mkRepo(t, root, name)
	}

	first, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	second, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, names(first.Repos), names(second.Repos))
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names(first.Repos))
}
