package scan

import (
	"context"
	"strconv"
	"strings"

	"github.com/jiehua/gitbatch/internal/gitcmd"
)

// SyncState describes how a local branch relates to its upstream.
type SyncState string

const (
	SyncSynced   SyncState = "synced"
	SyncAhead    SyncState = "ahead"
	SyncBehind   SyncState = "behind"
	SyncDiverged SyncState = "diverged"
	SyncNoRemote SyncState = "no-remote"
	SyncUnknown  SyncState = "unknown"
)

// Metadata is best-effort per-repository detail for display. Every field
// degrades independently: a repo with no commits still reports its branch,
// a repo with no remote still reports its dirty state.
type Metadata struct {
	Branch     string
	Dirty      bool
	LastCommit string
	Author     string
	RemoteURL  string
	Sync       SyncState
	Ahead      int
	Behind     int
}

// Inspect gathers display metadata for one repository. All queries are
// local; it never touches the network.
func Inspect(ctx context.Context, r gitcmd.Runner, repo Repository) Metadata {
	md := Metadata{Branch: "unknown", Sync: SyncUnknown}

	if branch, err := gitcmd.Output(ctx, r, repo.Path, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		md.Branch = branch
	}

	if status, err := gitcmd.Output(ctx, r, repo.Path, "status", "--porcelain"); err == nil {
		md.Dirty = status != ""
	}

	if line, err := gitcmd.Output(ctx, r, repo.Path, "log", "-1", "--format=%cd|%an",
		"--date=format:%Y-%m-%d %H:%M:%S"); err == nil {
		if date, author, ok := strings.Cut(line, "|"); ok {
			md.LastCommit = date
			md.Author = author
		}
	}

	if url, err := gitcmd.Output(ctx, r, repo.Path, "remote", "get-url", "origin"); err == nil {
		md.RemoteURL = DisplayURL(url)
	}

	md.Sync, md.Ahead, md.Behind = syncState(ctx, r, repo.Path, md.Branch)
	return md
}

func syncState(ctx context.Context, r gitcmd.Runner, dir, branch string) (SyncState, int, int) {
	if branch == "unknown" || branch == "HEAD" {
		return SyncUnknown, 0, 0
	}
	upstream := "origin/" + branch

	if _, err := gitcmd.Output(ctx, r, dir, "rev-parse", "--verify", upstream); err != nil {
		return SyncNoRemote, 0, 0
	}

	ahead, err := revCount(ctx, r, dir, upstream+"..HEAD")
	if err != nil {
		return SyncUnknown, 0, 0
	}
	behind, err := revCount(ctx, r, dir, "HEAD.."+upstream)
	if err != nil {
		return SyncUnknown, 0, 0
	}

	switch {
	case ahead > 0 && behind > 0:
		return SyncDiverged, ahead, behind
	case ahead > 0:
		return SyncAhead, ahead, behind
	case behind > 0:
		return SyncBehind, ahead, behind
	}
	return SyncSynced, 0, 0
}

func revCount(ctx context.Context, r gitcmd.Runner, dir, spec string) (int, error) {
	out, err := gitcmd.Output(ctx, r, dir, "rev-list", "--count", spec)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// DisplayURL rewrites an ssh remote (git@host:owner/repo.git) to its https
// form for hyperlinking; https remotes pass through with .git trimmed.
func DisplayURL(remote string) string {
	remote = strings.TrimSpace(remote)
	if rest, ok := strings.CutPrefix(remote, "git@"); ok {
		if host, path, found := strings.Cut(rest, ":"); found {
			return "https://" + host + "/" + strings.TrimSuffix(path, ".git")
		}
	}
	if strings.HasPrefix(remote, "http://") || strings.HasPrefix(remote, "https://") {
		return strings.TrimSuffix(remote, ".git")
	}
	return remote
}
