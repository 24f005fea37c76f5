// Package scan discovers git repositories under a root directory.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jiehua/gitbatch/internal/events"
)

// ErrInvalidRoot indicates the scan root does not exist or is not a directory.
var ErrInvalidRoot = errors.New("invalid scan root")

// DefaultMaxDepth bounds recursion below the root. Depth 1 is the root's
// immediate children.
const DefaultMaxDepth = 3

// Repository describes one discovered git working tree.
// Identity is the absolute path.
type Repository struct {
	// Path is the absolute filesystem path of the working tree
	Path string

	// Name is the display name, derived from the directory name
	Name string
}

// Warning records a directory that could not be read during a scan.
// Warnings are non-fatal; the scan continues past them.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Options configures a scan pass.
type Options struct {
	// MaxDepth bounds recursion below the root (default DefaultMaxDepth).
	MaxDepth int

	// Bus, when set, receives scan lifecycle events: ScanStarted at
	// entry, ScanWarning per skipped directory, ScanFinished at the end.
	Bus *events.Bus
}

// Result holds discovered repositories in walk order plus any
// non-fatal warnings.
type Result struct {
	Root     string
	Repos    []Repository
	Warnings []Warning
}

// Scan walks root to a bounded depth and returns every directory containing
// git metadata (a .git directory, or a .git file for worktrees and
// submodules). Each physical directory is visited at most once, tracked by
// canonicalized path, so symlink cycles terminate.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	s := &scanner{
		visited: make(map[string]bool),
		result:  &Result{Root: absRoot},
		bus:     opts.Bus,
	}
	s.emit(events.NewEvent(events.ScanStarted, absRoot))
	if err := s.walk(ctx, absRoot, 0, opts.MaxDepth); err != nil {
		return nil, err
	}
	s.emit(events.NewEvent(events.ScanFinished, absRoot).WithPayload(map[string]any{
		"found":    len(s.result.Repos),
		"warnings": len(s.result.Warnings),
	}))
	return s.result, nil
}

type scanner struct {
	visited map[string]bool
	result  *Result
	bus     *events.Bus
}

func (s *scanner) emit(e events.Event) {
	if s.bus != nil {
		s.bus.Emit(e)
	}
}

func (s *scanner) walk(ctx context.Context, dir string, depth, maxDepth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		s.warn(dir, err)
		return nil
	}
	if s.visited[canonical] {
		return nil
	}
	s.visited[canonical] = true

	if isRepo(dir) {
		s.result.Repos = append(s.result.Repos, Repository{
			Path: dir,
			Name: filepath.Base(dir),
		})
	}

	if depth >= maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// The root was already validated; below it, unreadable
		// directories are skipped with a warning.
		s.warn(dir, err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		if entry.Name() == ".git" {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(child)
			if err != nil || !target.IsDir() {
				continue
			}
		}
		if err := s.walk(ctx, child, depth+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) warn(path string, err error) {
	s.result.Warnings = append(s.result.Warnings, Warning{Path: path, Err: err})
	s.emit(events.NewEvent(events.ScanWarning, path).WithError(err))
}

// isRepo reports whether dir carries git metadata. A .git file (not dir)
// marks linked worktrees and submodules; both count as working trees.
func isRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
