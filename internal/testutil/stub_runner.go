package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/jiehua/gitbatch/internal/gitcmd"
)

// StubRunner is a gitcmd.Runner that replays scripted results keyed by the
// joined argument string. Per-key stubs are consumed FIFO; defaults repeat.
type StubRunner struct {
	mu       sync.Mutex
	stubs    map[string][]gitcmd.Result
	defaults map[string]gitcmd.Result
	fallback *gitcmd.Result
	calls    []call
}

type call struct {
	dir  string
	args string
}

func NewStubRunner() *StubRunner {
	return &StubRunner{
		stubs:    make(map[string][]gitcmd.Result),
		defaults: make(map[string]gitcmd.Result),
	}
}

// Stub queues a one-shot result for the given argument string.
func (s *StubRunner) Stub(args string, res gitcmd.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[args] = append(s.stubs[args], res)
}

// StubDefault sets a repeating result for the given argument string.
func (s *StubRunner) StubDefault(args string, res gitcmd.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[args] = res
}

// StubFallback sets the result returned for any unscripted call.
// Without a fallback, unscripted calls exit 128 with a stub error message.
func (s *StubRunner) StubFallback(res gitcmd.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &res
}

// Exit returns a Result with the given exit code and stderr text,
// a convenience for scripting failures.
func Exit(code int, stderr string) gitcmd.Result {
	return gitcmd.Result{ExitCode: code, Stderr: stderr}
}

// Out returns a successful Result with the given stdout text.
func Out(stdout string) gitcmd.Result {
	return gitcmd.Result{Stdout: stdout}
}

func (s *StubRunner) Run(ctx context.Context, dir string, args ...string) gitcmd.Result {
	key := strings.Join(args, " ")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call{dir: dir, args: key})

	if queue := s.stubs[key]; len(queue) > 0 {
		res := queue[0]
		s.stubs[key] = queue[1:]
		res.Args = args
		return res
	}
	if res, ok := s.defaults[key]; ok {
		res.Args = args
		return res
	}
	if s.fallback != nil {
		res := *s.fallback
		res.Args = args
		return res
	}
	return gitcmd.Result{
		Args:     args,
		ExitCode: 128,
		Stderr:   "stub: unexpected git call: " + key,
	}
}

// CallsFor counts how many times the given argument string was executed.
func (s *StubRunner) CallsFor(args ...string) int {
	key := strings.Join(args, " ")
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.calls {
		if c.args == key {
			count++
		}
	}
	return count
}

// DirsFor returns the working directories of every call matching the
// given argument string, in call order.
func (s *StubRunner) DirsFor(args ...string) []string {
	key := strings.Join(args, " ")
	s.mu.Lock()
	defer s.mu.Unlock()
	var dirs []string
	for _, c := range s.calls {
		if c.args == key {
			dirs = append(dirs, c.dir)
		}
	}
	return dirs
}
