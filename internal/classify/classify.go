// Package classify maps raw git invocation results to typed outcomes.
//
// Git's CLI has no structured machine output, so classification is textual
// pattern matching over stderr/stdout. The marker table is data, not logic:
// git's message text varies across versions, and deployments can extend the
// table without touching the classifier.
package classify

import (
	"strings"

	"github.com/jiehua/gitbatch/internal/gitcmd"
)

// Outcome is the classified result of one repository's operation attempt.
type Outcome string

const (
	Success        Outcome = "success"
	Conflict       Outcome = "conflict"
	AuthFailure    Outcome = "auth_failure"
	NetworkFailure Outcome = "network_failure"
	DirtyTree      Outcome = "dirty_tree"
	NotARepo       Outcome = "not_a_repo"
	Timeout        Outcome = "timeout"
	Cancelled      Outcome = "cancelled"
	UnknownError   Outcome = "unknown_error"
)

// Terminal reports whether o is a valid terminal outcome.
func (o Outcome) Terminal() bool {
	switch o {
	case Success, Conflict, AuthFailure, NetworkFailure, DirtyTree,
		NotARepo, Timeout, Cancelled, UnknownError:
		return true
	}
	return false
}

// IsError reports whether the outcome represents a failed operation.
// Cancelled is a non-error terminal state.
func (o Outcome) IsError() bool {
	return o != Success && o != Cancelled
}

// Classification pairs an outcome with a human-actionable suggestion.
// Suggestion is a message key resolved by the presentation layer's
// localization lookup; the engine never embeds literal language text.
type Classification struct {
	Outcome    Outcome
	Suggestion string
}

// Suggestion message keys, one per outcome.
const (
	KeySuccess   = "suggestion.success"
	KeyConflict  = "suggestion.conflict"
	KeyAuth      = "suggestion.auth"
	KeyNetwork   = "suggestion.network"
	KeyDirty     = "suggestion.dirty"
	KeyNotRepo   = "suggestion.not_repo"
	KeyTimeout   = "suggestion.timeout"
	KeyCancelled = "suggestion.cancelled"
	KeyUnknown   = "suggestion.unknown"
)

var suggestions = map[Outcome]string{
	Success:        KeySuccess,
	Conflict:       KeyConflict,
	AuthFailure:    KeyAuth,
	NetworkFailure: KeyNetwork,
	DirtyTree:      KeyDirty,
	NotARepo:       KeyNotRepo,
	Timeout:        KeyTimeout,
	Cancelled:      KeyCancelled,
	UnknownError:   KeyUnknown,
}

// SuggestionKey returns the message key for an outcome.
func SuggestionKey(o Outcome) string {
	if key, ok := suggestions[o]; ok {
		return key
	}
	return KeyUnknown
}

// Rule binds an outcome to the lowercase substrings that indicate it.
type Rule struct {
	Outcome Outcome
	Markers []string
}

// Table is an ordered marker table. Earlier rules win: git mixes overlapping
// phrasing (a 403 line also says "unable to access"), so rule order encodes
// which interpretation takes precedence.
type Table struct {
	rules []Rule
}

// NewTable creates a table from the given rules, evaluated in order.
func NewTable(rules ...Rule) *Table {
	return &Table{rules: rules}
}

// DefaultTable returns the built-in marker table, seeded from git's known
// message text across recent versions.
func DefaultTable() *Table {
	return NewTable(
		Rule{Outcome: NotARepo, Markers: []string{
			"not a git repository",
		}},
		Rule{Outcome: Conflict, Markers: []string{
			"conflict",
			"needs merge",
			"automatic merge failed",
			"fix conflicts",
			"unmerged files",
			"non-fast-forward",
			"fetch first",
			"rejected",
		}},
		Rule{Outcome: DirtyTree, Markers: []string{
			"would be overwritten",
			"commit your changes or stash them",
			"uncommitted changes",
			"unstaged changes",
			"your local changes",
			"cannot pull with rebase",
		}},
		Rule{Outcome: AuthFailure, Markers: []string{
			"permission denied",
			"authentication failed",
			"could not read username",
			"could not read password",
			"invalid credentials",
			"access denied",
			"terminal prompts disabled",
			"error: 403",
			"error: 401",
			"publickey",
		}},
		Rule{Outcome: NetworkFailure, Markers: []string{
			"could not resolve host",
			"unable to access",
			"connection timed out",
			"connection refused",
			"connection reset",
			"network is unreachable",
			"no route to host",
			"operation timed out",
			"name resolution",
			"could not connect",
			"early eof",
			"remote end hung up",
		}},
	)
}

// Extend appends a rule to the table. Appended rules are evaluated after
// the existing ones.
func (t *Table) Extend(rule Rule) {
	t.rules = append(t.rules, rule)
}

// Classify maps a raw result to exactly one outcome. The mapping is total:
// runner-level states (timeout, cancellation, launch failure) are resolved
// first, exit 0 is Success, and any unmatched nonzero exit falls through to
// UnknownError so the pipeline never stalls on unclassifiable output.
func (t *Table) Classify(res gitcmd.Result) Classification {
	outcome := t.outcome(res)
	return Classification{
		Outcome:    outcome,
		Suggestion: SuggestionKey(outcome),
	}
}

func (t *Table) outcome(res gitcmd.Result) Outcome {
	switch {
	case res.Canceled:
		return Cancelled
	case res.TimedOut:
		return Timeout
	case res.StartErr != nil:
		return UnknownError
	case res.ExitCode == 0:
		return Success
	}

	text := strings.ToLower(res.Stderr + "\n" + res.Stdout)
	for _, rule := range t.rules {
		for _, marker := range rule.Markers {
			if strings.Contains(text, marker) {
				return rule.Outcome
			}
		}
	}
	return UnknownError
}
