package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jiehua/gitbatch/internal/classify"
)

// RepoState tracks one in-flight repository in the TUI.
type RepoState struct {
	Name      string
	StartedAt time.Time
}

// Model is the bubbletea model for a batch run.
type Model struct {
	// Configuration
	Operation   string
	TotalRepos  int
	Parallelism int
	Styles      Styles

	// State
	ActiveRepos map[string]*RepoState
	Succeeded   int
	Failed      int
	Cancelled   int
	Recent      []string
	RecentLimit int
	StartTime   time.Time
	Width       int
	Height      int

	// Control
	Quitting bool
	Done     bool
}

// NewModel creates a new TUI model
func NewModel(operation string, parallelism int) *Model {
	return &Model{
		Operation:   operation,
		Parallelism: parallelism,
		Styles:      DefaultStyles(),
		ActiveRepos: make(map[string]*RepoState),
		RecentLimit: 8,
		StartTime:   time.Now(),
	}
}

func (m *Model) completed() int {
	return m.Succeeded + m.Failed + m.Cancelled
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg is sent every second to update the timer
type TickMsg time.Time

// tickCmd returns a command that sends TickMsg every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DoneMsg signals the TUI should exit
type DoneMsg struct{}

// QuitMsg signals the user requested quit (q or Ctrl+C)
type QuitMsg struct{}

// JobStartedMsg carries the repo count once the job begins
type JobStartedMsg struct {
	TotalRepos  int
	Parallelism int
}

// RepoStartedMsg indicates a repository operation has begun
type RepoStartedMsg struct {
	Name string
}

// RepoCompletedMsg indicates a repository reached a terminal outcome
type RepoCompletedMsg struct {
	Name    string
	Outcome classify.Outcome
	Detail  string
}
