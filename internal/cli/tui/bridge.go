package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jiehua/gitbatch/internal/classify"
	"github.com/jiehua/gitbatch/internal/events"
)

// Bridge connects the event bus to the bubbletea program
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a new bridge for the given program
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{
		program: program,
	}
}

// Handler returns an event handler function for the event bus
func (b *Bridge) Handler() events.Handler {
	return func(evt events.Event) {
		msg := b.eventToMsg(evt)
		if msg != nil {
			b.program.Send(msg)
		}
	}
}

// eventToMsg converts an events.Event to a tea.Msg
func (b *Bridge) eventToMsg(evt events.Event) tea.Msg {
	switch evt.Type {
	case events.JobStarted:
		total := 0
		parallelism := 0
		if payload, ok := evt.Payload.(map[string]any); ok {
			if t, ok := payload["total"].(int); ok {
				total = t
			}
			if p, ok := payload["concurrency"].(int); ok {
				parallelism = p
			}
		}
		return JobStartedMsg{
			TotalRepos:  total,
			Parallelism: parallelism,
		}

	case events.RepoStarted:
		return RepoStartedMsg{
			Name: repoName(evt),
		}

	case events.RepoCompleted:
		outcome := classify.UnknownError
		detail := ""
		if payload, ok := evt.Payload.(map[string]any); ok {
			if s, ok := payload["outcome"].(string); ok {
				outcome = classify.Outcome(s)
			}
			if d, ok := payload["detail"].(string); ok {
				detail = d
			}
		}
		return RepoCompletedMsg{
			Name:    repoName(evt),
			Outcome: outcome,
			Detail:  detail,
		}

	default:
		return nil
	}
}

// repoName prefers the display name carried in the payload; the event's
// repo field is the full path.
func repoName(evt events.Event) string {
	if payload, ok := evt.Payload.(map[string]any); ok {
		if name, ok := payload["name"].(string); ok && name != "" {
			return name
		}
	}
	return evt.Repo
}

// SendDone sends a DoneMsg to the program
func (b *Bridge) SendDone() {
	b.program.Send(DoneMsg{})
}

// SendQuit sends a QuitMsg to the program
func (b *Bridge) SendQuit() {
	b.program.Send(QuitMsg{})
}
