package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jiehua/gitbatch/internal/classify"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		// Continue ticking for timer updates
		return m, tickCmd()

	case DoneMsg:
		m.Done = true
		return m, tea.Quit

	case QuitMsg:
		m.Quitting = true
		return m, tea.Quit

	case JobStartedMsg:
		m.TotalRepos = msg.TotalRepos
		if msg.Parallelism > 0 {
			m.Parallelism = msg.Parallelism
		}

	case RepoStartedMsg:
		m.ActiveRepos[msg.Name] = &RepoState{
			Name:      msg.Name,
			StartedAt: time.Now(),
		}

	case RepoCompletedMsg:
		delete(m.ActiveRepos, msg.Name)
		switch {
		case msg.Outcome == classify.Success:
			m.Succeeded++
		case msg.Outcome == classify.Cancelled:
			m.Cancelled++
		default:
			m.Failed++
		}
		m.pushRecent(msg)
	}

	return m, nil
}

func (m *Model) pushRecent(msg RepoCompletedMsg) {
	line := fmt.Sprintf("%s %s", outcomeIcon(msg.Outcome), msg.Name)
	if msg.Detail != "" {
		line += "  " + msg.Detail
	}
	m.Recent = append(m.Recent, line)
	if len(m.Recent) > m.RecentLimit {
		m.Recent = m.Recent[len(m.Recent)-m.RecentLimit:]
	}
}

func outcomeIcon(outcome classify.Outcome) string {
	switch outcome {
	case classify.Success:
		return IconComplete
	case classify.Cancelled:
		return IconSkipped
	default:
		return IconFailed
	}
}
