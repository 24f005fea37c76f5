package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the TUI
type Styles struct {
	// Header styling
	Title       lipgloss.Style
	Timer       lipgloss.Style
	Parallelism lipgloss.Style

	// Repo styling
	RepoActive lipgloss.Style
	RepoName   lipgloss.Style
	RecentLine lipgloss.Style

	// Progress bar colors
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	// Footer styling
	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	// Status counts
	StatusComplete lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusSkipped  lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Timer:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Parallelism: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		RepoActive: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		RepoName:   lipgloss.NewStyle().Bold(true),
		RecentLine: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),

		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),

		StatusComplete: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		StatusSkipped:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Icons used in the TUI
const (
	IconActive   = "●"
	IconComplete = "✓"
	IconFailed   = "✗"
	IconSkipped  = "−"
)
