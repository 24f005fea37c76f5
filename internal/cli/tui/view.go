package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Done || m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderActiveRepos())

	b.WriteString(m.renderRecent())

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")

	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title line with timer and parallelism
func (m *Model) renderHeader() string {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	timer := fmt.Sprintf("[%s]", formatDuration(elapsed))
	parallelism := fmt.Sprintf("Parallelism: %d", m.Parallelism)

	return fmt.Sprintf("%s  %s  %s",
		m.Styles.Title.Render("gitbatch "+m.Operation),
		m.Styles.Timer.Render(timer),
		m.Styles.Parallelism.Render(parallelism),
	)
}

// renderActiveRepos renders the list of in-flight repositories
func (m *Model) renderActiveRepos() string {
	if len(m.ActiveRepos) == 0 {
		if m.completed() < m.TotalRepos {
			return "  Waiting...\n\n"
		}
		return ""
	}

	// Sort by name for stable display
	names := make([]string, 0, len(m.ActiveRepos))
	for name := range m.ActiveRepos {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		repo := m.ActiveRepos[name]
		icon := m.Styles.RepoActive.Render(IconActive)
		elapsed := time.Since(repo.StartedAt).Round(time.Second)
		fmt.Fprintf(&b, "  %s %s %s\n",
			icon,
			m.Styles.RepoName.Render(repo.Name),
			m.Styles.Timer.Render(fmt.Sprintf("(%s)", elapsed)),
		)
	}
	b.WriteString("\n")
	return b.String()
}

// renderRecent renders the last few completed repositories
func (m *Model) renderRecent() string {
	if len(m.Recent) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range m.Recent {
		b.WriteString("  " + m.Styles.RecentLine.Render(line) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// renderStatusLine renders the progress bar and outcome counters
func (m *Model) renderStatusLine() string {
	progress := m.renderProgressBar(m.completed(), m.TotalRepos, 24)

	ok := m.Styles.StatusComplete.Render(fmt.Sprintf("%d ok", m.Succeeded))
	failed := m.Styles.StatusFailed.Render(fmt.Sprintf("%d failed", m.Failed))
	parts := []string{ok, failed}
	if m.Cancelled > 0 {
		parts = append(parts, m.Styles.StatusSkipped.Render(fmt.Sprintf("%d cancelled", m.Cancelled)))
	}

	return fmt.Sprintf("  %s %d/%d  %s",
		progress,
		m.completed(),
		m.TotalRepos,
		strings.Join(parts, " | "),
	)
}

// renderProgressBar creates a progress bar of the given width
func (m *Model) renderProgressBar(completed, total, width int) string {
	if total == 0 {
		total = 1
	}

	filled := min((completed*width)/total, width)

	filledStr := strings.Repeat("█", filled)
	emptyStr := strings.Repeat("░", width-filled)

	return "[" +
		m.Styles.ProgressFilled.Render(filledStr) +
		m.Styles.ProgressEmpty.Render(emptyStr) +
		"]"
}

// renderFooter renders the help text
func (m *Model) renderFooter() string {
	key := m.Styles.FooterKey.Render("q")
	return m.Styles.Footer.Render(fmt.Sprintf("  Press %s to cancel", key))
}

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
