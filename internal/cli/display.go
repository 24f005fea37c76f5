package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jiehua/gitbatch/internal/batch"
	"github.com/jiehua/gitbatch/internal/classify"
	"github.com/jiehua/gitbatch/internal/scan"
)

// printScanTable renders the discovered repositories with their metadata.
func printScanTable(w io.Writer, app *App, res *scan.Result, metas []scan.Metadata) {
	fmt.Fprintln(w, app.trf("scan.found", len(res.Repos), res.Root))
	if len(res.Repos) == 0 {
		return
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		app.tr("scan.header.name"),
		app.tr("scan.header.branch"),
		app.tr("scan.header.state"),
		app.tr("scan.header.sync"),
		app.tr("scan.header.commit"),
	)

	for i, repo := range res.Repos {
		md := metas[i]
		state := app.tr("scan.state.clean")
		if md.Dirty {
			state = app.tr("scan.state.dirty")
		}
		commit := md.LastCommit
		if md.Author != "" {
			commit += " (" + md.Author + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			repo.Name, md.Branch, state, syncLabel(app, md), strings.TrimSpace(commit))
	}
	tw.Flush()
}

// syncLabel renders the sync state, with ahead/behind counts when relevant.
func syncLabel(app *App, md scan.Metadata) string {
	label := app.tr("sync." + string(md.Sync))
	switch md.Sync {
	case scan.SyncAhead:
		return fmt.Sprintf("%s %d", label, md.Ahead)
	case scan.SyncBehind:
		return fmt.Sprintf("%s %d", label, md.Behind)
	case scan.SyncDiverged:
		return fmt.Sprintf("%s +%d/-%d", label, md.Ahead, md.Behind)
	default:
		return label
	}
}

// printSummary renders the post-run summary block: outcome counts, then
// details for every repository that needs attention.
func printSummary(w io.Writer, app *App, job *batch.Job, summary *batch.Summary) {
	if summary == nil {
		return
	}

	fmt.Fprintf(w, "\n%s\n", app.tr("run.summary.title"))
	fmt.Fprintf(w, "  %s, %s\n",
		app.trf("run.summary.total", summary.Total),
		app.trf("run.summary.duration", summary.Duration.Round(time.Millisecond)))

	// Stable outcome order for the counters
	outcomes := make([]classify.Outcome, 0, len(summary.Counts))
	for outcome := range summary.Counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	for _, outcome := range outcomes {
		fmt.Fprintf(w, "  %-24s %d\n", app.tr("outcome."+string(outcome)), summary.Counts[outcome])
	}

	for _, res := range job.Results() {
		if res.Outcome == classify.Success {
			if res.Detail != "" {
				fmt.Fprintf(w, "\n  %s: %s\n", res.Repo.Name, res.Detail)
			}
			continue
		}
		if res.Outcome == classify.Cancelled {
			continue
		}

		fmt.Fprintf(w, "\n  %s: %s\n", res.Repo.Name, app.tr("outcome."+string(res.Outcome)))
		fmt.Fprintf(w, "    %s\n", app.tr(res.Suggestion))
		if out := strings.TrimSpace(res.Output); out != "" {
			for _, line := range tailLines(out, 4) {
				fmt.Fprintf(w, "    | %s\n", line)
			}
		}
	}
}

// tailLines returns the last n lines of text.
func tailLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
