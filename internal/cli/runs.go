package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jiehua/gitbatch/internal/history"
)

// NewRunsCmd creates the runs command
func NewRunsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show batch run history",
		Long: `Runs lists recent batch runs with their outcome counts. Given a run
ID it shows that run's per-repository results.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadConfig(); err != nil {
				return err
			}

			path, err := app.cfg.HistoryPath()
			if err != nil {
				return err
			}
			store, err := history.Open(path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, app, store, args[0])
			}
			return listRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max runs to list")

	return cmd
}

func listRuns(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tOP\tROOT\tSTATE\tOK\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Operation,
			run.Root,
			run.State,
			run.Succeeded,
			run.Failed,
		)
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, app *App, store *history.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s %s (%s)\n", run.ID, run.Operation, run.Root, run.State)
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "%s\n", app.trf("run.summary.duration",
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second)))
	}
	if run.Error != nil {
		fmt.Fprintf(out, "error: %s\n", *run.Error)
	}

	results, err := store.ResultsForRun(id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPO\tOUTCOME\tDURATION\tDETAIL")
	for _, res := range results {
		detail := res.Detail
		if detail == "" && res.Outcome != "success" {
			detail = firstLine(res.Output)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			res.RepoName,
			app.tr("outcome."+res.Outcome),
			(time.Duration(res.DurationMS) * time.Millisecond).Round(time.Millisecond),
			detail,
		)
	}
	return tw.Flush()
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 80 {
		text = text[:80] + "..."
	}
	return text
}
