package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jiehua/gitbatch/internal/scan"
)

// ScanOptions holds flags for the scan command
type ScanOptions struct {
	Depth int
}

// NewScanCmd creates the scan command
func NewScanCmd(app *App) *cobra.Command {
	opts := ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Discover git repositories under a directory",
		Long: `Scan walks the directory tree below the given root and lists every
git repository it finds, with branch, working tree state and sync status.

Without a root argument the last scanned directory is used, falling back
to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadConfig(); err != nil {
				return err
			}
			if opts.Depth == 0 {
				opts.Depth = app.cfg.ScanDepth
			}

			root, err := app.resolveRoot(args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			handler := NewSignalHandler(cancel)
			handler.Start()
			defer handler.Stop()

			res, err := scan.Scan(ctx, root, scan.Options{MaxDepth: opts.Depth})
			if err != nil {
				return err
			}

			runner := app.gitRunner()
			metas := make([]scan.Metadata, len(res.Repos))
			for i, repo := range res.Repos {
				if ctx.Err() != nil {
					break
				}
				metas[i] = scan.Inspect(ctx, runner, repo)
			}

			printScanTable(cmd.OutOrStdout(), app, res, metas)

			if app.verbose {
				for _, w := range res.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
			} else if len(res.Warnings) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), app.trf("scan.warnings", len(res.Warnings)))
			}

			app.cfg.LastRoot = res.Root
			app.saveConfig()
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Depth, "depth", "d", 0, "Max directory depth to search")

	return cmd
}

// resolveRoot picks the scan root: explicit argument, then the remembered
// last root, then the current directory.
func (a *App) resolveRoot(args []string) (string, error) {
	if len(args) > 0 {
		return filepath.Abs(args[0])
	}
	if a.cfg.LastRoot != "" {
		if info, err := os.Stat(a.cfg.LastRoot); err == nil && info.IsDir() {
			return a.cfg.LastRoot, nil
		}
	}
	return os.Getwd()
}
