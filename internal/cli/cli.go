package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jiehua/gitbatch/internal/config"
	"github.com/jiehua/gitbatch/internal/gitcmd"
	"github.com/jiehua/gitbatch/internal/i18n"
)

// VersionInfo carries build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application with all wired dependencies
type App struct {
	// Root command
	rootCmd *cobra.Command

	// Configuration and message catalog (initialized lazily)
	cfg     *config.Config
	cfgPath string
	catalog *i18n.Catalog

	// Runtime state
	verbose bool
	lang    string

	// Version information
	versionInfo VersionInfo
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	app.rootCmd.AddCommand(
		NewScanCmd(app),
		NewPullCmd(app),
		NewPushCmd(app),
		NewRunsCmd(app),
		NewVersionCmd(app),
	)
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version info for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "gitbatch",
		Short: "Batch git operations across many repositories",
		Long: `gitbatch scans a directory tree for git repositories and runs
pull or push across all of them in parallel, with per-repository
outcomes and suggestions when something goes wrong.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output")
	a.rootCmd.PersistentFlags().StringVar(&a.lang, "lang", "",
		"Message language (en, zh-Hans, zh-Hant, de)")
}

// loadConfig loads the user config and message catalog once.
func (a *App) loadConfig() error {
	if a.cfg != nil {
		return nil
	}

	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	catalog, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("load message catalog: %w", err)
	}

	a.cfg = cfg
	a.cfgPath = path
	a.catalog = catalog

	if a.lang != "" {
		a.cfg.Language = a.lang
	}
	return nil
}

// saveConfig persists session state back to disk. Failures are not fatal;
// losing the remembered root should never fail a completed run.
func (a *App) saveConfig() {
	if a.cfg == nil {
		return
	}
	if err := a.cfg.Save(a.cfgPath); err != nil && a.verbose {
		fmt.Printf("warning: save config: %v\n", err)
	}
}

// gitRunner builds the git runner for this session with the configured
// output cap applied.
func (a *App) gitRunner() gitcmd.Runner {
	return gitcmd.OSRunner{MaxOutput: a.cfg.MaxOutputBytes}
}

// tr resolves a message key in the configured language.
func (a *App) tr(key string) string {
	return a.catalog.Lookup(a.cfg.Language, key)
}

// trf resolves a message key and formats it.
func (a *App) trf(key string, args ...any) string {
	return a.catalog.Sprintf(a.cfg.Language, key, args...)
}
