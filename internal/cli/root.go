package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/access"
	"github.com/alexanderramin/scanflow/internal/config"
	"github.com/alexanderramin/scanflow/internal/logging"
	"github.com/alexanderramin/scanflow/internal/service"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

// App holds references to all services used by CLI commands.
type App struct {
	Graph    *stagegraph.Graph
	Pipeline service.PipelineService
	Sections service.SectionService
	Archive  service.ArchiveService
	Actors   service.ActorService
	Reports  service.ReportService
	Import   service.ImportService
	Gate     *access.Gate

	// Config is nil in tests; commands then fall back to config.Default.
	Config *config.Manager
	Logger *slog.Logger

	// HistoryPath is where the shell keeps typed lines. Empty disables history.
	HistoryPath string

	// IsInteractive reports whether stdin is a terminal. When it is, running
	// scanflow without a subcommand opens the shell.
	IsInteractive func() bool

	// Now is the clock used for relative timestamps.
	Now func() time.Time
}

func (a *App) config() *config.Config {
	if a.Config != nil {
		return a.Config.Get()
	}
	cfg := config.Default()
	return &cfg
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return logging.NewNop()
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// actorID resolves who is acting: the --actor flag, then shell.actor from
// config.
func (a *App) actorID(cmd *cobra.Command) string {
	if f := cmd.Flag("actor"); f != nil && f.Changed {
		return f.Value.String()
	}
	return a.config().Shell.Actor
}

// requireActor is actorID for commands that change state while access
// checks are enforced.
func (a *App) requireActor(cmd *cobra.Command) (string, error) {
	id := a.actorID(cmd)
	if id == "" && a.Gate.Enforced() {
		return "", fmt.Errorf("an actor is required: pass --actor or set shell.actor in %s", a.configPath())
	}
	return id, nil
}

func (a *App) configPath() string {
	if a.Config != nil {
		return a.Config.Path()
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "the config file"
	}
	return path
}

// NewRootCmd creates the top-level "scanflow" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "scanflow",
		Short:         "Chapter pipeline tracker for translation teams",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.IsInteractive != nil && app.IsInteractive() {
				return runShell(cmd, app)
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("actor", "", "Actor id to act as (default: shell.actor from config)")
	root.PersistentFlags().String("config", "", "Config file (default ~/.scanflow/config.toml)")

	root.AddCommand(
		newIntakeCmd(app),
		newAdvanceCmd(app),
		newActiveCmd(app),
		newTasksCmd(app),
		newChapterCmd(app),
		newSectionCmd(app),
		newArchiveCmd(app),
		newActorCmd(app),
		newStagesCmd(app),
		newReportCmd(app),
		newConfigCmd(app),
		newImportCmd(app),
		newShellCmd(app),
	)

	return root
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
