package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/logging"
	"github.com/alexanderramin/scanflow/internal/session"
)

func newShellCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive menu-driven shell",
		Long: `Start the interactive shell. It walks through the same menus as the
team chat: adding chapters, finishing work, and listing your tasks and roles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, a)
		},
	}
}

func newSessionManager(a *App) *session.Manager {
	return session.NewManager(session.Deps{
		Graph:    a.Graph,
		Pipeline: a.Pipeline,
		Sections: a.Sections,
		Roster:   a.Actors,
		Gate:     a.Gate,
	})
}

func runShell(cmd *cobra.Command, a *App) error {
	actor := a.actorID(cmd)
	if actor == "" {
		return fmt.Errorf("the shell needs an actor: pass --actor or set shell.actor in %s", a.configPath())
	}

	sessionID := uuid.New().String()
	logger := a.logger().With(logging.FieldSession, sessionID, logging.FieldActor, actor)
	logger.Info("shell started")

	m := newShellModel(commandContext(cmd), a, newSessionManager(a), actor)
	m.logger = logger
	p := tea.NewProgram(m, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	_, err := p.Run()

	logger.Info("shell finished")
	return err
}
