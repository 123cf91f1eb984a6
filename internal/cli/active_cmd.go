package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/domain"
)

func newActiveCmd(a *App) *cobra.Command {
	var stage domain.Stage
	var all bool

	cmd := &cobra.Command{
		Use:   "active",
		Short: "List chapters with active tasks at a stage, by title",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			if all {
				active, err := a.Pipeline.ActiveForStages(ctx, a.Graph.Stages())
				if err != nil {
					return err
				}
				fmt.Fprint(out, formatter.FormatStageActive(active, a.Graph))
				return nil
			}

			if stage == "" {
				return fmt.Errorf("pass --stage or --all")
			}
			groups, err := a.Pipeline.QueryActive(ctx, stage)
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatActive(a.Graph.Label(stage), groups))
			return nil
		},
	}

	stageFlag(cmd.Flags(), a.Graph, &stage, "", "Stage to list")
	cmd.Flags().BoolVar(&all, "all", false, "List every stage")

	return cmd
}

func newTasksCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Show the active tasks of the acting actor's roles",
		Long: `Show the active tasks of every stage the actor holds a role for.
The actor is --actor, or shell.actor from config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			actor := a.actorID(cmd)
			if actor == "" {
				return fmt.Errorf("an actor is required: pass --actor or set shell.actor in %s", a.configPath())
			}

			roles, err := a.Gate.Roles(ctx, actor)
			if err != nil {
				return err
			}
			var stages []domain.Stage
			for _, s := range a.Graph.Stages() {
				if slices.Contains(roles, domain.StageRole(s)) {
					stages = append(stages, s)
				}
			}

			out := cmd.OutOrStdout()
			if len(stages) == 0 {
				fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("%s holds no stage roles. Grant one with 'scanflow actor grant'.", actor)))
				return nil
			}

			active, err := a.Pipeline.ActiveForStages(ctx, stages)
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatStageActive(active, a.Graph))
			return nil
		},
	}
}
