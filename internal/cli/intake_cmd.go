package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/domain"
)

func newIntakeCmd(app *App) *cobra.Command {
	var (
		stage  domain.Stage
		wizard bool
	)

	cmd := &cobra.Command{
		Use:   "intake TITLE CHAPTERS",
		Short: "Admit chapters of a title and create their entry tasks",
		Long: `Admit chapters of a title and create their entry tasks.

CHAPTERS is a comma-separated list of chapter numbers and ranges, for
example "1-5, 7". Chapters already admitted are skipped. Starting at the
first stage also creates the tasks it forks into.`,
		Example: `  scanflow intake "Solo Leveling" 1-10
  scanflow intake "Solo Leveling" 11,12 --stage clean
  scanflow intake --wizard`,
		Args: func(cmd *cobra.Command, args []string) error {
			if wizard {
				return cobra.MaximumNArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			actor, err := app.requireActor(cmd)
			if err != nil {
				return err
			}
			if err := app.Gate.CanIntake(ctx, actor); err != nil {
				return err
			}

			req := intakeRequestFromArgs(args, stage, actor)
			if wizard {
				if req, err = runIntakeWizard(ctx, app, req); err != nil {
					return err
				}
			}

			res, err := app.Pipeline.Intake(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatIntake(res, app.Graph))
			return nil
		},
	}

	entry := app.Graph.EntryStages()[0]
	stageFlag(cmd.Flags(), app.Graph, &stage, entry, "Entry stage to start work at")
	cmd.Flags().BoolVarP(&wizard, "wizard", "w", false, "Fill in the request interactively")

	return cmd
}

func intakeRequestFromArgs(args []string, stage domain.Stage, actor string) app.IntakeRequest {
	req := app.IntakeRequest{EntryStage: stage, Actor: actor}
	if len(args) > 0 {
		req.Title = args[0]
	}
	if len(args) > 1 {
		req.RawChapters = args[1]
	}
	return req
}
