package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/domain"
)

func newAdvanceCmd(a *App) *cobra.Command {
	var stage domain.Stage

	cmd := &cobra.Command{
		Use:     "advance TITLE CHAPTERS --stage STAGE",
		Aliases: []string{"finish"},
		Short:   "Mark a stage finished for chapters and create what comes next",
		Long: `Mark a stage finished for one or more chapters of a title.

Each finished task creates its successor. Joined stages wait until both
sides are finished. Finishing the last stage archives the chapter. All
chapters are applied in one transaction.`,
		Example: `  scanflow advance "Solo Leveling" 01-05 --stage translate
  scanflow finish "Solo Leveling" 7 -s edit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stage == "" {
				return fmt.Errorf("--stage is required")
			}
			ctx := commandContext(cmd)
			actor, err := a.requireActor(cmd)
			if err != nil {
				return err
			}
			if err := a.Gate.CanComplete(ctx, actor, stage); err != nil {
				return err
			}

			res, err := a.Pipeline.AdvanceBatch(ctx, app.BatchAdvanceRequest{
				Title:       args[0],
				RawChapters: args[1],
				Stage:       stage,
				Actor:       actor,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatBatch(res, a.Graph))
			return nil
		},
	}

	stageFlag(cmd.Flags(), a.Graph, &stage, "", "Stage that was finished")
	_ = cmd.MarkFlagRequired("stage")

	return cmd
}
