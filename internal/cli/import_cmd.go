package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
)

func newImportCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy DIR",
		Short: "Import the JSON database of the old chat bot",
		Long: `Import tasks.json, sections.json, completed.json and users.json from DIR.

Every file is checked against its schema and every record is validated
before anything is written; the import then runs in one transaction.
Records that already exist are skipped, so the import can be repeated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			actor, err := a.requireActor(cmd)
			if err != nil {
				return err
			}
			if err := a.Gate.CanIntake(ctx, actor); err != nil {
				return err
			}

			res, err := a.Import.ImportLegacyDir(ctx, args[0])
			if err != nil {
				return err
			}
			a.logger().Info("legacy import finished",
				"dir", args[0], "tasks", res.Tasks, "skipped", res.SkippedTasks, "titles", res.Sections)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatImport(res))
			return nil
		},
	}
}
