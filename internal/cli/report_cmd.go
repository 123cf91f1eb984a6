package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
)

func newReportCmd(a *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Per-title progress: admitted chapters, active tasks per stage, archived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.ParseTableFormat(format)
			if err != nil {
				return err
			}
			progress, err := a.Reports.Progress(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatReport(progress, a.Graph.Stages(), a.Graph, f))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(formatter.TablePlain), "Output format: plain, markdown or csv")

	return cmd
}
