package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
)

func newChapterCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chapter TITLE CHAPTER",
		Short: "Show every task and event of one chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.Pipeline.Chapter(commandContext(cmd), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatChapter(view, a.Graph, a.now()))
			return nil
		},
	}
}
