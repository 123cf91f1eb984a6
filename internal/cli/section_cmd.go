package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
)

func newSectionCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "section",
		Aliases: []string{"title"},
		Short:   "Inspect titles and their admitted chapters",
	}
	cmd.AddCommand(newSectionListCmd(a), newSectionShowCmd(a))
	return cmd
}

func newSectionListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := a.Sections.List(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSections(sections))
			return nil
		},
	}
}

func newSectionShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show TITLE",
		Short: "Show the chapters admitted for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := a.Sections.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSection(section))
			return nil
		},
	}
}
