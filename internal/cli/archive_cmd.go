package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/chapters"
	"github.com/alexanderramin/scanflow/internal/cli/formatter"
)

func newArchiveCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and record finished chapters",
	}
	cmd.AddCommand(newArchiveListCmd(a), newArchiveRecordCmd(a))
	return cmd
}

func newArchiveListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [TITLE]",
		Short: "List archived chapters, optionally for one title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			entries, err := a.Archive.List(commandContext(cmd), title)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatArchive(entries, a.now()))
			return nil
		},
	}
}

func newArchiveRecordCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "record TITLE CHAPTERS",
		Short: "Archive chapters finished outside the pipeline",
		Long:  "Archive chapters finished outside the pipeline. CHAPTERS accepts the same list and range syntax as intake, e.g. 5 or 1-3,7.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			actor, err := a.requireActor(cmd)
			if err != nil {
				return err
			}
			if err := a.Gate.CanIntake(ctx, actor); err != nil {
				return err
			}

			parsed := chapters.Normalize(args[1])
			if len(parsed.IDs) == 0 {
				return fmt.Errorf("no chapter numbers in %q", args[1])
			}
			added, err := a.Archive.RecordChapters(ctx, args[0], parsed.IDs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(added) == 0 {
				fmt.Fprintln(out, formatter.Dim("Already archived."))
			} else {
				fmt.Fprintf(out, "%s %s: %s\n", formatter.StylePurple.Render("Archived"), formatter.Bold(args[0]), formatter.ChapterList(added))
			}
			if len(parsed.Rejected) > 0 {
				fmt.Fprintln(out, formatter.Dim("Ignored: "+strings.Join(parsed.Rejected, ", ")))
			}
			return nil
		},
	}
}
