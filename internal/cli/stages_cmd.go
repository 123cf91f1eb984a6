package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

func newStagesCmd(a *App) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Show the stage graph in effect",
		Long: `Show the stage graph in effect. With --yaml the graph is printed in
the format accepted by stages.graph_file, ready to be edited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asYAML {
				data, err := stagegraph.Marshal(a.Graph)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			fmt.Fprint(out, formatStages(a.Graph))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the graph as YAML")

	return cmd
}

func formatStages(g *stagegraph.Graph) string {
	rows := make([][]string, 0, len(g.Stages()))
	for _, s := range g.Stages() {
		var flow []string
		if forks, ok := g.EntryForks(s); ok {
			flow = append(flow, "entry")
			for _, f := range forks[1:] {
				flow = append(flow, "forks "+string(f))
			}
		}
		if partner, ok := g.JoinPartner(s); ok {
			flow = append(flow, "joins "+string(partner))
		}
		next := "--"
		if g.IsTerminal(s) {
			next = formatter.StylePurple.Render("archive")
		} else if n, ok := g.SuccessorOf(s); ok {
			next = string(n)
		}
		rows = append(rows, []string{string(s), g.Label(s), next, strings.Join(flow, ", ")})
	}
	return formatter.RenderTable([]string{"STAGE", "LABEL", "NEXT", "FLOW"}, rows) + "\n"
}
