package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/internal/presentation/graph"
	"github.com/aretw0/toolgate/internal/presentation/tui"
	"github.com/aretw0/toolgate/pkg/observability"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var actionsCmd = &cobra.Command{
	Use:   "actions [tool]",
	Short: "List the registered tools and their actions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, logger, observability.Hooks{})
		if err != nil {
			return err
		}
		defer a.Close()

		mermaid, _ := cmd.Flags().GetBool("mermaid")
		out := cmd.OutOrStdout()
		if !mermaid && term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(out, strings.TrimSpace(toolgate.Version))
		}

		found := false
		for _, ec := range a.server.Tools() {
			if len(args) == 1 && ec.Tool != args[0] {
				continue
			}
			found = true
			if mermaid {
				fmt.Fprintln(out, graph.GenerateMermaid(ec))
				continue
			}
			fmt.Fprintf(out, "%s %s\n%s\n\n", ec.Tool, ec.Flags(), ec.Summary())
		}
		if !found {
			return fmt.Errorf("unknown tool %q (available: %s)", args[0], strings.Join(a.server.ToolNames(), ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.Flags().Bool("mermaid", false, "Print a Mermaid flowchart per tool")
}
