package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/toolgate/internal/presentation/tui"
	"github.com/aretw0/toolgate/pkg/observability"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var callCmd = &cobra.Command{
	Use:   "call <tool> <action> [key=value...]",
	Short: "Call an action in-process and print the response",
	Long: `Runs one call through the full pipeline without starting a transport.
Values are parsed as JSON when possible ("limit=5", "tags=[\"a\"]"), otherwise kept as strings.
--json passes the whole argument object instead.`,
	Args: cobra.MinimumNArgs(2),
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

		tool := args[0]
		callArgs := map[string]any{}
		if raw, _ := cmd.Flags().GetString("json"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &callArgs); err != nil {
				return fmt.Errorf("invalid --json arguments: %w", err)
			}
		}
		for _, kv := range args[2:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("argument %q is not key=value", kv)
			}
			callArgs[key] = parseValue(value)
		}
		selector := registry.DefaultSelector
		for _, ec := range a.server.Tools() {
			if ec.Tool == tool {
				selector = ec.Selector
			}
		}
		callArgs[selector] = args[1]

		resp, err := a.server.Execute(cmd.Context(), tool, callArgs)
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		styled := !raw && term.IsTerminal(int(os.Stdout.Fd()))
		if err := tui.NewPrinter(cmd.OutOrStdout(), styled).Print(resp); err != nil {
			return err
		}
		if resp.IsError {
			return fmt.Errorf("call failed with %s", resp.ErrorKind())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().String("json", "", "Arguments as a JSON object")
	callCmd.Flags().Bool("raw", false, "Print raw segments even on a terminal")
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
