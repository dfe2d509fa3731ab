package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/toolgate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of toolgate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "toolgate version %s\n", strings.TrimSpace(toolgate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
