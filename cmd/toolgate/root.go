package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/toolgate/internal/config"
	"github.com/aretw0/toolgate/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Toolgate serves grouped, guarded tools to AI agents",
	Long: `Toolgate exposes a few coarse tools, each routing to many actions, with
validation, admission control, mutation serialization and agent-oriented responses.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "toolgate.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Override the log format (text, json)")
}

// loadConfig reads the configuration named by the persistent flags and builds
// the logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New(level, logging.Format(cfg.Log.Format))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
