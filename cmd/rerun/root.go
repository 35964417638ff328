package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/rerun/internal/config"
	"github.com/aretw0/rerun/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rerun",
	Short: "rerun hosts scripts that redraw their whole UI on every interaction",
	Long: `rerun runs a UI script top to bottom on every interaction and sends the browser
only the widgets that changed since the previous run.`,
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
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// setup loads the configuration and builds the logger shared by every command.
// Flags override the file and the environment.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewWithOptions(logging.Options{
		Writer: cmd.ErrOrStderr(),
		Level:  level,
		Format: format,
	})
	return cfg, logger, nil
}
