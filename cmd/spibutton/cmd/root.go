package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/OpenTraceLab/spibutton/internal/log"
)

var (
	// Global flags
	verbose    bool
	logLevel   string
	logFormat  string
	configPath string

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "spibutton",
	Short: "Shift-register button and lamp panel scanner",
	Long: `Drive a chain of shift-register button/lamp cells over SPI: light the lamps,
read the buttons and report presses, releases and holds.

Examples:
  spibutton run --transport spidev --device /dev/spidev1.0 --buttons 20
  spibutton run --transport sim --buttons 8 --max-scans 50 -v
  spibutton scenario --cycle examples/scripts/hold_cycle.panel
  spibutton interfaces
  spibutton config init --format toml`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if verbose && !cmd.Flags().Changed("log-level") {
			level = "debug"
		}
		l, err := applog.Setup(level, logFormat, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", applog.FormatAuto, "log format (auto, pretty, json, text)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "panel configuration file (.yaml, .yml or .toml)")
}
