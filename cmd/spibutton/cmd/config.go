package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/spibutton/internal/config"
)

var (
	initFormat string
	initOutput string
	initForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage panel configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a panel configuration template",
	Long: `Write the default panel configuration as YAML or TOML. Without --output the
file goes to $XDG_CONFIG_HOME/spibutton/panel.<ext> (~/.config/spibutton when unset).`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a panel configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d buttons on %s (mode %d, %d Hz)\n",
			args[0], cfg.Buttons, cfg.Transport.Kind, cfg.Transport.Mode, cfg.Transport.SpeedHz)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configCheckCmd)

	configInitCmd.Flags().StringVar(&initFormat, "format", "yaml", "output format (yaml, toml)")
	configInitCmd.Flags().StringVarP(&initOutput, "output", "o", "", "destination file")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dest := initOutput
	if dest == "" {
		p, err := config.DefaultPath(initFormat)
		if err != nil {
			return err
		}
		dest = p
	}
	if err := config.WriteTemplate(dest, initFormat, initForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dest)
	return nil
}
