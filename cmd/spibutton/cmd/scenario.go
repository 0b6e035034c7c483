package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/spibutton/pkg/panel"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario FILE...",
	Short: "Run panel scripts against the simulated panel",
	Long: `Run one or more panel scripts against a simulated chain. Each script gets a
fresh panel configured from --config and the panel flags; the transport is
always the simulator.

Statements (one per line, # starts a comment):
  press N / release N           hold or let go of the button of cell N
  scan [K]                      run K exchanges (default 1), a consumed fault counts as one
  clear N                       restart the hold count of cell N
  set N STATE [toggle] [change] [hold]
  fail                          make the next exchange fail
  expect state N STATE
  expect lamp N on|off
  expect events [change|hold] N COUNT   events of cell N in the last scan statement
  expect scans N

Examples:
  spibutton scenario examples/scripts/toggle.panel examples/scripts/flash.panel
  spibutton scenario --buttons 8 --cycle examples/scripts/hold_cycle.panel`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
	addPanelFlags(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadPanelConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Transport.Kind = "sim"
	cfg.Transport.LatchPin = ""

	out := cmd.OutOrStdout()
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		script, err := panel.ReadScript(path, f)
		f.Close()
		if err != nil {
			return err
		}

		s, err := openSession(cfg)
		if err != nil {
			return err
		}
		runner := panel.NewRunner(s.controller, s.sim, logger)
		err = runner.Run(script)
		s.Close()
		if err != nil {
			fmt.Fprintf(out, "FAIL %s\n", path)
			return err
		}
		fmt.Fprintf(out, "ok   %s (%d statements, %d scans)\n", path, len(script.Statements), s.controller.Scans())
	}
	return nil
}
