package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/spibutton/pkg/scan"
)

var (
	maxScans    int
	maxFailures int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan the panel until interrupted",
	Long: `Open the link, configure every cell and scan the chain at a fixed interval.
Events are logged as they occur. With --cycle, holding a button steps its lamp
through Off, On, Flash1 and Flash2.

A failed exchange is logged and retried on the next tick; the run stops after
--max-failures consecutive failures.

Examples:
  # 20 cells on the BeagleBone's second SPI bus
  spibutton run --transport spidev --device /dev/spidev1.0 --buttons 20 --cycle

  # CH341A USB bridge with a lamp latch
  spibutton run --transport ch341 --buttons 16 --latch-pin GPIO17

  # Panel file with trace logging of every frame
  spibutton run --config panel.yaml --log-level trace`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addPanelFlags(runCmd)
	runCmd.Flags().IntVar(&maxScans, "max-scans", 0, "stop after this many scans (0 runs until interrupted)")
	runCmd.Flags().IntVar(&maxFailures, "max-failures", 5, "consecutive transport failures before giving up")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadPanelConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cfg)
	if err != nil {
		return fmt.Errorf("open panel: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scanLoop(ctx, s.controller, cfg.Interval(), maxScans, maxFailures); err != nil {
		return err
	}
	logger.Info("stopped", "scans", s.controller.Scans())
	return nil
}

// scanLoop scans every interval until ctx is done, limit scans have
// completed (0 for no limit) or maxFail consecutive scans failed.
func scanLoop(ctx context.Context, ctl *scan.Controller, interval time.Duration, limit, maxFail int) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		_, err := ctl.Scan()
		switch {
		case err == nil:
			failures = 0
		case errors.As(err, new(*scan.TransportError)):
			failures++
			logger.Error("scan failed", "error", err, "consecutive", failures)
			if failures >= maxFail {
				return fmt.Errorf("giving up after %d consecutive failures: %w", failures, err)
			}
		default:
			return err
		}

		if limit > 0 && int(ctl.Scans()) >= limit {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
