package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/spibutton/internal/actions"
	"github.com/OpenTraceLab/spibutton/internal/config"
	"github.com/OpenTraceLab/spibutton/pkg/button"
	"github.com/OpenTraceLab/spibutton/pkg/panel"
	"github.com/OpenTraceLab/spibutton/pkg/scan"
	"github.com/OpenTraceLab/spibutton/pkg/spi"
)

var (
	transportKind string
	devicePath    string
	speedHz       int
	spiMode       string
	buttonCount   int
	intervalMS    int
	latchPin      string
	cycleOnHold   bool
)

func addPanelFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().StringVarP(&transportKind, "transport", "t", def.Transport.Kind,
		"link transport (spidev, ch341, serial, loopback, sim)")
	cmd.Flags().StringVarP(&devicePath, "device", "d", def.Transport.Device,
		"spidev path or serial port (port[@baud])")
	cmd.Flags().IntVar(&speedHz, "speed", def.Transport.SpeedHz, "SPI clock in Hz")
	cmd.Flags().StringVar(&spiMode, "mode", "0", "SPI mode (0-3)")
	cmd.Flags().IntVarP(&buttonCount, "buttons", "n", def.Buttons, "number of cells in the chain")
	cmd.Flags().IntVar(&intervalMS, "interval", def.IntervalMS, "milliseconds between scans")
	cmd.Flags().StringVar(&latchPin, "latch-pin", "", "GPIO strobed around every exchange (e.g. GPIO48)")
	cmd.Flags().BoolVar(&cycleOnHold, "cycle", false, "step a cell's state Off, On, Flash1, Flash2 on every hold")
}

// loadPanelConfig reads --config when given and applies every flag the
// user set explicitly on top of it.
func loadPanelConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport.Kind = transportKind
	}
	if flags.Changed("device") {
		cfg.Transport.Device = devicePath
	}
	if flags.Changed("speed") {
		cfg.Transport.SpeedHz = speedHz
	}
	if flags.Changed("mode") {
		m, err := spi.ParseMode(spiMode)
		if err != nil {
			return nil, err
		}
		cfg.Transport.Mode = int(m)
	}
	if flags.Changed("buttons") {
		cfg.Buttons = buttonCount
	}
	if flags.Changed("interval") {
		cfg.IntervalMS = intervalMS
	}
	if flags.Changed("latch-pin") {
		cfg.Transport.LatchPin = latchPin
	}
	if flags.Changed("cycle") {
		cfg.CycleOnHold = cycleOnHold
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is an opened panel: the link, the controller scanning it and,
// for the sim transport, the simulated hardware.
type session struct {
	cfg        *config.Config
	transport  spi.Transport
	controller *scan.Controller
	sim        *panel.Simulator
}

func openSession(cfg *config.Config) (*session, error) {
	s := &session{cfg: cfg}

	var t spi.Transport
	if cfg.Transport.Kind == "sim" {
		s.sim = panel.NewSimulator(cfg.Buttons)
		t = s.sim.Transport()
	} else {
		opened, err := spi.Open(cfg.Transport.Kind, cfg.Transport.Device, cfg.SPI(), logger)
		if err != nil {
			return nil, err
		}
		t = opened
	}

	if cfg.Transport.LatchPin != "" {
		pin, err := spi.OpenLatchPin(cfg.Transport.LatchPin)
		if err != nil {
			t.Close()
			return nil, err
		}
		latched, err := spi.NewLatchTransport(t, pin)
		if err != nil {
			t.Close()
			return nil, err
		}
		t = latched
	}
	s.transport = t

	opts := []scan.Option{
		scan.WithTiming(cfg.ScanTiming()),
		scan.WithLogger(logger),
		scan.OnEvents(func(events []button.Button) {
			actions.LogEvents(logger, events)
			if cfg.CycleOnHold {
				if err := actions.CycleOnHold(s.controller, events); err != nil {
					logger.Error("hold action failed", "error", err)
				}
			}
		}),
	}
	ctl, err := scan.NewController(t, cfg.Buttons, opts...)
	if err != nil {
		t.Close()
		return nil, err
	}
	if err := cfg.Apply(ctl); err != nil {
		t.Close()
		return nil, err
	}
	s.controller = ctl

	if info, err := t.Info(); err == nil {
		logger.Info("panel ready", "transport", info.Name, "path", info.Path,
			"buttons", cfg.Buttons, "mode", cfg.SPI().Mode, "speed_hz", cfg.Transport.SpeedHz)
	} else if !errors.Is(err, spi.ErrNotImplemented) {
		logger.Warn("transport info unavailable", "error", err)
	}
	return s, nil
}

func (s *session) Close() error {
	if err := s.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}
