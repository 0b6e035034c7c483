// Package config loads panel configuration files.
//
// A panel file describes the link, the chain length, the timing and the
// initial setup of every cell. YAML and TOML are supported and picked by
// file extension.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/spibutton/pkg/button"
	"github.com/OpenTraceLab/spibutton/pkg/scan"
	"github.com/OpenTraceLab/spibutton/pkg/spi"
)

// Transport kinds accepted in a panel file. "sim" is the in-process panel
// simulator; the others are handed to spi.Open.
var TransportKinds = []string{"spidev", "ch341", "serial", "loopback", "sim"}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid panel configuration")

// Config is one panel file.
type Config struct {
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	// Buttons is the number of cells in the chain.
	Buttons int `yaml:"buttons" toml:"buttons"`
	// IntervalMS is the pause between scans in milliseconds.
	IntervalMS int          `yaml:"interval_ms" toml:"interval_ms"`
	Timing     TimingConfig `yaml:"timing" toml:"timing"`
	// Default is applied to every cell before Cells.
	Default ButtonConfig   `yaml:"default" toml:"default"`
	Cells   []ButtonConfig `yaml:"cells,omitempty" toml:"cells,omitempty"`
	// CycleOnHold enables the hold action: each hold steps the cell's state.
	CycleOnHold bool `yaml:"cycle_on_hold" toml:"cycle_on_hold"`
}

type TransportConfig struct {
	Kind     string `yaml:"kind" toml:"kind"`
	Device   string `yaml:"device,omitempty" toml:"device,omitempty"`
	SpeedHz  int    `yaml:"speed_hz" toml:"speed_hz"`
	Mode     int    `yaml:"mode" toml:"mode"`
	LatchPin string `yaml:"latch_pin,omitempty" toml:"latch_pin,omitempty"`
}

type TimingConfig struct {
	FlashSlowPeriod uint32 `yaml:"flash_slow_period" toml:"flash_slow_period"`
	FlashFastPeriod uint32 `yaml:"flash_fast_period" toml:"flash_fast_period"`
	HoldThreshold   uint32 `yaml:"hold_threshold" toml:"hold_threshold"`
}

// ButtonConfig is the setup of one cell. Position is ignored in Default.
type ButtonConfig struct {
	Position int    `yaml:"position" toml:"position"`
	State    string `yaml:"state" toml:"state"`
	Toggle   bool   `yaml:"toggle" toml:"toggle"`
	Change   bool   `yaml:"notify_change" toml:"notify_change"`
	Hold     bool   `yaml:"notify_hold" toml:"notify_hold"`
}

// Default returns the configuration of a 20-cell panel on spidev1.0 with
// every cell toggling and reporting changes and holds.
func Default() *Config {
	t := scan.DefaultTiming()
	return &Config{
		Transport: TransportConfig{
			Kind:    "spidev",
			Device:  "/dev/spidev1.0",
			SpeedHz: spi.DefaultSpeedHz,
			Mode:    0,
		},
		Buttons:    20,
		IntervalMS: 100,
		Timing: TimingConfig{
			FlashSlowPeriod: t.FlashSlowPeriod,
			FlashFastPeriod: t.FlashFastPeriod,
			HoldThreshold:   t.HoldThreshold,
		},
		Default: ButtonConfig{
			State:  button.StateOff.String(),
			Toggle: true,
			Change: true,
			Hold:   true,
		},
	}
}

// Validate checks every field and fails on the first problem.
func (c *Config) Validate() error {
	if !isKnownKind(c.Transport.Kind) {
		return fmt.Errorf("%w: unknown transport %q (want one of %s)", ErrInvalid, c.Transport.Kind, strings.Join(TransportKinds, ", "))
	}
	if c.Transport.Kind == "spidev" && c.Transport.Device == "" {
		return fmt.Errorf("%w: spidev transport needs a device", ErrInvalid)
	}
	if c.Transport.Mode < 0 || c.Transport.Mode > int(spi.Mode3) {
		return fmt.Errorf("%w: %w: %d (want 0-3)", ErrInvalid, spi.ErrInvalidMode, c.Transport.Mode)
	}
	sc := c.SPI()
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Buttons <= 0 {
		return fmt.Errorf("%w: buttons must be positive, got %d", ErrInvalid, c.Buttons)
	}
	if c.IntervalMS < 0 {
		return fmt.Errorf("%w: interval_ms must not be negative", ErrInvalid)
	}
	if err := c.ScanTiming().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := button.ParseState(c.Default.State); err != nil {
		return fmt.Errorf("%w: default: %w", ErrInvalid, err)
	}
	for i, cell := range c.Cells {
		if cell.Position < 0 || cell.Position >= c.Buttons {
			return fmt.Errorf("%w: cells[%d]: position %d out of range [0, %d)", ErrInvalid, i, cell.Position, c.Buttons)
		}
		if _, err := button.ParseState(cell.State); err != nil {
			return fmt.Errorf("%w: cells[%d]: %w", ErrInvalid, i, err)
		}
	}
	return nil
}

func isKnownKind(kind string) bool {
	for _, k := range TransportKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// SPI returns the bus parameters of the transport section.
func (c *Config) SPI() spi.Config {
	return spi.Config{
		Mode:        spi.Mode(c.Transport.Mode),
		SpeedHz:     c.Transport.SpeedHz,
		BitsPerWord: spi.WordSize,
	}
}

func (c *Config) ScanTiming() scan.Timing {
	return scan.Timing{
		FlashSlowPeriod: c.Timing.FlashSlowPeriod,
		FlashFastPeriod: c.Timing.FlashFastPeriod,
		HoldThreshold:   c.Timing.HoldThreshold,
	}
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Button builds the cell for a ButtonConfig. The state must already be valid.
func (b ButtonConfig) Button() button.Button {
	state, _ := button.ParseState(b.State)
	out := button.New(state)
	out.Toggle = b.Toggle
	out.NotifyChange = b.Change
	out.NotifyHold = b.Hold
	return out
}

// Apply writes the default setup to every cell of ctl, then the per-cell entries.
func (c *Config) Apply(ctl *scan.Controller) error {
	def := c.Default.Button()
	for i := 0; i < ctl.Len(); i++ {
		if err := ctl.SetButton(i, def); err != nil {
			return err
		}
	}
	for _, cell := range c.Cells {
		if err := ctl.SetButton(cell.Position, cell.Button()); err != nil {
			return err
		}
	}
	return nil
}

// Load reads and validates a panel file. Missing fields keep the values of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	switch Format(path) {
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("config: unsupported file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Format returns "yaml" or "toml" for a path, or "" when the extension is neither.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

// Marshal encodes c in the given format ("yaml" or "toml").
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "toml":
		return toml.Marshal(*c)
	default:
		return nil, fmt.Errorf("config: unsupported format %q", format)
	}
}

// DefaultDir returns $XDG_CONFIG_HOME/spibutton, falling back to ~/.config/spibutton.
func DefaultDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "spibutton"), nil
		}
		return "", errors.New("config: AppData not set")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spibutton"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Join(home, ".config", "spibutton"), nil
}

// DefaultPath returns the default panel file for the given format.
func DefaultPath(format string) (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	ext := "yaml"
	if strings.ToLower(format) == "toml" {
		ext = "toml"
	}
	return filepath.Join(dir, "panel."+ext), nil
}

// WriteTemplate writes the default configuration to path in the given
// format. An existing file is only replaced when force is set.
func WriteTemplate(path, format string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s exists; use --force to overwrite", path)
		}
	}
	data, err := Default().Marshal(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
