package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/spibutton/pkg/button"
	"github.com/OpenTraceLab/spibutton/pkg/panel"
	"github.com/OpenTraceLab/spibutton/pkg/scan"
	"github.com/OpenTraceLab/spibutton/pkg/spi"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, scan.DefaultTiming(), cfg.ScanTiming())
	assert.Equal(t, spi.DefaultConfig(), cfg.SPI())
	assert.Equal(t, int64(100), cfg.Interval().Milliseconds())
}

func TestValidateFailsFast(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		is     error
	}{
		{"mode too high", func(c *Config) { c.Transport.Mode = 4 }, spi.ErrInvalidMode},
		{"mode negative", func(c *Config) { c.Transport.Mode = -1 }, spi.ErrInvalidMode},
		{"mode wraps", func(c *Config) { c.Transport.Mode = 256 }, spi.ErrInvalidMode},
		{"speed", func(c *Config) { c.Transport.SpeedHz = 0 }, spi.ErrInvalidSpeed},
		{"kind", func(c *Config) { c.Transport.Kind = "jtag" }, nil},
		{"spidev without device", func(c *Config) { c.Transport.Device = "" }, nil},
		{"buttons", func(c *Config) { c.Buttons = 0 }, nil},
		{"interval", func(c *Config) { c.IntervalMS = -5 }, nil},
		{"timing", func(c *Config) { c.Timing.HoldThreshold = 0 }, nil},
		{"default state", func(c *Config) { c.Default.State = "blink" }, nil},
		{"cell position", func(c *Config) { c.Cells = []ButtonConfig{{Position: 20, State: "on"}} }, nil},
		{"cell state", func(c *Config) { c.Cells = []ButtonConfig{{Position: 1, State: "dim"}} }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport:
  kind: sim
  speed_hz: 400000
  mode: 3
buttons: 12
cells:
  - position: 2
    state: flash1
    notify_hold: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Transport.Kind)
	assert.Equal(t, spi.Mode3, cfg.SPI().Mode)
	assert.Equal(t, 400000, cfg.SPI().SpeedHz)
	assert.Equal(t, 12, cfg.Buttons)
	assert.Equal(t, 100, cfg.IntervalMS)
	assert.Equal(t, scan.DefaultTiming(), cfg.ScanTiming())
	require.Len(t, cfg.Cells, 1)

	b := cfg.Cells[0].Button()
	assert.Equal(t, button.StateFlash1, b.State)
	assert.True(t, b.NotifyHold)
	assert.False(t, b.Toggle)
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yml")
	require.NoError(t, os.WriteFile(path, []byte("transport:\n  kind: loopback\n  mode: 7\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, spi.ErrInvalidMode)
}

func TestLoadUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestTemplateRoundTrip(t *testing.T) {
	for _, format := range []string{"yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "panel."+format)
			require.NoError(t, WriteTemplate(path, format, false))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, Default(), cfg)

			assert.Error(t, WriteTemplate(path, format, false), "existing file needs force")
			assert.NoError(t, WriteTemplate(path, format, true))
		})
	}
}

func TestApplyConfiguresController(t *testing.T) {
	cfg := Default()
	cfg.Buttons = 8
	cfg.Cells = []ButtonConfig{{Position: 3, State: "On", Change: true}}
	require.NoError(t, cfg.Validate())

	sim := panel.NewSimulator(cfg.Buttons)
	ctl, err := scan.NewController(sim.Transport(), cfg.Buttons, scan.WithTiming(cfg.ScanTiming()))
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(ctl))

	b0, err := ctl.Button(0)
	require.NoError(t, err)
	assert.Equal(t, button.StateOff, b0.State)
	assert.True(t, b0.Toggle && b0.NotifyChange && b0.NotifyHold)

	b3, err := ctl.Button(3)
	require.NoError(t, err)
	assert.Equal(t, button.StateOn, b3.State)
	assert.Equal(t, 3, b3.ID())
	assert.False(t, b3.Toggle)

	_, err = ctl.Scan()
	require.NoError(t, err)
	assert.True(t, sim.Lamp(3))
	assert.False(t, sim.Lamp(0))
}

func TestDefaultPathHonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	p, err := DefaultPath("yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spibutton", "panel.yaml"), p)

	p, err = DefaultPath("toml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spibutton", "panel.toml"), p)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "yaml", Format("a/panel.YML"))
	assert.Equal(t, "yaml", Format("panel.yaml"))
	assert.Equal(t, "toml", Format("panel.toml"))
	assert.Equal(t, "", Format("panel"))
}
