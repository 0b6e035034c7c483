package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const scripts = "../../../examples/scripts"

// resetFlags restores every flag to its default so one test's flags do not
// leak into the next Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// TestScenarioE2E runs the example scripts through the scenario command
func TestScenarioE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "toggle",
			args:        []string{"scenario", filepath.Join(scripts, "toggle.panel")},
			wantContain: []string{"ok", "toggle.panel", "12 scans"},
		},
		{
			name: "flash and link fault",
			args: []string{"scenario", filepath.Join(scripts, "flash.panel"), filepath.Join(scripts, "link_fault.panel")},
			wantContain: []string{
				"flash.panel (",
				"link_fault.panel (",
			},
		},
		{
			name:        "hold cycle",
			args:        []string{"scenario", "--cycle", "--buttons", "8", filepath.Join(scripts, "hold_cycle.panel")},
			wantContain: []string{"hold_cycle.panel", "45 scans"},
		},
		{
			name:        "hold cycle without action",
			args:        []string{"scenario", filepath.Join(scripts, "hold_cycle.panel")},
			wantErr:     true,
			wantContain: []string{"FAIL"},
		},
		{
			name:    "missing script",
			args:    []string{"scenario", "/nonexistent/script.panel"},
			wantErr: true,
		},
		{
			name:    "no arguments",
			args:    []string{"scenario"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", out)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, out)
				return
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, out)
				}
			}
		})
	}
}

// TestRunE2E scans a simulated panel for a fixed number of scans
func TestRunE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "sim panel",
			args:        []string{"run", "--transport", "sim", "--buttons", "8", "--max-scans", "5", "--interval", "1", "--log-format", "json"},
			wantContain: []string{`"msg":"panel ready"`, `"msg":"stopped"`, `"scans":5`},
		},
		{
			name: "loopback reads every button pressed",
			args: []string{"run", "--transport", "loopback", "--buttons", "4", "--max-scans", "1", "--interval", "1", "--log-format", "json"},
			wantContain: []string{
				`"msg":"button"`,
				`"id":3`,
				`"event":"change"`,
			},
		},
		{
			name:    "invalid mode flag",
			args:    []string{"run", "--transport", "loopback", "--mode", "7", "--max-scans", "1"},
			wantErr: true,
		},
		{
			name:    "invalid speed",
			args:    []string{"run", "--transport", "loopback", "--speed", "0", "--max-scans", "1"},
			wantErr: true,
		},
		{
			name:    "unknown transport",
			args:    []string{"run", "--transport", "jtag", "--max-scans", "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, logs, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nLogs: %s", logs)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nLogs: %s", err, logs)
				return
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(logs, want) {
					t.Errorf("Logs missing expected string: %q\nGot:\n%s", want, logs)
				}
			}
		})
	}
}

// TestConfigE2E writes a template, checks it and runs from a broken file
func TestConfigE2E(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "panel.toml")

	out, _, err := execute(t, "config", "init", "--format", "toml", "--output", tomlPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote "+tomlPath) {
		t.Errorf("unexpected output: %s", out)
	}

	if _, _, err := execute(t, "config", "init", "--format", "toml", "--output", tomlPath); err == nil {
		t.Error("expected error when the file exists without --force")
	}

	out, _, err = execute(t, "config", "check", tomlPath)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "20 buttons on spidev (mode 0, 800000 Hz)") {
		t.Errorf("unexpected output: %s", out)
	}

	badPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badPath, []byte("transport:\n  kind: loopback\n  mode: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err = execute(t, "run", "--config", badPath, "--max-scans", "1")
	if err == nil || !strings.Contains(err.Error(), "invalid mode") {
		t.Errorf("expected invalid mode error, got %v", err)
	}

	simPath := filepath.Join(dir, "sim.yaml")
	if err := os.WriteFile(simPath, []byte("transport:\n  kind: sim\nbuttons: 4\ninterval_ms: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, logs, err := execute(t, "run", "--config", simPath, "--max-scans", "3", "--log-format", "json")
	if err != nil {
		t.Fatalf("run from file: %v\nLogs: %s", err, logs)
	}
	if !strings.Contains(logs, `"buttons":4`) {
		t.Errorf("run did not use the file's button count:\n%s", logs)
	}
}
