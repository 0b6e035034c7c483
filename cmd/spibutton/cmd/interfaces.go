package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/spibutton/pkg/spi"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available SPI links",
	Long: `Scan the host for links the panel can be attached to: Linux spidev buses,
CH341A USB bridges and serial ports that may carry a bridge firmware. Use this to
pick the --transport and --device for the run command.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	infos, err := spi.DiscoverInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("discover interfaces: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No interfaces found.")
		return nil
	}

	fmt.Fprintln(out, "Detected SPI links:")
	for _, iface := range infos {
		if iface.VendorID != 0 || iface.ProductID != 0 {
			fmt.Fprintf(out, "  - %s [%s] (VID:PID %04X:%04X)\n", iface.Label(), iface.Kind, iface.VendorID, iface.ProductID)
			continue
		}
		fmt.Fprintf(out, "  - %s [%s]\n", iface.Label(), iface.Kind)
	}
	return nil
}
