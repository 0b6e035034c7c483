package spi

import (
	"context"
	"fmt"

	"github.com/google/gousb"
	"go.bug.st/serial"
	"periph.io/x/conn/v3/spi/spireg"
)

// InterfaceKind categorizes transport families.
type InterfaceKind string

const (
	InterfaceKindSpidev InterfaceKind = "spidev"
	InterfaceKindCH341  InterfaceKind = "ch341"
	InterfaceKindSerial InterfaceKind = "serial"
	InterfaceKindSim    InterfaceKind = "sim"
)

// InterfaceInfo describes a detected transport.
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Path        string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	if i.Path != "" {
		return fmt.Sprintf("%s %s", i.Kind, i.Path)
	}
	return fmt.Sprintf("%s (%04X:%04X)", i.Kind, i.VendorID, i.ProductID)
}

// DiscoverInterfaces enumerates spidev ports, CH341A bridges and serial
// ports. It always returns the simulator entry so the tool can be exercised
// without hardware. Enumeration failures of one family do not hide the others.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo

	if hostInit() == nil {
		for _, ref := range spireg.All() {
			results = append(results, InterfaceInfo{
				Kind:        InterfaceKindSpidev,
				Description: "spidev " + ref.Name,
				Path:        ref.Name,
			})
		}
	}

	usbInfos, usbErr := discoverCH341(ctx)
	results = append(results, usbInfos...)

	if ports, err := serial.GetPortsList(); err == nil {
		for _, p := range ports {
			results = append(results, InterfaceInfo{
				Kind: InterfaceKindSerial,
				Path: p,
			})
		}
	}

	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (no hardware)",
	})

	return results, usbErr
}

func discoverCH341(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if info, ok := classifyUSBDevice(desc); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, err
	}
	return results, nil
}

func classifyUSBDevice(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	for _, known := range knownBridgeVIDPIDs {
		if uint16(desc.Vendor) == known.VendorID && uint16(desc.Product) == known.ProductID {
			return InterfaceInfo{
				Kind:        InterfaceKindCH341,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
				Path:        fmt.Sprintf("bus %d addr %d", desc.Bus, desc.Address),
			}, true
		}
	}
	return InterfaceInfo{}, false
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownBridgeVIDPIDs = []knownUSBDevice{
	{VendorID: VendorIDWCH, ProductID: ProductIDCH341A, Description: "WCH CH341A USB-SPI bridge"},
}
