package spi

import (
	"fmt"
	"log/slog"
)

// Open validates cfg and opens a hardware transport of the given kind.
// target is the spidev path for "spidev", the serial port (optionally
// "@baud") for "serial", and ignored for "ch341". "loopback" returns a
// SimTransport that echoes every exchange; "sim" returns one that answers
// like a chain with every button released.
func Open(kind, target string, cfg Config, logger *slog.Logger) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch InterfaceKind(kind) {
	case InterfaceKindSpidev:
		if target == "" {
			return nil, fmt.Errorf("spi: spidev transport needs a device path")
		}
		t, err := OpenSpidev(target, cfg, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case InterfaceKindCH341:
		t, err := OpenCH341(cfg, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case InterfaceKindSerial:
		t, err := OpenSerialBridge(target, cfg, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "loopback":
		sim := NewSimTransport(TransportInfo{Name: "Loopback"})
		sim.Config = cfg
		return sim, nil
	case InterfaceKindSim:
		sim := NewSimTransport(TransportInfo{Name: "Simulator"})
		sim.Config = cfg
		sim.OnExchange = idleInputs
		return sim, nil
	default:
		return nil, fmt.Errorf("spi: unknown transport %q (supported: spidev, ch341, serial, loopback, sim)", kind)
	}
}

// idleInputs reads high on every bit, which is how pulled-up inputs look
// with nothing pressed.
func idleInputs(tx []byte) ([]byte, error) {
	rx := make([]byte, len(tx))
	for i := range rx {
		rx[i] = 0xFF
	}
	return rx, nil
}
