package spi

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// LatchTransport strobes a lamp latch line around every exchange: the line is
// held low while the frame is shifted and raised afterwards, so the
// serial-to-parallel lamp registers only ever present complete frames.
type LatchTransport struct {
	Transport
	pin gpio.PinOut
}

// NewLatchTransport wraps t with the given latch output.
func NewLatchTransport(t Transport, pin gpio.PinOut) (*LatchTransport, error) {
	if pin == nil {
		return nil, fmt.Errorf("spi: latch pin is nil")
	}
	if err := pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("spi: latch %s: %w", pin.Name(), err)
	}
	return &LatchTransport{Transport: t, pin: pin}, nil
}

// OpenLatchPin looks up a GPIO by name (e.g. "GPIO49" or "P9_23").
func OpenLatchPin(name string) (gpio.PinOut, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("spi: host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("spi: unknown latch pin %q", name)
	}
	return p, nil
}

func (l *LatchTransport) Exchange(tx []byte) ([]byte, error) {
	if err := l.pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("spi: latch low: %w", err)
	}
	rx, err := l.Transport.Exchange(tx)
	if perr := l.pin.Out(gpio.High); perr != nil && err == nil {
		return nil, fmt.Errorf("spi: latch high: %w", perr)
	}
	return rx, err
}
