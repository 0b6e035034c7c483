package spi

import (
	"errors"
	"fmt"
)

// TransportInfo describes capabilities reported by a transport implementation.
type TransportInfo struct {
	Name         string
	Vendor       string
	Model        string
	SerialNumber string
	Path         string
	MaxFrequency int // Hertz
	Notes        string
}

// Transport performs synchronous full-duplex byte exchanges with the chain.
//
// Exchange drives tx onto the link and returns the bytes sampled at the same
// time, so byte i of the response was clocked in while byte i of tx was
// clocked out. The response always has len(tx) bytes. Every transport
// presents the link MSB-first; bridges that shift LSB-first correct for it
// internally.
type Transport interface {
	Info() (TransportInfo, error)
	Exchange(tx []byte) (rx []byte, err error)
	Close() error
}

var (
	// ErrNotImplemented lets backends signal that a requested capability is
	// not available on this platform or device.
	ErrNotImplemented = errors.New("spi: not implemented")
	// ErrClosed is returned by Exchange after Close.
	ErrClosed = errors.New("spi: transport closed")
	// ErrShortResponse is returned when a device answers with fewer bytes
	// than were sent.
	ErrShortResponse = errors.New("spi: short response")
)

// ValidateExchange checks that an exchange buffer is usable and returns its length.
func ValidateExchange(tx []byte) (int, error) {
	if len(tx) == 0 {
		return 0, fmt.Errorf("spi: empty exchange buffer")
	}
	return len(tx), nil
}
