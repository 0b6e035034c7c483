package spi

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Serial bridge frames. A microcontroller running the bridge firmware owns
// the SPI peripheral and relays exchanges over a USB CDC port:
//
//	host  -> 'C' mode speed[4, big-endian]     device -> 'K'
//	host  -> 'X' n data[n]                     device -> rx[n]
const (
	bridgeCmdConfig   = 'C'
	bridgeCmdExchange = 'X'
	bridgeAck         = 'K'

	// BridgeMaxFrame is the largest payload of one exchange frame.
	BridgeMaxFrame = 255

	DefaultBridgeBaud    = 115200
	DefaultBridgeTimeout = time.Second
)

// SerialBridgeTransport relays exchanges through a serial-attached SPI bridge.
type SerialBridgeTransport struct {
	port io.ReadWriteCloser
	path string
	cfg  Config
	log  *slog.Logger
}

// ParseSerialTarget splits "path[@baud]" into its parts.
func ParseSerialTarget(target string) (string, int, error) {
	path, baudStr, found := strings.Cut(target, "@")
	if path == "" {
		return "", 0, fmt.Errorf("spi: serial target %q has no port", target)
	}
	if !found {
		return path, DefaultBridgeBaud, nil
	}
	baud, err := strconv.Atoi(baudStr)
	if err != nil || baud <= 0 {
		return "", 0, fmt.Errorf("spi: invalid baud rate %q", baudStr)
	}
	return path, baud, nil
}

// OpenSerialBridge opens the bridge on target ("/dev/ttyACM0" or
// "/dev/ttyACM0@230400") and pushes cfg to it.
func OpenSerialBridge(target string, cfg Config, logger *slog.Logger) (*SerialBridgeTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	path, baud, err := ParseSerialTarget(target)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("spi: open serial bridge %s: %w", path, err)
	}
	if err := port.SetReadTimeout(DefaultBridgeTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("spi: serial bridge timeout: %w", err)
	}

	t, err := newSerialBridge(port, path, cfg, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	return t, nil
}

func newSerialBridge(port io.ReadWriteCloser, path string, cfg Config, logger *slog.Logger) (*SerialBridgeTransport, error) {
	t := &SerialBridgeTransport{port: port, path: path, cfg: cfg, log: orDiscard(logger)}

	frame := make([]byte, 6)
	frame[0] = bridgeCmdConfig
	frame[1] = byte(cfg.Mode)
	binary.BigEndian.PutUint32(frame[2:], uint32(cfg.SpeedHz))
	if _, err := port.Write(frame); err != nil {
		return nil, fmt.Errorf("spi: serial bridge config: %w", err)
	}

	ack := make([]byte, 1)
	if err := readFrame(port, ack); err != nil {
		return nil, fmt.Errorf("spi: serial bridge config: %w", err)
	}
	if ack[0] != bridgeAck {
		return nil, fmt.Errorf("spi: serial bridge rejected config (reply 0x%02X)", ack[0])
	}

	t.log.Info("serial bridge opened", "port", path, "mode", cfg.Mode, "speed_hz", cfg.SpeedHz)
	return t, nil
}

func (t *SerialBridgeTransport) Info() (TransportInfo, error) {
	return TransportInfo{
		Name:         "Serial SPI bridge",
		Path:         t.path,
		MaxFrequency: t.cfg.SpeedHz,
	}, nil
}

func (t *SerialBridgeTransport) Exchange(tx []byte) ([]byte, error) {
	if t.port == nil {
		return nil, ErrClosed
	}
	if _, err := ValidateExchange(tx); err != nil {
		return nil, err
	}
	if len(tx) > BridgeMaxFrame {
		return nil, fmt.Errorf("spi: serial bridge frame of %d bytes exceeds %d", len(tx), BridgeMaxFrame)
	}

	frame := make([]byte, 0, 2+len(tx))
	frame = append(frame, bridgeCmdExchange, byte(len(tx)))
	frame = append(frame, tx...)
	if _, err := t.port.Write(frame); err != nil {
		t.log.Error("serial bridge write failed", "port", t.path, "error", err)
		return nil, fmt.Errorf("spi: serial bridge write: %w", err)
	}

	rx := make([]byte, len(tx))
	if err := readFrame(t.port, rx); err != nil {
		t.log.Error("serial bridge read failed", "port", t.path, "error", err)
		return nil, fmt.Errorf("spi: serial bridge read: %w", err)
	}
	return rx, nil
}

func (t *SerialBridgeTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.log.Info("serial bridge closed", "port", t.path)
	return err
}

// readFrame fills buf. A zero-length read means the port timed out.
func readFrame(r io.Reader, buf []byte) error {
	for got := 0; got < len(buf); {
		n, err := r.Read(buf[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: timed out after %d of %d bytes", ErrShortResponse, got, len(buf))
		}
		got += n
	}
	return nil
}
