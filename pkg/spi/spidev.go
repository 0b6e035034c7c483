package spi

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// hostInit loads the periph.io host drivers once per process.
var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// SpidevTransport drives a Linux spidev port through periph.io.
type SpidevTransport struct {
	port pspi.PortCloser
	conn pspi.Conn
	path string
	cfg  Config
	log  *slog.Logger
}

// OpenSpidev opens a spidev port (e.g. /dev/spidev1.0 or SPI1.0) and
// configures it once with cfg.
func OpenSpidev(path string, cfg Config, logger *slog.Logger) (*SpidevTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = orDiscard(logger)

	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("spi: host init: %w", err)
	}

	port, err := spireg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spi: open %s: %w", path, err)
	}

	freq := physic.Frequency(cfg.SpeedHz) * physic.Hertz
	conn, err := port.Connect(freq, periphMode(cfg.Mode), cfg.BitsPerWord)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spi: configure %s: %w", path, err)
	}

	logger.Info("spidev opened", "path", path, "mode", cfg.Mode, "speed_hz", cfg.SpeedHz)

	return &SpidevTransport{
		port: port,
		conn: conn,
		path: path,
		cfg:  cfg,
		log:  logger,
	}, nil
}

func periphMode(m Mode) pspi.Mode {
	switch m {
	case Mode1:
		return pspi.Mode1
	case Mode2:
		return pspi.Mode2
	case Mode3:
		return pspi.Mode3
	default:
		return pspi.Mode0
	}
}

func (t *SpidevTransport) Info() (TransportInfo, error) {
	return TransportInfo{
		Name:         "Linux spidev",
		Path:         t.path,
		MaxFrequency: t.cfg.SpeedHz,
	}, nil
}

func (t *SpidevTransport) Exchange(tx []byte) ([]byte, error) {
	if t.conn == nil {
		return nil, ErrClosed
	}
	if _, err := ValidateExchange(tx); err != nil {
		return nil, err
	}

	rx := make([]byte, len(tx))
	if err := t.conn.Tx(tx, rx); err != nil {
		t.log.Error("spidev transfer failed", "path", t.path, "error", err)
		return nil, fmt.Errorf("spi: transfer on %s: %w", t.path, err)
	}
	return rx, nil
}

func (t *SpidevTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.conn = nil
	t.log.Info("spidev closed", "path", t.path)
	return err
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
