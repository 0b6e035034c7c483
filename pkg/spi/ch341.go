package spi

import (
	"fmt"
	"log/slog"

	"github.com/google/gousb"
)

const (
	// CH341A USB identifiers
	VendorIDWCH     = 0x1A86
	ProductIDCH341A = 0x5512

	// Both bulk endpoints use number 2 (0x02 OUT, 0x82 IN).
	ch341Endpoint = 2
)

// bulkLink is the packet pipe between host and bridge.
type bulkLink interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// ch341USB holds the gousb handles for one bridge.
type ch341USB struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint
}

func openCH341USB(vid, pid uint16) (*ch341USB, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("USB error: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("device not found (VID:0x%04X PID:0x%04X)", vid, pid)
	}

	// Not fatal on platforms without kernel drivers to detach.
	_ = dev.SetAutoDetach(true)

	u := &ch341USB{ctx: ctx, dev: dev}
	if err := u.claim(); err != nil {
		u.Close()
		return nil, err
	}
	return u, nil
}

func (u *ch341USB) claim() error {
	cfg, err := u.dev.Config(1)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	u.cfg = cfg

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface 0: %w", err)
	}
	u.intf = intf

	if u.epOut, err = intf.OutEndpoint(ch341Endpoint); err != nil {
		return fmt.Errorf("failed to open OUT endpoint: %w", err)
	}
	if u.epIn, err = intf.InEndpoint(ch341Endpoint); err != nil {
		return fmt.Errorf("failed to open IN endpoint: %w", err)
	}
	return nil
}

func (u *ch341USB) Write(p []byte) (int, error) {
	n, err := u.epOut.Write(p)
	if err != nil {
		return 0, fmt.Errorf("USB write failed: %w", err)
	}
	return n, nil
}

func (u *ch341USB) Read(p []byte) (int, error) {
	n, err := u.epIn.Read(p)
	if err != nil {
		return 0, fmt.Errorf("USB read failed: %w", err)
	}
	return n, nil
}

func (u *ch341USB) Close() error {
	if u.intf != nil {
		u.intf.Close()
		u.intf = nil
	}
	if u.cfg != nil {
		u.cfg.Close()
		u.cfg = nil
	}
	if u.dev != nil {
		u.dev.Close()
		u.dev = nil
	}
	if u.ctx != nil {
		u.ctx.Close()
		u.ctx = nil
	}
	return nil
}

// CH341Transport drives the chain through a CH341A USB-to-SPI bridge.
type CH341Transport struct {
	link  bulkLink
	proto CH341Protocol
	cfg   Config
	log   *slog.Logger
}

// OpenCH341 opens the first CH341A bridge on the bus. The bridge only
// implements clock mode 0.
func OpenCH341(cfg Config, logger *slog.Logger) (*CH341Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode != Mode0 {
		return nil, fmt.Errorf("%w: %w: ch341 supports %s only, got %s", ErrNotImplemented, ErrInvalidMode, Mode0, cfg.Mode)
	}

	link, err := openCH341USB(VendorIDWCH, ProductIDCH341A)
	if err != nil {
		return nil, fmt.Errorf("spi: open ch341: %w", err)
	}

	t, err := newCH341Transport(link, cfg, logger)
	if err != nil {
		link.Close()
		return nil, err
	}
	return t, nil
}

func newCH341Transport(link bulkLink, cfg Config, logger *slog.Logger) (*CH341Transport, error) {
	t := &CH341Transport{link: link, cfg: cfg, log: orDiscard(logger)}

	if _, err := link.Write(t.proto.EncodeStreamConfig(cfg.SpeedHz)); err != nil {
		return nil, fmt.Errorf("spi: ch341 stream config: %w", err)
	}
	if _, err := link.Write(t.proto.EncodeChipSelect(false)); err != nil {
		return nil, fmt.Errorf("spi: ch341 pin setup: %w", err)
	}

	t.log.Info("ch341 bridge opened", "speed_hz", cfg.SpeedHz)
	return t, nil
}

func (t *CH341Transport) Info() (TransportInfo, error) {
	return TransportInfo{
		Name:         "CH341A USB-SPI bridge",
		Vendor:       "WCH",
		Model:        "CH341A",
		MaxFrequency: t.cfg.SpeedHz,
	}, nil
}

func (t *CH341Transport) Exchange(tx []byte) ([]byte, error) {
	if t.link == nil {
		return nil, ErrClosed
	}
	if _, err := ValidateExchange(tx); err != nil {
		return nil, err
	}

	if _, err := t.link.Write(t.proto.EncodeChipSelect(true)); err != nil {
		return nil, fmt.Errorf("spi: ch341 select: %w", err)
	}

	rx := make([]byte, 0, len(tx))
	for _, chunk := range t.proto.Chunks(tx) {
		data, err := t.streamChunk(chunk)
		if err != nil {
			_, _ = t.link.Write(t.proto.EncodeChipSelect(false))
			t.log.Error("ch341 stream failed", "error", err)
			return nil, err
		}
		rx = append(rx, data...)
	}

	if _, err := t.link.Write(t.proto.EncodeChipSelect(false)); err != nil {
		return nil, fmt.Errorf("spi: ch341 deselect: %w", err)
	}
	return rx, nil
}

func (t *CH341Transport) streamChunk(chunk []byte) ([]byte, error) {
	pkt, err := t.proto.EncodeStream(chunk)
	if err != nil {
		return nil, err
	}
	if _, err := t.link.Write(pkt); err != nil {
		return nil, fmt.Errorf("spi: ch341 stream: %w", err)
	}

	resp := make([]byte, 0, len(chunk))
	buf := make([]byte, CH341PacketSize)
	for len(resp) < len(chunk) {
		n, err := t.link.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("spi: ch341 read: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: ch341 returned an empty packet", ErrShortResponse)
		}
		resp = append(resp, buf[:n]...)
	}
	return t.proto.DecodeStream(resp, len(chunk))
}

func (t *CH341Transport) Close() error {
	if t.link == nil {
		return nil
	}
	err := t.link.Close()
	t.link = nil
	t.log.Info("ch341 bridge closed")
	return err
}
