package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/spibutton/pkg/bitorder"
	"github.com/OpenTraceLab/spibutton/pkg/button"
	"github.com/OpenTraceLab/spibutton/pkg/spi"
)

// LevelTrace is used for per-scan buffer dumps.
const LevelTrace slog.Level = -8

// Controller owns the cells of one panel chain and the transmit buffer, and
// runs the encode/exchange/decode scan cycle. It is not safe for concurrent use.
type Controller struct {
	transport spi.Transport
	buttons   []button.Button
	xmitBuf   []byte
	scans     uint32

	timing   Timing
	log      *slog.Logger
	onEvents func([]button.Button)
}

// NewController builds a controller for count cells on transport t. Every
// cell starts Off with all flags clear and its id set to its position.
func NewController(t spi.Transport, count int, opts ...Option) (*Controller, error) {
	if t == nil {
		return nil, fmt.Errorf("scan: transport is nil")
	}
	if count <= 0 {
		return nil, fmt.Errorf("scan: button count must be positive, got %d", count)
	}

	c := &Controller{
		transport: t,
		buttons:   make([]button.Button, count),
		xmitBuf:   make([]byte, bitorder.BufferLen(count)),
		timing:    DefaultTiming(),
		log:       slog.New(slog.DiscardHandler),
	}
	for i := range c.buttons {
		c.buttons[i] = button.New(button.StateOff).WithID(i)
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.timing.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Len returns the number of cells in the chain.
func (c *Controller) Len() int {
	return len(c.buttons)
}

// Scans returns the number of completed scans.
func (c *Controller) Scans() uint32 {
	return c.scans
}

// Timing returns the active timing.
func (c *Controller) Timing() Timing {
	return c.timing
}

// SetButton replaces the cell at pos with b, binding b to that position.
// The cell is left unchanged when b carries an undefined state.
func (c *Controller) SetButton(pos int, b button.Button) error {
	if err := c.checkPos(pos); err != nil {
		return err
	}
	if !b.State.Valid() {
		return fmt.Errorf("%w: %s at position %d", ErrInvalidState, b.State, pos)
	}
	c.buttons[pos] = b.WithID(pos)
	return nil
}

// Button returns a snapshot of the cell at pos.
func (c *Controller) Button(pos int) (button.Button, error) {
	if err := c.checkPos(pos); err != nil {
		return button.Button{}, err
	}
	return c.buttons[pos], nil
}

// ClearHold resets the pressed counter of the cell at pos so hold events
// stop until the button is held past the threshold again.
func (c *Controller) ClearHold(pos int) error {
	if err := c.checkPos(pos); err != nil {
		return err
	}
	c.buttons[pos].ClearHold()
	return nil
}

func (c *Controller) checkPos(pos int) error {
	if pos < 0 || pos >= len(c.buttons) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, pos, len(c.buttons))
	}
	return nil
}

// Scan runs one scan cycle and returns the events it produced, in ascending
// position order. A transport failure is returned as *TransportError; in
// that case no input was decoded and the scan counter did not advance.
func (c *Controller) Scan() ([]button.Button, error) {
	c.encodeOutputs()

	ctx := context.Background()
	trace := c.log.Enabled(ctx, LevelTrace)

	tx := bitorder.ReverseBuffer(c.xmitBuf)
	if trace {
		c.log.Log(ctx, LevelTrace, "scan tx", "scan", c.scans, "lamps", fmt.Sprintf("%X", c.xmitBuf))
	}

	raw, err := c.transport.Exchange(tx)
	if err != nil {
		return nil, &TransportError{Scan: c.scans, Err: err}
	}
	if len(raw) != len(tx) {
		return nil, &TransportError{
			Scan: c.scans,
			Err:  fmt.Errorf("%w: got %d of %d bytes", spi.ErrShortResponse, len(raw), len(tx)),
		}
	}

	rx := bitorder.ReverseBuffer(raw)
	if trace {
		c.log.Log(ctx, LevelTrace, "scan rx", "scan", c.scans, "inputs", fmt.Sprintf("%X", rx))
	}

	events := c.decodeInputs(rx)
	c.scans++

	for _, ev := range events {
		c.log.Debug("button event", "id", ev.ID(), "state", ev.State, "hold", ev.IsHoldEvent())
	}
	if len(events) > 0 && c.onEvents != nil {
		c.onEvents(events)
	}
	return events, nil
}
