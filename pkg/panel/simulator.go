// Package panel simulates the physical side of a shift-register button/lamp
// panel and provides a small script language for driving a scan controller
// against it.
package panel

import (
	"fmt"

	"github.com/OpenTraceLab/spibutton/pkg/bitorder"
	"github.com/OpenTraceLab/spibutton/pkg/spi"
)

// Simulator models a chain of cells as the hardware sees it. Lamps follow
// the last complete frame clocked in; button inputs are pulled high, so a
// released button and every padding bit past the last cell read as 1.
type Simulator struct {
	count   int
	pressed []bool
	lamps   []byte // device-order lamp bits, bit i = cell i

	fail   error
	frames int

	transport *spi.SimTransport
}

// NewSimulator creates a panel with count cells, all released and dark.
func NewSimulator(count int) *Simulator {
	if count < 0 {
		count = 0
	}
	sim := &Simulator{
		count:   count,
		pressed: make([]bool, count),
		lamps:   make([]byte, bitorder.BufferLen(count)),
	}
	sim.transport = spi.NewSimTransport(spi.TransportInfo{
		Name:  "Panel Simulator",
		Notes: fmt.Sprintf("%d cells", count),
	})
	sim.transport.OnExchange = sim.handleExchange
	return sim
}

// Transport returns the link the simulated panel is attached to.
func (s *Simulator) Transport() *spi.SimTransport {
	return s.transport
}

// Len returns the number of cells.
func (s *Simulator) Len() int {
	return s.count
}

// Frames returns the number of frames the panel has latched.
func (s *Simulator) Frames() int {
	return s.frames
}

// Press holds the button of cell pos down until Release.
func (s *Simulator) Press(pos int) error {
	if err := s.checkPos(pos); err != nil {
		return err
	}
	s.pressed[pos] = true
	return nil
}

// Release lets go of the button of cell pos.
func (s *Simulator) Release(pos int) error {
	if err := s.checkPos(pos); err != nil {
		return err
	}
	s.pressed[pos] = false
	return nil
}

// Pressed reports whether the button of cell pos is held down.
func (s *Simulator) Pressed(pos int) bool {
	return pos >= 0 && pos < s.count && s.pressed[pos]
}

// Lamp reports whether the lamp of cell pos is lit.
func (s *Simulator) Lamp(pos int) bool {
	if pos < 0 || pos >= s.count {
		return false
	}
	return bitorder.Bit(s.lamps, pos)
}

// Fail makes the next exchange return err without touching the panel.
func (s *Simulator) Fail(err error) {
	s.fail = err
}

func (s *Simulator) checkPos(pos int) error {
	if pos < 0 || pos >= s.count {
		return fmt.Errorf("panel: cell %d out of range [0, %d)", pos, s.count)
	}
	return nil
}

// handleExchange clocks one frame through the registers. The link carries
// each byte most significant bit first while the registers number their
// cells from the least significant bit, so the device sees every byte
// reversed.
func (s *Simulator) handleExchange(tx []byte) ([]byte, error) {
	if err := s.fail; err != nil {
		s.fail = nil
		return nil, err
	}
	if want := bitorder.BufferLen(s.count); len(tx) != want {
		return nil, fmt.Errorf("panel: frame of %d bytes, chain needs %d", len(tx), want)
	}

	// Parallel inputs are captured before the new frame shifts in.
	released := make([]bool, len(tx)*8)
	for i := range released {
		released[i] = i >= s.count || !s.pressed[i]
	}
	inputs := bitorder.Pack(released)

	copy(s.lamps, bitorder.ReverseBuffer(tx))
	s.frames++

	return bitorder.ReverseBuffer(inputs), nil
}
