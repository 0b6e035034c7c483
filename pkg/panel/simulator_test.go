package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/spibutton/pkg/bitorder"
)

func TestSimulatorReleasedReadsHigh(t *testing.T) {
	sim := NewSimulator(12)
	rx, err := sim.Transport().Exchange(make([]byte, 2))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF}, rx)
	assert.Equal(t, 1, sim.Frames())
}

func TestSimulatorPressedBitsOnLink(t *testing.T) {
	sim := NewSimulator(12)
	require.NoError(t, sim.Press(0))
	require.NoError(t, sim.Press(10))

	rx, err := sim.Transport().Exchange(make([]byte, 2))
	require.NoError(t, err)

	// Cell 0 is the LSB of byte 0 in device order, the MSB on the link.
	assert.Equal(t, []byte{0x7F, 0xDF}, rx)

	host := bitorder.ReverseBuffer(rx)
	assert.False(t, bitorder.Bit(host, 0))
	assert.False(t, bitorder.Bit(host, 10))
	assert.True(t, bitorder.Bit(host, 11))
	assert.True(t, bitorder.Bit(host, 15), "padding past the chain reads released")

	require.NoError(t, sim.Release(0))
	assert.False(t, sim.Pressed(0))
	assert.True(t, sim.Pressed(10))
}

func TestSimulatorLatchesLamps(t *testing.T) {
	sim := NewSimulator(12)
	_, err := sim.Transport().Exchange([]byte{0x80, 0x10})
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		assert.Equal(t, i == 0 || i == 11, sim.Lamp(i), "lamp %d", i)
	}
	assert.False(t, sim.Lamp(-1))
	assert.False(t, sim.Lamp(12))
}

func TestSimulatorRejectsBadFrames(t *testing.T) {
	sim := NewSimulator(12)
	_, err := sim.Transport().Exchange([]byte{0x00})
	assert.Error(t, err)
	_, err = sim.Transport().Exchange([]byte{0x00, 0x00, 0x00})
	assert.Error(t, err)
	assert.Equal(t, 0, sim.Frames())

	assert.Error(t, sim.Press(12))
	assert.Error(t, sim.Release(-1))
}

func TestSimulatorInjectedFault(t *testing.T) {
	sim := NewSimulator(8)
	sim.Fail(ErrInjectedFault)

	_, err := sim.Transport().Exchange([]byte{0xFF})
	assert.ErrorIs(t, err, ErrInjectedFault)
	assert.False(t, sim.Lamp(0), "a failed frame must not latch")

	_, err = sim.Transport().Exchange([]byte{0xFF})
	assert.NoError(t, err)
	assert.True(t, sim.Lamp(0))
}
