package spi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestLatchTransportStrobes(t *testing.T) {
	pin := &gpiotest.Pin{N: "LATCH", L: gpio.Low}
	sim := NewSimTransport(TransportInfo{Name: "sim"})

	var levelDuringShift gpio.Level
	sim.OnExchange = func(tx []byte) ([]byte, error) {
		levelDuringShift = pin.Read()
		return tx, nil
	}

	lt, err := NewLatchTransport(sim, pin)
	require.NoError(t, err)
	assert.Equal(t, gpio.High, pin.Read(), "latch idles high")

	rx, err := lt.Exchange([]byte{0xA5})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5}, rx)
	assert.Equal(t, gpio.Low, levelDuringShift)
	assert.Equal(t, gpio.High, pin.Read())

	info, err := lt.Info()
	require.NoError(t, err)
	assert.Equal(t, "sim", info.Name)
}

func TestLatchTransportNilPin(t *testing.T) {
	_, err := NewLatchTransport(NewSimTransport(TransportInfo{}), nil)
	assert.Error(t, err)
}
