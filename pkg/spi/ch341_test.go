package spi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCH341 answers every stream packet with respond(payload), delivered in
// packets of at most CH341PacketSize bytes.
type fakeCH341 struct {
	writes  [][]byte
	pending []byte
	respond func(payload []byte) []byte
	failOn  byte
	closed  bool
}

func (f *fakeCH341) Write(p []byte) (int, error) {
	if f.failOn != 0 && p[0] == f.failOn {
		return 0, errors.New("stall")
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	if p[0] == CH341CmdSPIStream {
		payload := p[1:]
		if f.respond != nil {
			f.pending = append(f.pending, f.respond(payload)...)
		} else {
			f.pending = append(f.pending, payload...)
		}
	}
	return len(p), nil
}

func (f *fakeCH341) Read(p []byte) (int, error) {
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeCH341) Close() error {
	f.closed = true
	return nil
}

func TestCH341ProtocolEncoding(t *testing.T) {
	var proto CH341Protocol

	assert.Equal(t, []byte{0xAA, 0x61, 0x00}, proto.EncodeStreamConfig(100_000))
	assert.Equal(t, []byte{0xAA, 0x60, 0x00}, proto.EncodeStreamConfig(10_000))
	assert.Equal(t, []byte{0xAA, 0x63, 0x00}, proto.EncodeStreamConfig(800_000))

	assert.Equal(t, []byte{0xAB, 0xB6, 0x7F, 0x20}, proto.EncodeChipSelect(true))
	assert.Equal(t, []byte{0xAB, 0xB7, 0x7F, 0x20}, proto.EncodeChipSelect(false))

	pkt, err := proto.EncodeStream([]byte{0x01, 0xF0})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA8, 0x80, 0x0F}, pkt)

	_, err = proto.EncodeStream(make([]byte, CH341MaxStreamData+1))
	assert.Error(t, err)

	_, err = proto.DecodeStream([]byte{0x01}, 2)
	assert.ErrorIs(t, err, ErrShortResponse)
}

func TestCH341Chunks(t *testing.T) {
	var proto CH341Protocol
	chunks := proto.Chunks(make([]byte, 40))
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], CH341MaxStreamData)
	assert.Len(t, chunks[1], 40-CH341MaxStreamData)
}

func TestCH341TransportLoopback(t *testing.T) {
	link := &fakeCH341{}
	tr, err := newCH341Transport(link, DefaultConfig(), nil)
	require.NoError(t, err)

	tx := make([]byte, 40)
	for i := range tx {
		tx[i] = byte(i * 7)
	}
	rx, err := tr.Exchange(tx)
	require.NoError(t, err)
	assert.Equal(t, tx, rx)

	// config, deselect, select, two stream packets, deselect
	require.Len(t, link.writes, 6)
	assert.Equal(t, byte(CH341CmdI2CStream), link.writes[0][0])
	assert.Equal(t, []byte{0xAB, 0xB6, 0x7F, 0x20}, link.writes[2])
	assert.Equal(t, []byte{0xAB, 0xB7, 0x7F, 0x20}, link.writes[5])
}

func TestCH341TransportCorrectsBitOrder(t *testing.T) {
	link := &fakeCH341{respond: func(payload []byte) []byte {
		return bytes.Repeat([]byte{0x01}, len(payload))
	}}
	tr, err := newCH341Transport(link, DefaultConfig(), nil)
	require.NoError(t, err)

	rx, err := tr.Exchange([]byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x80}, rx)
}

func TestCH341TransportErrors(t *testing.T) {
	link := &fakeCH341{failOn: CH341CmdSPIStream}
	tr, err := newCH341Transport(link, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = tr.Exchange([]byte{0x01})
	assert.ErrorContains(t, err, "stall")
	// Chip select is released after a failed stream.
	assert.Equal(t, []byte{0xAB, 0xB7, 0x7F, 0x20}, link.writes[len(link.writes)-1])

	short := &fakeCH341{respond: func([]byte) []byte { return nil }}
	tr, err = newCH341Transport(short, DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = tr.Exchange([]byte{0x01})
	assert.ErrorIs(t, err, ErrShortResponse)

	require.NoError(t, tr.Close())
	assert.True(t, short.closed)
	_, err = tr.Exchange([]byte{0x01})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenCH341RejectsModes(t *testing.T) {
	for _, mode := range []Mode{Mode1, Mode2, Mode3} {
		_, err := OpenCH341(Config{Mode: mode, SpeedHz: 100_000}, nil)
		assert.ErrorIs(t, err, ErrInvalidMode, "mode %s", mode)
		assert.ErrorIs(t, err, ErrNotImplemented, "mode %s", mode)
	}
}
