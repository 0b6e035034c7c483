package spi

import (
	"fmt"

	"github.com/OpenTraceLab/spibutton/pkg/bitorder"
)

// CH341A command bytes
const (
	CH341CmdSPIStream = 0xA8
	CH341CmdI2CStream = 0xAA
	CH341CmdUIOStream = 0xAB
)

// Stream sub-commands
const (
	CH341I2CStmSet = 0x60 // bits [2:0] select the stream clock class
	CH341I2CStmEnd = 0x00
	CH341UIOStmOut = 0x80 // bits [5:0] drive D5..D0
	CH341UIOStmDir = 0x40 // bits [5:0] set D5..D0 as outputs
	CH341UIOStmEnd = 0x20
)

const (
	// CH341PacketSize is the bulk packet size of the bridge.
	CH341PacketSize = 32
	// CH341MaxStreamData is the payload carried by one SPI stream packet.
	CH341MaxStreamData = CH341PacketSize - 1

	ch341PinsIdle     = 0x37 // CS (D0) high, clock low
	ch341PinsSelected = 0x36 // CS (D0) low
	ch341PinsOutputs  = 0x3F
)

// CH341Protocol encodes and decodes CH341A bridge packets. The bridge shifts
// every byte LSB-first, so stream payloads are bit-reversed on the way in and
// on the way out to present an MSB-first link.
type CH341Protocol struct{}

// EncodeStreamConfig selects the stream clock class closest to hz without
// exceeding it.
func (CH341Protocol) EncodeStreamConfig(hz int) []byte {
	var class byte
	switch {
	case hz <= 20_000:
		class = 0
	case hz <= 100_000:
		class = 1
	case hz <= 400_000:
		class = 2
	default:
		class = 3
	}
	return []byte{CH341CmdI2CStream, CH341I2CStmSet | class, CH341I2CStmEnd}
}

// EncodeChipSelect drives the D0 chip select line.
func (CH341Protocol) EncodeChipSelect(selected bool) []byte {
	pins := byte(ch341PinsIdle)
	if selected {
		pins = ch341PinsSelected
	}
	return []byte{
		CH341CmdUIOStream,
		CH341UIOStmOut | pins,
		CH341UIOStmDir | ch341PinsOutputs,
		CH341UIOStmEnd,
	}
}

// EncodeStream builds one SPI stream packet. data must not exceed
// CH341MaxStreamData bytes.
func (CH341Protocol) EncodeStream(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > CH341MaxStreamData {
		return nil, fmt.Errorf("spi: ch341 stream payload of %d bytes (want 1-%d)", len(data), CH341MaxStreamData)
	}
	pkt := make([]byte, 1+len(data))
	pkt[0] = CH341CmdSPIStream
	for i, b := range data {
		pkt[1+i] = bitorder.Reverse(b)
	}
	return pkt, nil
}

// DecodeStream converts the bytes clocked in by a stream packet back to MSB-first order.
func (CH341Protocol) DecodeStream(resp []byte, want int) ([]byte, error) {
	if len(resp) < want {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrShortResponse, len(resp), want)
	}
	return bitorder.ReverseBuffer(resp[:want]), nil
}

// Chunks splits data into stream-sized payloads.
func (CH341Protocol) Chunks(data []byte) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := min(len(data), CH341MaxStreamData)
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
