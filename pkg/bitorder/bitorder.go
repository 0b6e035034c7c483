// Package bitorder concentrates the host/device bit-numbering mismatch of a
// shift-register chain in one place, together with the LSB-first addressing
// used for the packed lamp and button buffers.
//
// Bit i of a packed buffer lives in byte i/8 at bit i%8. The shift registers
// sample the link in the opposite order, so every byte handed to or received
// from the link passes through Reverse.
package bitorder

import "math/bits"

// Reverse swaps the order of the 8 bits of v (bit 0 <-> bit 7, bit 1 <-> bit 6, ...).
// Applying it twice yields v.
func Reverse(v byte) byte {
	return bits.Reverse8(v)
}

// ReverseBuffer returns a new buffer with every byte of buf reversed.
func ReverseBuffer(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = Reverse(b)
	}
	return out
}

// BufferLen returns the number of bytes needed to hold count bits.
func BufferLen(count int) int {
	return (count + 7) / 8
}

// Bit reports whether bit pos of the packed buffer is set.
func Bit(buf []byte, pos int) bool {
	return buf[pos/8]&(1<<(uint(pos)%8)) != 0
}

// SetBit sets or clears bit pos of the packed buffer.
func SetBit(buf []byte, pos int, on bool) {
	mask := byte(1 << (uint(pos) % 8))
	if on {
		buf[pos/8] |= mask
	} else {
		buf[pos/8] &^= mask
	}
}

// Pack converts a bool slice into an LSB-first packed buffer.
func Pack(values []bool) []byte {
	out := make([]byte, BufferLen(len(values)))
	for i, v := range values {
		if v {
			SetBit(out, i, true)
		}
	}
	return out
}
