package ci

import (
	"crypto/rand"
	"encoding/binary"
)

// MUID values. A MUID is a 28-bit identifier transmitted as four 7-bit
// bytes, so each byte of the native representation keeps its high bit
// clear.
const (
	// BroadcastMUID addresses every endpoint.
	BroadcastMUID uint32 = 0x7F7F7F7F

	// muidReservedFloor is the start of the reserved range ending at
	// BroadcastMUID.
	muidReservedFloor uint32 = 0x7F7F7F00
)

// NewMUID generates a random MUID outside the reserved range and never
// zero.
func NewMUID() (uint32, error) {
	var buf [4]byte
	for attempt := 0; attempt < 16; attempt++ {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		m := binary.LittleEndian.Uint32(buf[:]) & 0x7F7F7F7F
		if m != 0 && m < muidReservedFloor {
			return m, nil
		}
	}
	return 0, ErrMUIDExhausted
}

// muidFrom7Bit assembles a MUID from its four wire bytes (LSB first, each
// 7-bit-safe). The native representation keeps each byte below 0x80, so
// wire bytes map one-to-one onto the little-endian native bytes.
func muidFrom7Bit(b []byte) uint32 {
	return uint32(b[0]&0x7F) |
		uint32(b[1]&0x7F)<<8 |
		uint32(b[2]&0x7F)<<16 |
		uint32(b[3]&0x7F)<<24
}

// muidTo7Bit splits a MUID into its four wire bytes.
func muidTo7Bit(m uint32, dst []byte) {
	dst[0] = byte(m) & 0x7F
	dst[1] = byte(m>>8) & 0x7F
	dst[2] = byte(m>>16) & 0x7F
	dst[3] = byte(m>>24) & 0x7F
}
