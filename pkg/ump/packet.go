// Package ump models Universal MIDI Packet data messages: the fixed-size
// 64-bit packets that carry 7-bit system-exclusive payloads in segments
// of up to six bytes, tagged with a framing role (complete, start,
// continue, end) and a 4-bit group routing tag.
package ump

import (
	"encoding/binary"
	"fmt"
)

const (
	// MaxDataBytes is the maximum number of payload bytes per data packet.
	MaxDataBytes = 6

	// MaxGroup is the highest valid group routing tag.
	MaxGroup = 15

	// PacketWords is the size of a data packet in 32-bit words.
	PacketWords = 2

	// PacketBytes is the size of a data packet in bytes.
	PacketBytes = 8
)

// Packet is a single data (sysex7) packet: one segment of a
// system-exclusive payload on a given group.
type Packet struct {
	// Group is the routing tag (0-15), passed through unchanged.
	Group uint8

	// Kind is the framing role of this segment.
	Kind SegmentKind

	// Data holds the valid payload bytes, at most MaxDataBytes. Each byte
	// is 7-bit (high bit clear on the wire).
	Data []byte
}

// Validate checks the packet's fields against the format limits.
func (p Packet) Validate() error {
	if p.Group > MaxGroup {
		return ErrInvalidGroup
	}
	if !p.Kind.IsValid() {
		return ErrInvalidSegmentKind
	}
	if len(p.Data) > MaxDataBytes {
		return ErrDataTooLong
	}
	return nil
}

// Words encodes the packet into its two 32-bit words.
//
// Word 0 layout: mt(4) | group(4) | status(4) | numBytes(4) | byte0 | byte1.
// Word 1 layout: byte2 | byte3 | byte4 | byte5.
func (p Packet) Words() (w0, w1 uint32, err error) {
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}

	var data [MaxDataBytes]byte
	copy(data[:], p.Data)

	w0 = uint32(MessageTypeData)<<28 |
		uint32(p.Group&0x0F)<<24 |
		uint32(p.Kind&0x0F)<<20 |
		uint32(len(p.Data))<<16 |
		uint32(data[0])<<8 |
		uint32(data[1])
	w1 = uint32(data[2])<<24 |
		uint32(data[3])<<16 |
		uint32(data[4])<<8 |
		uint32(data[5])

	return w0, w1, nil
}

// FromWords decodes a data packet from its two 32-bit words.
// The byte-count nibble is validated to be in [0, MaxDataBytes].
func FromWords(w0, w1 uint32) (Packet, error) {
	if MessageType(w0>>28) != MessageTypeData {
		return Packet{}, ErrNotDataMessage
	}

	kind := SegmentKind(w0 >> 20 & 0x0F)
	if !kind.IsValid() {
		return Packet{}, ErrInvalidSegmentKind
	}

	count := int(w0 >> 16 & 0x0F)
	if count > MaxDataBytes {
		return Packet{}, ErrInvalidByteCount
	}

	raw := [MaxDataBytes]byte{
		byte(w0 >> 8), byte(w0),
		byte(w1 >> 24), byte(w1 >> 16), byte(w1 >> 8), byte(w1),
	}

	p := Packet{
		Group: uint8(w0 >> 24 & 0x0F),
		Kind:  kind,
		Data:  append([]byte(nil), raw[:count]...),
	}
	return p, nil
}

// Encode serializes the packet as PacketBytes big-endian bytes, the word
// order used by byte-stream transports.
func (p Packet) Encode() ([]byte, error) {
	buf := make([]byte, PacketBytes)
	if err := p.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo serializes the packet into buf, which must be at least
// PacketBytes long.
func (p Packet) EncodeTo(buf []byte) error {
	if len(buf) < PacketBytes {
		return ErrShortBuffer
	}
	w0, w1, err := p.Words()
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(buf[0:], w0)
	binary.BigEndian.PutUint32(buf[4:], w1)
	return nil
}

// Decode deserializes a data packet from the first PacketBytes of buf.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < PacketBytes {
		return Packet{}, ErrShortBuffer
	}
	w0 := binary.BigEndian.Uint32(buf[0:])
	w1 := binary.BigEndian.Uint32(buf[4:])
	return FromWords(w0, w1)
}

// String returns a compact description for logging.
func (p Packet) String() string {
	return fmt.Sprintf("ump{group=%d kind=%s bytes=%d}", p.Group, p.Kind, len(p.Data))
}

// Packetize splits a payload into data packets of at most MaxDataBytes
// each. Payloads that fit in one packet yield a single SegmentComplete
// packet; longer payloads yield SegmentStart, zero or more
// SegmentContinue, and a SegmentEnd.
func Packetize(group uint8, payload []byte) ([]Packet, error) {
	if group > MaxGroup {
		return nil, ErrInvalidGroup
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	if len(payload) <= MaxDataBytes {
		return []Packet{{
			Group: group,
			Kind:  SegmentComplete,
			Data:  append([]byte(nil), payload...),
		}}, nil
	}

	packets := make([]Packet, 0, (len(payload)+MaxDataBytes-1)/MaxDataBytes)
	for off := 0; off < len(payload); off += MaxDataBytes {
		end := off + MaxDataBytes
		if end > len(payload) {
			end = len(payload)
		}

		kind := SegmentContinue
		switch {
		case off == 0:
			kind = SegmentStart
		case end == len(payload):
			kind = SegmentEnd
		}

		packets = append(packets, Packet{
			Group: group,
			Kind:  kind,
			Data:  append([]byte(nil), payload[off:end]...),
		})
	}
	return packets, nil
}
