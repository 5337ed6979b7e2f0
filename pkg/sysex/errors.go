package sysex

import "errors"

// Reassembly anomalies. All are recoverable: the reassembler is left in a
// well-defined state ready for the next packet. The caller decides whether
// to surface them to an operator.
var (
	// ErrMalformedPacket is returned for packets with an out-of-range group,
	// segment kind, or byte count. The packet is dropped; the stream for its
	// group is untouched.
	ErrMalformedPacket = errors.New("sysex: malformed packet")

	// ErrFramingViolation is returned for a Continue or End with no assembly
	// in progress on its group. The packet is dropped; the buffer is
	// untouched.
	ErrFramingViolation = errors.New("sysex: continue/end without start")

	// ErrOverlappingStart is returned for a Start while an assembly is
	// already in progress on its group. The buffered bytes are discarded and
	// a fresh assembly begins with the new packet.
	ErrOverlappingStart = errors.New("sysex: start while assembly in progress")

	// ErrPayloadTooLarge is returned when an assembly would exceed the
	// configured payload limit. The stream is reset.
	ErrPayloadTooLarge = errors.New("sysex: payload exceeds size limit")
)
