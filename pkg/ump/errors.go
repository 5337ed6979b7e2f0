package ump

import "errors"

// Packet codec errors.
var (
	// ErrNotDataMessage is returned when decoding words whose message-type
	// nibble is not MessageTypeData.
	ErrNotDataMessage = errors.New("ump: not a data (sysex7) message")

	// ErrInvalidGroup is returned for group values outside [0, 15].
	ErrInvalidGroup = errors.New("ump: group out of range")

	// ErrInvalidSegmentKind is returned for status nibbles outside the four
	// defined framing roles.
	ErrInvalidSegmentKind = errors.New("ump: invalid segment kind")

	// ErrInvalidByteCount is returned when the byte-count nibble is outside
	// [0, 6].
	ErrInvalidByteCount = errors.New("ump: byte count out of range")

	// ErrDataTooLong is returned when a packet carries more than MaxDataBytes
	// of payload.
	ErrDataTooLong = errors.New("ump: packet data exceeds 6 bytes")

	// ErrShortBuffer is returned when a buffer is too small to hold a packet.
	ErrShortBuffer = errors.New("ump: buffer too short")

	// ErrEmptyPayload is returned when packetizing a zero-length payload.
	ErrEmptyPayload = errors.New("ump: empty payload")
)
