package ump

// MessageType is the 4-bit message-type nibble carried in bits 28-31 of
// the first word of every packet.
type MessageType uint8

// Message types relevant to this stack. The full range 0x0-0xF exists on
// the wire; only MessageTypeData (7-bit system exclusive) is processed,
// the rest are sized and skipped.
const (
	MessageTypeUtility MessageType = 0x0
	MessageTypeSystem  MessageType = 0x1
	MessageTypeMIDI1   MessageType = 0x2
	MessageTypeData    MessageType = 0x3
	MessageTypeMIDI2   MessageType = 0x4
	MessageTypeExtData MessageType = 0x5
)

// wordCounts maps each message-type nibble to its packet size in 32-bit
// words, per the UMP format tables.
var wordCounts = [16]int{1, 1, 1, 2, 2, 4, 1, 1, 2, 2, 2, 3, 3, 4, 4, 4}

// WordCount returns the number of 32-bit words occupied by a packet of
// this message type.
func (t MessageType) WordCount() int {
	return wordCounts[t&0x0F]
}

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeUtility:
		return "Utility"
	case MessageTypeSystem:
		return "System"
	case MessageTypeMIDI1:
		return "MIDI1"
	case MessageTypeData:
		return "Data"
	case MessageTypeMIDI2:
		return "MIDI2"
	case MessageTypeExtData:
		return "ExtData"
	default:
		return "Reserved"
	}
}

// SegmentKind is the framing role of a data packet within a fragmented
// system-exclusive payload. It occupies the status nibble (bits 20-23 of
// the first word).
type SegmentKind uint8

const (
	// SegmentComplete carries an entire payload in a single packet.
	SegmentComplete SegmentKind = 0x0

	// SegmentStart opens a fragmented payload.
	SegmentStart SegmentKind = 0x1

	// SegmentContinue extends a payload opened by SegmentStart.
	SegmentContinue SegmentKind = 0x2

	// SegmentEnd closes a fragmented payload.
	SegmentEnd SegmentKind = 0x3
)

// IsValid reports whether the segment kind is one of the four defined
// framing roles.
func (k SegmentKind) IsValid() bool {
	return k <= SegmentEnd
}

// String returns a human-readable name for the segment kind.
func (k SegmentKind) String() string {
	switch k {
	case SegmentComplete:
		return "Complete"
	case SegmentStart:
		return "Start"
	case SegmentContinue:
		return "Continue"
	case SegmentEnd:
		return "End"
	default:
		return "Invalid"
	}
}
