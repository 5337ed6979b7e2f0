package ci

// Capability-inquiry envelope. A reconstructed system-exclusive payload
// belongs to this protocol when it opens with the universal non-realtime
// ID and the capability-inquiry sub-ID. This package only reads the
// envelope (sub-ID and MUIDs at fixed offsets); message interiors are the
// protocol engine's business.
//
// Payload layout (framing 0xF0/0xF7 stripped by the transport layer):
//
//	[0] 0x7E universal non-realtime
//	[1] device ID (0x7F = whole function block)
//	[2] 0x0D capability inquiry
//	[3] sub-ID #2 (message category)
//	[4] protocol version
//	[5..8]  source MUID, 4x 7-bit, LSB first
//	[9..12] destination MUID, 4x 7-bit, LSB first
const (
	universalNonRealtime = 0x7E
	subIDCapInquiry      = 0x0D
	envelopeMinBytes     = 13

	offsetSubID2     = 3
	offsetSourceMUID = 5
	offsetDestMUID   = 9
)

// WholeFunctionBlock is the device-ID byte addressing the whole port.
const WholeFunctionBlock = 0x7F

// ciVersion is the protocol version byte stamped on outgoing envelopes.
const ciVersion = 0x02

// Sub-ID #2 values for the message categories the session and its users
// route on.
const (
	SubIDDiscovery           = 0x70
	SubIDDiscoveryReply      = 0x71
	SubIDEndpointInquiry     = 0x72
	SubIDEndpointReply       = 0x73
	SubIDInvalidateMUID      = 0x7E
	SubIDNAK                 = 0x7F
	SubIDPropertyCapsInquiry = 0x30
	SubIDPropertyCapsReply   = 0x31
	SubIDGetPropertyData     = 0x34
	SubIDGetPropertyReply    = 0x35
	SubIDSetPropertyData     = 0x36
	SubIDSetPropertyReply    = 0x37
)

// AppendEnvelope appends a capability-inquiry envelope addressed from
// source to destination. Message-specific body bytes follow the envelope.
func AppendEnvelope(dst []byte, subID byte, source, destination uint32) []byte {
	var src4, dst4 [4]byte
	muidTo7Bit(source, src4[:])
	muidTo7Bit(destination, dst4[:])

	dst = append(dst, universalNonRealtime, WholeFunctionBlock, subIDCapInquiry, subID, ciVersion)
	dst = append(dst, src4[:]...)
	dst = append(dst, dst4[:]...)
	return dst
}

// IsCapabilityInquiry reports whether the payload carries a complete
// capability-inquiry envelope.
func IsCapabilityInquiry(payload []byte) bool {
	return len(payload) >= envelopeMinBytes &&
		payload[0] == universalNonRealtime &&
		payload[2] == subIDCapInquiry
}

// SubID2 extracts the message category from a capability-inquiry payload.
func SubID2(payload []byte) (byte, bool) {
	if !IsCapabilityInquiry(payload) {
		return 0, false
	}
	return payload[offsetSubID2], true
}

// SourceMUID extracts the sender's MUID from a capability-inquiry payload.
func SourceMUID(payload []byte) (uint32, bool) {
	if !IsCapabilityInquiry(payload) {
		return 0, false
	}
	return muidFrom7Bit(payload[offsetSourceMUID:]), true
}

// DestinationMUID extracts the addressee's MUID from a capability-inquiry
// payload.
func DestinationMUID(payload []byte) (uint32, bool) {
	if !IsCapabilityInquiry(payload) {
		return 0, false
	}
	return muidFrom7Bit(payload[offsetDestMUID:]), true
}
