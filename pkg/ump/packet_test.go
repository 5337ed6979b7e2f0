package ump

import (
	"bytes"
	"testing"
)

func TestPacketWordsRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet Packet
	}{
		{
			name:   "Complete with 3 bytes",
			packet: Packet{Group: 0, Kind: SegmentComplete, Data: []byte{0x01, 0x02, 0x03}},
		},
		{
			name:   "Start with full 6 bytes",
			packet: Packet{Group: 5, Kind: SegmentStart, Data: []byte{0x7E, 0x7F, 0x0D, 0x70, 0x01, 0x10}},
		},
		{
			name:   "Continue with 1 byte",
			packet: Packet{Group: 15, Kind: SegmentContinue, Data: []byte{0x55}},
		},
		{
			name:   "End with no bytes",
			packet: Packet{Group: 9, Kind: SegmentEnd},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w0, w1, err := tc.packet.Words()
			if err != nil {
				t.Fatalf("Words failed: %v", err)
			}

			if mt := MessageType(w0 >> 28); mt != MessageTypeData {
				t.Errorf("message type = %v, want %v", mt, MessageTypeData)
			}

			got, err := FromWords(w0, w1)
			if err != nil {
				t.Fatalf("FromWords failed: %v", err)
			}
			if got.Group != tc.packet.Group {
				t.Errorf("group = %d, want %d", got.Group, tc.packet.Group)
			}
			if got.Kind != tc.packet.Kind {
				t.Errorf("kind = %v, want %v", got.Kind, tc.packet.Kind)
			}
			if !bytes.Equal(got.Data, tc.packet.Data) {
				t.Errorf("data = %v, want %v", got.Data, tc.packet.Data)
			}
		})
	}
}

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{Group: 3, Kind: SegmentStart, Data: []byte{0x10, 0x20, 0x30, 0x40}}

	buf, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(buf) != PacketBytes {
		t.Fatalf("encoded length = %d, want %d", len(buf), PacketBytes)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Group != p.Group || got.Kind != p.Kind || !bytes.Equal(got.Data, p.Data) {
		t.Errorf("decoded = %+v, want %+v", got, p)
	}
}

func TestFromWordsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		w0, w1  uint32
		wantErr error
	}{
		{
			name:    "Non-data message type",
			w0:      uint32(MessageTypeMIDI2) << 28,
			wantErr: ErrNotDataMessage,
		},
		{
			name:    "Invalid status nibble",
			w0:      uint32(MessageTypeData)<<28 | 0x7<<20,
			wantErr: ErrInvalidSegmentKind,
		},
		{
			name:    "Byte count out of range",
			w0:      uint32(MessageTypeData)<<28 | 0x0<<20 | 0x9<<16,
			wantErr: ErrInvalidByteCount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromWords(tc.w0, tc.w1)
			if err != tc.wantErr {
				t.Errorf("FromWords error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPacketValidate(t *testing.T) {
	tests := []struct {
		name    string
		packet  Packet
		wantErr error
	}{
		{name: "Valid", packet: Packet{Group: 0, Kind: SegmentComplete, Data: []byte{1}}},
		{name: "Group too large", packet: Packet{Group: 16}, wantErr: ErrInvalidGroup},
		{name: "Bad kind", packet: Packet{Kind: SegmentKind(9)}, wantErr: ErrInvalidSegmentKind},
		{
			name:    "Too much data",
			packet:  Packet{Data: []byte{1, 2, 3, 4, 5, 6, 7}},
			wantErr: ErrDataTooLong,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.packet.Validate(); err != tc.wantErr {
				t.Errorf("Validate = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPacketizeSingle(t *testing.T) {
	packets, err := Packetize(2, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("packet count = %d, want 1", len(packets))
	}
	if packets[0].Kind != SegmentComplete {
		t.Errorf("kind = %v, want %v", packets[0].Kind, SegmentComplete)
	}
	if !bytes.Equal(packets[0].Data, []byte{1, 2, 3}) {
		t.Errorf("data = %v, want [1 2 3]", packets[0].Data)
	}
}

func TestPacketizeFragmented(t *testing.T) {
	payload := make([]byte, 20) // 6+6+6+2
	for i := range payload {
		payload[i] = byte(i)
	}

	packets, err := Packetize(7, payload)
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) != 4 {
		t.Fatalf("packet count = %d, want 4", len(packets))
	}

	wantKinds := []SegmentKind{SegmentStart, SegmentContinue, SegmentContinue, SegmentEnd}
	var reassembled []byte
	for i, p := range packets {
		if p.Kind != wantKinds[i] {
			t.Errorf("packet %d kind = %v, want %v", i, p.Kind, wantKinds[i])
		}
		if p.Group != 7 {
			t.Errorf("packet %d group = %d, want 7", i, p.Group)
		}
		if len(p.Data) > MaxDataBytes {
			t.Errorf("packet %d carries %d bytes", i, len(p.Data))
		}
		reassembled = append(reassembled, p.Data...)
	}

	if !bytes.Equal(reassembled, payload) {
		t.Errorf("reassembled = %v, want %v", reassembled, payload)
	}
}

func TestPacketizeRejectsEmpty(t *testing.T) {
	if _, err := Packetize(0, nil); err != ErrEmptyPayload {
		t.Errorf("Packetize(nil) error = %v, want %v", err, ErrEmptyPayload)
	}
}

func TestMessageTypeWordCount(t *testing.T) {
	if got := MessageTypeData.WordCount(); got != 2 {
		t.Errorf("Data word count = %d, want 2", got)
	}
	if got := MessageTypeUtility.WordCount(); got != 1 {
		t.Errorf("Utility word count = %d, want 1", got)
	}
	if got := MessageTypeExtData.WordCount(); got != 4 {
		t.Errorf("ExtData word count = %d, want 4", got)
	}
}
