package main

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/umpkit/midici/pkg/ci"
	"github.com/umpkit/midici/pkg/discovery"
	"github.com/umpkit/midici/pkg/property"
)

// buildEnvelope starts a capability-inquiry message from this probe.
func buildEnvelope(subID byte, source, destination uint32) []byte {
	return ci.AppendEnvelope(nil, subID, source, destination)
}

// encode14 encodes a value as two 7-bit bytes, LSB first.
func encode14(n int) []byte {
	return []byte{byte(n) & 0x7F, byte(n>>7) & 0x7F}
}

// decode14 decodes two 7-bit bytes, LSB first.
func decode14(b []byte) int {
	return int(b[0]&0x7F) | int(b[1]&0x7F)<<7
}

// parseDiscoveryReply extracts device identity from a discovery reply
// body: manufacturer (3), family (2), model (2), revision (4), category
// bitmap (1), max sysex size (4x 7-bit, LSB first).
func parseDiscoveryReply(src uint32, payload []byte) ci.DeviceInfo {
	info := ci.DeviceInfo{MUID: src}

	body := payload[13:]
	if len(body) < 16 {
		return info
	}

	info.Manufacturer = fmt.Sprintf("%02X%02X%02X", body[0], body[1], body[2])
	info.Family = fmt.Sprintf("%02X%02X", body[4], body[3])
	info.Model = fmt.Sprintf("%02X%02X", body[6], body[5])
	info.Version = fmt.Sprintf("%d.%d.%d.%d", body[7], body[8], body[9], body[10])
	info.Features = body[11]
	info.MaxSysExSize = uint32(body[12]&0x7F) |
		uint32(body[13]&0x7F)<<7 |
		uint32(body[14]&0x7F)<<14 |
		uint32(body[15]&0x7F)<<21

	return info
}

// propertyHeader is the JSON header of a property-exchange message.
type propertyHeader struct {
	Resource string `json:"resource"`
	Status   int    `json:"status"`
}

// propertyReply is one decoded get-property reply chunk: request ID (1),
// header length (2), JSON header, total chunks (2), chunk number (2),
// data length (2), data. A multi-chunk reply spreads its body over
// several of these, one sysex message each.
type propertyReply struct {
	RequestID   byte
	Resource    property.Resource
	TotalChunks int
	ChunkNum    int
	Data        []byte
}

func parsePropertyReply(payload []byte) (propertyReply, error) {
	var r propertyReply

	body := payload[13:]
	if len(body) < 3 {
		return r, fmt.Errorf("property reply too short")
	}
	r.RequestID = body[0]

	hdrLen := decode14(body[1:3])
	rest := body[3:]
	if len(rest) < hdrLen+6 {
		return r, fmt.Errorf("property reply truncated")
	}

	var hdr propertyHeader
	if hdrLen > 0 {
		if err := json.Unmarshal(rest[:hdrLen], &hdr); err != nil {
			return r, fmt.Errorf("property reply header: %w", err)
		}
	}
	rest = rest[hdrLen:]

	r.Resource = property.FromName(hdr.Resource)
	r.TotalChunks = decode14(rest[0:2])
	r.ChunkNum = decode14(rest[2:4])
	if r.TotalChunks < 1 || r.ChunkNum < 1 || r.ChunkNum > r.TotalChunks {
		return r, fmt.Errorf("property reply chunk %d of %d out of range", r.ChunkNum, r.TotalChunks)
	}

	dataLen := decode14(rest[4:6])
	rest = rest[6:]
	if len(rest) < dataLen {
		return r, fmt.Errorf("property reply data truncated")
	}
	r.Data = rest[:dataLen]
	return r, nil
}

// chunkAssembler joins multi-chunk property replies. Chunks of one reply
// share a request ID, arrive in order, and only the first carries the
// resource name in its header.
type chunkAssembler struct {
	pending map[byte]*pendingReply
}

type pendingReply struct {
	resource property.Resource
	data     []byte
}

func newChunkAssembler() *chunkAssembler {
	return &chunkAssembler{pending: make(map[byte]*pendingReply)}
}

// add folds one chunk into the pending reply for its request ID and
// returns the resource and full body once the final chunk lands.
func (a *chunkAssembler) add(r propertyReply) (property.Resource, []byte, bool) {
	if r.TotalChunks <= 1 {
		delete(a.pending, r.RequestID)
		return r.Resource, r.Data, true
	}

	if r.ChunkNum == 1 {
		a.pending[r.RequestID] = &pendingReply{resource: r.Resource}
	}
	pr := a.pending[r.RequestID]
	if pr == nil {
		// Continuation with no first chunk seen; nothing to join it to.
		return property.Resource{}, nil, false
	}
	pr.data = append(pr.data, r.Data...)

	if r.ChunkNum < r.TotalChunks {
		return property.Resource{}, nil, false
	}
	delete(a.pending, r.RequestID)
	return pr.resource, pr.data, true
}

// localPort extracts the UDP port from a transport address, falling back
// to the advertised default.
func localPort(addr net.Addr) int {
	if udp, ok := addr.(*net.UDPAddr); ok && udp.Port != 0 {
		return udp.Port
	}
	return discovery.DefaultPort
}
