// Package sysex reconstructs system-exclusive byte payloads from sequences
// of UMP data packets. It has no knowledge of what the payload means; it
// only concatenates segment content bytes in transport order.
package sysex

import (
	"sync"

	"github.com/pion/logging"

	"github.com/umpkit/midici/pkg/ump"
)

// DefaultMaxPayloadBytes caps a single assembled payload. Streams that
// grow past the limit are reset rather than consuming unbounded memory.
const DefaultMaxPayloadBytes = 4096

// Stats counts reassembly outcomes since construction.
type Stats struct {
	// Assembled is the number of complete payloads produced.
	Assembled uint64

	// FramingViolations counts Continue/End packets seen with no assembly
	// in progress.
	FramingViolations uint64

	// OverlappingStarts counts Start packets that displaced an assembly
	// already in progress.
	OverlappingStarts uint64

	// Malformed counts packets rejected before touching stream state.
	Malformed uint64
}

// stream is the reassembly state for one group.
// inProgress is true only strictly between a Start and its matching End.
type stream struct {
	buf        []byte
	inProgress bool
}

// Config configures a Reassembler.
type Config struct {
	// MaxPayloadBytes caps the assembled payload size.
	// Defaults to DefaultMaxPayloadBytes if 0.
	MaxPayloadBytes int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Reassembler turns a live sequence of data packets into complete byte
// payloads. Reassembly state is keyed by group: fragmented payloads on
// different groups never share a buffer and may interleave freely.
//
// Packets for a given group must arrive in transport order; the
// reassembler performs no reordering or deduplication.
type Reassembler struct {
	streams    map[uint8]*stream
	maxPayload int
	stats      Stats
	log        logging.LeveledLogger

	mu sync.Mutex
}

// New creates a Reassembler with the given configuration.
func New(config Config) *Reassembler {
	maxPayload := config.MaxPayloadBytes
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}

	r := &Reassembler{
		streams:    make(map[uint8]*stream),
		maxPayload: maxPayload,
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("sysex-reassembler")
	}
	return r
}

// Feed consumes one packet for its group's stream. It returns a non-nil
// payload exactly when the packet completes an assembly (a Complete
// packet, or the End of a Start...End sequence).
//
// Anomalies are reported through the returned error and never leave the
// stream in an unusable state:
//   - ErrMalformedPacket: packet dropped, stream untouched.
//   - ErrFramingViolation: packet dropped, buffer untouched.
//   - ErrOverlappingStart: open buffer discarded; the displacing Start or
//     Complete packet is still processed (a Complete returns its payload
//     alongside the error).
//   - ErrPayloadTooLarge: stream reset.
func (r *Reassembler) Feed(p ump.Packet) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Validate() != nil {
		r.stats.Malformed++
		if r.log != nil {
			r.log.Warnf("dropping malformed packet %s", p)
		}
		return nil, ErrMalformedPacket
	}

	s := r.streams[p.Group]
	if s == nil {
		s = &stream{}
		r.streams[p.Group] = s
	}

	switch p.Kind {
	case ump.SegmentComplete:
		var err error
		if s.inProgress {
			r.stats.OverlappingStarts++
			if r.log != nil {
				r.log.Warnf("group %d: complete while assembling, discarding %d buffered bytes", p.Group, len(s.buf))
			}
			err = ErrOverlappingStart
		}
		s.buf = s.buf[:0]
		s.inProgress = false
		r.stats.Assembled++
		return append([]byte(nil), p.Data...), err

	case ump.SegmentStart:
		var err error
		if s.inProgress {
			r.stats.OverlappingStarts++
			if r.log != nil {
				r.log.Warnf("group %d: start while assembling, discarding %d buffered bytes", p.Group, len(s.buf))
			}
			err = ErrOverlappingStart
		}
		s.buf = append(s.buf[:0], p.Data...)
		s.inProgress = true
		return nil, err

	case ump.SegmentContinue:
		if !s.inProgress {
			return nil, r.violation(p)
		}
		if len(s.buf)+len(p.Data) > r.maxPayload {
			return nil, r.overflow(p, s)
		}
		s.buf = append(s.buf, p.Data...)
		return nil, nil

	case ump.SegmentEnd:
		if !s.inProgress {
			return nil, r.violation(p)
		}
		if len(s.buf)+len(p.Data) > r.maxPayload {
			return nil, r.overflow(p, s)
		}
		s.buf = append(s.buf, p.Data...)
		payload := append([]byte(nil), s.buf...)
		s.buf = s.buf[:0]
		s.inProgress = false
		r.stats.Assembled++
		return payload, nil
	}

	r.stats.Malformed++
	return nil, ErrMalformedPacket
}

func (r *Reassembler) violation(p ump.Packet) error {
	r.stats.FramingViolations++
	if r.log != nil {
		r.log.Warnf("group %d: %s with no assembly in progress", p.Group, p.Kind)
	}
	return ErrFramingViolation
}

func (r *Reassembler) overflow(p ump.Packet, s *stream) error {
	r.stats.Malformed++
	if r.log != nil {
		r.log.Warnf("group %d: assembly exceeds %d bytes, resetting stream", p.Group, r.maxPayload)
	}
	s.buf = s.buf[:0]
	s.inProgress = false
	return ErrPayloadTooLarge
}

// InProgress reports whether an assembly is open on the given group.
func (r *Reassembler) InProgress(group uint8) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.streams[group]
	return s != nil && s.inProgress
}

// Reset discards any partial assembly on the given group.
func (r *Reassembler) Reset(group uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.streams[group]; s != nil {
		s.buf = s.buf[:0]
		s.inProgress = false
	}
}

// ResetAll discards partial assemblies on every group.
func (r *Reassembler) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.streams {
		s.buf = s.buf[:0]
		s.inProgress = false
	}
}

// Stats returns a snapshot of the reassembly counters.
func (r *Reassembler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
