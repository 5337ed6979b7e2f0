// Package ci ties the transport-facing pieces of a capability-inquiry
// client together: one session owns a packet reassembler, a property
// request tracker, and a property cache under a single mutual-exclusion
// domain, and routes reconstructed payloads to an external protocol
// engine.
package ci

import (
	"sort"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/umpkit/midici/pkg/property"
	"github.com/umpkit/midici/pkg/sysex"
	"github.com/umpkit/midici/pkg/ump"
)

// Engine is the upstream protocol engine: it interprets reconstructed
// capability-inquiry payloads (discovery replies, property replies, and
// the rest of the message grammar this package deliberately does not
// parse). Implementations call back into the Session's On* methods as
// they decode.
type Engine interface {
	// ProcessInput handles one complete payload received on a group.
	ProcessInput(group uint8, payload []byte) error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Engine interprets inbound payloads. Required.
	Engine Engine

	// Transmit emits a get-property request once gated. Required for
	// property requests; a Session without one can still process inbound
	// traffic.
	Transmit property.Transmitter

	// MUID is this session's own identity. Generated if 0.
	MUID uint32

	// RequestTimeout overrides the pending-request expiry age.
	RequestTimeout time.Duration

	// MaxPayloadBytes caps reassembled payload sizes.
	MaxPayloadBytes int

	// DevicesChanged is invoked after the device table changes.
	// Called without the session lock held. Optional.
	DevicesChanged func()

	// PropertiesChanged is invoked after a property reply is reconciled
	// for the given endpoint. Called without the session lock held.
	// Optional.
	PropertiesChanged func(muid uint32)

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Session is the single logical owner the rest of the stack hangs off.
// All state mutation happens under one lock: inbound packets, request
// decisions, and reply reconciliation are serialized by construction, so
// callers on separate receive threads need no coordination of their own.
type Session struct {
	muid      uint32
	engine    Engine
	reasm     *sysex.Reassembler
	requestor *property.Requestor
	devices   map[uint32]DeviceInfo
	log       logging.LeveledLogger

	devicesChanged    func()
	propertiesChanged func(muid uint32)

	mu sync.Mutex
}

// NewSession creates a Session with the given configuration.
func NewSession(config SessionConfig) (*Session, error) {
	if config.Engine == nil {
		return nil, ErrNoEngine
	}

	muid := config.MUID
	if muid == 0 {
		m, err := NewMUID()
		if err != nil {
			return nil, err
		}
		muid = m
	}

	s := &Session{
		muid:   muid,
		engine: config.Engine,
		reasm: sysex.New(sysex.Config{
			MaxPayloadBytes: config.MaxPayloadBytes,
			LoggerFactory:   config.LoggerFactory,
		}),
		devices:           make(map[uint32]DeviceInfo),
		devicesChanged:    config.DevicesChanged,
		propertiesChanged: config.PropertiesChanged,
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("ci-session")
	}

	if config.Transmit != nil {
		q, err := property.NewRequestor(property.RequestorConfig{
			Transmit: config.Transmit,
			Tracker: property.NewTracker(property.TrackerConfig{
				Timeout: config.RequestTimeout,
				Clock:   config.Clock,
			}),
			LoggerFactory: config.LoggerFactory,
		})
		if err != nil {
			return nil, err
		}
		s.requestor = q
	}

	if s.log != nil {
		s.log.Infof("session initialized with MUID 0x%08X", muid)
	}
	return s, nil
}

// MUID returns the session's own identity.
func (s *Session) MUID() uint32 {
	return s.muid
}

// HandlePacket feeds one inbound transport packet into the reassembler.
// A payload completed by this packet is routed to the protocol engine if
// it carries a capability-inquiry envelope.
//
// Traffic originating from this session's own MUID is dropped here: on
// transports that echo outgoing data back to the sender, forwarding the
// echo would answer our own inquiries and storm the link.
//
// Reassembly anomalies are returned for the caller to surface; none of
// them require any recovery action beyond logging.
//
// The engine runs without the session lock held so it can call back into
// the On* methods while decoding.
func (s *Session) HandlePacket(p ump.Packet) error {
	s.mu.Lock()
	// A Complete packet that displaces an open assembly yields both a
	// payload and ErrOverlappingStart; the payload is still routed and
	// the anomaly reported afterwards.
	payload, err := s.reasm.Feed(p)
	if payload == nil {
		s.mu.Unlock()
		return err
	}

	if !IsCapabilityInquiry(payload) {
		if s.log != nil {
			s.log.Tracef("group %d: ignoring %d-byte non-CI payload", p.Group, len(payload))
		}
		s.mu.Unlock()
		return err
	}

	if src, _ := SourceMUID(payload); src == s.muid {
		if s.log != nil {
			s.log.Debugf("group %d: dropping echoed payload from own MUID 0x%08X", p.Group, src)
		}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if perr := s.engine.ProcessInput(p.Group, payload); perr != nil {
		return perr
	}
	return err
}

// OnDiscoveryReply records a newly discovered endpoint. Replies for a
// MUID already in the table are ignored so repeated discovery rounds do
// not reset established state. Returns true if the device was added.
func (s *Session) OnDiscoveryReply(info DeviceInfo) bool {
	s.mu.Lock()
	if _, exists := s.devices[info.MUID]; exists {
		s.mu.Unlock()
		if s.log != nil {
			s.log.Debugf("duplicate discovery reply from 0x%08X", info.MUID)
		}
		return false
	}
	info.EndpointReady = false
	s.devices[info.MUID] = info
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("discovered %s", info.DisplayName())
	}
	s.notifyDevicesChanged()
	return true
}

// OnEndpointReply marks the endpoint usable. Property requests for the
// MUID are allowed from this point on. Returns false for unknown MUIDs.
func (s *Session) OnEndpointReply(muid uint32) bool {
	s.mu.Lock()
	info, ok := s.devices[muid]
	changed := ok && !info.EndpointReady
	if changed {
		info.EndpointReady = true
		s.devices[muid] = info
	}
	s.mu.Unlock()

	if !ok {
		if s.log != nil {
			s.log.Warnf("endpoint reply from undiscovered MUID 0x%08X", muid)
		}
		return false
	}
	// Repeated endpoint replies leave the table untouched and must not
	// produce notifications.
	if changed {
		s.notifyDevicesChanged()
	}
	return true
}

// OnPropertyReply reconciles a received resource body: the pending entry
// is cleared and the body cached for RequestProperty to serve.
func (s *Session) OnPropertyReply(muid uint32, res property.Resource, body []byte) {
	s.mu.Lock()
	if s.requestor != nil {
		s.requestor.HandleReply(muid, res, body)
	}
	s.mu.Unlock()

	if s.propertiesChanged != nil {
		s.propertiesChanged(muid)
	}
}

// RequestProperty asks for a resource from a discovered endpoint,
// following the gated decision protocol: a cached non-empty body is
// returned immediately; an in-flight request reports not-yet-available;
// otherwise one request is transmitted. The endpoint must have been
// discovered and have answered an endpoint inquiry first.
func (s *Session) RequestProperty(muid uint32, res property.Resource) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requestor == nil {
		return nil, false, property.ErrNoTransmitter
	}
	info, ok := s.devices[muid]
	if !ok {
		return nil, false, ErrUnknownDevice
	}
	if !info.EndpointReady {
		return nil, false, ErrEndpointNotReady
	}
	return s.requestor.Get(muid, res)
}

// Device returns the table entry for a MUID.
func (s *Session) Device(muid uint32) (DeviceInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.devices[muid]
	return info, ok
}

// Devices returns a snapshot of the device table, ordered by MUID.
func (s *Session) Devices() []DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]DeviceInfo, 0, len(s.devices))
	for _, info := range s.devices {
		devices = append(devices, info)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].MUID < devices[j].MUID })
	return devices
}

// RemoveDevice drops an endpoint and everything tracked for it: table
// entry, pending property requests, and cached values.
func (s *Session) RemoveDevice(muid uint32) {
	s.mu.Lock()
	_, existed := s.devices[muid]
	delete(s.devices, muid)
	if s.requestor != nil {
		s.requestor.Forget(muid)
	}
	s.mu.Unlock()

	if existed {
		if s.log != nil {
			s.log.Infof("removed device 0x%08X", muid)
		}
		s.notifyDevicesChanged()
	}
}

// Reset drops every discovered device together with all pending requests,
// cached values, and partial reassemblies.
func (s *Session) Reset() {
	s.mu.Lock()
	muids := make([]uint32, 0, len(s.devices))
	for muid := range s.devices {
		muids = append(muids, muid)
	}
	for _, muid := range muids {
		delete(s.devices, muid)
		if s.requestor != nil {
			s.requestor.Forget(muid)
		}
	}
	s.reasm.ResetAll()
	s.mu.Unlock()

	if len(muids) > 0 {
		s.notifyDevicesChanged()
	}
}

// ReassemblyStats returns the reassembler's counters.
func (s *Session) ReassemblyStats() sysex.Stats {
	return s.reasm.Stats()
}

func (s *Session) notifyDevicesChanged() {
	if s.devicesChanged != nil {
		s.devicesChanged()
	}
}
