package property

import (
	"fmt"

	"github.com/pion/logging"
)

// Transmitter emits a get-property request to a remote endpoint. It is
// fire-and-forget from this layer's perspective: serialization and framing
// belong to the protocol engine behind it. A returned error means the
// request was not sent.
type Transmitter func(muid uint32, res Resource) error

// RequestorConfig configures a Requestor.
type RequestorConfig struct {
	// Transmit emits the actual request once gated. Required.
	Transmit Transmitter

	// Tracker gates duplicate requests. A new one is created if nil.
	Tracker *Tracker

	// Cache holds received values. A new one is created if nil.
	Cache *Cache

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Requestor ties the tracker and cache together behind the request
// decision protocol: cached values win, in-flight requests are never
// duplicated, and everything else triggers exactly one transmission.
type Requestor struct {
	tracker  *Tracker
	cache    *Cache
	transmit Transmitter
	log      logging.LeveledLogger
}

// NewRequestor creates a Requestor with the given configuration.
func NewRequestor(config RequestorConfig) (*Requestor, error) {
	if config.Transmit == nil {
		return nil, ErrNoTransmitter
	}

	tracker := config.Tracker
	if tracker == nil {
		tracker = NewTracker(TrackerConfig{})
	}
	cache := config.Cache
	if cache == nil {
		cache = NewCache()
	}

	q := &Requestor{
		tracker:  tracker,
		cache:    cache,
		transmit: config.Transmit,
	}
	if config.LoggerFactory != nil {
		q.log = config.LoggerFactory.NewLogger("property-requestor")
	}
	return q, nil
}

// Get answers "give me this resource for this endpoint":
//
//  1. Expired pending entries are swept.
//  2. A cached non-empty body is returned directly; no request is sent.
//  3. If a request is already in flight, Get reports not-yet-available
//     without sending another one.
//  4. Otherwise the request is recorded as pending and transmitted, and
//     Get reports not-yet-available.
//
// If transmission fails, the pending entry just added is rolled back so a
// later call can retry immediately instead of waiting out the timeout.
func (q *Requestor) Get(muid uint32, res Resource) (body []byte, ok bool, err error) {
	q.tracker.SweepExpired()

	if body, ok := q.cache.Load(muid, res); ok && len(body) > 0 {
		return body, true, nil
	}

	if !q.tracker.AddPending(muid, res) {
		if q.log != nil {
			q.log.Debugf("request for %s from %08x already in flight", res, muid)
		}
		return nil, false, nil
	}

	if q.log != nil {
		q.log.Infof("requesting %s from %08x", res, muid)
	}
	if err := q.transmit(muid, res); err != nil {
		q.tracker.RemovePending(muid, res)
		if q.log != nil {
			q.log.Warnf("transmit %s to %08x failed: %v", res, muid, err)
		}
		return nil, false, fmt.Errorf("%w: %v", ErrTransmitFailed, err)
	}
	return nil, false, nil
}

// HandleReply reconciles a received resource body: the pending entry is
// removed and the body cached. Unsolicited replies (no pending entry) are
// cached all the same; the device had a reason to send them.
func (q *Requestor) HandleReply(muid uint32, res Resource, body []byte) {
	if !q.tracker.RemovePending(muid, res) && q.log != nil {
		q.log.Debugf("reply for %s from %08x with no pending request", res, muid)
	}
	q.cache.Store(muid, res, body)
}

// Forget drops all pending requests and cached values for the endpoint.
func (q *Requestor) Forget(muid uint32) {
	q.tracker.ClearAllFor(muid)
	q.cache.ClearAllFor(muid)
}

// Tracker returns the underlying tracker.
func (q *Requestor) Tracker() *Tracker {
	return q.tracker
}

// Cache returns the underlying cache.
func (q *Requestor) Cache() *Cache {
	return q.cache
}
