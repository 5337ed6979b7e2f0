package property

import (
	"sync"
	"time"
)

// DefaultRequestTimeout is how long a pending request may remain
// unanswered before a sweep removes it.
const DefaultRequestTimeout = 30 * time.Second

// requestKey identifies a pending request: one remote endpoint, one
// resource. At most one pending entry exists per key at any time.
type requestKey struct {
	muid     uint32
	resource string
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	// Timeout is the pending-request expiry age.
	// Defaults to DefaultRequestTimeout if 0.
	Timeout time.Duration

	// Clock returns the current time. time.Time values from time.Now carry
	// a monotonic reading, so ages are immune to wall-clock adjustments.
	// Defaults to time.Now if nil. Injectable for tests.
	Clock func() time.Time
}

// Tracker records outstanding get-property requests so duplicates are
// suppressed and stale requests self-heal. The per-key state machine is
// Absent -> Pending -> Absent; receipt, expiry, and explicit clearing all
// return a key to Absent. There is no resting "received" state here: the
// received value lives in the caller's Cache.
//
// Expiry is lazy: SweepExpired is called opportunistically before request
// decisions rather than from a background timer.
type Tracker struct {
	pending map[requestKey]time.Time
	timeout time.Duration
	clock   func() time.Time

	mu sync.Mutex
}

// NewTracker creates a Tracker with the given configuration.
func NewTracker(config TrackerConfig) *Tracker {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Tracker{
		pending: make(map[requestKey]time.Time),
		timeout: timeout,
		clock:   clock,
	}
}

// IsPending reports whether a request is outstanding for the endpoint and
// resource. Pure lookup, no side effects.
func (t *Tracker) IsPending(muid uint32, res Resource) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.pending[requestKey{muid: muid, resource: res.Name()}]
	return ok
}

// AddPending records an outstanding request stamped with the current time.
// It is idempotent: if the key is already pending the existing entry and
// its timestamp are kept, and AddPending returns false to distinguish
// "already asked" from "just asked".
//
// Call this immediately before or after actually transmitting the request
// so the timeout stays meaningful.
func (t *Tracker) AddPending(muid uint32, res Resource) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := requestKey{muid: muid, resource: res.Name()}
	if _, ok := t.pending[key]; ok {
		return false
	}
	t.pending[key] = t.clock()
	return true
}

// RemovePending deletes the entry if present and reports whether it was.
// Called on confirmed response receipt, or to force a fresh request cycle.
func (t *Tracker) RemovePending(muid uint32, res Resource) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := requestKey{muid: muid, resource: res.Name()}
	if _, ok := t.pending[key]; !ok {
		return false
	}
	delete(t.pending, key)
	return true
}

// SweepExpired removes every entry older than the timeout and returns the
// number removed.
func (t *Tracker) SweepExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	removed := 0
	for key, issuedAt := range t.pending {
		if now.Sub(issuedAt) > t.timeout {
			delete(t.pending, key)
			removed++
		}
	}
	return removed
}

// ClearAllFor removes every pending entry for the endpoint and returns
// the number removed. Used when the endpoint is deemed disconnected.
func (t *Tracker) ClearAllFor(muid uint32) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key := range t.pending {
		if key.muid == muid {
			delete(t.pending, key)
			removed++
		}
	}
	return removed
}

// PendingCount returns the number of outstanding requests.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
