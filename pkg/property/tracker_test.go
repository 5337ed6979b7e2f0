package property

import (
	"testing"
	"time"
)

// fakeClock is an adjustable clock for deterministic expiry tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	return NewTracker(TrackerConfig{Clock: clock.Now}), clock
}

func TestAddPendingIdempotent(t *testing.T) {
	tracker, _ := newTestTracker()

	if !tracker.AddPending(5, AllCtrlList) {
		t.Error("first AddPending = false, want true")
	}
	if tracker.AddPending(5, AllCtrlList) {
		t.Error("second AddPending = true, want false (duplicate suppressed)")
	}
	if !tracker.IsPending(5, AllCtrlList) {
		t.Error("IsPending = false, want true")
	}
	if got := tracker.PendingCount(); got != 1 {
		t.Errorf("pending count = %d, want 1", got)
	}
}

func TestExpiry(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.AddPending(1, ProgramList)

	// Still pending just before the timeout.
	clock.Advance(29 * time.Second)
	if removed := tracker.SweepExpired(); removed != 0 {
		t.Errorf("sweep at 29s removed %d, want 0", removed)
	}
	if !tracker.IsPending(1, ProgramList) {
		t.Error("entry expired early")
	}

	// Gone after the timeout.
	clock.Advance(2 * time.Second)
	if removed := tracker.SweepExpired(); removed != 1 {
		t.Errorf("sweep at 31s removed %d, want 1", removed)
	}
	if tracker.IsPending(1, ProgramList) {
		t.Error("entry still pending after expiry")
	}
}

func TestDuplicateAddKeepsOriginalTimestamp(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.AddPending(1, AllCtrlList)
	clock.Advance(20 * time.Second)
	tracker.AddPending(1, AllCtrlList) // no-op, timestamp unchanged

	clock.Advance(11 * time.Second) // 31s after the original insert
	if removed := tracker.SweepExpired(); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
}

func TestRemovePending(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.AddPending(1, AllCtrlList)
	if !tracker.RemovePending(1, AllCtrlList) {
		t.Error("RemovePending = false, want true")
	}
	if tracker.RemovePending(1, AllCtrlList) {
		t.Error("second RemovePending = true, want false (no-op)")
	}
	if tracker.IsPending(1, AllCtrlList) {
		t.Error("still pending after remove")
	}
}

func TestEndpointsAreIndependent(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.AddPending(1, AllCtrlList)
	tracker.AddPending(2, AllCtrlList)

	tracker.RemovePending(1, AllCtrlList)
	if tracker.IsPending(1, AllCtrlList) {
		t.Error("endpoint 1 still pending after remove")
	}
	if !tracker.IsPending(2, AllCtrlList) {
		t.Error("endpoint 2 affected by endpoint 1's removal")
	}
}

func TestClearAllFor(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.AddPending(1, AllCtrlList)
	tracker.AddPending(1, ProgramList)
	tracker.AddPending(2, AllCtrlList)

	if removed := tracker.ClearAllFor(1); removed != 2 {
		t.Errorf("ClearAllFor removed %d, want 2", removed)
	}
	if tracker.IsPending(1, AllCtrlList) || tracker.IsPending(1, ProgramList) {
		t.Error("endpoint 1 entries survived ClearAllFor")
	}
	if !tracker.IsPending(2, AllCtrlList) {
		t.Error("endpoint 2 entry removed by endpoint 1's clear")
	}
}

func TestCustomTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker := NewTracker(TrackerConfig{Timeout: 5 * time.Second, Clock: clock.Now})

	tracker.AddPending(1, Other("X-CustomRes"))
	clock.Advance(6 * time.Second)
	if removed := tracker.SweepExpired(); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
}
