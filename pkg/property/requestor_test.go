package property

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// recordingTransmitter counts sends and can be made to fail.
type recordingTransmitter struct {
	sent []string
	err  error
}

func (r *recordingTransmitter) transmit(muid uint32, res Resource) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, res.Name())
	return nil
}

func newTestRequestor(t *testing.T, tx *recordingTransmitter, clock *fakeClock) *Requestor {
	t.Helper()

	q, err := NewRequestor(RequestorConfig{
		Transmit: tx.transmit,
		Tracker:  NewTracker(TrackerConfig{Clock: clock.Now}),
	})
	if err != nil {
		t.Fatalf("NewRequestor failed: %v", err)
	}
	return q
}

func TestRequestorRequiresTransmitter(t *testing.T) {
	if _, err := NewRequestor(RequestorConfig{}); err != ErrNoTransmitter {
		t.Errorf("NewRequestor error = %v, want %v", err, ErrNoTransmitter)
	}
}

func TestGetSendsOnceWhileInFlight(t *testing.T) {
	tx := &recordingTransmitter{}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := newTestRequestor(t, tx, clock)

	// First ask transmits.
	body, ok, err := q.Get(5, AllCtrlList)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || body != nil {
		t.Errorf("Get = (%v, %v), want not yet available", body, ok)
	}
	if len(tx.sent) != 1 {
		t.Fatalf("sent %d requests, want 1", len(tx.sent))
	}

	// Repeated asks are suppressed while the request is in flight.
	for i := 0; i < 5; i++ {
		if _, ok, err := q.Get(5, AllCtrlList); ok || err != nil {
			t.Fatalf("Get %d = (ok=%v, err=%v)", i, ok, err)
		}
	}
	if len(tx.sent) != 1 {
		t.Errorf("sent %d requests, want 1 (duplicates suppressed)", len(tx.sent))
	}
}

func TestGetReturnsCachedValue(t *testing.T) {
	tx := &recordingTransmitter{}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := newTestRequestor(t, tx, clock)

	q.Get(5, AllCtrlList)
	q.HandleReply(5, AllCtrlList, []byte(`[{"title":"Volume"}]`))

	if q.Tracker().IsPending(5, AllCtrlList) {
		t.Error("still pending after reply")
	}

	body, ok, err := q.Get(5, AllCtrlList)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Get = !ok, want cached value")
	}
	if !bytes.Equal(body, []byte(`[{"title":"Volume"}]`)) {
		t.Errorf("body = %s", body)
	}
	if len(tx.sent) != 1 {
		t.Errorf("sent %d requests, want 1 (cache hit must not send)", len(tx.sent))
	}
}

func TestEmptyCacheEntryDoesNotSatisfyGet(t *testing.T) {
	tx := &recordingTransmitter{}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := newTestRequestor(t, tx, clock)

	// An empty reply clears the pending entry but is not a usable value,
	// so a later ask requests again.
	q.Get(5, ProgramList)
	q.HandleReply(5, ProgramList, nil)

	_, ok, err := q.Get(5, ProgramList)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("empty cache entry satisfied Get")
	}
	if len(tx.sent) != 2 {
		t.Errorf("sent %d requests, want 2", len(tx.sent))
	}
}

func TestTransmitFailureRollsBackPending(t *testing.T) {
	sendErr := errors.New("port closed")
	tx := &recordingTransmitter{err: sendErr}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := newTestRequestor(t, tx, clock)

	_, ok, err := q.Get(5, AllCtrlList)
	if ok {
		t.Error("Get = ok on transmit failure")
	}
	if !errors.Is(err, ErrTransmitFailed) {
		t.Errorf("error = %v, want ErrTransmitFailed", err)
	}
	if q.Tracker().IsPending(5, AllCtrlList) {
		t.Error("pending entry not rolled back")
	}

	// The next call may retry immediately.
	tx.err = nil
	if _, _, err := q.Get(5, AllCtrlList); err != nil {
		t.Fatalf("retry Get failed: %v", err)
	}
	if len(tx.sent) != 1 {
		t.Errorf("sent %d requests after retry, want 1", len(tx.sent))
	}
}

func TestExpiredRequestIsRetried(t *testing.T) {
	tx := &recordingTransmitter{}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := newTestRequestor(t, tx, clock)

	q.Get(5, AllCtrlList)
	clock.Advance(31 * time.Second)

	// The sweep inside Get removes the stale entry, so this ask transmits.
	if _, _, err := q.Get(5, AllCtrlList); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(tx.sent) != 2 {
		t.Errorf("sent %d requests, want 2 (stale request self-heals)", len(tx.sent))
	}
}

func TestForget(t *testing.T) {
	tx := &recordingTransmitter{}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := newTestRequestor(t, tx, clock)

	q.Get(1, AllCtrlList)
	q.HandleReply(1, ProgramList, []byte("x"))
	q.Get(2, AllCtrlList)

	q.Forget(1)

	if q.Tracker().IsPending(1, AllCtrlList) {
		t.Error("endpoint 1 still pending after Forget")
	}
	if _, ok := q.Cache().Load(1, ProgramList); ok {
		t.Error("endpoint 1 cache entry survived Forget")
	}
	if !q.Tracker().IsPending(2, AllCtrlList) {
		t.Error("endpoint 2 affected by Forget(1)")
	}
}
