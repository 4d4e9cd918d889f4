package call

import (
	"testing"
	"time"
)

func newRegistryCall(t *testing.T, r *Registry, number string, direction CallDirection) *CSCall {
	t.Helper()
	base := newCallBase(r.NextCallID(), TypeCS, number, direction, VideoStateVoice)
	c := NewCSCall(base, &mockConnection{}, nil, 0, 0, DialSceneNormal, NewConference(TypeCS, testLogger()))
	if err := r.AddOneCall(c); err != nil {
		t.Fatalf("AddOneCall: %v", err)
	}
	return c
}

func TestRegistryUniqueIDs(t *testing.T) {
	r := NewRegistry(testLogger())

	// Ids are handed out monotonically.
	a := r.NextCallID()
	b := r.NextCallID()
	if a == b {
		t.Fatalf("expected distinct ids, got %d twice", a)
	}

	base := newCallBase(a, TypeCS, "100", DirectionIn, VideoStateVoice)
	c1 := NewCSCall(base, &mockConnection{}, nil, 0, 1, DialSceneNormal, nil)
	if err := r.AddOneCall(c1); err != nil {
		t.Fatalf("AddOneCall: %v", err)
	}

	// A second call with the same id is refused.
	dup := NewCSCall(newCallBase(a, TypeCS, "101", DirectionIn, VideoStateVoice), &mockConnection{}, nil, 0, 2, DialSceneNormal, nil)
	if err := r.AddOneCall(dup); err != ErrCallAlreadyExists {
		t.Fatalf("expected ErrCallAlreadyExists, got %v", err)
	}

	// Exactly one call resolves for the id.
	if got := r.GetOneCallByID(a); got != Call(c1) {
		t.Fatalf("lookup returned the wrong call")
	}
}

func TestRegistryDeleteMakesIDUnresolvable(t *testing.T) {
	r := NewRegistry(testLogger())
	c := newRegistryCall(t, r, "200", DirectionIn)
	id := c.CallID()

	if err := r.DeleteOneCall(id); err != nil {
		t.Fatalf("DeleteOneCall: %v", err)
	}
	if got := r.GetOneCallByID(id); got != nil {
		t.Fatalf("deleted id still resolves")
	}
	if err := r.DeleteOneCall(id); err != ErrCallNotFound {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}

	// The id is never reused for a later call.
	if next := r.NextCallID(); next <= id {
		t.Fatalf("id %d reused or non-monotonic (next %d)", id, next)
	}
}

func TestRegistryQueries(t *testing.T) {
	r := NewRegistry(testLogger())
	ringing := newRegistryCall(t, r, "300", DirectionIn)
	_ = ringing.SetTelCallState(StateIncoming)
	active := newRegistryCall(t, r, "301", DirectionOut)
	_ = active.SetTelCallState(StateDialing)
	_ = active.SetTelCallState(StateActive)
	held := newRegistryCall(t, r, "302", DirectionOut)
	_ = held.SetTelCallState(StateDialing)
	_ = held.SetTelCallState(StateHolding)

	if !r.HasRingingCall() || !r.HasActiveCall() || !r.HasHoldingCall() {
		t.Fatalf("expected ringing, active and holding calls to be visible")
	}
	if got := r.GetCallByNumber("301"); got == nil || got.CallID() != active.CallID() {
		t.Fatalf("number lookup failed")
	}
	if got := r.GetCallByState(StateHolding); got == nil || got.CallID() != held.CallID() {
		t.Fatalf("state lookup failed")
	}
	if got := r.ForegroundCall(); got == nil || got.CallID() != ringing.CallID() {
		t.Fatalf("foreground should prefer the ringing call")
	}
	if got := r.GetActiveCallCount(); got != 3 {
		t.Fatalf("expected 3 alive calls, got %d", got)
	}
	if got := len(r.AttributeInfoList()); got != 3 {
		t.Fatalf("expected 3 snapshots, got %d", got)
	}
}

func TestRegistryWaitForOutgoingCall(t *testing.T) {
	r := NewRegistry(testLogger())

	// Nothing outgoing: the wait times out.
	if r.WaitForOutgoingCall(20 * time.Millisecond) {
		t.Fatalf("wait should have timed out")
	}

	// An outgoing call added while waiting releases the waiter.
	done := make(chan bool, 1)
	go func() { done <- r.WaitForOutgoingCall(2 * time.Second) }()
	time.Sleep(10 * time.Millisecond)
	newRegistryCall(t, r, "400", DirectionOut)
	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("waiter should have seen the outgoing call")
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter did not return")
	}

	// Already present: the wait returns immediately.
	if !r.WaitForOutgoingCall(time.Millisecond) {
		t.Fatalf("existing outgoing call not seen")
	}
}
