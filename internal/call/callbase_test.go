package call

import (
	"testing"
)

func TestSetTelCallStateRejectsDuplicates(t *testing.T) {
	base := newCallBase(1, TypeCS, "500", DirectionIn, VideoStateVoice)

	if err := base.SetTelCallState(StateIncoming); err != nil {
		t.Fatalf("first report: %v", err)
	}
	// The same state reported again changes nothing.
	if err := base.SetTelCallState(StateIncoming); err != ErrNotNewState {
		t.Fatalf("expected ErrNotNewState, got %v", err)
	}
	if base.RunningState() != RunningStateRinging {
		t.Fatalf("running state = %v", base.RunningState())
	}
}

func TestSetTelCallStateDialingConfirmsCreate(t *testing.T) {
	base := newCallBase(2, TypeCS, "501", DirectionOut, VideoStateVoice)

	// The request path marks the call dialing before the driver confirms.
	if err := base.SetTelCallState(StateDialing); err != nil {
		t.Fatalf("request-side dialing: %v", err)
	}
	base.mu.Lock()
	base.runningState = RunningStateCreate
	base.mu.Unlock()

	// A DIALING report on a freshly created call is not a duplicate.
	if err := base.SetTelCallState(StateDialing); err != nil {
		t.Fatalf("driver dialing report: %v", err)
	}
	if base.RunningState() != RunningStateDialing {
		t.Fatalf("running state = %v", base.RunningState())
	}

	// Once past create, a repeated DIALING report is a duplicate again.
	if err := base.SetTelCallState(StateDialing); err != ErrNotNewState {
		t.Fatalf("expected ErrNotNewState, got %v", err)
	}
}

func TestCallLifecycleTimestamps(t *testing.T) {
	base := newCallBase(3, TypeIMS, "502", DirectionIn, VideoStateVoice)

	_ = base.SetTelCallState(StateIncoming)
	_ = base.SetTelCallState(StateActive)
	_ = base.SetTelCallState(StateDisconnected)

	info := base.AttributeInfo()
	if info.RingBeginTime.IsZero() || info.RingEndTime.IsZero() {
		t.Fatalf("ring window not recorded")
	}
	if info.BeginTime.IsZero() || info.EndTime.IsZero() {
		t.Fatalf("talk window not recorded")
	}
	if info.RingEndTime.Before(info.RingBeginTime) {
		t.Fatalf("ring end before ring begin")
	}
}

func TestUnansweredIncomingIsMissed(t *testing.T) {
	base := newCallBase(4, TypeCS, "503", DirectionIn, VideoStateVoice)

	_ = base.SetTelCallState(StateIncoming)
	_ = base.SetTelCallState(StateDisconnected)

	base.mu.Lock()
	answerType := base.answerType
	base.mu.Unlock()
	if answerType != AnswerTypeMissed {
		t.Fatalf("answer type = %v, want missed", answerType)
	}
}

func TestRejectedIncomingIsNotMissed(t *testing.T) {
	base := newCallBase(5, TypeCS, "504", DirectionIn, VideoStateVoice)

	_ = base.SetTelCallState(StateIncoming)
	base.markRejected()
	_ = base.SetTelCallState(StateDisconnected)

	base.mu.Lock()
	answerType := base.answerType
	base.mu.Unlock()
	if answerType != AnswerTypeRejected {
		t.Fatalf("answer type = %v, want rejected", answerType)
	}
}

func TestIsAlive(t *testing.T) {
	base := newCallBase(6, TypeCS, "505", DirectionOut, VideoStateVoice)
	if base.IsAlive() {
		t.Fatalf("idle call should not be alive")
	}
	_ = base.SetTelCallState(StateDialing)
	if !base.IsAlive() {
		t.Fatalf("dialing call should be alive")
	}
	_ = base.SetTelCallState(StateActive)
	_ = base.SetTelCallState(StateDisconnecting)
	if base.IsAlive() {
		t.Fatalf("disconnecting call should not be alive")
	}
	_ = base.SetTelCallState(StateDisconnected)
	if base.IsAlive() {
		t.Fatalf("disconnected call should not be alive")
	}
}

func TestVariantSharesBaseState(t *testing.T) {
	base := newCallBase(8, TypeCS, "507", DirectionOut, VideoStateVoice)
	c := NewCSCall(base, &mockConnection{}, nil, 0, 0, DialSceneNormal, NewConference(TypeCS, testLogger()))

	// The variant wraps the base, it does not copy it: a transition
	// applied through the variant is visible on the base and vice versa.
	if err := c.SetTelCallState(StateDialing); err != nil {
		t.Fatalf("dialing via variant: %v", err)
	}
	if base.State() != StateDialing {
		t.Fatalf("base state = %v, want dialing", base.State())
	}
	if err := base.SetTelCallState(StateActive); err != nil {
		t.Fatalf("active via base: %v", err)
	}
	if !c.IsAlive() {
		t.Fatalf("variant should observe the active transition")
	}
}

func TestHoldingDemotesConferenceState(t *testing.T) {
	base := newCallBase(7, TypeCS, "506", DirectionOut, VideoStateVoice)
	_ = base.SetTelCallState(StateDialing)
	_ = base.SetTelCallState(StateActive)
	base.SetConferenceState(TelConferenceActive)

	_ = base.SetTelCallState(StateHolding)
	if got := base.ConferenceState(); got != TelConferenceHolding {
		t.Fatalf("conference state = %v, want holding", got)
	}

	_ = base.SetTelCallState(StateDisconnected)
	if got := base.ConferenceState(); got != TelConferenceDisconnected {
		t.Fatalf("conference state = %v, want disconnected", got)
	}
}
