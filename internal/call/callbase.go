package call

import (
	"sync"
	"time"
)

// Call is the operation surface shared by every transport variant. The
// registry is the authoritative owner of Call values; collaborators
// hold call ids, not calls.
type Call interface {
	CallID() int32
	CallType() CallType
	Number() string
	SlotID() int32
	Index() int32
	State() TelCallState
	RunningState() CallRunningState
	VideoState() VideoState
	ConferenceState() TelConferenceState
	SetConferenceState(state TelConferenceState)
	Direction() CallDirection
	IsAlive() bool
	IsEmergency() bool
	CanUnHold() bool
	SetCanUnHold(ok bool)
	AttributeInfo() CallAttributeInfo

	// SetTelCallState applies a reported transport state. Re-applying
	// the current state returns ErrNotNewState and changes nothing.
	SetTelCallState(next TelCallState) error

	// Control operations. Each validates locally, forwards a structured
	// request to the transport collaborator and returns; the call's own
	// state advances only when the matching report arrives.
	Dial() error
	Answer(videoState VideoState) error
	Reject() error
	HangUp() error
	Hold() error
	UnHold() error
	SwitchCall() error
	SetMute(on bool) error

	// Conference capability.
	CombineConference() error
	CanCombineConference() error
	SeparateConference() error
	CanSeparateConference() error
	KickOutFromConference() error
}

// CallBase holds the attributes and lifecycle bookkeeping common to all
// variants. Fields may be read from report and API paths, so every
// accessor takes the per-call mutex.
type CallBase struct {
	mu sync.Mutex

	callID          int32
	callType        CallType
	number          string
	videoState      VideoState
	callState       TelCallState
	runningState    CallRunningState
	conferenceState TelConferenceState
	direction       CallDirection
	answerType      CallAnswerType
	canUnHold       bool
	muted           bool

	createTime    time.Time
	ringBeginTime time.Time
	ringEndTime   time.Time
	callBeginTime time.Time
	callEndTime   time.Time

	// answerVideoState is stashed by the answer request and consumed
	// when the active report arrives.
	answerVideoState VideoState
	autoAnswer       bool
}

func newCallBase(callID int32, callType CallType, number string, direction CallDirection, videoState VideoState) *CallBase {
	return &CallBase{
		callID:       callID,
		callType:     callType,
		number:       number,
		videoState:   videoState,
		callState:    StateIdle,
		runningState: RunningStateCreate,
		direction:    direction,
		canUnHold:    true,
		createTime:   time.Now(),
	}
}

func (b *CallBase) CallID() int32      { b.mu.Lock(); defer b.mu.Unlock(); return b.callID }
func (b *CallBase) CallType() CallType { b.mu.Lock(); defer b.mu.Unlock(); return b.callType }
func (b *CallBase) Number() string     { b.mu.Lock(); defer b.mu.Unlock(); return b.number }

func (b *CallBase) State() TelCallState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callState
}

func (b *CallBase) RunningState() CallRunningState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runningState
}

func (b *CallBase) VideoState() VideoState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.videoState
}

func (b *CallBase) setVideoState(v VideoState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videoState = v
}

func (b *CallBase) ConferenceState() TelConferenceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conferenceState
}

func (b *CallBase) SetConferenceState(state TelConferenceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conferenceState = state
}

func (b *CallBase) Direction() CallDirection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.direction
}

func (b *CallBase) CanUnHold() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canUnHold
}

func (b *CallBase) SetCanUnHold(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canUnHold = ok
}

// IsEmergency is overridden by carrier variants; other transports never
// carry emergency calls.
func (b *CallBase) IsEmergency() bool { return false }

// SlotID and Index are overridden by carrier variants.
func (b *CallBase) SlotID() int32 { return 0 }
func (b *CallBase) Index() int32  { return 0 }

// IsAlive reports whether the call still occupies a transport slot.
func (b *CallBase) IsAlive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.callState {
	case StateIdle, StateDisconnected, StateDisconnecting:
		return false
	default:
		return true
	}
}

func (b *CallBase) SetMute(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = on
	return nil
}

func (b *CallBase) setAnswerVideoState(v VideoState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answerVideoState = v
}

func (b *CallBase) answerVideo() VideoState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.answerVideoState
}

func (b *CallBase) SetAutoAnswer(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoAnswer = on
}

func (b *CallBase) AutoAnswer() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoAnswer
}

// SetTelCallState applies a reported state and updates the running
// state and timestamps. Duplicate states are rejected with
// ErrNotNewState, except a DIALING report on a freshly created call,
// which is the first real confirmation of the dial.
func (b *CallBase) SetTelCallState(next TelCallState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callState == next && !(next == StateDialing && b.runningState == RunningStateCreate) {
		return ErrNotNewState
	}
	b.callState = next
	switch next {
	case StateDialing:
		b.runningState = RunningStateDialing
	case StateAlerting:
		b.runningState = RunningStateDialing
		if b.ringBeginTime.IsZero() {
			b.ringBeginTime = time.Now()
		}
	case StateIncoming, StateWaiting:
		b.runningState = RunningStateRinging
		if b.ringBeginTime.IsZero() {
			b.ringBeginTime = time.Now()
		}
	case StateActive:
		b.runningState = RunningStateActive
		if b.callBeginTime.IsZero() {
			b.callBeginTime = time.Now()
			b.answerType = AnswerTypeActive
		}
		if !b.ringBeginTime.IsZero() && b.ringEndTime.IsZero() {
			b.ringEndTime = time.Now()
		}
	case StateHolding:
		b.runningState = RunningStateHold
		if b.conferenceState == TelConferenceActive {
			b.conferenceState = TelConferenceHolding
		}
	case StateDisconnecting:
		b.runningState = RunningStateEnding
		if b.conferenceState == TelConferenceActive || b.conferenceState == TelConferenceHolding {
			b.conferenceState = TelConferenceDisconnecting
		}
	case StateDisconnected:
		b.runningState = RunningStateEnded
		b.callEndTime = time.Now()
		if !b.ringBeginTime.IsZero() && b.ringEndTime.IsZero() {
			b.ringEndTime = time.Now()
		}
		if b.callBeginTime.IsZero() && b.direction == DirectionIn && b.answerType != AnswerTypeRejected {
			b.answerType = AnswerTypeMissed
		}
		if b.conferenceState != TelConferenceIdle {
			b.conferenceState = TelConferenceDisconnected
		}
	}
	return nil
}

func (b *CallBase) markRejected() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answerType = AnswerTypeRejected
}

// AttributeInfo snapshots the base fields. Carrier variants extend the
// snapshot with slot and emergency attributes.
func (b *CallBase) AttributeInfo() CallAttributeInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CallAttributeInfo{
		CallID:          b.callID,
		Number:          b.number,
		CallType:        b.callType,
		VideoState:      b.videoState,
		State:           b.callState,
		ConferenceState: b.conferenceState,
		Direction:       b.direction,
		AnswerType:      b.answerType,
		CreateTime:      b.createTime,
		RingBeginTime:   b.ringBeginTime,
		RingEndTime:     b.ringEndTime,
		BeginTime:       b.callBeginTime,
		EndTime:         b.callEndTime,
	}
}
