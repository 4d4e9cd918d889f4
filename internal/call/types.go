// Package call implements the call-state orchestration core: the call
// object model, the registry of live calls, the serialized request
// worker, conference grouping, and the IMS video call-mode negotiation
// state machine.
package call

import "time"

// CallType identifies the transport a call runs over.
type CallType int32

const (
	TypeCS CallType = iota
	TypeIMS
	TypeOTT
	TypeSatellite
	TypeBluetooth
	TypeVoIP
)

func (t CallType) String() string {
	switch t {
	case TypeCS:
		return "cs"
	case TypeIMS:
		return "ims"
	case TypeOTT:
		return "ott"
	case TypeSatellite:
		return "satellite"
	case TypeBluetooth:
		return "bluetooth"
	case TypeVoIP:
		return "voip"
	default:
		return "unknown"
	}
}

// TelCallState is the externally visible lifecycle state of a call.
type TelCallState int32

const (
	StateUnknown TelCallState = iota - 1
	StateActive
	StateHolding
	StateDialing
	StateAlerting
	StateIncoming
	StateWaiting
	StateDisconnected
	StateDisconnecting
	StateIdle
)

func (s TelCallState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateHolding:
		return "holding"
	case StateDialing:
		return "dialing"
	case StateAlerting:
		return "alerting"
	case StateIncoming:
		return "incoming"
	case StateWaiting:
		return "waiting"
	case StateDisconnected:
		return "disconnected"
	case StateDisconnecting:
		return "disconnecting"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// CallRunningState is the internal lifecycle state tracked alongside
// TelCallState; it distinguishes a freshly created call from one whose
// first state report has been applied.
type CallRunningState int32

const (
	RunningStateCreate CallRunningState = iota
	RunningStateConnecting
	RunningStateDialing
	RunningStateRinging
	RunningStateActive
	RunningStateHold
	RunningStateEnded
	RunningStateEnding
)

func (s CallRunningState) String() string {
	switch s {
	case RunningStateCreate:
		return "create"
	case RunningStateConnecting:
		return "connecting"
	case RunningStateDialing:
		return "dialing"
	case RunningStateRinging:
		return "ringing"
	case RunningStateActive:
		return "active"
	case RunningStateHold:
		return "hold"
	case RunningStateEnded:
		return "ended"
	case RunningStateEnding:
		return "ending"
	default:
		return "unknown"
	}
}

// VideoState says whether a call currently carries a video leg.
type VideoState int32

const (
	VideoStateVoice VideoState = iota
	VideoStateVideo
)

// ImsCallMode describes the direction(s) of video media on an IMS call.
type ImsCallMode int32

const (
	CallModeAudioOnly ImsCallMode = iota
	CallModeSendOnly
	CallModeReceiveOnly
	CallModeSendReceive
	CallModeVideoPaused
)

func (m ImsCallMode) String() string {
	switch m {
	case CallModeAudioOnly:
		return "audio_only"
	case CallModeSendOnly:
		return "send_only"
	case CallModeReceiveOnly:
		return "receive_only"
	case CallModeSendReceive:
		return "send_receive"
	case CallModeVideoPaused:
		return "video_paused"
	default:
		return "unknown"
	}
}

// VideoUpdateStatus tracks an in-flight video mode negotiation on an
// IMS call. At most one of SendRequest/RecvRequest is active per call.
type VideoUpdateStatus int32

const (
	UpdateStatusNone VideoUpdateStatus = iota
	UpdateStatusSendRequest
	UpdateStatusRecvRequest
	UpdateStatusRecvResponse
	UpdateStatusSendResponse
)

func (s VideoUpdateStatus) String() string {
	switch s {
	case UpdateStatusNone:
		return "none"
	case UpdateStatusSendRequest:
		return "send_request"
	case UpdateStatusRecvRequest:
		return "recv_request"
	case UpdateStatusRecvResponse:
		return "recv_response"
	case UpdateStatusSendResponse:
		return "send_response"
	default:
		return "unknown"
	}
}

// TelConferenceState is the per-call view of conference membership.
type TelConferenceState int32

const (
	TelConferenceIdle TelConferenceState = iota
	TelConferenceActive
	TelConferenceHolding
	TelConferenceDisconnecting
	TelConferenceDisconnected
)

func (s TelConferenceState) String() string {
	switch s {
	case TelConferenceIdle:
		return "idle"
	case TelConferenceActive:
		return "active"
	case TelConferenceHolding:
		return "holding"
	case TelConferenceDisconnecting:
		return "disconnecting"
	case TelConferenceDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DialScene classifies an outgoing dial.
type DialScene int32

const (
	DialSceneNormal DialScene = iota
	DialScenePrivileged
	DialSceneEmergency
)

// DialType distinguishes ordinary dials from voicemail and OTT dials.
type DialType int32

const (
	DialTypeNormal DialType = iota
	DialTypeVoiceMail
	DialTypeOTT
)

// CallDirection marks a call as mobile-originated or mobile-terminated.
type CallDirection int32

const (
	DirectionUnknown CallDirection = iota
	DirectionIn
	DirectionOut
)

func (d CallDirection) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return "unknown"
	}
}

// CallAnswerType records how a terminated incoming call ended up.
type CallAnswerType int32

const (
	AnswerTypeMissed CallAnswerType = iota
	AnswerTypeActive
	AnswerTypeRejected
)

// PolicyFlag carries a hangup-time side request decided by the
// call-waiting policy.
type PolicyFlag int32

const (
	PolicyFlagNormal PolicyFlag = iota
	PolicyFlagHangUpActive
	PolicyFlagHangUpHoldWait
	PolicyFlagKickOutFromConference
)

// DialParaInfo carries the parameters of an outgoing dial request.
type DialParaInfo struct {
	Number       string
	CallType     CallType
	VideoState   VideoState
	DialScene    DialScene
	DialType     DialType
	SlotID       int32
	BluetoothMac string
}

// CallDetailInfo is a call-state report from the cellular/IMS driver.
// Reports are the only input that advances a call's transport state.
type CallDetailInfo struct {
	Index      int32
	SlotID     int32
	CallType   CallType
	VideoState VideoState
	State      TelCallState
	Number     string
	MacAddress string
	VoipCallID string
}

// CellularCallInfo is the structured request passed down to the
// cellular/IMS driver, keyed by slot and network index.
type CellularCallInfo struct {
	CallID     int32
	CallType   CallType
	VideoState VideoState
	Index      int32
	SlotID     int32
	Number     string
}

// CallMediaModeInfo reports a video mode negotiation request or
// response for one call. Result is zero on success.
type CallMediaModeInfo struct {
	CallID   int32
	CallMode ImsCallMode
	Result   int32
}

// CellularCallEventType classifies an asynchronous driver event.
type CellularCallEventType int32

const (
	EventRequestResult CellularCallEventType = iota
)

// RequestResultEventID identifies which request a driver event answers.
type RequestResultEventID int32

const (
	ResultDialSendFailed RequestResultEventID = iota
	ResultDialNoCarrier
	ResultAnswerSendFailed
	ResultRejectSendFailed
	ResultHangupSendFailed
	ResultHoldSendFailed
	ResultUnHoldSendFailed
	ResultSwapSendFailed
	ResultCombineSendFailed
	ResultSeparateSendFailed
)

// CellularCallEventInfo is an asynchronous completion/failure event
// from the cellular/IMS driver.
type CellularCallEventInfo struct {
	EventType CellularCallEventType
	EventID   RequestResultEventID
}

// VoipCallEvent is the operation a VoIP call reports to its app-side
// connection.
type VoipCallEvent int32

const (
	VoipEventAnswerVoice VoipCallEvent = iota
	VoipEventAnswerVideo
	VoipEventReject
	VoipEventHangUp
)

// CallAttributeInfo is a point-in-time snapshot of one call, safe to
// hand to the API layer without holding the call's lock.
type CallAttributeInfo struct {
	CallID          int32
	Number          string
	CallType        CallType
	VideoState      VideoState
	State           TelCallState
	ConferenceState TelConferenceState
	Direction       CallDirection
	AnswerType      CallAnswerType
	IsEcc           bool
	SlotID          int32
	Index           int32
	CreateTime      time.Time
	RingBeginTime   time.Time
	RingEndTime     time.Time
	BeginTime       time.Time
	EndTime         time.Time
}
