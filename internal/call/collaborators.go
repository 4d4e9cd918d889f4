package call

// Collaborator interfaces. The orchestration core never speaks a wire
// protocol itself: carrier requests go down through CellularCallConnection
// and completion arrives later as CallDetailInfo / CellularCallEventInfo
// reports fed into the ReportHandler.

// CellularCallConnection is the driver boundary for CS, IMS and
// satellite calls. Requests are fire-and-forget: a nil return means the
// request was handed to the driver, not that the peer acted on it.
type CellularCallConnection interface {
	Dial(info CellularCallInfo) error
	Answer(info CellularCallInfo) error
	Reject(info CellularCallInfo) error
	HangUp(info CellularCallInfo) error
	Hold(info CellularCallInfo) error
	UnHold(info CellularCallInfo) error
	SwitchCall(slotID int32) error

	CombineConference(info CellularCallInfo) error
	SeparateConference(info CellularCallInfo) error
	KickOutFromConference(info CellularCallInfo) error

	SendUpdateCallMediaModeRequest(info CellularCallInfo, mode ImsCallMode) error
	SendUpdateCallMediaModeResponse(info CellularCallInfo, mode ImsCallMode) error
	CancelCallUpgrade(slotID, index int32) error

	ControlCamera(slotID, index int32, cameraID string) error
	SetPreviewWindow(slotID, index int32, surfaceID string) error
	SetDisplayWindow(slotID, index int32, surfaceID string) error
	SetPausePicture(slotID, index int32, path string) error
	SetDeviceDirection(slotID, index int32, rotation int32) error
	RequestCameraCapabilities(slotID, index int32) error

	StartRtt(slotID, index int32) error
	StopRtt(slotID, index int32) error

	StartDtmf(digit byte, info CellularCallInfo) error
	StopDtmf(info CellularCallInfo) error
	SendDtmf(digit byte, info CellularCallInfo) error
}

// CallStateNotifier receives lifecycle notifications for UI and
// telemetry collaborators. Implementations must tolerate duplicate
// notifications for the same transition.
type CallStateNotifier interface {
	NotifyNewCallCreated(info CallAttributeInfo)
	NotifyCallStateUpdated(info CallAttributeInfo, prior, next TelCallState)
	NotifyCallDestroyed(info CallAttributeInfo)
	NotifyIncomingCallAnswered(info CallAttributeInfo)
	NotifyIncomingCallRejected(info CallAttributeInfo)
	NotifyCallEventUpdated(event CellularCallEventInfo)
}

// MediaModeReporter is the app/UI boundary for video negotiation. The
// current design reports fire-and-forget and treats every peer request
// as implicitly accepted; the reporter is never asked to veto.
type MediaModeReporter interface {
	ReportCallMediaModeInfo(info CallMediaModeInfo)
}

// OTTConnection carries requests for app-layer OTT calls, which have no
// driver underneath; the owning app executes the operation.
type OTTConnection interface {
	DialOTT(number string, videoState VideoState) error
	AnswerOTT(number string, videoState VideoState) error
	RejectOTT(number string) error
	HangUpOTT(number string) error
	HoldOTT(number string) error
	UnHoldOTT(number string) error
	SwitchOTT(number string) error
}

// BluetoothConnection delegates call control to the HFP profile of a
// paired device identified by its MAC address.
type BluetoothConnection interface {
	AnswerBluetoothCall(macAddress string) error
	RejectBluetoothCall(macAddress string) error
	HangUpBluetoothCall(macAddress string) error
}

// VoIPConnection reports VoIP call operations back to the owning app;
// VoIP calls are otherwise pure local bookkeeping.
type VoIPConnection interface {
	ReportVoipCallEvent(voipCallID string, event VoipCallEvent) error
}
