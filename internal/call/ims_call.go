package call

import (
	"log/slog"
	"sync"
)

// IMSCall is a carrier call over the IP Multimedia Subsystem. On top of
// the shared carrier plumbing it owns the video mode negotiation
// machine: one active VideoCallState, a cache of constructed states
// keyed by target mode, and the single in-flight negotiation status.
type IMSCall struct {
	*CarrierCall

	media      MediaModeReporter
	conference *Conference
	logger     *slog.Logger

	// negotiationMu serializes the negotiation entry points; statusMu
	// guards the fields a reporting path may read concurrently. State
	// objects run with negotiationMu held and must not retake it.
	negotiationMu sync.Mutex
	statusMu      sync.Mutex
	initialized   bool
	updateStatus  VideoUpdateStatus
	activeState   VideoCallState
	stateCache    map[ImsCallMode]VideoCallState
}

// NewIMSCall creates an IMS call. InitVideoCall must run before any
// negotiation entry point is used.
func NewIMSCall(base *CallBase, conn CellularCallConnection, eccCheck EmergencyNumberChecker,
	slotID, index int32, scene DialScene, media MediaModeReporter, conference *Conference, logger *slog.Logger) *IMSCall {
	if logger == nil {
		logger = slog.Default()
	}
	return &IMSCall{
		CarrierCall: newCarrierCall(base, conn, eccCheck, slotID, index, scene),
		media:       media,
		conference:  conference,
		logger:      logger.With("subsystem", "ims_call", "call_id", base.callID),
	}
}

// InitVideoCall constructs the five negotiation states and activates
// the one matching the call's current video state.
func (c *IMSCall) InitVideoCall() {
	c.negotiationMu.Lock()
	defer c.negotiationMu.Unlock()
	if c.initialized {
		return
	}
	id := c.CallID()
	c.stateCache = map[ImsCallMode]VideoCallState{
		CallModeAudioOnly:   NewAudioOnlyState(id, c, c.logger),
		CallModeSendOnly:    NewVideoSendState(id, c, c.logger),
		CallModeReceiveOnly: NewVideoReceiveState(id, c, c.logger),
		CallModeSendReceive: NewVideoSendReceiveState(id, c, c.logger),
		CallModeVideoPaused: NewVideoPauseState(id, c, c.logger),
	}
	if c.VideoState() == VideoStateVideo {
		c.activeState = c.stateCache[CallModeSendReceive]
	} else {
		c.activeState = c.stateCache[CallModeAudioOnly]
	}
	c.initialized = true
}

// VideoCallState returns the state object cached for a mode; unknown
// modes fall back to audio-only.
func (c *IMSCall) VideoCallState(mode ImsCallMode) VideoCallState {
	if s, ok := c.stateCache[mode]; ok {
		return s
	}
	return c.stateCache[CallModeAudioOnly]
}

// VideoUpdateStatus returns the in-flight negotiation status.
func (c *IMSCall) VideoUpdateStatus() VideoUpdateStatus {
	return c.videoUpdateStatus()
}

func (c *IMSCall) videoUpdateStatus() VideoUpdateStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.updateStatus
}

func (c *IMSCall) setVideoUpdateStatus(status VideoUpdateStatus) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.updateStatus = status
}

func (c *IMSCall) dispatchUpdateRequest(mode ImsCallMode) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.SendUpdateCallMediaModeRequest(c.packCellularCallInfo(), mode)
}

func (c *IMSCall) dispatchUpdateResponse(mode ImsCallMode) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.SendUpdateCallMediaModeResponse(c.packCellularCallInfo(), mode)
}

// switchVideoState swaps the active negotiation state and mirrors the
// new mode into the call's video flag. Runs with negotiationMu held.
func (c *IMSCall) switchVideoState(mode ImsCallMode) {
	next, ok := c.stateCache[mode]
	if !ok {
		c.logger.Warn("unknown target mode, falling back to audio-only", "mode", mode)
		next = c.stateCache[CallModeAudioOnly]
		mode = CallModeAudioOnly
	}
	c.activeState = next
	if mode == CallModeAudioOnly {
		c.setVideoState(VideoStateVoice)
	} else {
		c.setVideoState(VideoStateVideo)
	}
}

func (c *IMSCall) reportMediaModeInfo(info CallMediaModeInfo) {
	if c.media != nil {
		c.media.ReportCallMediaModeInfo(info)
	}
}

// IsSupportVideoCall reports whether a video leg may be negotiated.
// Ringing incoming calls and emergency calls never take video.
func (c *IMSCall) IsSupportVideoCall() bool {
	if c.IsEmergency() {
		return false
	}
	if c.State() == StateIncoming {
		return false
	}
	return true
}

// IsVoiceModifyToVideo reports whether an upgrade negotiation is
// currently in flight.
func (c *IMSCall) IsVoiceModifyToVideo() bool {
	switch c.videoUpdateStatus() {
	case UpdateStatusSendRequest, UpdateStatusRecvRequest:
		return true
	default:
		return false
	}
}

// UpdateImsCallMode is the local entry point for a mode change: it
// starts a fresh negotiation when none is in flight, or answers a
// pending peer request.
func (c *IMSCall) UpdateImsCallMode(mode ImsCallMode) error {
	if c.State() != StateActive {
		c.logger.Warn("call mode update refused, call not active", "state", c.State())
		return ErrCallState
	}
	c.negotiationMu.Lock()
	defer c.negotiationMu.Unlock()
	if !c.initialized || c.activeState == nil {
		return ErrLocalPointerNull
	}
	switch c.videoUpdateStatus() {
	case UpdateStatusNone:
		return c.activeState.SendUpdateCallMediaModeRequest(mode)
	case UpdateStatusRecvRequest:
		return c.activeState.SendUpdateCallMediaModeResponse(mode)
	default:
		return ErrVideoInProgress
	}
}

// ReceiveUpdateCallMediaModeRequest applies a peer-initiated mode
// change request reported by the driver.
func (c *IMSCall) ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error {
	c.negotiationMu.Lock()
	defer c.negotiationMu.Unlock()
	if !c.initialized || c.activeState == nil {
		return ErrLocalPointerNull
	}
	return c.activeState.ReceiveUpdateCallMediaModeRequest(info)
}

// ReceiveUpdateCallMediaModeResponse applies the peer's answer to our
// request. A failed result collapses the negotiation to audio-only.
func (c *IMSCall) ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error {
	c.negotiationMu.Lock()
	defer c.negotiationMu.Unlock()
	if !c.initialized || c.activeState == nil {
		return ErrLocalPointerNull
	}
	if info.Result != 0 {
		info.CallMode = CallModeAudioOnly
	}
	return c.activeState.ReceiveUpdateCallMediaModeResponse(info)
}

// CancelCallUpgrade abandons the in-flight negotiation locally. No
// cancellation is sent to the peer, which may leave it with a stale
// in-progress view; kept as-is, noted as a protocol gap.
func (c *IMSCall) CancelCallUpgrade() error {
	c.negotiationMu.Lock()
	defer c.negotiationMu.Unlock()
	if c.videoUpdateStatus() == UpdateStatusNone {
		return ErrIllegalCallOperation
	}
	c.setVideoUpdateStatus(UpdateStatusNone)
	return nil
}

// Camera and surface control pass through to the driver, guarded
// against use before InitVideoCall or after teardown.
func (c *IMSCall) ControlCamera(cameraID string) error {
	if err := c.videoGuard(); err != nil {
		return err
	}
	return c.conn.ControlCamera(c.SlotID(), c.Index(), cameraID)
}

func (c *IMSCall) SetPreviewWindow(surfaceID string) error {
	if err := c.videoGuard(); err != nil {
		return err
	}
	return c.conn.SetPreviewWindow(c.SlotID(), c.Index(), surfaceID)
}

func (c *IMSCall) SetDisplayWindow(surfaceID string) error {
	if err := c.videoGuard(); err != nil {
		return err
	}
	return c.conn.SetDisplayWindow(c.SlotID(), c.Index(), surfaceID)
}

func (c *IMSCall) SetPausePicture(path string) error {
	if err := c.videoGuard(); err != nil {
		return err
	}
	return c.conn.SetPausePicture(c.SlotID(), c.Index(), path)
}

func (c *IMSCall) SetDeviceDirection(rotation int32) error {
	if err := c.videoGuard(); err != nil {
		return err
	}
	return c.conn.SetDeviceDirection(c.SlotID(), c.Index(), rotation)
}

func (c *IMSCall) RequestCameraCapabilities() error {
	if err := c.videoGuard(); err != nil {
		return err
	}
	return c.conn.RequestCameraCapabilities(c.SlotID(), c.Index())
}

func (c *IMSCall) videoGuard() error {
	c.negotiationMu.Lock()
	initialized := c.initialized && c.activeState != nil
	c.negotiationMu.Unlock()
	if !initialized || c.conn == nil {
		return ErrLocalPointerNull
	}
	return nil
}

// Real-time text pass-through.
func (c *IMSCall) StartRtt() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.StartRtt(c.SlotID(), c.Index())
}

func (c *IMSCall) StopRtt() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.StopRtt(c.SlotID(), c.Index())
}

// Call interface operations.

func (c *IMSCall) Dial() error { return c.carrierDial() }

func (c *IMSCall) Answer(videoState VideoState) error {
	if videoState == VideoStateVideo && !c.IsSupportVideoCall() {
		videoState = VideoStateVoice
	}
	return c.carrierAnswer(videoState)
}

func (c *IMSCall) Reject() error     { return c.carrierReject() }
func (c *IMSCall) HangUp() error     { return c.carrierHangUp() }
func (c *IMSCall) Hold() error       { return c.carrierHold() }
func (c *IMSCall) UnHold() error     { return c.carrierUnHold() }
func (c *IMSCall) SwitchCall() error { return c.carrierSwitch() }

func (c *IMSCall) CombineConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	if err := c.conference.CanCombine(); err != nil {
		return err
	}
	if err := c.conference.SetMainCall(c.CallID()); err != nil {
		return err
	}
	if err := c.carrierCombineConference(); err != nil {
		return err
	}
	c.SetConferenceState(TelConferenceActive)
	return nil
}

func (c *IMSCall) CanCombineConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	return c.conference.CanCombine()
}

func (c *IMSCall) SeparateConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	if err := c.conference.CanSeparate(); err != nil {
		return err
	}
	if err := c.carrierSeparateConference(); err != nil {
		return err
	}
	if err := c.conference.Separate(c.CallID()); err != nil {
		return err
	}
	c.SetConferenceState(TelConferenceIdle)
	return nil
}

func (c *IMSCall) CanSeparateConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	return c.conference.CanSeparate()
}

func (c *IMSCall) KickOutFromConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	if err := c.conference.LeaveFromConference(c.CallID()); err != nil {
		return err
	}
	if err := c.carrierKickOutFromConference(); err != nil {
		return err
	}
	c.SetConferenceState(TelConferenceIdle)
	return nil
}
