package call

import "log/slog"

// VideoCallState is one state of the IMS video mode negotiation
// machine. An IMS call holds exactly one active state plus a cache of
// constructed states keyed by target mode; operations validate the
// requested mode against the current state, dispatch wire requests or
// responses through the owning call, and swap the active state on a
// completed transition.
type VideoCallState interface {
	SendUpdateCallMediaModeRequest(mode ImsCallMode) error
	ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error
	SendUpdateCallMediaModeResponse(mode ImsCallMode) error
	ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error
}

// videoCallOwner is the narrow surface a state needs from its call.
// States hold the call id plus this interface, never an owning
// reference; the registry remains the call's only owner.
type videoCallOwner interface {
	IsSupportVideoCall() bool
	videoUpdateStatus() VideoUpdateStatus
	setVideoUpdateStatus(status VideoUpdateStatus)
	dispatchUpdateRequest(mode ImsCallMode) error
	dispatchUpdateResponse(mode ImsCallMode) error
	switchVideoState(mode ImsCallMode)
	reportMediaModeInfo(info CallMediaModeInfo)
}

type videoStateBase struct {
	callID int32
	owner  videoCallOwner
	logger *slog.Logger
}

func newVideoStateBase(callID int32, owner videoCallOwner, logger *slog.Logger) videoStateBase {
	return videoStateBase{callID: callID, owner: owner, logger: logger}
}

func (s *videoStateBase) status() VideoUpdateStatus {
	return s.owner.videoUpdateStatus()
}

func (s *videoStateBase) setStatus(status VideoUpdateStatus) {
	s.owner.setVideoUpdateStatus(status)
}

// AudioOnlyState: no video leg. The only legal upgrade target is
// SEND_RECEIVE; SEND_ONLY and RECEIVE_ONLY requests pass through as
// silent no-ops (intended behavior of the audio-only state, kept
// pending product clarification).
type AudioOnlyState struct {
	videoStateBase
}

func NewAudioOnlyState(callID int32, owner videoCallOwner, logger *slog.Logger) *AudioOnlyState {
	return &AudioOnlyState{newVideoStateBase(callID, owner, logger)}
}

func (s *AudioOnlyState) SendUpdateCallMediaModeRequest(mode ImsCallMode) error {
	s.logger.Debug("audio-only send update request", "call_id", s.callID, "mode", mode, "status", s.status())
	switch mode {
	case CallModeSendOnly, CallModeReceiveOnly:
		return nil
	case CallModeAudioOnly, CallModeVideoPaused:
		return ErrVideoIllegalScenario
	case CallModeSendReceive:
		if !s.owner.IsSupportVideoCall() {
			return ErrVideoNotSupported
		}
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.setStatus(UpdateStatusSendRequest)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *AudioOnlyState) ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error {
	s.logger.Debug("audio-only receive update request", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeAudioOnly, CallModeVideoPaused:
		return ErrVideoIllegalScenario
	case CallModeReceiveOnly:
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		// The app collaborator is informed but never asked to veto.
		s.owner.reportMediaModeInfo(info)
		s.setStatus(UpdateStatusRecvRequest)
		return nil
	case CallModeSendOnly:
		return nil
	case CallModeSendReceive:
		if !s.owner.IsSupportVideoCall() {
			_ = s.owner.dispatchUpdateResponse(CallModeAudioOnly)
			return ErrVideoIllegalScenario
		}
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		s.owner.reportMediaModeInfo(info)
		s.setStatus(UpdateStatusRecvRequest)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *AudioOnlyState) SendUpdateCallMediaModeResponse(mode ImsCallMode) error {
	s.logger.Debug("audio-only send update response", "call_id", s.callID, "mode", mode, "status", s.status())
	switch mode {
	case CallModeAudioOnly:
		if !s.owner.IsSupportVideoCall() {
			_ = s.owner.dispatchUpdateResponse(CallModeAudioOnly)
			return ErrVideoIllegalScenario
		}
		if s.status() != UpdateStatusRecvRequest {
			return ErrVideoInProgress
		}
		_ = s.owner.dispatchUpdateResponse(CallModeAudioOnly)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeVideoPaused:
		return ErrVideoIllegalScenario
	case CallModeReceiveOnly, CallModeSendOnly:
		return nil
	case CallModeSendReceive:
		if !s.owner.IsSupportVideoCall() {
			_ = s.owner.dispatchUpdateResponse(CallModeAudioOnly)
			return ErrVideoIllegalScenario
		}
		if s.status() != UpdateStatusRecvRequest {
			return ErrVideoInProgress
		}
		_ = s.owner.dispatchUpdateResponse(CallModeSendReceive)
		s.owner.switchVideoState(CallModeSendReceive)
		s.setStatus(UpdateStatusNone)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *AudioOnlyState) ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error {
	s.logger.Debug("audio-only receive update response", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeSendReceive:
		if s.status() != UpdateStatusSendRequest {
			return ErrVideoIllegalScenario
		}
		s.owner.switchVideoState(CallModeSendReceive)
		s.setStatus(UpdateStatusNone)
		s.owner.reportMediaModeInfo(info)
		return nil
	case CallModeAudioOnly:
		s.setStatus(UpdateStatusNone)
		s.owner.reportMediaModeInfo(info)
		return nil
	case CallModeReceiveOnly:
		if s.status() != UpdateStatusSendRequest {
			return ErrVideoIllegalScenario
		}
		s.owner.switchVideoState(CallModeReceiveOnly)
		s.setStatus(UpdateStatusNone)
		s.owner.reportMediaModeInfo(info)
		return nil
	default:
		// Other modes are ignored rather than rejected.
		return nil
	}
}

// VideoSendState: sending video, not receiving.
type VideoSendState struct {
	videoStateBase
}

func NewVideoSendState(callID int32, owner videoCallOwner, logger *slog.Logger) *VideoSendState {
	return &VideoSendState{newVideoStateBase(callID, owner, logger)}
}

func (s *VideoSendState) SendUpdateCallMediaModeRequest(mode ImsCallMode) error {
	s.logger.Debug("video-send send update request", "call_id", s.callID, "mode", mode)
	switch mode {
	case CallModeAudioOnly, CallModeVideoPaused:
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.owner.switchVideoState(mode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeReceiveOnly, CallModeSendOnly, CallModeSendReceive:
		return ErrVideoInProgress
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *VideoSendState) ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error {
	s.logger.Debug("video-send receive update request", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeAudioOnly, CallModeVideoPaused:
		s.owner.switchVideoState(info.CallMode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeReceiveOnly:
		return ErrVideoIllegalScenario
	case CallModeSendOnly, CallModeSendReceive:
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

// SendUpdateCallMediaModeResponse is ignored while sending video; there
// is no received request a response could answer from this state.
func (s *VideoSendState) SendUpdateCallMediaModeResponse(mode ImsCallMode) error {
	s.logger.Debug("video-send send response ignored", "call_id", s.callID, "mode", mode)
	return nil
}

func (s *VideoSendState) ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error {
	s.logger.Debug("video-send receive update response", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeAudioOnly, CallModeVideoPaused:
		s.owner.switchVideoState(info.CallMode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly, CallModeReceiveOnly:
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		return nil
	case CallModeSendReceive:
		if err := s.owner.dispatchUpdateResponse(CallModeSendReceive); err != nil {
			return err
		}
		s.owner.switchVideoState(info.CallMode)
		s.setStatus(UpdateStatusNone)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

// VideoReceiveState: receiving video, not sending.
type VideoReceiveState struct {
	videoStateBase
}

func NewVideoReceiveState(callID int32, owner videoCallOwner, logger *slog.Logger) *VideoReceiveState {
	return &VideoReceiveState{newVideoStateBase(callID, owner, logger)}
}

func (s *VideoReceiveState) SendUpdateCallMediaModeRequest(mode ImsCallMode) error {
	s.logger.Debug("video-receive send update request", "call_id", s.callID, "mode", mode, "status", s.status())
	switch mode {
	case CallModeAudioOnly, CallModeVideoPaused:
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.owner.switchVideoState(mode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly, CallModeReceiveOnly, CallModeSendReceive:
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *VideoReceiveState) ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error {
	s.logger.Debug("video-receive receive update request", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeAudioOnly, CallModeVideoPaused:
		s.owner.switchVideoState(info.CallMode)
		s.owner.reportMediaModeInfo(info)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly:
		return nil
	case CallModeReceiveOnly, CallModeSendReceive:
		if s.status() != UpdateStatusNone {
			return ErrVideoInProgress
		}
		s.owner.reportMediaModeInfo(info)
		s.setStatus(UpdateStatusRecvRequest)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *VideoReceiveState) SendUpdateCallMediaModeResponse(mode ImsCallMode) error {
	s.logger.Debug("video-receive send update response", "call_id", s.callID, "mode", mode, "status", s.status())
	switch mode {
	case CallModeAudioOnly, CallModeVideoPaused:
		s.owner.switchVideoState(mode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly:
		return nil
	case CallModeReceiveOnly:
		if s.status() != UpdateStatusRecvRequest {
			return ErrVideoIllegalScenario
		}
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendReceive:
		if s.status() != UpdateStatusRecvRequest {
			return ErrVideoIllegalScenario
		}
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.owner.switchVideoState(mode)
		s.setStatus(UpdateStatusNone)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *VideoReceiveState) ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error {
	s.logger.Debug("video-receive receive update response", "call_id", s.callID, "mode", info.CallMode)
	switch info.CallMode {
	case CallModeAudioOnly, CallModeSendReceive, CallModeVideoPaused:
		s.owner.switchVideoState(info.CallMode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly, CallModeReceiveOnly:
		s.owner.reportMediaModeInfo(info)
		if s.status() != UpdateStatusNone {
			s.setStatus(UpdateStatusNone)
		}
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

// VideoSendReceiveState: bidirectional video.
type VideoSendReceiveState struct {
	videoStateBase
}

func NewVideoSendReceiveState(callID int32, owner videoCallOwner, logger *slog.Logger) *VideoSendReceiveState {
	return &VideoSendReceiveState{newVideoStateBase(callID, owner, logger)}
}

func (s *VideoSendReceiveState) SendUpdateCallMediaModeRequest(mode ImsCallMode) error {
	s.logger.Debug("video-send-receive send update request", "call_id", s.callID, "mode", mode)
	switch mode {
	case CallModeAudioOnly, CallModeVideoPaused:
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.owner.switchVideoState(mode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly, CallModeReceiveOnly:
		return s.owner.dispatchUpdateRequest(mode)
	case CallModeSendReceive:
		return ErrVideoIllegalScenario
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *VideoSendReceiveState) ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error {
	s.logger.Debug("video-send-receive receive update request", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeAudioOnly:
		// The peer may downgrade unilaterally.
		s.owner.switchVideoState(info.CallMode)
		s.owner.reportMediaModeInfo(info)
		if s.status() != UpdateStatusNone {
			s.setStatus(UpdateStatusNone)
		}
		return nil
	case CallModeVideoPaused, CallModeSendOnly, CallModeReceiveOnly:
		return nil
	case CallModeSendReceive:
		s.owner.reportMediaModeInfo(info)
		s.setStatus(UpdateStatusRecvRequest)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

// SendUpdateCallMediaModeResponse is ignored in bidirectional video.
func (s *VideoSendReceiveState) SendUpdateCallMediaModeResponse(mode ImsCallMode) error {
	s.logger.Debug("video-send-receive send response ignored", "call_id", s.callID, "mode", mode)
	return nil
}

func (s *VideoSendReceiveState) ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error {
	s.logger.Debug("video-send-receive receive update response", "call_id", s.callID, "mode", info.CallMode, "status", s.status())
	switch info.CallMode {
	case CallModeReceiveOnly:
		if s.status() != UpdateStatusRecvRequest {
			return ErrVideoIllegalScenario
		}
		s.owner.reportMediaModeInfo(info)
		s.owner.switchVideoState(info.CallMode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendReceive:
		if s.status() != UpdateStatusRecvRequest {
			return ErrVideoIllegalScenario
		}
		s.owner.reportMediaModeInfo(info)
		s.setStatus(UpdateStatusNone)
		return nil
	default:
		return ErrVideoIllegalMediaType
	}
}

// VideoPauseState: video negotiated but paused.
type VideoPauseState struct {
	videoStateBase
}

func NewVideoPauseState(callID int32, owner videoCallOwner, logger *slog.Logger) *VideoPauseState {
	return &VideoPauseState{newVideoStateBase(callID, owner, logger)}
}

func (s *VideoPauseState) SendUpdateCallMediaModeRequest(mode ImsCallMode) error {
	s.logger.Debug("video-pause send update request", "call_id", s.callID, "mode", mode)
	switch mode {
	case CallModeAudioOnly, CallModeSendReceive:
		if err := s.owner.dispatchUpdateRequest(mode); err != nil {
			return err
		}
		s.owner.switchVideoState(mode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly, CallModeReceiveOnly:
		return s.owner.dispatchUpdateRequest(mode)
	case CallModeVideoPaused:
		return ErrVideoIllegalScenario
	default:
		return ErrVideoIllegalMediaType
	}
}

func (s *VideoPauseState) ReceiveUpdateCallMediaModeRequest(info CallMediaModeInfo) error {
	s.logger.Debug("video-pause receive update request", "call_id", s.callID, "mode", info.CallMode)
	switch info.CallMode {
	case CallModeAudioOnly, CallModeSendReceive:
		s.owner.switchVideoState(info.CallMode)
		s.setStatus(UpdateStatusNone)
		return nil
	case CallModeSendOnly, CallModeReceiveOnly:
		return nil
	case CallModeVideoPaused:
		return ErrVideoIllegalScenario
	default:
		return ErrVideoIllegalMediaType
	}
}

// Responses are not part of the pause handshake in either direction.
func (s *VideoPauseState) SendUpdateCallMediaModeResponse(mode ImsCallMode) error {
	s.logger.Debug("video-pause send response ignored", "call_id", s.callID, "mode", mode)
	return nil
}

func (s *VideoPauseState) ReceiveUpdateCallMediaModeResponse(info CallMediaModeInfo) error {
	s.logger.Debug("video-pause receive response ignored", "call_id", s.callID, "mode", info.CallMode)
	return nil
}
