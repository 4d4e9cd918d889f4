package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/callgrid/callgrid/internal/call"
)

// callDTO is the JSON shape of one call snapshot.
type callDTO struct {
	ID              int32     `json:"id"`
	Number          string    `json:"number"`
	CallType        string    `json:"call_type"`
	Video           bool      `json:"video"`
	State           string    `json:"state"`
	ConferenceState string    `json:"conference_state"`
	Direction       string    `json:"direction"`
	Emergency       bool      `json:"emergency"`
	SlotID          int32     `json:"slot_id"`
	Index           int32     `json:"index"`
	CreateTime      time.Time `json:"create_time"`
	RingBeginTime   time.Time `json:"ring_begin_time,omitzero"`
	RingEndTime     time.Time `json:"ring_end_time,omitzero"`
	BeginTime       time.Time `json:"begin_time,omitzero"`
	EndTime         time.Time `json:"end_time,omitzero"`
}

func toCallDTO(info call.CallAttributeInfo) callDTO {
	return callDTO{
		ID:              info.CallID,
		Number:          info.Number,
		CallType:        info.CallType.String(),
		Video:           info.VideoState == call.VideoStateVideo,
		State:           info.State.String(),
		ConferenceState: info.ConferenceState.String(),
		Direction:       info.Direction.String(),
		Emergency:       info.IsEcc,
		SlotID:          info.SlotID,
		Index:           info.Index,
		CreateTime:      info.CreateTime,
		RingBeginTime:   info.RingBeginTime,
		RingEndTime:     info.RingEndTime,
		BeginTime:       info.BeginTime,
		EndTime:         info.EndTime,
	}
}

// callIDParam parses the {id} path parameter.
func callIDParam(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}

// mapCallError translates call package errors to HTTP status codes.
// Most refusals are state conflicts: the call exists but its current
// state does not permit the operation.
func mapCallError(err error) int {
	switch {
	case errors.Is(err, call.ErrCallNotFound), errors.Is(err, call.ErrCallIDInvalid):
		return http.StatusNotFound
	case errors.Is(err, call.ErrCallState),
		errors.Is(err, call.ErrNotNewState),
		errors.Is(err, call.ErrIllegalCallOperation),
		errors.Is(err, call.ErrVideoIllegalScenario),
		errors.Is(err, call.ErrVideoInProgress),
		errors.Is(err, call.ErrVideoNotSupported),
		errors.Is(err, call.ErrConferenceCallExceedLimit),
		errors.Is(err, call.ErrConferenceNotExists),
		errors.Is(err, call.ErrConferenceSeparateFailed):
		return http.StatusConflict
	case errors.Is(err, call.ErrWorkerStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, call.ErrDialFailed),
		errors.Is(err, call.ErrAnswerFailed),
		errors.Is(err, call.ErrRejectFailed),
		errors.Is(err, call.ErrHangUpFailed),
		errors.Is(err, call.ErrHoldFailed),
		errors.Is(err, call.ErrUnHoldFailed),
		errors.Is(err, call.ErrSwapFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleListCalls returns a snapshot of every live call.
func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	infos := s.registry.AttributeInfoList()
	out := make([]callDTO, 0, len(infos))
	for _, info := range infos {
		out = append(out, toCallDTO(info))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleForegroundCall returns the call the UI should surface: a
// ringing call wins over an active one.
func (s *Server) handleForegroundCall(w http.ResponseWriter, r *http.Request) {
	c := s.registry.ForegroundCall()
	if c == nil {
		writeError(w, r, http.StatusNotFound, "no foreground call")
		return
	}
	writeJSON(w, http.StatusOK, toCallDTO(c.AttributeInfo()))
}

// handleGetCall returns one call by id.
func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	id, err := callIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid call id")
		return
	}
	c := s.registry.GetOneCallByID(id)
	if c == nil {
		writeError(w, r, http.StatusNotFound, "call not found")
		return
	}
	writeJSON(w, http.StatusOK, toCallDTO(c.AttributeInfo()))
}

type dialRequest struct {
	Number       string `json:"number"`
	CallType     string `json:"call_type"`
	Video        bool   `json:"video"`
	Emergency    bool   `json:"emergency"`
	SlotID       int32  `json:"slot_id"`
	BluetoothMac string `json:"bluetooth_mac,omitempty"`
}

func parseCallType(s string) (call.CallType, bool) {
	switch s {
	case "", "cs":
		return call.TypeCS, true
	case "ims":
		return call.TypeIMS, true
	case "ott":
		return call.TypeOTT, true
	case "satellite":
		return call.TypeSatellite, true
	case "bluetooth":
		return call.TypeBluetooth, true
	case "voip":
		return call.TypeVoIP, true
	default:
		return 0, false
	}
}

// handleDial starts an outgoing call through the request worker and
// returns the assigned call id.
func (s *Server) handleDial(w http.ResponseWriter, r *http.Request) {
	var req dialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number == "" {
		writeError(w, r, http.StatusBadRequest, "number is required")
		return
	}
	callType, ok := parseCallType(req.CallType)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown call type")
		return
	}

	info := call.DialParaInfo{
		Number:       req.Number,
		CallType:     callType,
		SlotID:       req.SlotID,
		BluetoothMac: req.BluetoothMac,
	}
	if req.Video {
		info.VideoState = call.VideoStateVideo
	}
	if req.Emergency {
		info.DialScene = call.DialSceneEmergency
	}

	var id int32
	err := s.worker.PostAndWait(func() error {
		var dialErr error
		id, dialErr = s.process.DialRequest(info)
		return dialErr
	})
	if err != nil {
		writeError(w, r, mapCallError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int32{"call_id": id})
}

type answerRequest struct {
	Video bool `json:"video"`
}

// handleAnswer answers a ringing call, optionally accepting video.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := callIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid call id")
		return
	}

	var req answerRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	videoState := call.VideoStateVoice
	if req.Video {
		videoState = call.VideoStateVideo
	}

	s.postCallOp(w, r, func() error { return s.process.AnswerRequest(id, videoState) })
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.RejectRequest)
}

func (s *Server) handleHangUp(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.HangUpRequest)
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.HoldRequest)
}

func (s *Server) handleUnHold(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.UnHoldRequest)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.SwitchRequest)
}

func (s *Server) handleStartRtt(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.StartRttRequest)
}

func (s *Server) handleStopRtt(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.StopRttRequest)
}

func (s *Server) handleStopDtmf(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.StopDtmfRequest)
}

type mediaModeRequest struct {
	Mode string `json:"mode"`
}

func parseCallMode(s string) (call.ImsCallMode, bool) {
	switch s {
	case "audio_only":
		return call.CallModeAudioOnly, true
	case "send_only":
		return call.CallModeSendOnly, true
	case "receive_only":
		return call.CallModeReceiveOnly, true
	case "send_receive":
		return call.CallModeSendReceive, true
	case "video_paused":
		return call.CallModeVideoPaused, true
	default:
		return 0, false
	}
}

// handleUpdateMediaMode starts a video mode negotiation on an IMS call.
func (s *Server) handleUpdateMediaMode(w http.ResponseWriter, r *http.Request) {
	id, err := callIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid call id")
		return
	}
	var req mediaModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, ok := parseCallMode(req.Mode)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown media mode")
		return
	}

	s.postCallOp(w, r, func() error { return s.process.UpdateCallMediaModeRequest(id, mode) })
}

type dtmfRequest struct {
	Digit string `json:"digit"`
}

// handleStartDtmf begins sending one DTMF digit on a carrier call.
func (s *Server) handleStartDtmf(w http.ResponseWriter, r *http.Request) {
	id, err := callIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid call id")
		return
	}
	var req dtmfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Digit) != 1 {
		writeError(w, r, http.StatusBadRequest, "digit must be a single character")
		return
	}

	s.postCallOp(w, r, func() error { return s.process.StartDtmfRequest(id, req.Digit[0]) })
}

type combineRequest struct {
	MainCallID int32 `json:"main_call_id"`
}

// handleCombineConference merges the main call's slot mates into a
// conference.
func (s *Server) handleCombineConference(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	s.postCallOp(w, r, func() error { return s.process.CombineConferenceRequest(req.MainCallID) })
}

func (s *Server) handleSeparateConference(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.SeparateConferenceRequest)
}

func (s *Server) handleKickOutFromConference(w http.ResponseWriter, r *http.Request) {
	s.simpleCallOp(w, r, s.process.KickOutFromConferenceRequest)
}

// simpleCallOp runs an id-only call operation through the worker.
func (s *Server) simpleCallOp(w http.ResponseWriter, r *http.Request, op func(int32) error) {
	id, err := callIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid call id")
		return
	}
	s.postCallOp(w, r, func() error { return op(id) })
}

// postCallOp serializes a call mutation through the request worker and
// writes the outcome.
func (s *Server) postCallOp(w http.ResponseWriter, r *http.Request, fn func() error) {
	if err := s.worker.PostAndWait(fn); err != nil {
		writeError(w, r, mapCallError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "accepted"})
}
