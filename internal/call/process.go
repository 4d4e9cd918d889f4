package call

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DsdsMode is the device's dual-SIM capability mode. It decides what
// happens to calls on the other slot when a call is answered.
type DsdsMode int32

const (
	// DsdsModeV2: dual standby, one slot active at a time.
	DsdsModeV2 DsdsMode = iota
	// DsdsModeV3: answering on one slot disconnects the other slot.
	DsdsModeV3
	// DsdsModeV5TDM: time-division multiplexed dual active.
	DsdsModeV5TDM
	// DsdsModeV5DSDA: true dual active, both slots hold live calls.
	DsdsModeV5DSDA
)

// dialWaitTimeout bounds how long a dial-failure event waits for the
// half-created outgoing call to land in the registry.
const dialWaitTimeout = time.Second

// RequestProcess validates and executes call-control requests against
// the registry. All entry points are expected to run on the
// RequestHandler worker; they are written to be safe to call directly
// in tests.
type RequestProcess struct {
	logger   *slog.Logger
	registry *Registry
	factory  *CallFactory
	notifier CallStateNotifier
	dsds     DsdsMode
}

func NewRequestProcess(registry *Registry, factory *CallFactory, notifier CallStateNotifier, dsds DsdsMode, logger *slog.Logger) *RequestProcess {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestProcess{
		logger:   logger.With("subsystem", "request_process"),
		registry: registry,
		factory:  factory,
		notifier: notifier,
		dsds:     dsds,
	}
}

func (p *RequestProcess) IsDsdsMode3() bool { return p.dsds == DsdsModeV3 }

func (p *RequestProcess) IsDsdsMode5() bool {
	return p.dsds == DsdsModeV5TDM || p.dsds == DsdsModeV5DSDA
}

// DialRequest creates the call object, registers it and hands the dial
// to the transport. A transport refusal rolls the registration back so
// the failed dial leaves no trace.
func (p *RequestProcess) DialRequest(info DialParaInfo) (int32, error) {
	if strings.TrimSpace(info.Number) == "" && info.CallType != TypeBluetooth {
		return 0, fmt.Errorf("%w: empty number", ErrDialFailed)
	}
	switch info.CallType {
	case TypeCS, TypeIMS, TypeSatellite:
		return p.carrierDialProcess(info)
	case TypeOTT:
		return p.ottDialProcess(info)
	case TypeBluetooth:
		return p.bluetoothDialProcess(info)
	default:
		return 0, fmt.Errorf("%w: call type %s cannot dial", ErrIllegalCallOperation, info.CallType)
	}
}

func (p *RequestProcess) carrierDialProcess(info DialParaInfo) (int32, error) {
	if info.DialScene == DialSceneEmergency {
		p.eccDialPolicy()
	} else if p.registry.HasDialingCall() {
		return 0, fmt.Errorf("%w: a dial is already in progress", ErrIllegalCallOperation)
	}
	return p.dialCommon(info)
}

func (p *RequestProcess) ottDialProcess(info DialParaInfo) (int32, error) {
	return p.dialCommon(info)
}

// bluetoothDialProcess refuses to start a relayed dial while any call
// exists; the HFP device can only shadow a single carrier call.
func (p *RequestProcess) bluetoothDialProcess(info DialParaInfo) (int32, error) {
	if p.registry.CallCount() > 0 {
		return 0, fmt.Errorf("%w: bluetooth dial with existing calls", ErrIllegalCallOperation)
	}
	info.CallType = TypeCS
	return p.dialCommon(info)
}

func (p *RequestProcess) dialCommon(info DialParaInfo) (int32, error) {
	id := p.registry.NextCallID()
	c := p.factory.CreateOutgoing(id, info)
	if err := p.registry.AddOneCall(c); err != nil {
		return 0, err
	}
	// The originating side reports dialing locally; the driver confirms
	// with its own report carrying the network index.
	_ = c.SetTelCallState(StateDialing)
	p.notifier.NotifyNewCallCreated(c.AttributeInfo())
	if err := c.Dial(); err != nil {
		_ = c.SetTelCallState(StateDisconnected)
		p.notifier.NotifyCallDestroyed(c.AttributeInfo())
		_ = p.registry.DeleteOneCall(id)
		return 0, err
	}
	return id, nil
}

// eccDialPolicy clears the line for an emergency dial: ringing calls
// are rejected, every other live call is hung up.
func (p *RequestProcess) eccDialPolicy() {
	for _, c := range p.registry.List() {
		switch c.State() {
		case StateIncoming, StateWaiting:
			if err := c.Reject(); err != nil {
				p.logger.Warn("ecc policy reject failed", "call_id", c.CallID(), "error", err)
			}
		case StateDialing, StateAlerting, StateActive, StateHolding:
			if err := c.HangUp(); err != nil {
				p.logger.Warn("ecc policy hangup failed", "call_id", c.CallID(), "error", err)
			}
		}
	}
}

// AnswerRequest answers a ringing call, first applying the call-waiting
// policy to whatever already occupies the line.
func (p *RequestProcess) AnswerRequest(callID int32, videoState VideoState) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("answer request for unknown call", "call_id", callID)
		return nil
	}
	switch c.State() {
	case StateIncoming, StateWaiting:
	default:
		return ErrIllegalCallOperation
	}
	deferred, err := p.holdOrDisconnectedCall(c)
	if err != nil {
		return err
	}
	if deferred {
		// The answer fires from the report path once the conflicting
		// call's disconnect lands.
		return nil
	}
	if err := c.Answer(videoState); err != nil {
		return err
	}
	p.notifier.NotifyIncomingCallAnswered(c.AttributeInfo())
	return nil
}

// holdOrDisconnectedCall clears room for the call being answered,
// applying the DSDA arbitration policy by the number of held calls. A
// true result means the answer was deferred to the auto-answer path.
func (p *RequestProcess) holdOrDisconnectedCall(answering Call) (bool, error) {
	held := p.heldCalls()
	switch len(held) {
	case 0:
		return p.handleCallWaitingNumZero(answering)
	case 1:
		return false, p.handleCallWaitingNumOne(answering, held[0])
	default:
		return false, p.handleCallWaitingNumTwo(answering, held)
	}
}

func (p *RequestProcess) heldCalls() []Call {
	var out []Call
	for _, c := range p.registry.List() {
		if c.State() == StateHolding {
			out = append(out, c)
		}
	}
	return out
}

func (p *RequestProcess) activeCalls() []Call {
	var out []Call
	for _, c := range p.registry.List() {
		if c.State() == StateActive {
			out = append(out, c)
		}
	}
	return out
}

// handleCallWaitingNumZero: no held call. A same-slot active call is
// held; an other-slot active call is disconnected in mode 3 and left
// running in mode 5 (dual active).
func (p *RequestProcess) handleCallWaitingNumZero(answering Call) (bool, error) {
	for _, active := range p.activeCalls() {
		if active.CallID() == answering.CallID() {
			continue
		}
		if active.SlotID() == answering.SlotID() {
			if p.needDisconnectForVideo(answering, active) {
				if err := p.disconnectForAutoAnswer(answering, active); err != nil {
					return false, err
				}
				return true, nil
			}
			if err := active.Hold(); err != nil {
				return false, err
			}
			continue
		}
		if p.IsDsdsMode3() {
			if err := active.HangUp(); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// handleCallWaitingNumOne: one call already held, so holding the active
// call again would exceed the line; the active call is disconnected.
func (p *RequestProcess) handleCallWaitingNumOne(answering Call, held Call) error {
	for _, active := range p.activeCalls() {
		if active.CallID() == answering.CallID() {
			continue
		}
		if active.SlotID() == answering.SlotID() || p.IsDsdsMode3() {
			if err := active.HangUp(); err != nil {
				return err
			}
		}
	}
	held.SetCanUnHold(true)
	return nil
}

// handleCallWaitingNumTwo: line completely full; the oldest held call
// is dropped before the zero/one policy applies.
func (p *RequestProcess) handleCallWaitingNumTwo(answering Call, held []Call) error {
	if err := held[0].HangUp(); err != nil {
		return err
	}
	return p.handleCallWaitingNumOne(answering, held[1])
}

// needDisconnectForVideo: mode 5 devices cannot hold a voice call
// alongside an answered video call (or the reverse) on the same slot.
func (p *RequestProcess) needDisconnectForVideo(answering, active Call) bool {
	if !p.IsDsdsMode5() {
		return false
	}
	return answering.VideoState() != active.VideoState()
}

// disconnectForAutoAnswer drops the conflicting call and marks the
// ringing call for automatic answer once the disconnect report lands.
func (p *RequestProcess) disconnectForAutoAnswer(answering, active Call) error {
	if err := active.HangUp(); err != nil {
		return err
	}
	if ac, ok := answering.(interface{ SetAutoAnswer(bool) }); ok {
		ac.SetAutoAnswer(true)
	}
	return nil
}

// RejectRequest rejects a ringing call. Any held call is pinned so a
// stray unhold cannot resume it mid-reject.
func (p *RequestProcess) RejectRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("reject request for unknown call", "call_id", callID)
		return nil
	}
	switch c.State() {
	case StateIncoming, StateWaiting:
	default:
		return ErrIllegalCallOperation
	}
	for _, held := range p.heldCalls() {
		held.SetCanUnHold(false)
	}
	if err := c.Reject(); err != nil {
		return err
	}
	p.notifier.NotifyIncomingCallRejected(c.AttributeInfo())
	return nil
}

// HangUpRequest ends a call. A ringing call is rejected instead; a
// conference member is kicked out of the grouping first so the
// remaining parties stay connected.
func (p *RequestProcess) HangUpRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("hangup request for unknown call", "call_id", callID)
		return nil
	}
	switch c.State() {
	case StateIncoming, StateWaiting:
		if err := c.Reject(); err != nil {
			return err
		}
		p.notifier.NotifyIncomingCallRejected(c.AttributeInfo())
		return nil
	case StateDisconnected, StateDisconnecting:
		return ErrIllegalCallOperation
	}
	if c.ConferenceState() == TelConferenceActive && p.registry.HasRingingCall() {
		if err := c.KickOutFromConference(); err != nil {
			p.logger.Warn("kick out before hangup failed", "call_id", callID, "error", err)
		}
	}
	return c.HangUp()
}

// HoldRequest parks an active call.
func (p *RequestProcess) HoldRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("hold request for unknown call", "call_id", callID)
		return nil
	}
	if c.State() != StateActive {
		return ErrIllegalCallOperation
	}
	return c.Hold()
}

// UnHoldRequest resumes a held call. When another call is active on the
// same slot the operations swap instead, matching carrier semantics.
func (p *RequestProcess) UnHoldRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("unhold request for unknown call", "call_id", callID)
		return nil
	}
	if c.State() != StateHolding {
		return ErrIllegalCallOperation
	}
	if !c.CanUnHold() {
		return ErrIllegalCallOperation
	}
	for _, active := range p.activeCalls() {
		if active.SlotID() == c.SlotID() {
			return c.SwitchCall()
		}
	}
	return c.UnHold()
}

// SwitchRequest swaps the active and held calls on the call's slot.
func (p *RequestProcess) SwitchRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("switch request for unknown call", "call_id", callID)
		return nil
	}
	switch c.State() {
	case StateActive, StateHolding:
	default:
		return ErrIllegalCallOperation
	}
	return c.SwitchCall()
}

// CombineConferenceRequest merges the active call with the held calls
// of the same transport family into one conference.
func (p *RequestProcess) CombineConferenceRequest(mainCallID int32) error {
	main := p.registry.GetOneCallByID(mainCallID)
	if main == nil {
		p.logger.Warn("combine request for unknown call", "call_id", mainCallID)
		return nil
	}
	if main.State() != StateActive {
		return ErrIllegalCallOperation
	}
	if err := main.CanCombineConference(); err != nil {
		return err
	}
	if err := main.CombineConference(); err != nil {
		return err
	}
	conf := p.conferenceOf(main)
	if conf == nil {
		return nil
	}
	for _, held := range p.heldCalls() {
		if held.CallType() != main.CallType() || held.SlotID() != main.SlotID() {
			continue
		}
		if err := conf.AddSubCall(held.CallID()); err != nil {
			p.logger.Warn("sub call refused by conference", "call_id", held.CallID(), "error", err)
			continue
		}
		held.SetConferenceState(TelConferenceActive)
	}
	return nil
}

// SeparateConferenceRequest splits one member out of its conference.
func (p *RequestProcess) SeparateConferenceRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("separate request for unknown call", "call_id", callID)
		return nil
	}
	conf := p.conferenceOf(c)
	if conf != nil && !conf.HasMember(callID) && conf.MainCallID() != callID {
		return ErrConferenceSeparateFailed
	}
	return c.SeparateConference()
}

// KickOutFromConferenceRequest removes a member and hangs it up.
func (p *RequestProcess) KickOutFromConferenceRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("kick out request for unknown call", "call_id", callID)
		return nil
	}
	conf := p.conferenceOf(c)
	if conf != nil && !conf.HasMember(callID) {
		return ErrCallIDInvalid
	}
	return c.KickOutFromConference()
}

func (p *RequestProcess) conferenceOf(c Call) *Conference {
	switch c.CallType() {
	case TypeCS:
		return p.factory.csConf
	case TypeIMS:
		return p.factory.imsConf
	case TypeOTT:
		return p.factory.ottConf
	default:
		return nil
	}
}

// UpdateCallMediaModeRequest drives the IMS video negotiation for one
// call; other transports cannot change media mode.
func (p *RequestProcess) UpdateCallMediaModeRequest(callID int32, mode ImsCallMode) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("media mode request for unknown call", "call_id", callID)
		return nil
	}
	ims, ok := c.(*IMSCall)
	if !ok {
		return ErrVideoNotSupported
	}
	return ims.UpdateImsCallMode(mode)
}

// StartRttRequest and StopRttRequest toggle real-time text on an IMS
// call.
func (p *RequestProcess) StartRttRequest(callID int32) error {
	ims, err := p.imsCall(callID)
	if err != nil || ims == nil {
		return err
	}
	return ims.StartRtt()
}

func (p *RequestProcess) StopRttRequest(callID int32) error {
	ims, err := p.imsCall(callID)
	if err != nil || ims == nil {
		return err
	}
	return ims.StopRtt()
}

func (p *RequestProcess) imsCall(callID int32) (*IMSCall, error) {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("request for unknown call", "call_id", callID)
		return nil, nil
	}
	ims, ok := c.(*IMSCall)
	if !ok {
		return nil, ErrIllegalCallOperation
	}
	return ims, nil
}

// DTMF requests forward to the carrier call.
func (p *RequestProcess) StartDtmfRequest(callID int32, digit byte) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("dtmf request for unknown call", "call_id", callID)
		return nil
	}
	d, ok := c.(interface{ StartDtmf(byte) error })
	if !ok {
		return ErrIllegalCallOperation
	}
	return d.StartDtmf(digit)
}

func (p *RequestProcess) StopDtmfRequest(callID int32) error {
	c := p.registry.GetOneCallByID(callID)
	if c == nil {
		p.logger.Warn("dtmf request for unknown call", "call_id", callID)
		return nil
	}
	d, ok := c.(interface{ StopDtmf() error })
	if !ok {
		return ErrIllegalCallOperation
	}
	return d.StopDtmf()
}
