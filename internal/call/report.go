package call

import (
	"errors"
	"log/slog"
)

// ReportHandler applies asynchronous driver reports to the registry.
// Reports are the only input that advances a call's transport state;
// control requests merely ask the driver to act. Like the request
// process, the handler runs on the serialized worker.
type ReportHandler struct {
	logger   *slog.Logger
	registry *Registry
	factory  *CallFactory
	process  *RequestProcess
	notifier CallStateNotifier
}

func NewReportHandler(registry *Registry, factory *CallFactory, process *RequestProcess, notifier CallStateNotifier, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		logger:   logger.With("subsystem", "report_handler"),
		registry: registry,
		factory:  factory,
		process:  process,
		notifier: notifier,
	}
}

// HandleCallReportInfo applies one call-state report. Re-delivery of an
// already-applied state is a no-op: no notification, no state churn.
func (h *ReportHandler) HandleCallReportInfo(info CallDetailInfo) error {
	c := h.resolve(info)
	if c == nil {
		if info.State == StateDisconnected || info.State == StateDisconnecting {
			h.logger.Warn("dropping terminal report for unknown call", "index", info.Index, "slot_id", info.SlotID)
			return nil
		}
		c = h.createFromReport(info)
		if c == nil {
			return ErrLocalPointerNull
		}
	}
	prior := c.State()
	if err := c.SetTelCallState(info.State); err != nil {
		if errors.Is(err, ErrNotNewState) {
			h.logger.Debug("duplicate state report ignored", "call_id", c.CallID(), "state", info.State)
			return nil
		}
		return err
	}
	h.notifier.NotifyCallStateUpdated(c.AttributeInfo(), prior, info.State)
	if info.State == StateDisconnected {
		h.destroyCall(c)
		h.answerPendingAutoAnswer()
	}
	return nil
}

// resolve finds the call a report refers to: by network reference
// first, then by number for a fresh outgoing call that has no index
// yet. The index from the report is adopted in that case.
func (h *ReportHandler) resolve(info CallDetailInfo) Call {
	if c := h.registry.GetCallByIndexAndSlot(info.Index, info.SlotID); c != nil {
		return c
	}
	c := h.registry.GetCallByNumber(info.Number)
	if c == nil || c.Index() != 0 || c.SlotID() != info.SlotID {
		return nil
	}
	if cc, ok := c.(interface{ setIndex(int32) }); ok {
		cc.setIndex(info.Index)
	}
	return c
}

func (h *ReportHandler) createFromReport(info CallDetailInfo) Call {
	id := h.registry.NextCallID()
	c := h.factory.CreateIncoming(id, info)
	if err := h.registry.AddOneCall(c); err != nil {
		h.logger.Error("failed to register reported call", "call_id", id, "error", err)
		return nil
	}
	h.notifier.NotifyNewCallCreated(c.AttributeInfo())
	return c
}

func (h *ReportHandler) destroyCall(c Call) {
	conf := h.process.conferenceOf(c)
	if conf != nil && (conf.HasMember(c.CallID()) || conf.MainCallID() == c.CallID()) {
		if err := conf.LeaveFromConference(c.CallID()); err != nil {
			h.logger.Warn("conference cleanup failed", "call_id", c.CallID(), "error", err)
		}
	}
	h.notifier.NotifyCallDestroyed(c.AttributeInfo())
	if err := h.registry.DeleteOneCall(c.CallID()); err != nil {
		h.logger.Warn("delete after disconnect failed", "call_id", c.CallID(), "error", err)
	}
}

// answerPendingAutoAnswer answers a ringing call that was marked for
// automatic answer when the arbitration policy dropped a conflicting
// call.
func (h *ReportHandler) answerPendingAutoAnswer() {
	for _, c := range h.registry.List() {
		switch c.State() {
		case StateIncoming, StateWaiting:
		default:
			continue
		}
		aa, ok := c.(interface{ AutoAnswer() bool })
		if !ok || !aa.AutoAnswer() {
			continue
		}
		if sa, ok := c.(interface{ SetAutoAnswer(bool) }); ok {
			sa.SetAutoAnswer(false)
		}
		if err := h.process.AnswerRequest(c.CallID(), c.VideoState()); err != nil {
			h.logger.Warn("auto answer failed", "call_id", c.CallID(), "error", err)
		}
		return
	}
}

// HandleCallEventInfo applies a driver completion event. Dial failures
// tear down the half-created outgoing call once it shows up.
func (h *ReportHandler) HandleCallEventInfo(event CellularCallEventInfo) {
	h.notifier.NotifyCallEventUpdated(event)
	switch event.EventID {
	case ResultDialSendFailed, ResultDialNoCarrier:
		h.handleDialFail()
	}
}

// handleDialFail waits briefly for the outgoing call object: the
// failure event can outrun the registration when the driver refuses
// immediately.
func (h *ReportHandler) handleDialFail() {
	if !h.registry.WaitForOutgoingCall(dialWaitTimeout) {
		h.logger.Warn("dial failure with no outgoing call")
		return
	}
	for _, c := range h.registry.List() {
		if c.Direction() != DirectionOut {
			continue
		}
		switch c.RunningState() {
		case RunningStateCreate, RunningStateDialing:
			_ = c.SetTelCallState(StateDisconnected)
			h.destroyCall(c)
			return
		}
	}
}

// HandleMediaModeRequest routes a peer-initiated video mode request to
// the owning IMS call.
func (h *ReportHandler) HandleMediaModeRequest(info CallMediaModeInfo) error {
	ims := h.imsCall(info.CallID)
	if ims == nil {
		return nil
	}
	return ims.ReceiveUpdateCallMediaModeRequest(info)
}

// HandleMediaModeResponse routes the peer's answer to our request.
func (h *ReportHandler) HandleMediaModeResponse(info CallMediaModeInfo) error {
	ims := h.imsCall(info.CallID)
	if ims == nil {
		return nil
	}
	return ims.ReceiveUpdateCallMediaModeResponse(info)
}

func (h *ReportHandler) imsCall(callID int32) *IMSCall {
	c := h.registry.GetOneCallByID(callID)
	if c == nil {
		h.logger.Warn("media mode report for unknown call", "call_id", callID)
		return nil
	}
	ims, ok := c.(*IMSCall)
	if !ok {
		h.logger.Warn("media mode report for non-ims call", "call_id", callID, "call_type", c.CallType().String())
		return nil
	}
	return ims
}
