package call

import (
	"errors"
	"testing"
)

// dialOut drives a dial through the process and confirms it with the
// driver report carrying the network index.
func dialOut(t *testing.T, env *testEnv, number string, slot, index int32, callType CallType) int32 {
	t.Helper()
	id, err := env.process.DialRequest(DialParaInfo{Number: number, CallType: callType, SlotID: slot})
	if err != nil {
		t.Fatalf("DialRequest(%s): %v", number, err)
	}
	if err := env.reports.HandleCallReportInfo(CallDetailInfo{
		Index: index, SlotID: slot, CallType: callType, Number: number, State: StateDialing,
	}); err != nil {
		t.Fatalf("dialing report: %v", err)
	}
	return id
}

// reportState delivers one driver report for an already-known call.
func reportState(t *testing.T, env *testEnv, c Call, state TelCallState) {
	t.Helper()
	if err := env.reports.HandleCallReportInfo(CallDetailInfo{
		Index: c.Index(), SlotID: c.SlotID(), CallType: c.CallType(), Number: c.Number(), State: state,
	}); err != nil {
		t.Fatalf("report %v: %v", state, err)
	}
}

// ringIn creates an incoming call via driver report.
func ringIn(t *testing.T, env *testEnv, number string, slot, index int32, callType CallType) Call {
	t.Helper()
	if err := env.reports.HandleCallReportInfo(CallDetailInfo{
		Index: index, SlotID: slot, CallType: callType, Number: number, State: StateIncoming,
	}); err != nil {
		t.Fatalf("incoming report: %v", err)
	}
	c := env.registry.GetCallByIndexAndSlot(index, slot)
	if c == nil {
		t.Fatalf("incoming call not registered")
	}
	return c
}

func TestDialRequestRegistersAndDials(t *testing.T) {
	env := newTestEnv(DsdsModeV2)

	id, err := env.process.DialRequest(DialParaInfo{Number: "600", CallType: TypeCS, SlotID: 0})
	if err != nil {
		t.Fatalf("DialRequest: %v", err)
	}

	c := env.registry.GetOneCallByID(id)
	if c == nil {
		t.Fatalf("dialed call not in registry")
	}
	if c.State() != StateDialing {
		t.Fatalf("state = %v, want dialing", c.State())
	}
	if len(env.conn.dials) != 1 {
		t.Fatalf("driver saw %d dials", len(env.conn.dials))
	}
	if len(env.notifier.created) != 1 {
		t.Fatalf("created notifications = %d", len(env.notifier.created))
	}
}

func TestDialRequestEmptyNumber(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	if _, err := env.process.DialRequest(DialParaInfo{Number: "  ", CallType: TypeCS}); !errors.Is(err, ErrDialFailed) {
		t.Fatalf("expected ErrDialFailed, got %v", err)
	}
}

func TestDialRequestRollbackOnDriverRefusal(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	env.conn.dialErr = errDriver

	if _, err := env.process.DialRequest(DialParaInfo{Number: "601", CallType: TypeCS}); !errors.Is(err, ErrDialFailed) {
		t.Fatalf("expected wrapped ErrDialFailed, got %v", err)
	}
	// The failed dial leaves no trace behind.
	if env.registry.CallCount() != 0 {
		t.Fatalf("registry holds %d calls after failed dial", env.registry.CallCount())
	}
	if len(env.notifier.destroyed) != 1 {
		t.Fatalf("destroyed notifications = %d", len(env.notifier.destroyed))
	}
}

func TestDialRequestRefusedWhileDialing(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	dialOut(t, env, "602", 0, 1, TypeCS)

	if _, err := env.process.DialRequest(DialParaInfo{Number: "603", CallType: TypeCS}); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestBluetoothDialRefusedWithExistingCalls(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	dialOut(t, env, "604", 0, 1, TypeCS)

	if _, err := env.process.DialRequest(DialParaInfo{CallType: TypeBluetooth, BluetoothMac: "aa:bb"}); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestBluetoothDialRoutesThroughCarrier(t *testing.T) {
	env := newTestEnv(DsdsModeV2)

	id, err := env.process.DialRequest(DialParaInfo{Number: "605", CallType: TypeBluetooth, BluetoothMac: "aa:bb"})
	if err != nil {
		t.Fatalf("DialRequest: %v", err)
	}
	c := env.registry.GetOneCallByID(id)
	if c == nil || c.CallType() != TypeCS {
		t.Fatalf("bluetooth dial should build a carrier call")
	}
	if len(env.conn.dials) != 1 {
		t.Fatalf("driver saw %d dials", len(env.conn.dials))
	}
}

func TestEmergencyDialClearsTheLine(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	active := dialOut(t, env, "606", 0, 1, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(active), StateActive)
	ringIn(t, env, "607", 0, 2, TypeCS)

	if _, err := env.process.DialRequest(DialParaInfo{Number: "112", CallType: TypeCS, DialScene: DialSceneEmergency}); err != nil {
		t.Fatalf("emergency dial: %v", err)
	}
	// The ringing call was rejected, the active call hung up.
	if len(env.conn.rejects) != 1 {
		t.Fatalf("rejects = %d", len(env.conn.rejects))
	}
	if len(env.conn.hangups) != 1 {
		t.Fatalf("hangups = %d", len(env.conn.hangups))
	}
}

func TestAnswerRequest(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	c := ringIn(t, env, "610", 0, 1, TypeCS)

	if err := env.process.AnswerRequest(c.CallID(), VideoStateVoice); err != nil {
		t.Fatalf("AnswerRequest: %v", err)
	}
	if len(env.conn.answers) != 1 {
		t.Fatalf("driver saw %d answers", len(env.conn.answers))
	}
	if len(env.notifier.answered) != 1 {
		t.Fatalf("answered notifications = %d", len(env.notifier.answered))
	}
}

func TestAnswerRequestUnknownCallIsSilent(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	if err := env.process.AnswerRequest(99, VideoStateVoice); err != nil {
		t.Fatalf("unknown call should be a silent no-op, got %v", err)
	}
	if len(env.conn.answers) != 0 {
		t.Fatalf("driver was called for an unknown call")
	}
}

func TestAnswerRequestNotRinging(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "611", 0, 1, TypeCS)

	if err := env.process.AnswerRequest(id, VideoStateVoice); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestAnswerHoldsSameSlotActiveCall(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	activeID := dialOut(t, env, "612", 0, 1, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(activeID), StateActive)
	waiting := ringIn(t, env, "613", 0, 2, TypeCS)

	if err := env.process.AnswerRequest(waiting.CallID(), VideoStateVoice); err != nil {
		t.Fatalf("AnswerRequest: %v", err)
	}
	if len(env.conn.holds) != 1 {
		t.Fatalf("active call was not held (%d holds)", len(env.conn.holds))
	}
}

func TestAnswerDisconnectsOtherSlotInMode3(t *testing.T) {
	env := newTestEnv(DsdsModeV3)
	activeID := dialOut(t, env, "614", 0, 1, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(activeID), StateActive)
	waiting := ringIn(t, env, "615", 1, 1, TypeCS)

	if err := env.process.AnswerRequest(waiting.CallID(), VideoStateVoice); err != nil {
		t.Fatalf("AnswerRequest: %v", err)
	}
	if len(env.conn.hangups) != 1 {
		t.Fatalf("other-slot active call was not disconnected")
	}
}

func TestAnswerKeepsOtherSlotInDualActive(t *testing.T) {
	env := newTestEnv(DsdsModeV5DSDA)
	activeID := dialOut(t, env, "616", 0, 1, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(activeID), StateActive)
	waiting := ringIn(t, env, "617", 1, 1, TypeCS)

	if err := env.process.AnswerRequest(waiting.CallID(), VideoStateVoice); err != nil {
		t.Fatalf("AnswerRequest: %v", err)
	}
	if len(env.conn.hangups) != 0 || len(env.conn.holds) != 0 {
		t.Fatalf("dual active should leave the other slot alone")
	}
}

func TestAnswerWithHeldCallDropsActive(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "618", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)
	held.SetCanUnHold(false)

	activeID := dialOut(t, env, "619", 0, 2, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(activeID), StateActive)
	waiting := ringIn(t, env, "620", 0, 3, TypeCS)

	if err := env.process.AnswerRequest(waiting.CallID(), VideoStateVoice); err != nil {
		t.Fatalf("AnswerRequest: %v", err)
	}
	// The line is full: the active call is hung up and the held call is
	// released for a later unhold.
	if len(env.conn.hangups) != 1 {
		t.Fatalf("hangups = %d", len(env.conn.hangups))
	}
	if !held.CanUnHold() {
		t.Fatalf("held call should be unholdable again")
	}
}

func TestVideoConflictTriggersAutoAnswer(t *testing.T) {
	env := newTestEnv(DsdsModeV5TDM)
	activeID := dialOut(t, env, "621", 0, 1, TypeCS)
	active := env.registry.GetOneCallByID(activeID)
	reportState(t, env, active, StateActive)

	// A video call rings on the slot that holds a voice call.
	if err := env.reports.HandleCallReportInfo(CallDetailInfo{
		Index: 2, SlotID: 0, CallType: TypeIMS, Number: "622", VideoState: VideoStateVideo, State: StateIncoming,
	}); err != nil {
		t.Fatalf("incoming report: %v", err)
	}
	ringing := env.registry.GetCallByIndexAndSlot(2, 0)

	if err := env.process.AnswerRequest(ringing.CallID(), VideoStateVideo); err != nil {
		t.Fatalf("AnswerRequest: %v", err)
	}
	// Conflicting voice call is dropped; the answer is deferred until
	// its disconnect report lands.
	if len(env.conn.hangups) != 1 {
		t.Fatalf("conflicting call was not dropped")
	}
	if len(env.conn.answers) != 0 {
		t.Fatalf("answer should be deferred")
	}
	reportState(t, env, active, StateDisconnected)
	if len(env.conn.answers) == 0 {
		t.Fatalf("pending auto answer did not fire")
	}
}

func TestRejectRequestPinsHeldCalls(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "623", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)
	ringing := ringIn(t, env, "624", 0, 2, TypeCS)

	if err := env.process.RejectRequest(ringing.CallID()); err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if held.CanUnHold() {
		t.Fatalf("held call should be pinned during reject")
	}
	if len(env.notifier.rejected) != 1 {
		t.Fatalf("rejected notifications = %d", len(env.notifier.rejected))
	}
}

func TestRejectRequestNotRinging(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "625", 0, 1, TypeCS)
	if err := env.process.RejectRequest(id); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestHangUpRingingCallRejectsInstead(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	ringing := ringIn(t, env, "626", 0, 1, TypeCS)

	if err := env.process.HangUpRequest(ringing.CallID()); err != nil {
		t.Fatalf("HangUpRequest: %v", err)
	}
	if len(env.conn.rejects) != 1 || len(env.conn.hangups) != 0 {
		t.Fatalf("ringing hangup should reject (%d rejects, %d hangups)",
			len(env.conn.rejects), len(env.conn.hangups))
	}
}

func TestHangUpTerminalCallRefused(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "627", 0, 1, TypeCS)
	c := env.registry.GetOneCallByID(id)
	reportState(t, env, c, StateActive)
	reportState(t, env, c, StateDisconnecting)

	if err := env.process.HangUpRequest(id); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestHoldRequest(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "628", 0, 1, TypeCS)
	c := env.registry.GetOneCallByID(id)

	// Not active yet: refused.
	if err := env.process.HoldRequest(id); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
	reportState(t, env, c, StateActive)
	if err := env.process.HoldRequest(id); err != nil {
		t.Fatalf("HoldRequest: %v", err)
	}
	if len(env.conn.holds) != 1 {
		t.Fatalf("holds = %d", len(env.conn.holds))
	}
}

func TestUnHoldSwapsWhenSlotHasActiveCall(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "629", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)
	activeID := dialOut(t, env, "630", 0, 2, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(activeID), StateActive)

	if err := env.process.UnHoldRequest(heldID); err != nil {
		t.Fatalf("UnHoldRequest: %v", err)
	}
	// With an active call on the slot the request becomes a swap.
	if env.conn.switches != 1 || len(env.conn.unholds) != 0 {
		t.Fatalf("expected swap, got %d switches %d unholds", env.conn.switches, len(env.conn.unholds))
	}
}

func TestUnHoldPlain(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "631", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)

	if err := env.process.UnHoldRequest(heldID); err != nil {
		t.Fatalf("UnHoldRequest: %v", err)
	}
	if len(env.conn.unholds) != 1 {
		t.Fatalf("unholds = %d", len(env.conn.unholds))
	}

	// A pinned held call cannot be resumed.
	held.SetCanUnHold(false)
	if err := env.process.UnHoldRequest(heldID); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestCombineConferenceRequest(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "632", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)
	mainID := dialOut(t, env, "633", 0, 2, TypeCS)
	main := env.registry.GetOneCallByID(mainID)
	reportState(t, env, main, StateActive)

	if err := env.process.CombineConferenceRequest(mainID); err != nil {
		t.Fatalf("CombineConferenceRequest: %v", err)
	}
	if env.conn.combines != 1 {
		t.Fatalf("combines = %d", env.conn.combines)
	}
	if main.ConferenceState() != TelConferenceActive || held.ConferenceState() != TelConferenceActive {
		t.Fatalf("conference states: main=%v held=%v", main.ConferenceState(), held.ConferenceState())
	}
	conf := env.process.conferenceOf(main)
	if conf.MainCallID() != mainID || !conf.HasMember(heldID) {
		t.Fatalf("grouping not recorded")
	}
}

func TestCombineRequiresActiveMain(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "634", 0, 1, TypeCS)
	if err := env.process.CombineConferenceRequest(id); !errors.Is(err, ErrIllegalCallOperation) {
		t.Fatalf("expected ErrIllegalCallOperation, got %v", err)
	}
}

func TestSeparateConferenceRequest(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "635", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)
	mainID := dialOut(t, env, "636", 0, 2, TypeCS)
	main := env.registry.GetOneCallByID(mainID)
	reportState(t, env, main, StateActive)
	if err := env.process.CombineConferenceRequest(mainID); err != nil {
		t.Fatalf("combine: %v", err)
	}

	// A non-member cannot be separated.
	outsiderID := dialOut(t, env, "637", 1, 1, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(outsiderID), StateActive)
	if err := env.process.SeparateConferenceRequest(outsiderID); !errors.Is(err, ErrConferenceSeparateFailed) {
		t.Fatalf("expected ErrConferenceSeparateFailed, got %v", err)
	}

	if err := env.process.SeparateConferenceRequest(heldID); err != nil {
		t.Fatalf("SeparateConferenceRequest: %v", err)
	}
	if env.conn.separates != 1 {
		t.Fatalf("separates = %d", env.conn.separates)
	}
}

func TestKickOutFromConferenceRequest(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	heldID := dialOut(t, env, "638", 0, 1, TypeCS)
	held := env.registry.GetOneCallByID(heldID)
	reportState(t, env, held, StateActive)
	reportState(t, env, held, StateHolding)
	mainID := dialOut(t, env, "639", 0, 2, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(mainID), StateActive)
	if err := env.process.CombineConferenceRequest(mainID); err != nil {
		t.Fatalf("combine: %v", err)
	}

	if err := env.process.KickOutFromConferenceRequest(heldID); err != nil {
		t.Fatalf("KickOutFromConferenceRequest: %v", err)
	}
	if env.conn.kickouts != 1 {
		t.Fatalf("kickouts = %d", env.conn.kickouts)
	}
	conf := env.process.conferenceOf(held)
	if conf.HasMember(heldID) {
		t.Fatalf("member still grouped after kick out")
	}
}

func TestUpdateMediaModeRequiresIMS(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "640", 0, 1, TypeCS)
	c := env.registry.GetOneCallByID(id)
	reportState(t, env, c, StateActive)

	if err := env.process.UpdateCallMediaModeRequest(id, CallModeSendReceive); !errors.Is(err, ErrVideoNotSupported) {
		t.Fatalf("expected ErrVideoNotSupported, got %v", err)
	}
}

func TestDtmfRequests(t *testing.T) {
	env := newTestEnv(DsdsModeV2)
	id := dialOut(t, env, "641", 0, 1, TypeCS)
	reportState(t, env, env.registry.GetOneCallByID(id), StateActive)

	if err := env.process.StartDtmfRequest(id, '5'); err != nil {
		t.Fatalf("StartDtmfRequest: %v", err)
	}
	if err := env.process.StopDtmfRequest(id); err != nil {
		t.Fatalf("StopDtmfRequest: %v", err)
	}
	if len(env.conn.dtmf) != 1 || env.conn.dtmf[0] != '5' {
		t.Fatalf("dtmf digits = %v", env.conn.dtmf)
	}
}
