package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/callgrid/callgrid/internal/call"
)

// loopbackDelay paces the simulated carrier's state reports.
const loopbackDelay = 200 * time.Millisecond

// loopbackDriver stands in for the cellular/IMS driver when no real
// binding is configured. Every request is accepted and the matching
// state reports are fed back asynchronously, so the whole
// request/report pipeline runs without a modem.
type loopbackDriver struct {
	logger *slog.Logger

	mu      sync.Mutex
	reports *call.ReportHandler
	nextIdx int32
}

func newLoopbackDriver(logger *slog.Logger) *loopbackDriver {
	return &loopbackDriver{
		logger:  logger.With("subsystem", "loopback_driver"),
		nextIdx: 1,
	}
}

// SetReportHandler wires the report path in; the handler is built after
// the factory, which already needs the driver.
func (d *loopbackDriver) SetReportHandler(h *call.ReportHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reports = h
}

func (d *loopbackDriver) post(after time.Duration, info call.CallDetailInfo) {
	d.mu.Lock()
	reports := d.reports
	d.mu.Unlock()
	if reports == nil {
		return
	}
	time.AfterFunc(after, func() {
		if err := reports.HandleCallReportInfo(info); err != nil {
			d.logger.Debug("loopback report dropped", "state", info.State.String(), "error", err)
		}
	})
}

func detail(info call.CellularCallInfo, state call.TelCallState) call.CallDetailInfo {
	return call.CallDetailInfo{
		Index:      info.Index,
		SlotID:     info.SlotID,
		CallType:   info.CallType,
		VideoState: info.VideoState,
		State:      state,
		Number:     info.Number,
	}
}

// Dial assigns a network index and walks the call through dialing,
// alerting and active as a cooperative remote party would.
func (d *loopbackDriver) Dial(info call.CellularCallInfo) error {
	d.mu.Lock()
	info.Index = d.nextIdx
	d.nextIdx++
	d.mu.Unlock()

	d.logger.Info("loopback dial", "number", info.Number, "index", info.Index, "slot", info.SlotID)
	d.post(loopbackDelay, detail(info, call.StateDialing))
	d.post(2*loopbackDelay, detail(info, call.StateAlerting))
	d.post(4*loopbackDelay, detail(info, call.StateActive))
	return nil
}

func (d *loopbackDriver) Answer(info call.CellularCallInfo) error {
	d.post(loopbackDelay, detail(info, call.StateActive))
	return nil
}

func (d *loopbackDriver) Reject(info call.CellularCallInfo) error {
	d.post(loopbackDelay, detail(info, call.StateDisconnected))
	return nil
}

func (d *loopbackDriver) HangUp(info call.CellularCallInfo) error {
	d.post(loopbackDelay, detail(info, call.StateDisconnected))
	return nil
}

func (d *loopbackDriver) Hold(info call.CellularCallInfo) error {
	d.post(loopbackDelay, detail(info, call.StateHolding))
	return nil
}

func (d *loopbackDriver) UnHold(info call.CellularCallInfo) error {
	d.post(loopbackDelay, detail(info, call.StateActive))
	return nil
}

func (d *loopbackDriver) SwitchCall(slotID int32) error {
	d.logger.Debug("loopback switch", "slot", slotID)
	return nil
}

func (d *loopbackDriver) CombineConference(info call.CellularCallInfo) error {
	d.logger.Debug("loopback combine", "call_id", info.CallID)
	return nil
}

func (d *loopbackDriver) SeparateConference(info call.CellularCallInfo) error {
	d.logger.Debug("loopback separate", "call_id", info.CallID)
	return nil
}

func (d *loopbackDriver) KickOutFromConference(info call.CellularCallInfo) error {
	d.post(loopbackDelay, detail(info, call.StateDisconnected))
	return nil
}

// SendUpdateCallMediaModeRequest answers the negotiation itself: the
// simulated peer accepts whatever mode was proposed.
func (d *loopbackDriver) SendUpdateCallMediaModeRequest(info call.CellularCallInfo, mode call.ImsCallMode) error {
	d.mu.Lock()
	reports := d.reports
	d.mu.Unlock()
	if reports == nil {
		return nil
	}
	time.AfterFunc(loopbackDelay, func() {
		err := reports.HandleMediaModeResponse(call.CallMediaModeInfo{
			CallID:   info.CallID,
			CallMode: mode,
		})
		if err != nil {
			d.logger.Debug("loopback media response dropped", "call_id", info.CallID, "error", err)
		}
	})
	return nil
}

func (d *loopbackDriver) SendUpdateCallMediaModeResponse(info call.CellularCallInfo, mode call.ImsCallMode) error {
	d.logger.Debug("loopback media response", "call_id", info.CallID, "mode", mode.String())
	return nil
}

func (d *loopbackDriver) CancelCallUpgrade(slotID, index int32) error { return nil }

func (d *loopbackDriver) ControlCamera(slotID, index int32, cameraID string) error     { return nil }
func (d *loopbackDriver) SetPreviewWindow(slotID, index int32, surfaceID string) error { return nil }
func (d *loopbackDriver) SetDisplayWindow(slotID, index int32, surfaceID string) error { return nil }
func (d *loopbackDriver) SetPausePicture(slotID, index int32, path string) error       { return nil }
func (d *loopbackDriver) SetDeviceDirection(slotID, index int32, rotation int32) error { return nil }
func (d *loopbackDriver) RequestCameraCapabilities(slotID, index int32) error          { return nil }

func (d *loopbackDriver) StartRtt(slotID, index int32) error { return nil }
func (d *loopbackDriver) StopRtt(slotID, index int32) error  { return nil }

func (d *loopbackDriver) StartDtmf(digit byte, info call.CellularCallInfo) error {
	d.logger.Debug("loopback dtmf start", "call_id", info.CallID, "digit", string(digit))
	return nil
}

func (d *loopbackDriver) StopDtmf(info call.CellularCallInfo) error { return nil }

func (d *loopbackDriver) SendDtmf(digit byte, info call.CellularCallInfo) error {
	d.logger.Debug("loopback dtmf", "call_id", info.CallID, "digit", string(digit))
	return nil
}

// noopOTT logs OTT requests; a deployment binds the companion app here.
type noopOTT struct{ logger *slog.Logger }

func (o *noopOTT) DialOTT(number string, videoState call.VideoState) error {
	o.logger.Info("ott dial", "number", number)
	return nil
}
func (o *noopOTT) AnswerOTT(number string, videoState call.VideoState) error { return nil }
func (o *noopOTT) RejectOTT(number string) error                             { return nil }
func (o *noopOTT) HangUpOTT(number string) error                             { return nil }
func (o *noopOTT) HoldOTT(number string) error                               { return nil }
func (o *noopOTT) UnHoldOTT(number string) error                             { return nil }
func (o *noopOTT) SwitchOTT(number string) error                             { return nil }

type noopBluetooth struct{ logger *slog.Logger }

func (b *noopBluetooth) AnswerBluetoothCall(mac string) error {
	b.logger.Info("bluetooth answer", "mac", mac)
	return nil
}
func (b *noopBluetooth) RejectBluetoothCall(mac string) error { return nil }
func (b *noopBluetooth) HangUpBluetoothCall(mac string) error { return nil }

type noopVoIP struct{ logger *slog.Logger }

func (v *noopVoIP) ReportVoipCallEvent(voipCallID string, event call.VoipCallEvent) error {
	v.logger.Info("voip event", "voip_call_id", voipCallID, "event", event)
	return nil
}

// logMediaReporter surfaces video negotiation progress in the log; a
// deployment binds the UI here.
type logMediaReporter struct{ logger *slog.Logger }

func (m *logMediaReporter) ReportCallMediaModeInfo(info call.CallMediaModeInfo) {
	m.logger.Info("media mode report",
		"call_id", info.CallID, "mode", info.CallMode.String(), "result", info.Result)
}
