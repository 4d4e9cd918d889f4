package call

import (
	"errors"
	"log/slog"
	"os"
	"sync"
)

// testLogger keeps test output quiet unless something goes wrong.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var errDriver = errors.New("driver refused")

// mockConnection records every driver request and can be told to fail
// specific operations.
type mockConnection struct {
	mu sync.Mutex

	dialErr   error
	answerErr error
	holdErr   error

	dials     []CellularCallInfo
	answers   []CellularCallInfo
	rejects   []CellularCallInfo
	hangups   []CellularCallInfo
	holds     []CellularCallInfo
	unholds   []CellularCallInfo
	switches  int
	requests  []ImsCallMode
	responses []ImsCallMode
	combines  int
	separates int
	kickouts  int
	rtts      int
	dtmf      []byte
}

func (m *mockConnection) record(dst *[]CellularCallInfo, info CellularCallInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*dst = append(*dst, info)
}

func (m *mockConnection) Dial(info CellularCallInfo) error {
	m.record(&m.dials, info)
	return m.dialErr
}

func (m *mockConnection) Answer(info CellularCallInfo) error {
	m.record(&m.answers, info)
	return m.answerErr
}

func (m *mockConnection) Reject(info CellularCallInfo) error {
	m.record(&m.rejects, info)
	return nil
}

func (m *mockConnection) HangUp(info CellularCallInfo) error {
	m.record(&m.hangups, info)
	return nil
}

func (m *mockConnection) Hold(info CellularCallInfo) error {
	m.record(&m.holds, info)
	return m.holdErr
}

func (m *mockConnection) UnHold(info CellularCallInfo) error {
	m.record(&m.unholds, info)
	return nil
}

func (m *mockConnection) SwitchCall(slotID int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switches++
	return nil
}

func (m *mockConnection) CombineConference(info CellularCallInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combines++
	return nil
}

func (m *mockConnection) SeparateConference(info CellularCallInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.separates++
	return nil
}

func (m *mockConnection) KickOutFromConference(info CellularCallInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kickouts++
	return nil
}

func (m *mockConnection) SendUpdateCallMediaModeRequest(info CellularCallInfo, mode ImsCallMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, mode)
	return nil
}

func (m *mockConnection) SendUpdateCallMediaModeResponse(info CellularCallInfo, mode ImsCallMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mode)
	return nil
}

func (m *mockConnection) CancelCallUpgrade(slotID, index int32) error { return nil }

func (m *mockConnection) ControlCamera(slotID, index int32, cameraID string) error { return nil }
func (m *mockConnection) SetPreviewWindow(slotID, index int32, surfaceID string) error { return nil }
func (m *mockConnection) SetDisplayWindow(slotID, index int32, surfaceID string) error { return nil }
func (m *mockConnection) SetPausePicture(slotID, index int32, path string) error { return nil }
func (m *mockConnection) SetDeviceDirection(slotID, index int32, rotation int32) error { return nil }
func (m *mockConnection) RequestCameraCapabilities(slotID, index int32) error { return nil }

func (m *mockConnection) StartRtt(slotID, index int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rtts++
	return nil
}

func (m *mockConnection) StopRtt(slotID, index int32) error { return nil }

func (m *mockConnection) StartDtmf(digit byte, info CellularCallInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dtmf = append(m.dtmf, digit)
	return nil
}

func (m *mockConnection) StopDtmf(info CellularCallInfo) error { return nil }

func (m *mockConnection) SendDtmf(digit byte, info CellularCallInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dtmf = append(m.dtmf, digit)
	return nil
}

// mockNotifier counts notifications per kind.
type mockNotifier struct {
	mu        sync.Mutex
	created   []CallAttributeInfo
	updated   []CallAttributeInfo
	destroyed []CallAttributeInfo
	answered  []CallAttributeInfo
	rejected  []CallAttributeInfo
	events    []CellularCallEventInfo
}

func (m *mockNotifier) NotifyNewCallCreated(info CallAttributeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, info)
}

func (m *mockNotifier) NotifyCallStateUpdated(info CallAttributeInfo, prior, next TelCallState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, info)
}

func (m *mockNotifier) NotifyCallDestroyed(info CallAttributeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, info)
}

func (m *mockNotifier) NotifyIncomingCallAnswered(info CallAttributeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, info)
}

func (m *mockNotifier) NotifyIncomingCallRejected(info CallAttributeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, info)
}

func (m *mockNotifier) NotifyCallEventUpdated(event CellularCallEventInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updated)
}

// mockMediaReporter records app/UI media mode reports.
type mockMediaReporter struct {
	mu      sync.Mutex
	reports []CallMediaModeInfo
}

func (m *mockMediaReporter) ReportCallMediaModeInfo(info CallMediaModeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, info)
}

func (m *mockMediaReporter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

type mockOTT struct{ fail bool }

func (m *mockOTT) DialOTT(number string, videoState VideoState) error {
	if m.fail {
		return errDriver
	}
	return nil
}
func (m *mockOTT) AnswerOTT(number string, videoState VideoState) error { return nil }
func (m *mockOTT) RejectOTT(number string) error                        { return nil }
func (m *mockOTT) HangUpOTT(number string) error                        { return nil }
func (m *mockOTT) HoldOTT(number string) error                          { return nil }
func (m *mockOTT) UnHoldOTT(number string) error                        { return nil }
func (m *mockOTT) SwitchOTT(number string) error                        { return nil }


type mockBluetooth struct {
	answered []string
	hangups  []string
	rejects  []string
}

func (m *mockBluetooth) AnswerBluetoothCall(mac string) error {
	m.answered = append(m.answered, mac)
	return nil
}

func (m *mockBluetooth) RejectBluetoothCall(mac string) error {
	m.rejects = append(m.rejects, mac)
	return nil
}

func (m *mockBluetooth) HangUpBluetoothCall(mac string) error {
	m.hangups = append(m.hangups, mac)
	return nil
}

type mockVoIP struct {
	events []VoipCallEvent
}

func (m *mockVoIP) ReportVoipCallEvent(voipCallID string, event VoipCallEvent) error {
	m.events = append(m.events, event)
	return nil
}

// testEnv bundles a full wired core for request/report tests.
type testEnv struct {
	conn     *mockConnection
	notifier *mockNotifier
	media    *mockMediaReporter
	ott      *mockOTT
	bt       *mockBluetooth
	voip     *mockVoIP
	registry *Registry
	factory  *CallFactory
	process  *RequestProcess
	reports  *ReportHandler
}

func newTestEnv(dsds DsdsMode) *testEnv {
	logger := testLogger()
	env := &testEnv{
		conn:     &mockConnection{},
		notifier: &mockNotifier{},
		media:    &mockMediaReporter{},
		ott:      &mockOTT{},
		bt:       &mockBluetooth{},
		voip:     &mockVoIP{},
	}
	env.registry = NewRegistry(logger)
	env.factory = NewCallFactory(env.conn, env.ott, env.bt, env.voip, env.media, nil,
		NewConference(TypeCS, logger), NewConference(TypeIMS, logger), NewConference(TypeOTT, logger), logger)
	env.process = NewRequestProcess(env.registry, env.factory, env.notifier, dsds, logger)
	env.reports = NewReportHandler(env.registry, env.factory, env.process, env.notifier, logger)
	return env
}

// newTestIMSCall builds a standalone active IMS call for video state
// tests.
func newTestIMSCall(conn *mockConnection, media *mockMediaReporter, incoming bool) *IMSCall {
	direction := DirectionOut
	base := newCallBase(7, TypeIMS, "1234567", direction, VideoStateVoice)
	c := NewIMSCall(base, conn, nil, 0, 1, DialSceneNormal, media, NewConference(TypeIMS, testLogger()), testLogger())
	c.InitVideoCall()
	if incoming {
		_ = c.SetTelCallState(StateIncoming)
	} else {
		_ = c.SetTelCallState(StateDialing)
		_ = c.SetTelCallState(StateActive)
	}
	return c
}
