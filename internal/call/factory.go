package call

import "log/slog"

// CallFactory builds the right call variant for a transport, wiring in
// the collaborators and the per-family conference grouping. There are
// no global singletons: one factory is constructed at process start and
// injected wherever calls are created.
type CallFactory struct {
	conn     CellularCallConnection
	ott      OTTConnection
	bt       BluetoothConnection
	voip     VoIPConnection
	media    MediaModeReporter
	eccCheck EmergencyNumberChecker
	csConf   *Conference
	imsConf  *Conference
	ottConf  *Conference
	logger   *slog.Logger
}

func NewCallFactory(conn CellularCallConnection, ott OTTConnection, bt BluetoothConnection,
	voip VoIPConnection, media MediaModeReporter, eccCheck EmergencyNumberChecker,
	csConf, imsConf, ottConf *Conference, logger *slog.Logger) *CallFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallFactory{
		conn:     conn,
		ott:      ott,
		bt:       bt,
		voip:     voip,
		media:    media,
		eccCheck: eccCheck,
		csConf:   csConf,
		imsConf:  imsConf,
		ottConf:  ottConf,
		logger:   logger,
	}
}

// CreateOutgoing builds a call object for a dial request. The network
// index stays zero until the driver's first report assigns it.
func (f *CallFactory) CreateOutgoing(callID int32, info DialParaInfo) Call {
	base := newCallBase(callID, info.CallType, info.Number, DirectionOut, info.VideoState)
	return f.build(base, info.CallType, info.SlotID, 0, info.DialScene, info.BluetoothMac, "")
}

// CreateIncoming builds a call object from the first driver report of a
// mobile-terminated call.
func (f *CallFactory) CreateIncoming(callID int32, info CallDetailInfo) Call {
	base := newCallBase(callID, info.CallType, info.Number, DirectionIn, info.VideoState)
	return f.build(base, info.CallType, info.SlotID, info.Index, DialSceneNormal, info.MacAddress, info.VoipCallID)
}

func (f *CallFactory) build(base *CallBase, callType CallType, slotID, index int32, scene DialScene, mac, voipID string) Call {
	switch callType {
	case TypeCS:
		return NewCSCall(base, f.conn, f.eccCheck, slotID, index, scene, f.csConf)
	case TypeIMS:
		c := NewIMSCall(base, f.conn, f.eccCheck, slotID, index, scene, f.media, f.imsConf, f.logger)
		c.InitVideoCall()
		return c
	case TypeSatellite:
		return NewSatelliteCall(base, f.conn, f.eccCheck, slotID, index, scene)
	case TypeOTT:
		return NewOTTCall(base, f.ott, f.ottConf)
	case TypeBluetooth:
		return NewBluetoothCall(base, f.bt, mac)
	case TypeVoIP:
		return NewVoIPCall(base, f.voip, voipID)
	default:
		f.logger.Warn("unknown call type, building cs call", "call_type", callType)
		return NewCSCall(base, f.conn, f.eccCheck, slotID, index, scene, f.csConf)
	}
}
