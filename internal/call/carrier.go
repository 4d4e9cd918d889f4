package call

import (
	"fmt"
	"sync"
)

// EmergencyNumberChecker decides whether a number is an emergency
// number for a given slot. Number classification is owned by an
// external phone-number collaborator; this is its narrow boundary.
type EmergencyNumberChecker func(number string, slotID int32) bool

// defaultEmergencyChecker recognizes the region-independent GSM
// emergency numbers. Deployments inject a checker backed by the SIM's
// ECC list instead.
func defaultEmergencyChecker(number string, _ int32) bool {
	switch number {
	case "112", "911", "000", "08", "110", "118", "119", "999":
		return true
	}
	return false
}

// CarrierCall adds the cellular-network plumbing shared by the CS, IMS
// and satellite variants: slot and network index, emergency
// classification, and translation of operations into structured
// requests for the cellular driver.
type CarrierCall struct {
	*CallBase

	conn     CellularCallConnection
	eccCheck EmergencyNumberChecker

	cmu         sync.Mutex
	slotID      int32
	index       int32
	dialScene   DialScene
	isEcc       bool
	isVoicemail bool
}

func newCarrierCall(base *CallBase, conn CellularCallConnection, eccCheck EmergencyNumberChecker, slotID, index int32, scene DialScene) *CarrierCall {
	if eccCheck == nil {
		eccCheck = defaultEmergencyChecker
	}
	return &CarrierCall{
		CallBase:  base,
		conn:      conn,
		eccCheck:  eccCheck,
		slotID:    slotID,
		index:     index,
		dialScene: scene,
	}
}

func (c *CarrierCall) SlotID() int32 {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return c.slotID
}

func (c *CarrierCall) Index() int32 {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return c.index
}

// setIndex records the network-layer call reference once the driver
// reports it.
func (c *CarrierCall) setIndex(index int32) {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	c.index = index
}

func (c *CarrierCall) IsEmergency() bool {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return c.isEcc
}

func (c *CarrierCall) DialScene() DialScene {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return c.dialScene
}

func (c *CarrierCall) AttributeInfo() CallAttributeInfo {
	info := c.CallBase.AttributeInfo()
	c.cmu.Lock()
	defer c.cmu.Unlock()
	info.SlotID = c.slotID
	info.Index = c.index
	info.IsEcc = c.isEcc
	return info
}

func (c *CarrierCall) packCellularCallInfo() CellularCallInfo {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return CellularCallInfo{
		CallID:     c.CallID(),
		CallType:   c.CallType(),
		VideoState: c.VideoState(),
		Index:      c.index,
		SlotID:     c.slotID,
		Number:     c.Number(),
	}
}

// carrierDial classifies the number, then hands the dial to the driver.
// A driver-side refusal tears the half-created call down again so no
// dead entry lingers on the network side.
func (c *CarrierCall) carrierDial() error {
	isEcc := c.eccCheck(c.Number(), c.SlotID())
	c.cmu.Lock()
	c.isEcc = isEcc
	c.cmu.Unlock()
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.Dial(c.packCellularCallInfo()); err != nil {
		_ = c.conn.HangUp(c.packCellularCallInfo())
		return fmt.Errorf("%w: %v", ErrDialFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierAnswer(videoState VideoState) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	c.setAnswerVideoState(videoState)
	if err := c.conn.Answer(c.packCellularCallInfo()); err != nil {
		return fmt.Errorf("%w: %v", ErrAnswerFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierReject() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	c.markRejected()
	if err := c.conn.Reject(c.packCellularCallInfo()); err != nil {
		return fmt.Errorf("%w: %v", ErrRejectFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierHangUp() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.HangUp(c.packCellularCallInfo()); err != nil {
		return fmt.Errorf("%w: %v", ErrHangUpFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierHold() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.Hold(c.packCellularCallInfo()); err != nil {
		return fmt.Errorf("%w: %v", ErrHoldFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierUnHold() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.UnHold(c.packCellularCallInfo()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnHoldFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierSwitch() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.SwitchCall(c.SlotID()); err != nil {
		return fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	return nil
}

func (c *CarrierCall) carrierCombineConference() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.CombineConference(c.packCellularCallInfo())
}

func (c *CarrierCall) carrierSeparateConference() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.SeparateConference(c.packCellularCallInfo())
}

func (c *CarrierCall) carrierKickOutFromConference() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.KickOutFromConference(c.packCellularCallInfo())
}

// DTMF pass-through. Tones are generated by the driver; the core only
// validates the collaborator is present.
func (c *CarrierCall) StartDtmf(digit byte) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.StartDtmf(digit, c.packCellularCallInfo())
}

func (c *CarrierCall) StopDtmf() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.StopDtmf(c.packCellularCallInfo())
}

func (c *CarrierCall) SendDtmf(digit byte) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.SendDtmf(digit, c.packCellularCallInfo())
}
