package call

// CSCall is a circuit-switched carrier call. All control operations are
// straight forwards to the cellular driver; the CS conference grouping
// is shared by every CS call on the device.
type CSCall struct {
	*CarrierCall
	conference *Conference
}

func NewCSCall(base *CallBase, conn CellularCallConnection, eccCheck EmergencyNumberChecker,
	slotID, index int32, scene DialScene, conference *Conference) *CSCall {
	return &CSCall{
		CarrierCall: newCarrierCall(base, conn, eccCheck, slotID, index, scene),
		conference:  conference,
	}
}

func (c *CSCall) Dial() error                        { return c.carrierDial() }
func (c *CSCall) Answer(videoState VideoState) error { return c.carrierAnswer(videoState) }
func (c *CSCall) Reject() error                      { return c.carrierReject() }
func (c *CSCall) HangUp() error                      { return c.carrierHangUp() }
func (c *CSCall) Hold() error                        { return c.carrierHold() }
func (c *CSCall) UnHold() error                      { return c.carrierUnHold() }
func (c *CSCall) SwitchCall() error                  { return c.carrierSwitch() }

func (c *CSCall) CombineConference() error {
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

func (c *CSCall) CanCombineConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	return c.conference.CanCombine()
}

func (c *CSCall) SeparateConference() error {
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

func (c *CSCall) CanSeparateConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	return c.conference.CanSeparate()
}

func (c *CSCall) KickOutFromConference() error {
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
