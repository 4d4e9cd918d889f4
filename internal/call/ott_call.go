package call

import "fmt"

// OTTCall is an app-layer call. The telephony stack tracks its state
// but the carrying app executes every operation, so control requests
// are reports to the OTT connection rather than driver commands.
type OTTCall struct {
	*CallBase
	conn       OTTConnection
	conference *Conference
}

func NewOTTCall(base *CallBase, conn OTTConnection, conference *Conference) *OTTCall {
	return &OTTCall{CallBase: base, conn: conn, conference: conference}
}

func (c *OTTCall) Dial() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.DialOTT(c.Number(), c.VideoState()); err != nil {
		return fmt.Errorf("%w: %v", ErrDialFailed, err)
	}
	return nil
}

func (c *OTTCall) Answer(videoState VideoState) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	c.setAnswerVideoState(videoState)
	if err := c.conn.AnswerOTT(c.Number(), videoState); err != nil {
		return fmt.Errorf("%w: %v", ErrAnswerFailed, err)
	}
	return nil
}

func (c *OTTCall) Reject() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	c.markRejected()
	if err := c.conn.RejectOTT(c.Number()); err != nil {
		return fmt.Errorf("%w: %v", ErrRejectFailed, err)
	}
	return nil
}

func (c *OTTCall) HangUp() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.HangUpOTT(c.Number()); err != nil {
		return fmt.Errorf("%w: %v", ErrHangUpFailed, err)
	}
	return nil
}

func (c *OTTCall) Hold() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.HoldOTT(c.Number()); err != nil {
		return fmt.Errorf("%w: %v", ErrHoldFailed, err)
	}
	return nil
}

func (c *OTTCall) UnHold() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.UnHoldOTT(c.Number()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnHoldFailed, err)
	}
	return nil
}

func (c *OTTCall) SwitchCall() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.SwitchOTT(c.Number()); err != nil {
		return fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	return nil
}

// OTT conferencing is bookkeeping only; the app owns the actual mix.
func (c *OTTCall) CombineConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	if err := c.conference.CanCombine(); err != nil {
		return err
	}
	if err := c.conference.SetMainCall(c.CallID()); err != nil {
		return err
	}
	c.SetConferenceState(TelConferenceActive)
	return nil
}

func (c *OTTCall) CanCombineConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	return c.conference.CanCombine()
}

func (c *OTTCall) SeparateConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	if err := c.conference.CanSeparate(); err != nil {
		return err
	}
	if err := c.conference.Separate(c.CallID()); err != nil {
		return err
	}
	c.SetConferenceState(TelConferenceIdle)
	return nil
}

func (c *OTTCall) CanSeparateConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	return c.conference.CanSeparate()
}

func (c *OTTCall) KickOutFromConference() error {
	if c.conference == nil {
		return ErrLocalPointerNull
	}
	if err := c.conference.LeaveFromConference(c.CallID()); err != nil {
		return err
	}
	c.SetConferenceState(TelConferenceIdle)
	return nil
}
