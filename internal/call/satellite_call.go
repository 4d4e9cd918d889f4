package call

// SatelliteCall is a carrier call over a satellite bearer. Control
// plumbing is identical to CS; video and conferencing are not offered
// on the bearer.
type SatelliteCall struct {
	*CarrierCall
}

func NewSatelliteCall(base *CallBase, conn CellularCallConnection, eccCheck EmergencyNumberChecker,
	slotID, index int32, scene DialScene) *SatelliteCall {
	return &SatelliteCall{
		CarrierCall: newCarrierCall(base, conn, eccCheck, slotID, index, scene),
	}
}

func (c *SatelliteCall) Dial() error                        { return c.carrierDial() }
func (c *SatelliteCall) Answer(videoState VideoState) error { return c.carrierAnswer(VideoStateVoice) }
func (c *SatelliteCall) Reject() error                      { return c.carrierReject() }
func (c *SatelliteCall) HangUp() error                      { return c.carrierHangUp() }
func (c *SatelliteCall) Hold() error                        { return c.carrierHold() }
func (c *SatelliteCall) UnHold() error                      { return c.carrierUnHold() }
func (c *SatelliteCall) SwitchCall() error                  { return c.carrierSwitch() }

func (c *SatelliteCall) CombineConference() error     { return ErrIllegalCallOperation }
func (c *SatelliteCall) CanCombineConference() error  { return ErrIllegalCallOperation }
func (c *SatelliteCall) SeparateConference() error    { return ErrIllegalCallOperation }
func (c *SatelliteCall) CanSeparateConference() error { return ErrIllegalCallOperation }
func (c *SatelliteCall) KickOutFromConference() error { return ErrIllegalCallOperation }
