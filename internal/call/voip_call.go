package call

import (
	"fmt"

	"github.com/google/uuid"
)

// VoIPCall is pure local bookkeeping: operations update the call object
// and report an event to the owning app, which runs the actual session.
type VoIPCall struct {
	*CallBase
	conn       VoIPConnection
	voipCallID string
}

// NewVoIPCall creates a VoIP call. An empty voipCallID gets a generated
// identifier so the app-side correlation key always exists.
func NewVoIPCall(base *CallBase, conn VoIPConnection, voipCallID string) *VoIPCall {
	if voipCallID == "" {
		voipCallID = uuid.NewString()
	}
	return &VoIPCall{CallBase: base, conn: conn, voipCallID: voipCallID}
}

func (c *VoIPCall) VoipCallID() string { return c.voipCallID }

func (c *VoIPCall) report(event VoipCallEvent) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	return c.conn.ReportVoipCallEvent(c.voipCallID, event)
}

func (c *VoIPCall) Dial() error { return ErrIllegalCallOperation }

func (c *VoIPCall) Answer(videoState VideoState) error {
	c.setAnswerVideoState(videoState)
	event := VoipEventAnswerVoice
	if videoState == VideoStateVideo {
		event = VoipEventAnswerVideo
	}
	if err := c.report(event); err != nil {
		return fmt.Errorf("%w: %v", ErrAnswerFailed, err)
	}
	return nil
}

func (c *VoIPCall) Reject() error {
	c.markRejected()
	if err := c.report(VoipEventReject); err != nil {
		return fmt.Errorf("%w: %v", ErrRejectFailed, err)
	}
	return nil
}

func (c *VoIPCall) HangUp() error {
	if err := c.report(VoipEventHangUp); err != nil {
		return fmt.Errorf("%w: %v", ErrHangUpFailed, err)
	}
	return nil
}

func (c *VoIPCall) Hold() error       { return nil }
func (c *VoIPCall) UnHold() error     { return nil }
func (c *VoIPCall) SwitchCall() error { return nil }

// VoIP calls never join device conferences; the operations succeed
// without effect so generic teardown paths need no special casing.
func (c *VoIPCall) CombineConference() error     { return nil }
func (c *VoIPCall) CanCombineConference() error  { return nil }
func (c *VoIPCall) SeparateConference() error    { return nil }
func (c *VoIPCall) CanSeparateConference() error { return nil }
func (c *VoIPCall) KickOutFromConference() error { return nil }
