package call

import "fmt"

// BluetoothCall relays an active carrier call through a paired HFP
// device. Answer, reject and hangup are delegated to the device by MAC
// address; hold, unhold, switch and mute succeed without doing anything
// because the underlying carrier call owns those operations.
type BluetoothCall struct {
	*CallBase
	conn       BluetoothConnection
	macAddress string
}

func NewBluetoothCall(base *CallBase, conn BluetoothConnection, macAddress string) *BluetoothCall {
	return &BluetoothCall{CallBase: base, conn: conn, macAddress: macAddress}
}

func (c *BluetoothCall) MacAddress() string { return c.macAddress }

// Dial is not initiated from the Bluetooth side; the request process
// refuses Bluetooth dials while any call exists and otherwise routes
// the dial through the carrier path.
func (c *BluetoothCall) Dial() error { return ErrIllegalCallOperation }

func (c *BluetoothCall) Answer(videoState VideoState) error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	c.setAnswerVideoState(videoState)
	if err := c.conn.AnswerBluetoothCall(c.macAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrAnswerFailed, err)
	}
	return nil
}

func (c *BluetoothCall) Reject() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	c.markRejected()
	if err := c.conn.RejectBluetoothCall(c.macAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrRejectFailed, err)
	}
	return nil
}

func (c *BluetoothCall) HangUp() error {
	if c.conn == nil {
		return ErrLocalPointerNull
	}
	if err := c.conn.HangUpBluetoothCall(c.macAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrHangUpFailed, err)
	}
	return nil
}

func (c *BluetoothCall) Hold() error           { return nil }
func (c *BluetoothCall) UnHold() error         { return nil }
func (c *BluetoothCall) SwitchCall() error     { return nil }
func (c *BluetoothCall) SetMute(on bool) error { return nil }

func (c *BluetoothCall) CombineConference() error     { return ErrIllegalCallOperation }
func (c *BluetoothCall) CanCombineConference() error  { return ErrIllegalCallOperation }
func (c *BluetoothCall) SeparateConference() error    { return ErrIllegalCallOperation }
func (c *BluetoothCall) CanSeparateConference() error { return ErrIllegalCallOperation }
func (c *BluetoothCall) KickOutFromConference() error { return ErrIllegalCallOperation }
