package gpio

// FakeSwitch is a test double that records line transitions.
type FakeSwitch struct {
	// DisplayPower and LED hold the current logical level.
	DisplayPower bool
	LED          bool

	// Transitions records every Set call in order, e.g. "power=on".
	Transitions []string

	// SetError, if set, will be returned by SetDisplayPower and SetLED.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSwitch creates a FakeSwitch with both lines low.
func NewFakeSwitch() *FakeSwitch {
	return &FakeSwitch{}
}

// SetDisplayPower records the power rail level.
func (f *FakeSwitch) SetDisplayPower(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.DisplayPower = on
	f.Transitions = append(f.Transitions, "power="+onOff(on))
	return nil
}

// SetLED records the LED level.
func (f *FakeSwitch) SetLED(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.LED = on
	f.Transitions = append(f.Transitions, "led="+onOff(on))
	return nil
}

// Close marks the switch as closed.
func (f *FakeSwitch) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeSwitch) Reset() {
	*f = FakeSwitch{}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
