//go:build !linux

package gpio

import "errors"

// RealSwitch is not available on non-Linux platforms.
type RealSwitch struct{}

// NewRealSwitch returns an error on non-Linux platforms.
func NewRealSwitch(chipName string, pins Pins) (*RealSwitch, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetDisplayPower is not implemented on non-Linux platforms.
func (s *RealSwitch) SetDisplayPower(on bool) error {
	return errors.New("gpio: not supported")
}

// SetLED is not implemented on non-Linux platforms.
func (s *RealSwitch) SetLED(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *RealSwitch) Close() error {
	return nil
}
