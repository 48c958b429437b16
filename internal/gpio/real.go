//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealSwitch drives actual hardware using Linux GPIO character device.
type RealSwitch struct {
	chip  *gpiocdev.Chip
	power *gpiocdev.Line
	led   *gpiocdev.Line
}

// NewRealSwitch requests the configured lines on chipName as outputs,
// initially low.
func NewRealSwitch(chipName string, pins Pins) (*RealSwitch, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &RealSwitch{chip: chip}

	if pins.Power != Disabled {
		s.power, err = chip.RequestLine(pins.Power, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("weather-epd"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request power pin %d: %w", pins.Power, err)
		}
	}

	if pins.LED != Disabled {
		s.led, err = chip.RequestLine(pins.LED, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("weather-epd"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request LED pin %d: %w", pins.LED, err)
		}
	}

	return s, nil
}

// SetDisplayPower switches the panel supply rail.
func (s *RealSwitch) SetDisplayPower(on bool) error {
	if s.power == nil {
		return nil
	}
	if err := s.power.SetValue(level(on)); err != nil {
		return fmt.Errorf("set power pin: %w", err)
	}
	return nil
}

// SetLED switches the status LED.
func (s *RealSwitch) SetLED(on bool) error {
	if s.led == nil {
		return nil
	}
	if err := s.led.SetValue(level(on)); err != nil {
		return fmt.Errorf("set LED pin: %w", err)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}

// Close releases GPIO resources.
// Lines are returned to input with pull-down (matching Pi boot defaults) so
// the rail is not left floating high across power-off.
func (s *RealSwitch) Close() error {
	var errs []error

	for name, line := range map[string]*gpiocdev.Line{"power": s.power, "LED": s.led} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
