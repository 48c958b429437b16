// Package gpio drives the output lines around the display with hardware
// abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Switch drives the display power rail and the status LED.
type Switch interface {
	// SetDisplayPower switches the panel supply rail.
	SetDisplayPower(on bool) error

	// SetLED switches the status LED. A no-op when no LED is wired.
	SetLED(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Disabled marks an unwired line in Pins.
const Disabled = -1

// Pins are BCM line offsets. Either may be Disabled.
type Pins struct {
	Power int
	LED   int
}
