package battery

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// samplesPerRead readings are averaged per ReadMillivolts call.
const samplesPerRead = 4

// ADCReader reads the battery through an ADS1115 on I2C. The battery is
// expected behind a resistor divider; DividerRatio scales the pin voltage
// back up to the terminal voltage.
type ADCReader struct {
	bus          i2c.BusCloser
	pin          analog.PinADC
	dividerRatio float64
}

// NewADCReader opens the I2C bus (empty name selects the first bus) and
// configures the given single-ended ADS1115 channel.
func NewADCReader(busName string, addr uint16, channel int, dividerRatio float64) (*ADCReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	ch, err := singleEnded(channel)
	if err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = addr
	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ads1115 at 0x%02x: %w", addr, err)
	}

	pin, err := adc.PinForChannel(ch, 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure ads1115 channel %d: %w", channel, err)
	}

	if dividerRatio <= 0 {
		dividerRatio = 1
	}
	return &ADCReader{bus: bus, pin: pin, dividerRatio: dividerRatio}, nil
}

func singleEnded(channel int) (ads1x15.Channel, error) {
	switch channel {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	default:
		return 0, fmt.Errorf("ads1115: invalid channel %d", channel)
	}
}

// ReadMillivolts averages several conversions and returns the terminal
// voltage in millivolts.
func (r *ADCReader) ReadMillivolts() (uint32, error) {
	var sum physic.ElectricPotential
	for i := 0; i < samplesPerRead; i++ {
		s, err := r.pin.Read()
		if err != nil {
			return 0, fmt.Errorf("read ads1115: %w", err)
		}
		sum += s.V
	}
	avg := sum / samplesPerRead
	mv := float64(avg) / float64(physic.MilliVolt) * r.dividerRatio
	if mv < 0 {
		mv = 0
	}
	return uint32(mv), nil
}

// Close halts the conversion pin and closes the bus.
func (r *ADCReader) Close() error {
	var errs []error
	if r.pin != nil {
		if err := r.pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt pin: %w", err))
		}
	}
	if r.bus != nil {
		if err := r.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus: %w", err))
		}
	}
	return errors.Join(errs...)
}
