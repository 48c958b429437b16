package mqtt

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	Device Device

	// Statuses contains all telemetry that was published.
	Statuses []Telemetry

	// Messages contains every message that would have been sent.
	Messages []Message

	// PublishError, if set, will be returned by PublishStatus.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Device: Device{ClientID: "weather-epd", Name: "Weather EPD", DiscoveryPrefix: "homeassistant"}}
}

// PublishStatus records the telemetry.
func (f *FakePublisher) PublishStatus(t Telemetry) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Statuses = append(f.Statuses, t)

	msgs, err := Messages(f.Device, t)
	if err != nil {
		return err
	}
	f.Messages = append(f.Messages, msgs...)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded telemetry.
func (f *FakePublisher) Reset() {
	f.Statuses = nil
	f.Messages = nil
	f.Closed = false
	f.PublishError = nil
}
