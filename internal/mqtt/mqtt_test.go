package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var testDevice = Device{
	ClientID:        "weather_epd_a1b2c3",
	Name:            "Weather EPD",
	Version:         "1.2.0",
	DiscoveryPrefix: "homeassistant",
}

func TestTopics(t *testing.T) {
	if got := DiscoveryTopic(testDevice, SensorWiFiRSSI); got != "homeassistant/sensor/weather_epd_a1b2c3/wifi_rssi/config" {
		t.Errorf("unexpected discovery topic: %s", got)
	}
	if got := StateTopic(testDevice, SensorBatteryVoltage); got != "homeassistant/sensor/weather_epd_a1b2c3/battery_voltage/state" {
		t.Errorf("unexpected state topic: %s", got)
	}
}

func TestFormatDiscovery(t *testing.T) {
	payload, err := FormatDiscovery(testDevice, Sensors[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed DiscoveryPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.DeviceClass != "voltage" {
		t.Errorf("unexpected device class: %s", parsed.DeviceClass)
	}
	if parsed.UnitOfMeasurement != "V" {
		t.Errorf("unexpected unit: %s", parsed.UnitOfMeasurement)
	}
	if parsed.UniqueID != "weather_epd_a1b2c3_battery_voltage" {
		t.Errorf("unexpected unique id: %s", parsed.UniqueID)
	}
	if parsed.StateTopic != StateTopic(testDevice, SensorBatteryVoltage) {
		t.Errorf("unexpected state topic: %s", parsed.StateTopic)
	}
	if parsed.Device.IDs != testDevice.ClientID || parsed.Device.Software != "1.2.0" {
		t.Errorf("unexpected device block: %+v", parsed.Device)
	}
}

func TestFormatState(t *testing.T) {
	tel := Telemetry{
		BatteryMonitored:  true,
		BatteryMillivolts: 3957,
		BatteryPercent:    81,
		RSSI:              -67,
		NetworkDuration:   2345 * time.Millisecond,
	}

	tests := []struct {
		key  string
		want string
	}{
		{SensorBatteryVoltage, "3.957"},
		{SensorBatteryPercent, "81"},
		{SensorWiFiRSSI, "-67"},
		{SensorAPIActivityDuration, "2345"},
		{"unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := FormatState(tt.key, tel); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessagesOrderAndRetain(t *testing.T) {
	msgs, err := Messages(testDevice, Telemetry{BatteryMonitored: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2*len(Sensors) {
		t.Fatalf("expected %d messages, got %d", 2*len(Sensors), len(msgs))
	}
	for i, s := range Sensors {
		if msgs[2*i].Topic != DiscoveryTopic(testDevice, s.Key) {
			t.Errorf("message %d: expected discovery for %s, got %s", 2*i, s.Key, msgs[2*i].Topic)
		}
		if msgs[2*i+1].Topic != StateTopic(testDevice, s.Key) {
			t.Errorf("message %d: expected state for %s, got %s", 2*i+1, s.Key, msgs[2*i+1].Topic)
		}
	}
	for _, m := range msgs {
		if !m.Retained {
			t.Errorf("%s should be retained", m.Topic)
		}
	}
}

func TestMessagesWithoutBattery(t *testing.T) {
	msgs, err := Messages(testDevice, Telemetry{RSSI: -50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != DiscoveryTopic(testDevice, SensorWiFiRSSI) {
		t.Errorf("expected RSSI first, got %s", msgs[0].Topic)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishStatus(Telemetry{RSSI: -70}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Statuses) != 1 || f.Statuses[0].RSSI != -70 {
		t.Errorf("unexpected statuses: %+v", f.Statuses)
	}
	if len(f.Messages) != 4 {
		t.Errorf("expected 4 messages, got %d", len(f.Messages))
	}

	f.PublishError = errors.New("broker down")
	if err := f.PublishStatus(Telemetry{}); err == nil {
		t.Error("expected error")
	}
	if len(f.Statuses) != 1 {
		t.Error("failed publish must not be recorded")
	}

	_ = f.Close()
	if !f.Closed {
		t.Error("expected Closed")
	}

	f.Reset()
	if f.Closed || len(f.Statuses) != 0 || f.PublishError != nil {
		t.Error("Reset should clear state")
	}
}

func TestFakePublisherImplementsPublisher(t *testing.T) {
	var _ Publisher = (*FakePublisher)(nil)
	var _ Publisher = (*RealPublisher)(nil)
}

func TestDialOnPublish(t *testing.T) {
	fake := NewFakePublisher()
	dials := 0
	d := NewDialOnPublish(Options{Server: "broker", Port: 1883})
	d.Dial = func(o Options) (Publisher, error) {
		dials++
		if o.Server != "broker" {
			t.Errorf("Server: got %q", o.Server)
		}
		return fake, nil
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close before dial: %v", err)
	}
	if dials != 0 {
		t.Fatal("Close should not dial")
	}

	for i := 0; i < 2; i++ {
		if err := d.PublishStatus(Telemetry{RSSI: -70}); err != nil {
			t.Fatalf("PublishStatus: %v", err)
		}
	}
	if dials != 1 {
		t.Errorf("dials: got %d, want 1", dials)
	}
	if len(fake.Statuses) != 2 {
		t.Errorf("statuses: got %d, want 2", len(fake.Statuses))
	}

	if err := d.Close(); err != nil || !fake.Closed {
		t.Errorf("Close: err=%v closed=%v", err, fake.Closed)
	}
}

func TestDialOnPublishDialError(t *testing.T) {
	d := NewDialOnPublish(Options{})
	d.Dial = func(Options) (Publisher, error) { return nil, errors.New("refused") }

	if err := d.PublishStatus(Telemetry{}); err == nil {
		t.Error("expected dial error")
	}
}
