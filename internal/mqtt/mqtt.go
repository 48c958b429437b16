// Package mqtt publishes episode telemetry to Home Assistant over MQTT.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishStatus sends discovery and state messages for every sensor.
	// Returns error if publishing fails (should not block sleeping).
	PublishStatus(t Telemetry) error

	// Close disconnects from the broker.
	Close() error
}

// Telemetry is the per-episode device health report.
type Telemetry struct {
	// BatteryMonitored is false when no battery reading exists; battery
	// sensors are then omitted.
	BatteryMonitored  bool
	BatteryMillivolts uint32
	BatteryPercent    uint8
	RSSI              int
	// NetworkDuration is the time spent on network activity so far.
	NetworkDuration time.Duration
}

// Device identifies this display to Home Assistant.
type Device struct {
	ClientID        string
	Name            string
	Version         string
	DiscoveryPrefix string
}

// Sensor keys.
const (
	SensorBatteryVoltage      = "battery_voltage"
	SensorBatteryPercent      = "battery_percent"
	SensorWiFiRSSI            = "wifi_rssi"
	SensorAPIActivityDuration = "api_activity_duration"
)

// Sensor is one Home Assistant entity.
type Sensor struct {
	Key         string
	Name        string
	DeviceClass string
	Unit        string
}

// Sensors lists the published entities in publish order.
var Sensors = []Sensor{
	{SensorBatteryVoltage, "Battery Voltage", "voltage", "V"},
	{SensorBatteryPercent, "Battery Level", "battery", "%"},
	{SensorWiFiRSSI, "WiFi Signal", "signal_strength", "dBm"},
	{SensorAPIActivityDuration, "API Activity Duration", "duration", "ms"},
}

// Message is one MQTT publish.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// DiscoveryTopic returns the config topic for a sensor.
func DiscoveryTopic(d Device, key string) string {
	return fmt.Sprintf("%s/sensor/%s/%s/config", d.DiscoveryPrefix, d.ClientID, key)
}

// StateTopic returns the state topic for a sensor.
func StateTopic(d Device, key string) string {
	return fmt.Sprintf("%s/sensor/%s/%s/state", d.DiscoveryPrefix, d.ClientID, key)
}

// DiscoveryPayload is the Home Assistant MQTT discovery document.
type DiscoveryPayload struct {
	DeviceClass       string     `json:"device_class"`
	UnitOfMeasurement string     `json:"unit_of_measurement"`
	UniqueID          string     `json:"unique_id"`
	Name              string     `json:"name"`
	StateTopic        string     `json:"state_topic"`
	Device            DeviceInfo `json:"device"`
}

// DeviceInfo is the shared device block of a discovery document.
type DeviceInfo struct {
	IDs          string `json:"ids"`
	Name         string `json:"name"`
	Manufacturer string `json:"mf"`
	Model        string `json:"mdl"`
	Software     string `json:"sw,omitempty"`
}

// FormatDiscovery creates the discovery payload for a sensor.
func FormatDiscovery(d Device, s Sensor) ([]byte, error) {
	return json.Marshal(DiscoveryPayload{
		DeviceClass:       s.DeviceClass,
		UnitOfMeasurement: s.Unit,
		UniqueID:          d.ClientID + "_" + s.Key,
		Name:              s.Name,
		StateTopic:        StateTopic(d, s.Key),
		Device: DeviceInfo{
			IDs:          d.ClientID,
			Name:         d.Name,
			Manufacturer: "weather-epd",
			Model:        "Weather EPD",
			Software:     d.Version,
		},
	})
}

// FormatState renders the state value for a sensor.
func FormatState(key string, t Telemetry) string {
	switch key {
	case SensorBatteryVoltage:
		return strconv.FormatFloat(float64(t.BatteryMillivolts)/1000, 'f', 3, 64)
	case SensorBatteryPercent:
		return strconv.Itoa(int(t.BatteryPercent))
	case SensorWiFiRSSI:
		return strconv.Itoa(t.RSSI)
	case SensorAPIActivityDuration:
		return strconv.FormatInt(t.NetworkDuration.Milliseconds(), 10)
	default:
		return ""
	}
}

// Messages builds the retained discovery and state messages for t, in
// publish order.
func Messages(d Device, t Telemetry) ([]Message, error) {
	var msgs []Message
	for _, s := range Sensors {
		if !t.BatteryMonitored && (s.Key == SensorBatteryVoltage || s.Key == SensorBatteryPercent) {
			continue
		}
		payload, err := FormatDiscovery(d, s)
		if err != nil {
			return nil, fmt.Errorf("format %s discovery: %w", s.Key, err)
		}
		msgs = append(msgs,
			Message{Topic: DiscoveryTopic(d, s.Key), Payload: payload, Retained: true},
			Message{Topic: StateTopic(d, s.Key), Payload: []byte(FormatState(s.Key, t)), Retained: true},
		)
	}
	return msgs, nil
}
