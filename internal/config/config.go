// Package config loads the device configuration from a YAML file.
// Keys are camelCase; secrets may be supplied through the environment
// instead of the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by weatherAPI and airQualityAPI.
const (
	ProviderOpenMeteo      = "open-meteo"
	ProviderOpenWeatherMap = "openweathermap"
)

// Panel names accepted by display.panel.
const (
	PanelWaveshare2in13v4 = "waveshare2in13v4"
	PanelPNG              = "png"
)

// Environment variables that override secrets from the file.
const (
	EnvWiFiPassword = "WEATHER_EPD_WIFI_PASSWORD"
	EnvOWMAPIKey    = "WEATHER_EPD_OWM_APIKEY"
	EnvMQTTPassword = "WEATHER_EPD_MQTT_PASSWORD"
)

// Config is the full device configuration.
type Config struct {
	Latitude          float64 `yaml:"latitude"`
	Longitude         float64 `yaml:"longitude"`
	City              string  `yaml:"city"`
	Timezone          string  `yaml:"timezone"`
	DateFormat        string  `yaml:"dateFormat"`
	RefreshTimeFormat string  `yaml:"refreshTimeFormat"`

	WeatherAPI        string `yaml:"weatherAPI"`
	AirQualityAPI     string `yaml:"airQualityAPI"`
	OWMAPIKey         string `yaml:"owmApikey"`
	OWMOnecallVersion string `yaml:"owmOnecallVersion"`
	HTTPTimeoutMs     int    `yaml:"httpTimeout"`

	WiFiInterface string `yaml:"wifiInterface"`
	WiFiSSID      string `yaml:"wifiSSID"`
	WiFiPassword  string `yaml:"wifiPassword"`
	WiFiTimeoutMs int    `yaml:"wifiTimeout"`

	SleepDuration        int         `yaml:"sleepDuration"` // minutes
	WakeTime             int         `yaml:"wakeTime"`
	BedTime              int         `yaml:"bedTime"`
	NTPSyncIntervalHours int         `yaml:"ntpSyncIntervalHours"`
	NTPServer1           string      `yaml:"ntpServer1"`
	NTPServer2           string      `yaml:"ntpServer2"`
	NTPTimeoutMs         int         `yaml:"ntpTimeout"`
	SleepPolicy          SleepPolicy `yaml:"sleepPolicy"`

	Battery  BatteryConfig `yaml:"battery"`
	Display  DisplayConfig `yaml:"display"`
	Storage  StorageConfig `yaml:"storage"`
	Power    PowerConfig   `yaml:"power"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"logLevel"`

	HomeAssistantMQTT *HomeAssistantMQTTConfig `yaml:"homeAssistantMqtt"`
}

// SleepPolicy holds the planner's alignment and drift-compensation constants.
type SleepPolicy struct {
	MinSleepSeconds int     `yaml:"minSleepSeconds"`
	SkipRatio       float64 `yaml:"skipRatio"`
	BiasSeconds     int     `yaml:"biasSeconds"`
	FudgeFactor     float64 `yaml:"fudgeFactor"`
}

// BatteryConfig configures battery monitoring. Voltages are millivolts,
// sleep intervals minutes.
type BatteryConfig struct {
	Monitoring           bool    `yaml:"monitoring"`
	MinVoltage           uint32  `yaml:"minVoltage"`
	MaxVoltage           uint32  `yaml:"maxVoltage"`
	LowVoltage           uint32  `yaml:"lowVoltage"`
	VeryLowVoltage       uint32  `yaml:"veryLowVoltage"`
	CritLowVoltage       uint32  `yaml:"critLowVoltage"`
	LowSleepInterval     int     `yaml:"lowSleepInterval"`
	VeryLowSleepInterval int     `yaml:"veryLowSleepInterval"`
	I2CBus               string  `yaml:"i2cBus"`
	ADCAddress           uint16  `yaml:"adcAddress"`
	ADCChannel           int     `yaml:"adcChannel"`
	DividerRatio         float64 `yaml:"dividerRatio"`
}

// DisplayConfig selects the panel and the GPIO lines around it.
type DisplayConfig struct {
	Panel    string `yaml:"panel"`
	PNGPath  string `yaml:"pngPath"`
	GPIOChip string `yaml:"gpioChip"`
	PowerPin int    `yaml:"powerPin"` // -1 disables
	LEDPin   int    `yaml:"ledPin"`   // -1 disables
}

// StorageConfig holds the paths of the two persisted-state stores.
type StorageConfig struct {
	// RetainedPath must live on a filesystem that is wiped on power loss
	// (tmpfs) so that it mirrors RTC memory.
	RetainedPath string `yaml:"retainedPath"`
	DurablePath  string `yaml:"durablePath"`
}

// PowerConfig configures the terminal sleep action.
type PowerConfig struct {
	WakeAlarmPath string `yaml:"wakeAlarmPath"`
	DryRun        bool   `yaml:"dryRun"`
}

// MetricsConfig configures the node_exporter textfile output.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"` // empty disables
}

// HomeAssistantMQTTConfig enables telemetry to Home Assistant over MQTT.
type HomeAssistantMQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Server          string `yaml:"server"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	ClientID        string `yaml:"clientId"`
	DeviceName      string `yaml:"deviceName"`
	DiscoveryPrefix string `yaml:"discoveryPrefix"`
}

// Default returns a configuration with every optional field populated.
func Default() Config {
	return Config{
		City:                 "",
		Timezone:             "Local",
		DateFormat:           "Monday, January 2",
		RefreshTimeFormat:    "Jan 2 15:04",
		WeatherAPI:           ProviderOpenMeteo,
		AirQualityAPI:        ProviderOpenMeteo,
		OWMOnecallVersion:    "3.0",
		HTTPTimeoutMs:        5000,
		WiFiInterface:        "wlan0",
		WiFiTimeoutMs:        10000,
		SleepDuration:        30,
		WakeTime:             6,
		BedTime:              0,
		NTPSyncIntervalHours: 24,
		NTPServer1:           "pool.ntp.org",
		NTPServer2:           "time.nist.gov",
		NTPTimeoutMs:         20000,
		SleepPolicy: SleepPolicy{
			MinSleepSeconds: 120,
			SkipRatio:       0.95,
			BiasSeconds:     3,
			FudgeFactor:     1.0015,
		},
		Battery: BatteryConfig{
			Monitoring:           true,
			MinVoltage:           3200,
			MaxVoltage:           4200,
			LowVoltage:           3535,
			VeryLowVoltage:       3400,
			CritLowVoltage:       3300,
			LowSleepInterval:     30,
			VeryLowSleepInterval: 120,
			I2CBus:               "",
			ADCAddress:           0x48,
			ADCChannel:           0,
			DividerRatio:         2.0,
		},
		Display: DisplayConfig{
			Panel:    PanelWaveshare2in13v4,
			GPIOChip: "gpiochip0",
			PowerPin: 26,
			LEDPin:   -1,
		},
		Storage: StorageConfig{
			RetainedPath: "/run/weather-epd/retained.db",
			DurablePath:  "/var/lib/weather-epd/nvs.db",
		},
		Power: PowerConfig{
			WakeAlarmPath: "/sys/class/rtc/rtc0/wakealarm",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path on top of Default, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if cfg.HomeAssistantMQTT != nil {
		cfg.HomeAssistantMQTT.applyDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvWiFiPassword); v != "" {
		c.WiFiPassword = v
	}
	if v := os.Getenv(EnvOWMAPIKey); v != "" {
		c.OWMAPIKey = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" && c.HomeAssistantMQTT != nil {
		c.HomeAssistantMQTT.Password = v
	}
}

func (h *HomeAssistantMQTTConfig) applyDefaults() {
	if h.Port == 0 {
		h.Port = 1883
	}
	if h.ClientID == "" {
		h.ClientID = "weather-epd"
	}
	if h.DeviceName == "" {
		h.DeviceName = "Weather EPD"
	}
	if h.DiscoveryPrefix == "" {
		h.DiscoveryPrefix = "homeassistant"
	}
}

// Validate checks ranges and cross-field requirements.
func (c Config) Validate() error {
	var errs []error

	if c.WakeTime < 0 || c.WakeTime > 23 {
		errs = append(errs, fmt.Errorf("wakeTime %d out of range 0-23", c.WakeTime))
	}
	if c.BedTime < 0 || c.BedTime > 23 {
		errs = append(errs, fmt.Errorf("bedTime %d out of range 0-23", c.BedTime))
	}
	if c.SleepDuration <= 0 || c.SleepDuration > 24*60 {
		errs = append(errs, fmt.Errorf("sleepDuration %d out of range 1-1440", c.SleepDuration))
	}
	if c.NTPSyncIntervalHours <= 0 {
		errs = append(errs, fmt.Errorf("ntpSyncIntervalHours must be positive, got %d", c.NTPSyncIntervalHours))
	}
	if c.SleepPolicy.SkipRatio <= 0 || c.SleepPolicy.SkipRatio > 1 {
		errs = append(errs, fmt.Errorf("sleepPolicy.skipRatio %v out of range (0,1]", c.SleepPolicy.SkipRatio))
	}
	if c.SleepPolicy.FudgeFactor < 1 {
		errs = append(errs, fmt.Errorf("sleepPolicy.fudgeFactor %v must be >= 1", c.SleepPolicy.FudgeFactor))
	}
	if c.SleepPolicy.MinSleepSeconds < 0 || c.SleepPolicy.BiasSeconds < 0 {
		errs = append(errs, errors.New("sleepPolicy seconds must not be negative"))
	}
	if c.WiFiSSID == "" {
		errs = append(errs, errors.New("wifiSSID is required"))
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		errs = append(errs, fmt.Errorf("coordinates (%v, %v) out of range", c.Latitude, c.Longitude))
	}

	for _, p := range []string{c.WeatherAPI, c.AirQualityAPI} {
		if p != ProviderOpenMeteo && p != ProviderOpenWeatherMap {
			errs = append(errs, fmt.Errorf("unknown provider %q", p))
		}
	}
	if (c.WeatherAPI == ProviderOpenWeatherMap || c.AirQualityAPI == ProviderOpenWeatherMap) && c.OWMAPIKey == "" {
		errs = append(errs, errors.New("owmApikey is required for OpenWeatherMap"))
	}

	if c.Battery.Monitoring {
		b := c.Battery
		if !(b.CritLowVoltage <= b.VeryLowVoltage && b.VeryLowVoltage <= b.LowVoltage) {
			errs = append(errs, errors.New("battery thresholds must satisfy critLow <= veryLow <= low"))
		}
		if b.MinVoltage >= b.MaxVoltage {
			errs = append(errs, errors.New("battery minVoltage must be below maxVoltage"))
		}
		if b.LowSleepInterval <= 0 || b.VeryLowSleepInterval <= 0 {
			errs = append(errs, errors.New("battery sleep intervals must be positive"))
		}
	}

	switch c.Display.Panel {
	case PanelWaveshare2in13v4:
	case PanelPNG:
		if c.Display.PNGPath == "" {
			errs = append(errs, errors.New("display.pngPath is required for the png panel"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown display panel %q", c.Display.Panel))
	}

	if h := c.HomeAssistantMQTT; h != nil && h.Enabled && h.Server == "" {
		errs = append(errs, errors.New("homeAssistantMqtt.server is required when enabled"))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the configured time zone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// WiFiTimeout returns the association timeout.
func (c Config) WiFiTimeout() time.Duration {
	return time.Duration(c.WiFiTimeoutMs) * time.Millisecond
}

// NTPTimeout returns the time sync timeout.
func (c Config) NTPTimeout() time.Duration {
	return time.Duration(c.NTPTimeoutMs) * time.Millisecond
}

// HTTPTimeout returns the connect/read timeout for provider requests.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMs) * time.Millisecond
}

// MQTTEnabled reports whether Home Assistant telemetry is configured.
func (c Config) MQTTEnabled() bool {
	return c.HomeAssistantMQTT != nil && c.HomeAssistantMQTT.Enabled
}
