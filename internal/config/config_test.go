package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
latitude: 51.5
longitude: -0.12
city: London
timezone: Europe/London
wifiSSID: home
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "London", cfg.City)
	assert.Equal(t, 30, cfg.SleepDuration)
	assert.Equal(t, 6, cfg.WakeTime)
	assert.Equal(t, 0, cfg.BedTime)
	assert.Equal(t, ProviderOpenMeteo, cfg.WeatherAPI)
	assert.Equal(t, 0.95, cfg.SleepPolicy.SkipRatio)
	assert.Equal(t, 120, cfg.SleepPolicy.MinSleepSeconds)
	assert.Equal(t, uint32(3535), cfg.Battery.LowVoltage)
	assert.False(t, cfg.MQTTEnabled())
	assert.Equal(t, "Europe/London", cfg.Location().String())
}

func TestLoadOverridesAndMQTTDefaults(t *testing.T) {
	body := minimalYAML + `
sleepDuration: 15
wakeTime: 7
bedTime: 23
homeAssistantMqtt:
  enabled: true
  server: 192.168.1.200
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.SleepDuration)
	assert.Equal(t, 7, cfg.WakeTime)
	assert.Equal(t, 23, cfg.BedTime)
	require.True(t, cfg.MQTTEnabled())
	assert.Equal(t, 1883, cfg.HomeAssistantMQTT.Port)
	assert.Equal(t, "homeassistant", cfg.HomeAssistantMQTT.DiscoveryPrefix)
	assert.Equal(t, "weather-epd", cfg.HomeAssistantMQTT.ClientID)
}

func TestLoadEnvSecrets(t *testing.T) {
	t.Setenv(EnvWiFiPassword, "hunter2")
	t.Setenv(EnvOWMAPIKey, "key123")

	body := minimalYAML + `
weatherAPI: openweathermap
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.WiFiPassword)
	assert.Equal(t, "key123", cfg.OWMAPIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Default()
		c.WiFiSSID = "home"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"wake out of range", func(c *Config) { c.WakeTime = 24 }},
		{"bed out of range", func(c *Config) { c.BedTime = -1 }},
		{"zero sleep", func(c *Config) { c.SleepDuration = 0 }},
		{"zero ntp interval", func(c *Config) { c.NTPSyncIntervalHours = 0 }},
		{"skip ratio", func(c *Config) { c.SleepPolicy.SkipRatio = 1.5 }},
		{"fudge below one", func(c *Config) { c.SleepPolicy.FudgeFactor = 0.99 }},
		{"missing ssid", func(c *Config) { c.WiFiSSID = "" }},
		{"owm without key", func(c *Config) { c.AirQualityAPI = ProviderOpenWeatherMap }},
		{"unknown provider", func(c *Config) { c.WeatherAPI = "darksky" }},
		{"thresholds inverted", func(c *Config) { c.Battery.CritLowVoltage = 3600 }},
		{"png without path", func(c *Config) { c.Display.Panel = PanelPNG }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"mqtt without server", func(c *Config) {
			c.HomeAssistantMQTT = &HomeAssistantMQTTConfig{Enabled: true}
		}},
	}

	require.NoError(t, base().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateBatteryDisabledSkipsThresholds(t *testing.T) {
	c := Default()
	c.WiFiSSID = "home"
	c.Battery.Monitoring = false
	c.Battery.CritLowVoltage = 9999
	assert.NoError(t, c.Validate())
}
