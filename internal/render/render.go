// Package render draws the weather and error screens and drives the panel.
package render

import (
	"github.com/sweeney/weather-epd/internal/fetch"
)

// Canvas size in landscape orientation.
const (
	Width  = 250
	Height = 122
)

// Icon identifies the large glyph on an error screen.
type Icon int

const (
	IconBattery Icon = iota
	IconWiFi
	IconTime
	IconCloud
)

func (i Icon) String() string {
	switch i {
	case IconBattery:
		return "battery"
	case IconWiFi:
		return "wifi"
	case IconTime:
		return "time"
	case IconCloud:
		return "cloud"
	default:
		return "unknown"
	}
}

// Screen is everything drawn on a successful refresh.
type Screen struct {
	City        string
	Date        string
	RefreshTime string
	Status      string

	Forecast   *fetch.Forecast
	AirQuality *fetch.AirQuality
	Moon       *fetch.Moon

	// BatteryMillivolts is zero when monitoring is disabled.
	BatteryMillivolts uint32
	BatteryPercent    uint8
	RSSI              int
}

// Renderer draws full screens. Each Draw call is a complete refresh.
type Renderer interface {
	DrawWeather(s Screen) error
	DrawError(icon Icon, line1, line2 string) error
	// PowerOff puts the panel to sleep and cuts its supply.
	PowerOff() error
}
