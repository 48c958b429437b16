// Package fetch retrieves forecast, air quality and astronomy data for one
// wake episode.
//
// Every failure is reported as an *Error carrying a numeric status: HTTP
// statuses as-is, transport failures as small negative numbers, parse
// failures offset by ParseErrorBase and link loss offset by LinkLostBase.
package fetch

import "time"

// Hourly and daily points kept from a forecast.
const (
	NumHourly = 24
	NumDaily  = 5
)

// Condition is a weather condition. Code is the provider's own code
// (WMO for Open-Meteo, condition id for OpenWeatherMap).
type Condition struct {
	Code        int
	Description string
}

// Current is the current conditions.
type Current struct {
	Time       time.Time
	Sunrise    time.Time
	Sunset     time.Time
	Temp       float64
	FeelsLike  float64
	DewPoint   float64
	Pressure   int
	Humidity   int
	Clouds     int
	UVI        float64
	Visibility int
	WindSpeed  float64
	WindGust   float64
	WindDeg    int
	IsDay      bool
	Condition  Condition
}

// Hourly is one hourly forecast point.
type Hourly struct {
	Time      time.Time
	Temp      float64
	Pop       int // percent
	Rain      float64
	Snow      float64
	Clouds    int
	WindSpeed float64
	WindGust  float64
	IsDay     bool
	Condition Condition
}

// Daily is one daily forecast point. The moon fields are filled in by an
// Astronomer for the first day.
type Daily struct {
	Time      time.Time
	Sunrise   time.Time
	Sunset    time.Time
	Moonrise  time.Time
	Moonset   time.Time
	MoonPhase float64
	TempMin   float64
	TempMax   float64
	Pop       int
	Rain      float64
	Snow      float64
	UVI       float64
	WindSpeed float64
	WindGust  float64
	Condition Condition
}

// Forecast is the primary weather record.
type Forecast struct {
	Timezone       string
	TimezoneOffset int // seconds east of UTC
	Current        Current
	Hourly         []Hourly
	Daily          []Daily
}

// AirQuality is the latest air quality reading. Concentrations are µg/m³.
type AirQuality struct {
	Time time.Time
	// AQI is on Scale: "us" (0-500) or "owm" (1-5).
	AQI   int
	Scale string
	PM25  float64
	PM10  float64
	O3    float64
	NO2   float64
	SO2   float64
	CO    float64
	NH3   float64
}

// Moon is the moon state for one day. Phase is 0 (new) through 0.5 (full)
// to 1. Rise or Set is zero when the moon does not cross the horizon that
// day.
type Moon struct {
	Phase        float64
	Illumination float64
	Rise         time.Time
	Set          time.Time
}

// PhaseName returns the conventional name of the phase.
func (m Moon) PhaseName() string {
	names := [...]string{
		"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous",
		"Full Moon", "Waning Gibbous", "Last Quarter", "Waning Crescent",
	}
	i := int(m.Phase*8+0.5) % 8
	return names[i]
}

// Apply copies the moon state into the first daily point.
func (f *Forecast) Apply(m Moon) {
	if len(f.Daily) == 0 {
		return
	}
	f.Daily[0].Moonrise = m.Rise
	f.Daily[0].Moonset = m.Set
	f.Daily[0].MoonPhase = m.Phase
}
