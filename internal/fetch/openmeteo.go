package fetch

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"
)

// Default Open-Meteo endpoints.
const (
	OpenMeteoEndpoint           = "https://api.open-meteo.com"
	OpenMeteoAirQualityEndpoint = "https://air-quality-api.open-meteo.com"
)

const (
	omCurrentFields = "temperature_2m,relative_humidity_2m,dew_point_2m,apparent_temperature,weather_code,cloud_cover,visibility,surface_pressure,wind_speed_10m,wind_direction_10m,wind_gusts_10m,is_day"
	omHourlyFields  = "temperature_2m,cloud_cover,wind_speed_10m,wind_gusts_10m,precipitation_probability,rain,snowfall,weather_code,is_day"
	omDailyFields   = "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset,uv_index_max,rain_sum,snowfall_sum,precipitation_probability_max,wind_speed_10m_max,wind_gusts_10m_max"
	omAirFields     = "us_aqi,pm2_5,pm10,ozone,nitrogen_dioxide,sulphur_dioxide,carbon_monoxide,ammonia"
)

// OpenMeteoForecast fetches forecasts from Open-Meteo. No key is needed.
type OpenMeteoForecast struct {
	Client    *Client
	Endpoint  string
	Latitude  float64
	Longitude float64
}

// Name identifies the API on the error screen.
func (p *OpenMeteoForecast) Name() string { return "Open Meteo API" }

type omForecastResponse struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Current          struct {
		Time          int64   `json:"time"`
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		DewPoint      float64 `json:"dew_point_2m"`
		Apparent      float64 `json:"apparent_temperature"`
		WeatherCode   int     `json:"weather_code"`
		CloudCover    float64 `json:"cloud_cover"`
		Visibility    float64 `json:"visibility"`
		Pressure      float64 `json:"surface_pressure"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
		WindGusts     float64 `json:"wind_gusts_10m"`
		IsDay         int     `json:"is_day"`
	} `json:"current"`
	Hourly struct {
		Time        []int64   `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		CloudCover  []float64 `json:"cloud_cover"`
		WindSpeed   []float64 `json:"wind_speed_10m"`
		WindGusts   []float64 `json:"wind_gusts_10m"`
		PrecipProb  []float64 `json:"precipitation_probability"`
		Rain        []float64 `json:"rain"`
		Snowfall    []float64 `json:"snowfall"`
		WeatherCode []int     `json:"weather_code"`
		IsDay       []int     `json:"is_day"`
	} `json:"hourly"`
	Daily struct {
		Time        []int64   `json:"time"`
		WeatherCode []int     `json:"weather_code"`
		TempMax     []float64 `json:"temperature_2m_max"`
		TempMin     []float64 `json:"temperature_2m_min"`
		Sunrise     []int64   `json:"sunrise"`
		Sunset      []int64   `json:"sunset"`
		UVIndexMax  []float64 `json:"uv_index_max"`
		RainSum     []float64 `json:"rain_sum"`
		SnowfallSum []float64 `json:"snowfall_sum"`
		PrecipProb  []float64 `json:"precipitation_probability_max"`
		WindMax     []float64 `json:"wind_speed_10m_max"`
		GustsMax    []float64 `json:"wind_gusts_10m_max"`
	} `json:"daily"`
}

func (p *OpenMeteoForecast) url() string {
	q := url.Values{}
	q.Set("latitude", formatCoord(p.Latitude))
	q.Set("longitude", formatCoord(p.Longitude))
	q.Set("current", omCurrentFields)
	q.Set("hourly", omHourlyFields)
	q.Set("daily", omDailyFields)
	q.Set("wind_speed_unit", "ms")
	q.Set("timezone", "auto")
	q.Set("timeformat", "unixtime")
	q.Set("forecast_days", strconv.Itoa(NumDaily))
	q.Set("forecast_hours", strconv.Itoa(NumHourly))
	return p.Endpoint + "/v1/forecast?" + q.Encode()
}

// Forecast performs one request.
func (p *OpenMeteoForecast) Forecast(ctx context.Context) (*Forecast, error) {
	u := p.url()
	var r omForecastResponse
	if err := p.Client.getJSON(ctx, u, u, &r); err != nil {
		return nil, err
	}
	if r.Current.Time == 0 || len(r.Hourly.Time) == 0 || len(r.Daily.Time) == 0 {
		return nil, invalid("open-meteo: missing current, hourly or daily data")
	}

	f := &Forecast{
		Timezone:       r.Timezone,
		TimezoneOffset: r.UTCOffsetSeconds,
		Current: Current{
			Time:       unix(r.Current.Time),
			Temp:       r.Current.Temperature,
			FeelsLike:  r.Current.Apparent,
			DewPoint:   r.Current.DewPoint,
			Pressure:   int(math.Round(r.Current.Pressure)),
			Humidity:   int(math.Round(r.Current.Humidity)),
			Clouds:     int(math.Round(r.Current.CloudCover)),
			Visibility: int(r.Current.Visibility),
			WindSpeed:  r.Current.WindSpeed,
			WindGust:   r.Current.WindGusts,
			WindDeg:    int(math.Round(r.Current.WindDirection)),
			IsDay:      r.Current.IsDay == 1,
			Condition:  wmoCondition(r.Current.WeatherCode),
		},
	}

	h := r.Hourly
	for i := 0; i < len(h.Time) && i < NumHourly; i++ {
		f.Hourly = append(f.Hourly, Hourly{
			Time:      unix(h.Time[i]),
			Temp:      at(h.Temperature, i),
			Pop:       int(math.Round(at(h.PrecipProb, i))),
			Rain:      at(h.Rain, i),
			Snow:      at(h.Snowfall, i),
			Clouds:    int(math.Round(at(h.CloudCover, i))),
			WindSpeed: at(h.WindSpeed, i),
			WindGust:  at(h.WindGusts, i),
			IsDay:     at(h.IsDay, i) == 1,
			Condition: wmoCondition(at(h.WeatherCode, i)),
		})
	}

	d := r.Daily
	for i := 0; i < len(d.Time) && i < NumDaily; i++ {
		f.Daily = append(f.Daily, Daily{
			Time:      unix(d.Time[i]),
			Sunrise:   unix(at(d.Sunrise, i)),
			Sunset:    unix(at(d.Sunset, i)),
			TempMin:   at(d.TempMin, i),
			TempMax:   at(d.TempMax, i),
			Pop:       int(math.Round(at(d.PrecipProb, i))),
			Rain:      at(d.RainSum, i),
			Snow:      at(d.SnowfallSum, i),
			UVI:       at(d.UVIndexMax, i),
			WindSpeed: at(d.WindMax, i),
			WindGust:  at(d.GustsMax, i),
			Condition: wmoCondition(at(d.WeatherCode, i)),
		})
	}

	f.Current.Sunrise = f.Daily[0].Sunrise
	f.Current.Sunset = f.Daily[0].Sunset
	f.Current.UVI = f.Daily[0].UVI
	return f, nil
}

// OpenMeteoAirQuality fetches air quality from Open-Meteo.
type OpenMeteoAirQuality struct {
	Client    *Client
	Endpoint  string
	Latitude  float64
	Longitude float64
}

// Name identifies the API on the error screen.
func (p *OpenMeteoAirQuality) Name() string { return "Air Pollution API" }

type omAirResponse struct {
	Current struct {
		Time    int64   `json:"time"`
		USAQI   float64 `json:"us_aqi"`
		PM25    float64 `json:"pm2_5"`
		PM10    float64 `json:"pm10"`
		Ozone   float64 `json:"ozone"`
		NO2     float64 `json:"nitrogen_dioxide"`
		SO2     float64 `json:"sulphur_dioxide"`
		CO      float64 `json:"carbon_monoxide"`
		Ammonia float64 `json:"ammonia"`
	} `json:"current"`
}

// AirQuality performs one request.
func (p *OpenMeteoAirQuality) AirQuality(ctx context.Context) (*AirQuality, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(p.Latitude))
	q.Set("longitude", formatCoord(p.Longitude))
	q.Set("current", omAirFields)
	q.Set("timeformat", "unixtime")
	u := p.Endpoint + "/v1/air-quality?" + q.Encode()

	var r omAirResponse
	if err := p.Client.getJSON(ctx, u, u, &r); err != nil {
		return nil, err
	}
	if r.Current.Time == 0 {
		return nil, invalid("open-meteo air quality: missing current data")
	}

	c := r.Current
	return &AirQuality{
		Time:  unix(c.Time),
		AQI:   int(math.Round(c.USAQI)),
		Scale: "us",
		PM25:  c.PM25,
		PM10:  c.PM10,
		O3:    c.Ozone,
		NO2:   c.NO2,
		SO2:   c.SO2,
		CO:    c.CO,
		NH3:   c.Ammonia,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func unix(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

func at[T any](s []T, i int) T {
	var zero T
	if i < 0 || i >= len(s) {
		return zero
	}
	return s[i]
}

// wmoCondition maps a WMO weather interpretation code.
func wmoCondition(code int) Condition {
	desc, ok := wmoDescriptions[code]
	if !ok {
		desc = fmt.Sprintf("Code %d", code)
	}
	return Condition{Code: code, Description: desc}
}

var wmoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}
