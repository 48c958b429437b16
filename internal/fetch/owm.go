package fetch

import (
	"context"
	"net/url"
	"strings"
)

// OpenWeatherMapEndpoint is the default OpenWeatherMap host.
const OpenWeatherMapEndpoint = "https://api.openweathermap.org"

const redactedKey = "{API key}"

// OWMOneCall fetches forecasts from the OpenWeatherMap One Call API.
type OWMOneCall struct {
	Client    *Client
	Endpoint  string
	APIKey    string
	Version   string // "3.0" or "2.5"
	Latitude  float64
	Longitude float64
}

// Name identifies the API on the error screen.
func (p *OWMOneCall) Name() string { return "One Call " + p.Version + " API" }

type owmWeather struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmCurrent struct {
	Dt         int64        `json:"dt"`
	Sunrise    int64        `json:"sunrise"`
	Sunset     int64        `json:"sunset"`
	Temp       float64      `json:"temp"`
	FeelsLike  float64      `json:"feels_like"`
	Pressure   int          `json:"pressure"`
	Humidity   int          `json:"humidity"`
	DewPoint   float64      `json:"dew_point"`
	Clouds     int          `json:"clouds"`
	UVI        float64      `json:"uvi"`
	Visibility int          `json:"visibility"`
	WindSpeed  float64      `json:"wind_speed"`
	WindGust   float64      `json:"wind_gust"`
	WindDeg    int          `json:"wind_deg"`
	Weather    []owmWeather `json:"weather"`
}

type owmHourly struct {
	Dt        int64        `json:"dt"`
	Temp      float64      `json:"temp"`
	Clouds    int          `json:"clouds"`
	WindSpeed float64      `json:"wind_speed"`
	WindGust  float64      `json:"wind_gust"`
	Pop       float64      `json:"pop"`
	Rain      owmVolume    `json:"rain"`
	Snow      owmVolume    `json:"snow"`
	Weather   []owmWeather `json:"weather"`
}

type owmVolume struct {
	OneHour float64 `json:"1h"`
}

type owmDaily struct {
	Dt        int64   `json:"dt"`
	Sunrise   int64   `json:"sunrise"`
	Sunset    int64   `json:"sunset"`
	Moonrise  int64   `json:"moonrise"`
	Moonset   int64   `json:"moonset"`
	MoonPhase float64 `json:"moon_phase"`
	Temp      struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	UVI       float64      `json:"uvi"`
	WindSpeed float64      `json:"wind_speed"`
	WindGust  float64      `json:"wind_gust"`
	Pop       float64      `json:"pop"`
	Rain      float64      `json:"rain"`
	Snow      float64      `json:"snow"`
	Weather   []owmWeather `json:"weather"`
}

type owmOneCallResponse struct {
	Timezone       string      `json:"timezone"`
	TimezoneOffset int         `json:"timezone_offset"`
	Current        *owmCurrent `json:"current"`
	Hourly         []owmHourly `json:"hourly"`
	Daily          []owmDaily  `json:"daily"`
}

func (p *OWMOneCall) urls() (raw, logged string) {
	q := url.Values{}
	q.Set("lat", formatCoord(p.Latitude))
	q.Set("lon", formatCoord(p.Longitude))
	q.Set("units", "metric")
	q.Set("exclude", "minutely")
	base := p.Endpoint + "/data/" + p.Version + "/onecall?" + q.Encode()
	return base + "&appid=" + url.QueryEscape(p.APIKey), base + "&appid=" + redactedKey
}

// Forecast performs one request.
func (p *OWMOneCall) Forecast(ctx context.Context) (*Forecast, error) {
	raw, logged := p.urls()
	var r owmOneCallResponse
	if err := p.Client.getJSON(ctx, raw, logged, &r); err != nil {
		return nil, err
	}
	if r.Current == nil || len(r.Hourly) == 0 || len(r.Daily) == 0 {
		return nil, invalid("one call: missing current, hourly or daily data")
	}

	c := r.Current
	f := &Forecast{
		Timezone:       r.Timezone,
		TimezoneOffset: r.TimezoneOffset,
		Current: Current{
			Time:       unix(c.Dt),
			Sunrise:    unix(c.Sunrise),
			Sunset:     unix(c.Sunset),
			Temp:       c.Temp,
			FeelsLike:  c.FeelsLike,
			DewPoint:   c.DewPoint,
			Pressure:   c.Pressure,
			Humidity:   c.Humidity,
			Clouds:     c.Clouds,
			UVI:        c.UVI,
			Visibility: c.Visibility,
			WindSpeed:  c.WindSpeed,
			WindGust:   c.WindGust,
			WindDeg:    c.WindDeg,
			IsDay:      isDayIcon(c.Weather),
			Condition:  owmCondition(c.Weather),
		},
	}

	for i, h := range r.Hourly {
		if i == NumHourly {
			break
		}
		cond := owmCondition(h.Weather)
		f.Hourly = append(f.Hourly, Hourly{
			Time:      unix(h.Dt),
			Temp:      h.Temp,
			Pop:       int(h.Pop*100 + 0.5),
			Rain:      h.Rain.OneHour,
			Snow:      h.Snow.OneHour,
			Clouds:    h.Clouds,
			WindSpeed: h.WindSpeed,
			WindGust:  h.WindGust,
			IsDay:     isDayIcon(h.Weather),
			Condition: cond,
		})
	}

	for i, d := range r.Daily {
		if i == NumDaily {
			break
		}
		f.Daily = append(f.Daily, Daily{
			Time:      unix(d.Dt),
			Sunrise:   unix(d.Sunrise),
			Sunset:    unix(d.Sunset),
			Moonrise:  unix(d.Moonrise),
			Moonset:   unix(d.Moonset),
			MoonPhase: d.MoonPhase,
			TempMin:   d.Temp.Min,
			TempMax:   d.Temp.Max,
			Pop:       int(d.Pop*100 + 0.5),
			Rain:      d.Rain,
			Snow:      d.Snow,
			UVI:       d.UVI,
			WindSpeed: d.WindSpeed,
			WindGust:  d.WindGust,
			Condition: owmCondition(d.Weather),
		})
	}
	return f, nil
}

// OWMAirPollution fetches air quality from the OpenWeatherMap Air Pollution
// API.
type OWMAirPollution struct {
	Client    *Client
	Endpoint  string
	APIKey    string
	Latitude  float64
	Longitude float64
}

// Name identifies the API on the error screen.
func (p *OWMAirPollution) Name() string { return "Air Pollution API" }

type owmAirResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   float64 `json:"co"`
			NO2  float64 `json:"no2"`
			O3   float64 `json:"o3"`
			SO2  float64 `json:"so2"`
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
			NH3  float64 `json:"nh3"`
		} `json:"components"`
	} `json:"list"`
}

// AirQuality performs one request.
func (p *OWMAirPollution) AirQuality(ctx context.Context) (*AirQuality, error) {
	q := url.Values{}
	q.Set("lat", formatCoord(p.Latitude))
	q.Set("lon", formatCoord(p.Longitude))
	base := p.Endpoint + "/data/2.5/air_pollution?" + q.Encode()
	raw, logged := base+"&appid="+url.QueryEscape(p.APIKey), base+"&appid="+redactedKey

	var r owmAirResponse
	if err := p.Client.getJSON(ctx, raw, logged, &r); err != nil {
		return nil, err
	}
	if len(r.List) == 0 {
		return nil, invalid("air pollution: empty list")
	}

	last := r.List[len(r.List)-1]
	c := last.Components
	return &AirQuality{
		Time:  unix(last.Dt),
		AQI:   last.Main.AQI,
		Scale: "owm",
		PM25:  c.PM25,
		PM10:  c.PM10,
		O3:    c.O3,
		NO2:   c.NO2,
		SO2:   c.SO2,
		CO:    c.CO,
		NH3:   c.NH3,
	}, nil
}

func owmCondition(w []owmWeather) Condition {
	if len(w) == 0 {
		return Condition{}
	}
	return Condition{Code: w[0].ID, Description: w[0].Description}
}

// isDayIcon reads the day/night suffix of the icon name ("01d", "01n").
func isDayIcon(w []owmWeather) bool {
	return len(w) == 0 || !strings.HasSuffix(w[0].Icon, "n")
}
