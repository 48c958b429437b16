package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/weather-epd/internal/config"
)

// Forecaster fetches the primary forecast.
type Forecaster interface {
	Name() string
	Forecast(ctx context.Context) (*Forecast, error)
}

// AirQualityProvider fetches the latest air quality.
type AirQualityProvider interface {
	Name() string
	AirQuality(ctx context.Context) (*AirQuality, error)
}

// Astronomer supplies the moon state for a day.
type Astronomer interface {
	Name() string
	Moon(ctx context.Context, t time.Time) (*Moon, error)
}

// DataProvider bundles the three sources fetched each episode.
type DataProvider struct {
	Forecast   Forecaster
	AirQuality AirQualityProvider
	Astronomy  Astronomer
}

// Endpoints overrides provider hosts. Empty fields use the public APIs.
type Endpoints struct {
	OpenMeteo           string
	OpenMeteoAirQuality string
	OpenWeatherMap      string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.OpenMeteo == "" {
		e.OpenMeteo = OpenMeteoEndpoint
	}
	if e.OpenMeteoAirQuality == "" {
		e.OpenMeteoAirQuality = OpenMeteoAirQualityEndpoint
	}
	if e.OpenWeatherMap == "" {
		e.OpenWeatherMap = OpenWeatherMapEndpoint
	}
	return e
}

// NewDataProvider selects provider variants from cfg.
func NewDataProvider(cfg config.Config, client *Client, ep Endpoints) (DataProvider, error) {
	ep = ep.withDefaults()
	var dp DataProvider

	switch cfg.WeatherAPI {
	case config.ProviderOpenMeteo:
		dp.Forecast = &OpenMeteoForecast{Client: client, Endpoint: ep.OpenMeteo, Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	case config.ProviderOpenWeatherMap:
		dp.Forecast = &OWMOneCall{Client: client, Endpoint: ep.OpenWeatherMap, APIKey: cfg.OWMAPIKey,
			Version: cfg.OWMOnecallVersion, Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	default:
		return DataProvider{}, fmt.Errorf("unknown weather provider %q", cfg.WeatherAPI)
	}

	switch cfg.AirQualityAPI {
	case config.ProviderOpenMeteo:
		dp.AirQuality = &OpenMeteoAirQuality{Client: client, Endpoint: ep.OpenMeteoAirQuality, Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	case config.ProviderOpenWeatherMap:
		dp.AirQuality = &OWMAirPollution{Client: client, Endpoint: ep.OpenWeatherMap, APIKey: cfg.OWMAPIKey,
			Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	default:
		return DataProvider{}, fmt.Errorf("unknown air quality provider %q", cfg.AirQualityAPI)
	}

	dp.Astronomy = &LocalAstronomer{Latitude: cfg.Latitude, Longitude: cfg.Longitude, Location: cfg.Location()}
	return dp, nil
}
