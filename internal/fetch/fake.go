package fetch

import (
	"context"
	"time"
)

// FakeForecaster returns scripted errors in order, then Result.
type FakeForecaster struct {
	APIName string
	Result  *Forecast
	// Errors are returned by successive calls before Result.
	Errors []error
	Calls  int
}

func (f *FakeForecaster) Name() string { return nameOr(f.APIName, "Fake Forecast API") }

func (f *FakeForecaster) Forecast(ctx context.Context) (*Forecast, error) {
	f.Calls++
	if f.Calls <= len(f.Errors) && f.Errors[f.Calls-1] != nil {
		return nil, f.Errors[f.Calls-1]
	}
	if f.Result == nil {
		return &Forecast{Daily: []Daily{{}}}, nil
	}
	return f.Result, nil
}

// FakeAirQuality returns scripted errors in order, then Result.
type FakeAirQuality struct {
	APIName string
	Result  *AirQuality
	Errors  []error
	Calls   int
}

func (f *FakeAirQuality) Name() string { return nameOr(f.APIName, "Air Pollution API") }

func (f *FakeAirQuality) AirQuality(ctx context.Context) (*AirQuality, error) {
	f.Calls++
	if f.Calls <= len(f.Errors) && f.Errors[f.Calls-1] != nil {
		return nil, f.Errors[f.Calls-1]
	}
	if f.Result == nil {
		return &AirQuality{}, nil
	}
	return f.Result, nil
}

// FakeAstronomer returns scripted errors in order, then Result.
type FakeAstronomer struct {
	Result *Moon
	Errors []error
	Calls  int
	// At records the time passed to the last call.
	At time.Time
}

func (f *FakeAstronomer) Name() string { return "Moon Phase" }

func (f *FakeAstronomer) Moon(ctx context.Context, t time.Time) (*Moon, error) {
	f.Calls++
	f.At = t
	if f.Calls <= len(f.Errors) && f.Errors[f.Calls-1] != nil {
		return nil, f.Errors[f.Calls-1]
	}
	if f.Result == nil {
		return &Moon{}, nil
	}
	return f.Result, nil
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
