package fetch

import (
	"context"
	"time"

	"github.com/sixdouglas/suncalc"
)

// LocalAstronomer computes the moon state from time and coordinates. It
// needs no network.
type LocalAstronomer struct {
	Latitude  float64
	Longitude float64
	Location  *time.Location
}

// Name identifies the source on the error screen.
func (a *LocalAstronomer) Name() string { return "Moon Phase" }

// Moon returns the moon state for the local day containing t. Rise or Set
// is zero when the moon does not cross the horizon that day.
func (a *LocalAstronomer) Moon(ctx context.Context, t time.Time) (*Moon, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Status: ReadTimeout, Err: err}
	}

	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)

	illum := suncalc.GetMoonIllumination(t)
	times := suncalc.GetMoonTimes(local, a.Latitude, a.Longitude, false)

	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return &Moon{
		Phase:        illum.Phase,
		Illumination: illum.Fraction,
		Rise:         withinDay(times.Rise, start, end),
		Set:          withinDay(times.Set, start, end),
	}, nil
}

// withinDay drops events the hourly scan found past the end of the day.
func withinDay(ev, start, end time.Time) time.Time {
	if ev.IsZero() || ev.Before(start) || !ev.Before(end) {
		return time.Time{}
	}
	return ev.Truncate(time.Second)
}
