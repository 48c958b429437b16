// Package clock synchronizes the system clock over NTP.
package clock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// ErrNoServers is returned when a syncer has no servers configured.
var ErrNoServers = errors.New("clock: no ntp servers configured")

// Syncer sets the system clock from the network.
type Syncer interface {
	// Sync blocks until the clock is set or ctx is done and returns the
	// new time.
	Sync(ctx context.Context) (time.Time, error)
}

// QueryFunc performs one NTP exchange.
type QueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPSyncer queries its servers in order and sets the clock from the first
// valid response.
type NTPSyncer struct {
	Servers []string

	// Timeout bounds each individual query. The overall deadline comes
	// from the context.
	Timeout time.Duration

	Query    QueryFunc
	SetClock func(time.Time) error
	Now      func() time.Time
}

// NewNTPSyncer returns a syncer that sets the real system clock.
func NewNTPSyncer(timeout time.Duration, servers ...string) *NTPSyncer {
	var nonEmpty []string
	for _, s := range servers {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return &NTPSyncer{
		Servers:  nonEmpty,
		Timeout:  timeout,
		Query:    ntp.QueryWithOptions,
		SetClock: setSystemClock,
		Now:      time.Now,
	}
}

// Sync tries each server until one answers with a valid response.
func (s *NTPSyncer) Sync(ctx context.Context) (time.Time, error) {
	if len(s.Servers) == 0 {
		return time.Time{}, ErrNoServers
	}

	var errs []error
	for _, server := range s.Servers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		resp, err := s.Query(server, ntp.QueryOptions{Timeout: s.queryTimeout(ctx)})
		if err != nil {
			errs = append(errs, fmt.Errorf("query %s: %w", server, err))
			continue
		}
		if err := resp.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("validate %s: %w", server, err))
			continue
		}

		t := s.Now().Add(resp.ClockOffset)
		if err := s.SetClock(t); err != nil {
			return time.Time{}, fmt.Errorf("set clock: %w", err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("time sync failed: %w", errors.Join(errs...))
}

func (s *NTPSyncer) queryTimeout(ctx context.Context) time.Duration {
	timeout := s.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}
