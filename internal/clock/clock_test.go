package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResponse(offset time.Duration) *ntp.Response {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &ntp.Response{
		ReferenceTime:  now.Add(-time.Minute),
		ClockOffset:    offset,
		Stratum:        2,
		Leap:           ntp.LeapNoWarning,
		RTT:            10 * time.Millisecond,
		RootDelay:      5 * time.Millisecond,
		RootDispersion: 5 * time.Millisecond,
		RootDistance:   10 * time.Millisecond,
		Time:           now,
	}
}

func newTestSyncer(query QueryFunc, servers ...string) (*NTPSyncer, *time.Time) {
	var set time.Time
	base := time.Date(1970, 1, 1, 0, 0, 10, 0, time.UTC)
	s := &NTPSyncer{
		Servers: servers,
		Timeout: time.Second,
		Query:   query,
		SetClock: func(t time.Time) error {
			set = t
			return nil
		},
		Now: func() time.Time { return base },
	}
	return s, &set
}

func TestSyncAppliesOffset(t *testing.T) {
	offset := 56 * 365 * 24 * time.Hour
	s, set := newTestSyncer(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		assert.Equal(t, "pool.ntp.org", host)
		assert.Equal(t, time.Second, opt.Timeout)
		return validResponse(offset), nil
	}, "pool.ntp.org")

	got, err := s.Sync(context.Background())
	require.NoError(t, err)
	want := time.Date(1970, 1, 1, 0, 0, 10, 0, time.UTC).Add(offset)
	assert.True(t, got.Equal(want))
	assert.True(t, set.Equal(want), "clock set to synced time")
}

func TestSyncFallsBackToSecondServer(t *testing.T) {
	var asked []string
	s, _ := newTestSyncer(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		asked = append(asked, host)
		if host == "a" {
			return nil, errors.New("i/o timeout")
		}
		return validResponse(time.Hour), nil
	}, "a", "b")

	_, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, asked)
}

func TestSyncAllServersFail(t *testing.T) {
	s, set := newTestSyncer(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		return nil, errors.New("unreachable")
	}, "a", "b")

	_, err := s.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query a")
	assert.Contains(t, err.Error(), "query b")
	assert.True(t, set.IsZero(), "clock must not be touched")
}

func TestSyncRejectsKissOfDeath(t *testing.T) {
	s, set := newTestSyncer(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		r := validResponse(time.Hour)
		r.Stratum = 0
		return r, nil
	}, "a")

	_, err := s.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, set.IsZero())
}

func TestSyncCancelledContext(t *testing.T) {
	calls := 0
	s, _ := newTestSyncer(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		calls++
		return validResponse(0), nil
	}, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Sync(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestSyncNoServers(t *testing.T) {
	s := NewNTPSyncer(time.Second, "", "")
	_, err := s.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoServers)
}

func TestFakeSyncer(t *testing.T) {
	f := &FakeSyncer{Err: errors.New("timeout")}
	_, err := f.Sync(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, f.Calls)
}
