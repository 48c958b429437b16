package clock

import (
	"context"
	"time"
)

// FakeSyncer is a test double returning a scripted result.
type FakeSyncer struct {
	Time  time.Time
	Err   error
	Calls int
}

// Sync returns Time or Err.
func (f *FakeSyncer) Sync(ctx context.Context) (time.Time, error) {
	f.Calls++
	if f.Err != nil {
		return time.Time{}, f.Err
	}
	return f.Time, nil
}
