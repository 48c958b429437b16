package schedule

import (
	"math"
	"time"
)

// CyclesPerInterval returns how many wake cycles fit in the sync interval,
// never less than one.
func CyclesPerInterval(syncIntervalHours int, interval time.Duration) uint32 {
	minutes := int(interval / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	n := syncIntervalHours * 60 / minutes
	if n < 1 {
		n = 1
	}
	return uint32(n)
}

// NewSyncPolicy builds the policy for the given sync and wake intervals.
func NewSyncPolicy(syncIntervalHours int, interval time.Duration) SyncPolicy {
	return SyncPolicy{CyclesPerInterval: CyclesPerInterval(syncIntervalHours, interval)}
}

// NeedsResync reports whether the clock must be resynchronised before it is
// used. now is the retained clock's current reading.
func (p SyncPolicy) NeedsResync(now time.Time, wakeCounter uint32) (bool, ResyncReason) {
	if now.Year() < MinValidYear {
		return true, ResyncClockInvalid
	}
	if wakeCounter >= p.CyclesPerInterval {
		return true, ResyncInterval
	}
	return false, ResyncNone
}

// NextCounter returns the wake counter to persist at the end of a cycle.
// A successful sync restarts the count; every cycle, including one whose
// sync failed, counts itself.
func NextCounter(wakeCounter uint32, synced bool) uint32 {
	if synced {
		wakeCounter = 0
	}
	if wakeCounter == math.MaxUint32 {
		return wakeCounter
	}
	return wakeCounter + 1
}
