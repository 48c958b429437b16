// Package schedule contains the pure wake-cycle scheduling logic: how long to
// sleep and when to resynchronise the clock.
// This package has NO external dependencies (no network, storage, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package schedule

import "time"

// Default planner policy constants.
const (
	DefaultMinSleep  = 2 * time.Minute
	DefaultSkipRatio = 0.95
	DefaultBias      = 3 * time.Second
	DefaultFudge     = 1.0015
)

// MinValidYear is the earliest year a retained clock is trusted to report.
// Anything earlier means the clock lost power or was never set.
const MinValidYear = 2020

// Planner computes sleep durations aligned to a daily wake schedule.
type Planner struct {
	// WakeHour is the local hour (0-23) at which the active window opens.
	WakeHour int
	// BedHour is the local hour (0-23) at which the active window closes.
	// BedHour == WakeHour means there is no night window.
	BedHour int
	// Interval is the nominal time between wakes. Alignment is minute
	// granular; sub-minute parts are ignored.
	Interval time.Duration

	// MinSleep is the shortest acceptable nap before the next slot.
	MinSleep time.Duration
	// SkipRatio skips the next slot when more than this fraction of the
	// interval has already elapsed.
	SkipRatio float64
	// Bias is added to every plan to absorb fast-running clocks.
	Bias time.Duration
	// Fudge multiplies every plan for the same reason.
	Fudge float64
}

// ResyncReason explains why the clock must be resynchronised.
type ResyncReason string

const (
	ResyncNone         ResyncReason = ""
	ResyncClockInvalid ResyncReason = "clock_invalid"
	ResyncInterval     ResyncReason = "interval_elapsed"
)

// SyncPolicy decides whether the retained clock can be trusted this cycle.
type SyncPolicy struct {
	CyclesPerInterval uint32
}
