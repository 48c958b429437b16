package schedule

import (
	"math"
	"time"
)

// NewPlanner returns a Planner with the default alignment and drift policy.
func NewPlanner(wakeHour, bedHour int, interval time.Duration) Planner {
	return Planner{
		WakeHour:  wakeHour,
		BedHour:   bedHour,
		Interval:  interval,
		MinSleep:  DefaultMinSleep,
		SkipRatio: DefaultSkipRatio,
		Bias:      DefaultBias,
		Fudge:     DefaultFudge,
	}
}

// Plan returns how long to sleep from now so that the next wake lands on a
// slot aligned to WakeHour, or at WakeHour the next day when that slot would
// fall in the night window. now must already be in the device's local zone.
//
// The result is always a whole number of seconds and strictly positive.
func (p Planner) Plan(now time.Time) time.Duration {
	raw := p.alignedSeconds(now)

	raw += int64(p.Bias / time.Second)
	fudge := p.Fudge
	if fudge < 1 {
		fudge = 1
	}
	secs := int64(math.Floor(float64(raw) * fudge))
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// alignedSeconds is the integer part of the plan: everything except the
// drift compensation.
func (p Planner) alignedSeconds(now time.Time) int64 {
	interval := int(p.Interval / time.Minute)
	if interval < 1 {
		interval = 1
	}

	// Hours are rebased so that WakeHour is hour 0. Wraparound then reduces
	// to plain modular arithmetic.
	bedHour := math.MaxInt
	if p.BedHour != p.WakeHour {
		bedHour = (p.BedHour - p.WakeHour + 24) % 24
	}

	hour, minute, sec := now.Clock()
	curHour := (hour - p.WakeHour + 24) % 24
	curMinute := curHour*60 + minute
	curSecond := curHour*3600 + minute*60 + sec

	intervalSeconds := interval * 60
	offsetMinutes := curMinute % interval
	offsetSeconds := curSecond % intervalSeconds

	sleepMinutes := interval - offsetMinutes
	remaining := intervalSeconds - offsetSeconds
	if remaining < int(p.MinSleep/time.Second) ||
		float64(offsetSeconds)/float64(intervalSeconds) > p.SkipRatio {
		sleepMinutes += interval
	}

	predictedWakeHour := ((curMinute + sleepMinutes) / 60) % 24
	if predictedWakeHour < bedHour {
		return int64(sleepMinutes*60 - sec)
	}

	hoursUntilWake := 24 - curHour
	return int64(hoursUntilWake*3600 - (minute*60 + sec))
}

// InActiveWindow reports whether t falls inside [WakeHour, BedHour).
func (p Planner) InActiveWindow(t time.Time) bool {
	if p.BedHour == p.WakeHour {
		return true
	}
	bedHour := (p.BedHour - p.WakeHour + 24) % 24
	curHour := (t.Hour() - p.WakeHour + 24) % 24
	return curHour < bedHour
}
