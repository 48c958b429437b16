// Package battery reads the battery voltage and classifies it into the
// severity tiers that gate a wake episode.
package battery

import (
	"math"
	"time"
)

// Reader reads the battery voltage.
type Reader interface {
	// ReadMillivolts returns the battery terminal voltage in millivolts.
	ReadMillivolts() (uint32, error)

	// Close releases the underlying device.
	Close() error
}

// Tier is the battery severity level.
type Tier int

const (
	TierOK Tier = iota
	TierLow
	TierVeryLow
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierOK:
		return "ok"
	case TierLow:
		return "low"
	case TierVeryLow:
		return "very_low"
	case TierCritical:
		return "critically_low"
	default:
		return "unknown"
	}
}

// Policy holds the thresholds (millivolts, inclusive) and the fixed sleep
// interval used for each recoverable tier.
type Policy struct {
	Low      uint32
	VeryLow  uint32
	Critical uint32

	LowSleep     time.Duration
	VeryLowSleep time.Duration
}

// Classify returns the tier for a reading. A reading exactly at a threshold
// belongs to that threshold's tier.
func (p Policy) Classify(mv uint32) Tier {
	switch {
	case mv <= p.Critical:
		return TierCritical
	case mv <= p.VeryLow:
		return TierVeryLow
	case mv <= p.Low:
		return TierLow
	default:
		return TierOK
	}
}

// Sleep returns the fixed sleep override for tier. indefinite is true for
// TierCritical, where no wake is scheduled at all. ok is false for TierOK,
// where the regular schedule applies.
func (p Policy) Sleep(tier Tier) (d time.Duration, indefinite bool, ok bool) {
	switch tier {
	case TierCritical:
		return 0, true, true
	case TierVeryLow:
		return p.VeryLowSleep, false, true
	case TierLow:
		return p.LowSleep, false, true
	default:
		return 0, false, false
	}
}

// Percent approximates the state of charge of a lithium cell from its
// voltage with an asymmetric sigmoid, clamped to 0-100.
func Percent(mv, minMv, maxMv uint32) uint8 {
	if mv <= minMv || maxMv <= minMv {
		return 0
	}
	x := 1.724 * float64(mv-minMv) / float64(maxMv-minMv)
	p := 105 - 105/(1+math.Pow(x, 5.5))
	if p >= 100 {
		return 100
	}
	if p <= 0 {
		return 0
	}
	return uint8(math.Round(p))
}
