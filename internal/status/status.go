// Package status records what happened during one wake episode.
// The report feeds the metrics textfile and the CLI's JSON output.
package status

import (
	"sync"
	"time"
)

// Stage is a state of the wake-cycle state machine.
type Stage string

const (
	StageBoot           Stage = "BOOT"
	StageBatteryCheck   Stage = "BATTERY_CHECK"
	StageNetworkAcquire Stage = "NETWORK_ACQUIRE"
	StageTimeSync       Stage = "TIME_SYNC"
	StageDataFetch      Stage = "DATA_FETCH"
	StageRender         Stage = "RENDER"
	StageErrorRender    Stage = "ERROR_RENDER"
	StageSleep          Stage = "SLEEP"
)

// BatteryInfo is the battery reading taken at BATTERY_CHECK.
type BatteryInfo struct {
	Monitored  bool
	Millivolts uint32
	Percent    uint8
	Tier       string
	Latched    bool
}

// NetworkInfo contains link state. This is a local copy to avoid
// importing internal/network from status.
type NetworkInfo struct {
	Status   string
	RSSI     int
	Duration time.Duration
}

// SleepInfo is the terminal sleep action.
type SleepInfo struct {
	Duration   time.Duration
	Indefinite bool
}

// Snapshot is a point-in-time view of the episode.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	EpisodeID string
	StartTime time.Time
	Now       time.Time

	Stage  Stage
	Stages []Stage

	Battery      BatteryInfo
	Network      *NetworkInfo
	TimeSynced   bool
	ResyncReason string
	WakeCounter  uint32

	Outcome     string
	FailedAPI   string
	FetchStatus int

	Sleep SleepInfo
}

// Elapsed returns the time since the episode started.
func (s Snapshot) Elapsed() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds the mutable episode report behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker for the given episode. now may be nil.
func NewTracker(episodeID string, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		snap: Snapshot{
			EpisodeID: episodeID,
			StartTime: now(),
			Stage:     StageBoot,
			Stages:    []Stage{StageBoot},
		},
		now: now,
	}
}

// Enter records a transition to stage.
func (t *Tracker) Enter(stage Stage) {
	t.mu.Lock()
	t.snap.Stage = stage
	t.snap.Stages = append(t.snap.Stages, stage)
	t.mu.Unlock()
}

// SetBattery sets the battery reading.
func (t *Tracker) SetBattery(b BatteryInfo) {
	t.mu.Lock()
	t.snap.Battery = b
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetTimeSync records the time sync decision and its result.
func (t *Tracker) SetTimeSync(synced bool, reason string) {
	t.mu.Lock()
	t.snap.TimeSynced = synced
	t.snap.ResyncReason = reason
	t.mu.Unlock()
}

// SetWakeCounter sets the counter committed at episode end.
func (t *Tracker) SetWakeCounter(n uint32) {
	t.mu.Lock()
	t.snap.WakeCounter = n
	t.mu.Unlock()
}

// SetOutcome records the cycle outcome. api and fetchStatus are only set
// for fetch failures.
func (t *Tracker) SetOutcome(outcome, api string, fetchStatus int) {
	t.mu.Lock()
	t.snap.Outcome = outcome
	t.snap.FailedAPI = api
	t.snap.FetchStatus = fetchStatus
	t.mu.Unlock()
}

// SetSleep records the terminal sleep action.
func (t *Tracker) SetSleep(s SleepInfo) {
	t.mu.Lock()
	t.snap.Sleep = s
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the episode report.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Stages = append([]Stage(nil), t.snap.Stages...)
	if t.snap.Network != nil {
		n := *t.snap.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
