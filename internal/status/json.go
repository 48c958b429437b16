package status

import (
	"encoding/json"
	"time"
)

// ReportJSON is the top-level JSON envelope for an episode report.
type ReportJSON struct {
	Episode EpisodeJSON `json:"episode"`
}

// EpisodeJSON contains the episode details.
type EpisodeJSON struct {
	ID           string       `json:"id"`
	StartTime    string       `json:"start_time"`
	Timestamp    string       `json:"timestamp"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	Stage        string       `json:"stage"`
	Stages       []string     `json:"stages"`
	Outcome      string       `json:"outcome"`
	FailedAPI    string       `json:"failed_api,omitempty"`
	FetchStatus  int          `json:"fetch_status,omitempty"`
	Battery      *BatteryJSON `json:"battery,omitempty"`
	Network      *NetworkJSON `json:"network,omitempty"`
	TimeSynced   bool         `json:"time_synced"`
	ResyncReason string       `json:"resync_reason,omitempty"`
	WakeCounter  uint32       `json:"wake_counter"`
	Sleep        SleepJSON    `json:"sleep"`
}

// BatteryJSON is the JSON representation of the battery reading.
type BatteryJSON struct {
	Millivolts uint32 `json:"millivolts"`
	Percent    uint8  `json:"percent"`
	Tier       string `json:"tier"`
	Latched    bool   `json:"low_battery_latched"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Status     string `json:"status"`
	RSSI       int    `json:"rssi"`
	DurationMs int64  `json:"duration_ms"`
}

// SleepJSON is the JSON representation of the sleep action.
type SleepJSON struct {
	Seconds    int64 `json:"seconds"`
	Indefinite bool  `json:"indefinite"`
}

func buildEpisode(snap Snapshot) EpisodeJSON {
	stages := make([]string, len(snap.Stages))
	for i, s := range snap.Stages {
		stages[i] = string(s)
	}

	outcome := snap.Outcome
	if outcome == "" {
		outcome = "UNKNOWN"
	}

	e := EpisodeJSON{
		ID:           snap.EpisodeID,
		StartTime:    snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:    snap.Now.UTC().Format(time.RFC3339),
		ElapsedMs:    snap.Elapsed().Milliseconds(),
		Stage:        string(snap.Stage),
		Stages:       stages,
		Outcome:      outcome,
		FailedAPI:    snap.FailedAPI,
		FetchStatus:  snap.FetchStatus,
		TimeSynced:   snap.TimeSynced,
		ResyncReason: snap.ResyncReason,
		WakeCounter:  snap.WakeCounter,
		Sleep: SleepJSON{
			Seconds:    int64(snap.Sleep.Duration.Truncate(time.Second).Seconds()),
			Indefinite: snap.Sleep.Indefinite,
		},
	}

	if snap.Battery.Monitored {
		e.Battery = &BatteryJSON{
			Millivolts: snap.Battery.Millivolts,
			Percent:    snap.Battery.Percent,
			Tier:       snap.Battery.Tier,
			Latched:    snap.Battery.Latched,
		}
	}
	if snap.Network != nil {
		e.Network = &NetworkJSON{
			Status:     snap.Network.Status,
			RSSI:       snap.Network.RSSI,
			DurationMs: snap.Network.Duration.Milliseconds(),
		}
	}
	return e
}

// FormatJSON returns the indented JSON report.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(ReportJSON{Episode: buildEpisode(snap)}, "", "  ")
	return data
}
