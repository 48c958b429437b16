// Package metrics writes the episode report as a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/weather-epd/internal/status"
)

const namespace = "weather_epd"

// Outcomes lists every outcome label so that absent outcomes export 0.
var Outcomes = []string{
	"SUCCESS", "WIFI_FAILED", "TIME_SYNC_FAILED", "API_FAILED",
	"BATTERY_LOW", "BATTERY_VERY_LOW", "BATTERY_CRITICAL",
}

// Registry builds a registry holding the gauges for one episode.
func Registry(snap status.Snapshot) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		g.Set(v)
		reg.MustRegister(g)
	}

	outcome := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "episode_outcome",
		Help:      "Outcome of the last wake episode (1 for the active outcome).",
	}, []string{"outcome"})
	for _, o := range Outcomes {
		v := 0.0
		if o == snap.Outcome {
			v = 1
		}
		outcome.WithLabelValues(o).Set(v)
	}
	reg.MustRegister(outcome)

	gauge("last_episode_timestamp_seconds", "Unix time the last wake episode ended.", float64(snap.Now.Unix()))
	gauge("episode_duration_seconds", "Time awake during the last episode.", snap.Elapsed().Seconds())
	gauge("wake_counter", "Wake cycles since the last successful time sync.", float64(snap.WakeCounter))
	gauge("sleep_seconds", "Planned sleep after the last episode (0 when hibernating).", snap.Sleep.Duration.Seconds())

	indefinite := 0.0
	if snap.Sleep.Indefinite {
		indefinite = 1
	}
	gauge("hibernating", "1 when no wake is scheduled.", indefinite)

	if snap.Battery.Monitored {
		gauge("battery_millivolts", "Battery voltage in millivolts.", float64(snap.Battery.Millivolts))
		gauge("battery_percent", "Estimated battery charge.", float64(snap.Battery.Percent))
	}
	if n := snap.Network; n != nil {
		gauge("wifi_rssi_dbm", "WiFi signal strength.", float64(n.RSSI))
		gauge("network_duration_seconds", "Time spent on network activity.", n.Duration.Seconds())
	}
	if snap.FetchStatus != 0 {
		gauge("fetch_status", "Status of the failing fetch.", float64(snap.FetchStatus))
	}

	return reg
}

// WriteTextfile writes the episode gauges to path atomically. An empty path
// is a no-op.
func WriteTextfile(path string, snap status.Snapshot) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry(snap)); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
