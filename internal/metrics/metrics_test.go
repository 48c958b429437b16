package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/weather-epd/internal/status"
)

func testSnapshot() status.Snapshot {
	start := time.Date(2026, 10, 19, 12, 10, 0, 0, time.UTC)
	return status.Snapshot{
		EpisodeID:   "ep",
		StartTime:   start,
		Now:         start.Add(5 * time.Second),
		Outcome:     "SUCCESS",
		WakeCounter: 3,
		Battery:     status.BatteryInfo{Monitored: true, Millivolts: 3900, Percent: 70},
		Network:     &status.NetworkInfo{RSSI: -61, Duration: 2 * time.Second},
		Sleep:       status.SleepInfo{Duration: 1184 * time.Second},
	}
}

func TestRegistryGauges(t *testing.T) {
	reg := Registry(testSnapshot())

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	// 7 outcome series + 5 episode gauges + 2 battery + 2 network
	assert.Equal(t, 16, n)

	expected := `
# HELP weather_epd_sleep_seconds Planned sleep after the last episode (0 when hibernating).
# TYPE weather_epd_sleep_seconds gauge
weather_epd_sleep_seconds 1184
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "weather_epd_sleep_seconds"))
}

func TestRegistryOmitsUnknowns(t *testing.T) {
	snap := testSnapshot()
	snap.Battery = status.BatteryInfo{}
	snap.Network = nil

	n, err := testutil.GatherAndCount(Registry(snap), "weather_epd_battery_millivolts", "weather_epd_wifi_rssi_dbm")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector", "weather_epd.prom")
	require.NoError(t, WriteTextfile(path, testSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `weather_epd_episode_outcome{outcome="SUCCESS"} 1`)
	assert.Contains(t, string(data), `weather_epd_episode_outcome{outcome="API_FAILED"} 0`)
	assert.Contains(t, string(data), "weather_epd_battery_millivolts 3900")
}

func TestWriteTextfileDisabled(t *testing.T) {
	assert.NoError(t, WriteTextfile("", testSnapshot()))
}
