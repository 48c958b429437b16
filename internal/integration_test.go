package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweeney/weather-epd/internal/battery"
	"github.com/sweeney/weather-epd/internal/config"
	"github.com/sweeney/weather-epd/internal/episode"
	"github.com/sweeney/weather-epd/internal/fetch"
	"github.com/sweeney/weather-epd/internal/gpio"
	"github.com/sweeney/weather-epd/internal/mqtt"
	"github.com/sweeney/weather-epd/internal/network"
	"github.com/sweeney/weather-epd/internal/power"
	"github.com/sweeney/weather-epd/internal/render"
	"github.com/sweeney/weather-epd/internal/state"
)

const forecastBody = `{
  "timezone": "UTC", "utc_offset_seconds": 0,
  "current": {"time": 1792400000, "temperature_2m": 11.2, "relative_humidity_2m": 80,
    "weather_code": 61, "wind_speed_10m": 5.0, "wind_direction_10m": 200, "is_day": 1},
  "hourly": {"time": [1792400000, 1792403600], "temperature_2m": [11.2, 10.8],
    "precipitation_probability": [60, 70], "weather_code": [61, 63], "is_day": [1, 1]},
  "daily": {"time": [1792368000], "weather_code": [61], "temperature_2m_max": [13.0],
    "temperature_2m_min": [7.5], "sunrise": [1792393000], "sunset": [1792431000]}
}`

const airBody = `{"current":{"time":1792400000,"us_aqi":31,"pm2_5":5.2,"pm10":9.8}}`

// simClock is the device clock. Sync sets it to the reference time when
// the retained clock was lost.
type simClock struct {
	now       time.Time
	reference time.Time
	syncs     int
}

func (c *simClock) Now() time.Time { return c.now }

func (c *simClock) Sync(ctx context.Context) (time.Time, error) {
	c.syncs++
	if c.now.Year() < 2020 {
		c.now = c.reference
	}
	return c.now, nil
}

// device holds what survives between episodes: the two stores on disk, the
// clock and the provider endpoint.
type device struct {
	t        *testing.T
	cfg      config.Config
	clock    *simClock
	srv      *httptest.Server
	requests atomic.Int32

	forecastStatus int
}

func newDevice(t *testing.T, start time.Time) *device {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.City = "Leeds"
	cfg.Latitude, cfg.Longitude = 53.8, -1.55
	cfg.WiFiSSID = "home"
	cfg.NTPSyncIntervalHours = 6
	cfg.Display.Panel = config.PanelPNG
	cfg.Display.PNGPath = filepath.Join(dir, "screen.png")
	cfg.Storage.RetainedPath = filepath.Join(dir, "run", "retained.db")
	cfg.Storage.DurablePath = filepath.Join(dir, "lib", "nvs.db")

	d := &device{t: t, cfg: cfg, clock: &simClock{now: start, reference: start}, forecastStatus: http.StatusOK}
	d.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.requests.Add(1)
		switch r.URL.Path {
		case "/v1/forecast":
			w.WriteHeader(d.forecastStatus)
			_, _ = w.Write([]byte(forecastBody))
		case "/v1/air-quality":
			_, _ = w.Write([]byte(airBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(d.srv.Close)
	return d
}

// wake runs one episode the way the command does: fresh process, stores
// reopened, then the clock advanced by the chosen sleep.
func (d *device) wake(mv uint32, renderer render.Renderer) episode.Result {
	d.t.Helper()

	retained, err := state.OpenBolt(d.cfg.Storage.RetainedPath)
	if err != nil {
		d.t.Fatalf("open retained: %v", err)
	}
	durable, err := state.OpenBolt(d.cfg.Storage.DurablePath)
	if err != nil {
		d.t.Fatalf("open durable: %v", err)
	}
	persist := state.New(retained, durable)
	defer persist.Close()

	dp, err := fetch.NewDataProvider(d.cfg, fetch.NewClient(2*time.Second), fetch.Endpoints{
		OpenMeteo:           d.srv.URL,
		OpenMeteoAirQuality: d.srv.URL,
	})
	if err != nil {
		d.t.Fatalf("data provider: %v", err)
	}

	if renderer == nil {
		renderer = render.NewImageRenderer(&render.PNGPanel{Path: d.cfg.Display.PNGPath}, gpio.NewFakeSwitch())
	}

	r := &episode.Runner{
		Settings:  episode.SettingsFromConfig(d.cfg),
		Battery:   battery.NewFakeReader(mv),
		State:     persist,
		Link:      network.NewFakeLink(),
		Clock:     d.clock,
		Data:      dp,
		Renderer:  renderer,
		Publisher: mqtt.NewFakePublisher(),
		Now:       d.clock.Now,
	}

	res, err := r.Run(context.Background())
	if err != nil {
		d.t.Fatalf("run: %v", err)
	}
	if !res.Action.Indefinite {
		d.clock.now = d.clock.now.Add(res.Action.Duration)
	}
	return res
}

func TestIntegrationWakeCycles(t *testing.T) {
	start := time.Date(2026, 10, 19, 12, 10, 0, 0, time.UTC)
	d := newDevice(t, start)

	for i := 0; i < 40; i++ {
		res := d.wake(4000, nil)
		if res.Outcome.Kind != episode.Success {
			t.Fatalf("episode %d: outcome %v", i, res.Outcome)
		}
		if res.Action.Indefinite || res.Action.Duration <= 0 {
			t.Fatalf("episode %d: bad action %v", i, res.Action)
		}
		if res.Action.Duration > 24*time.Hour+30*time.Minute {
			t.Fatalf("episode %d: sleep %v exceeds a day plus one interval", i, res.Action.Duration)
		}

		woke := d.clock.now
		if woke.Minute()%30 != 0 {
			t.Errorf("episode %d: woke at %s, not on a 30 minute slot", i, woke.Format(time.TimeOnly))
		}
		if woke.Hour() < 6 {
			t.Errorf("episode %d: woke at %s, inside the night window", i, woke.Format(time.TimeOnly))
		}
	}

	// 12 wakes per 6 hour sync interval: syncs on the 13th, 25th and 37th.
	if d.clock.syncs != 3 {
		t.Errorf("syncs: got %d, want 3", d.clock.syncs)
	}
	// Two requests per successful episode.
	if got := d.requests.Load(); got != 80 {
		t.Errorf("requests: got %d, want 80", got)
	}
	if _, err := os.Stat(d.cfg.Display.PNGPath); err != nil {
		t.Errorf("screen not written: %v", err)
	}
}

func TestIntegrationNightSkip(t *testing.T) {
	d := newDevice(t, time.Date(2026, 10, 19, 23, 40, 0, 0, time.UTC))

	d.wake(4000, nil)

	want := time.Date(2026, 10, 20, 6, 0, 0, 0, time.UTC)
	if got := d.clock.now; got.Before(want) || got.After(want.Add(time.Minute)) {
		t.Errorf("woke at %s, want just after %s", got, want)
	}
}

func TestIntegrationLowBatteryAcrossWakes(t *testing.T) {
	d := newDevice(t, time.Date(2026, 10, 19, 12, 10, 0, 0, time.UTC))
	panel := &render.FakePanel{}
	renderer := render.NewImageRenderer(panel, gpio.NewFakeSwitch())

	// First low reading: one warning screen, fixed low-battery sleep.
	res := d.wake(3500, renderer)
	if res.Outcome.Kind != episode.BatteryLow || res.Action != power.Sleep(30*time.Minute) {
		t.Fatalf("first low wake: %v %v", res.Outcome, res.Action)
	}
	if len(panel.Shown) != 1 || panel.Sleeps != 1 {
		t.Fatalf("first low wake: shown=%d sleeps=%d", len(panel.Shown), panel.Sleeps)
	}
	if d.requests.Load() != 0 {
		t.Fatal("low battery wake made network requests")
	}

	// Still low: the latch survives the restart, the panel is left alone.
	res = d.wake(3350, renderer)
	if res.Outcome.Kind != episode.BatteryVeryLow || res.Action != power.Sleep(120*time.Minute) {
		t.Fatalf("very low wake: %v %v", res.Outcome, res.Action)
	}
	if len(panel.Shown) != 1 {
		t.Errorf("latched wake redrew the panel: shown=%d", len(panel.Shown))
	}

	// Recovered: latch cleared, weather drawn.
	res = d.wake(3900, renderer)
	if res.Outcome.Kind != episode.Success || res.State.LowBattery {
		t.Fatalf("recovered wake: %v latch=%v", res.Outcome, res.State.LowBattery)
	}
	if len(panel.Shown) != 2 {
		t.Errorf("recovered wake: shown=%d, want 2", len(panel.Shown))
	}

	// Low again: warned again.
	d.wake(3500, renderer)
	if len(panel.Shown) != 3 {
		t.Errorf("second low episode: shown=%d, want 3", len(panel.Shown))
	}

	// Critical: no further wake.
	res = d.wake(3200, renderer)
	if res.Action != power.Hibernate() {
		t.Errorf("critical wake: action %v", res.Action)
	}
}

func TestIntegrationAPIOutage(t *testing.T) {
	d := newDevice(t, time.Date(2026, 10, 19, 12, 10, 0, 0, time.UTC))
	d.forecastStatus = http.StatusServiceUnavailable

	res := d.wake(4000, nil)

	want := episode.Outcome{Kind: episode.APIFailed, API: "Open Meteo API", Status: http.StatusServiceUnavailable}
	if res.Outcome != want {
		t.Errorf("outcome: got %v, want %v", res.Outcome, want)
	}
	if got := d.requests.Load(); got != fetch.DefaultAttempts {
		t.Errorf("requests: got %d, want %d", got, fetch.DefaultAttempts)
	}
	if res.Report.FailedAPI != "Open Meteo API" {
		t.Errorf("report FailedAPI: %q", res.Report.FailedAPI)
	}
	if _, err := os.Stat(d.cfg.Display.PNGPath); err != nil {
		t.Errorf("error screen not written: %v", err)
	}

	// The next wake recovers on its own.
	d.forecastStatus = http.StatusOK
	if res := d.wake(4000, nil); res.Outcome.Kind != episode.Success {
		t.Errorf("next wake: %v", res.Outcome)
	}
}

func TestIntegrationColdBoot(t *testing.T) {
	reference := time.Date(2026, 10, 19, 12, 10, 0, 0, time.UTC)
	d := newDevice(t, reference)

	for i := 0; i < 5; i++ {
		d.wake(4000, nil)
	}
	if d.clock.syncs != 0 {
		t.Fatalf("unexpected syncs before power loss: %d", d.clock.syncs)
	}

	// Power loss: retained memory and the clock are gone, flash survives.
	if err := os.Remove(d.cfg.Storage.RetainedPath); err != nil {
		t.Fatal(err)
	}
	d.clock.now = time.Unix(30, 0).UTC()

	res := d.wake(4000, nil)
	if d.clock.syncs != 1 {
		t.Errorf("syncs after cold boot: got %d, want 1", d.clock.syncs)
	}
	if res.State.WakeCounter != 1 {
		t.Errorf("wake counter after cold boot sync: got %d, want 1", res.State.WakeCounter)
	}
	if res.Outcome.Kind != episode.Success {
		t.Errorf("outcome: %v", res.Outcome)
	}
}
