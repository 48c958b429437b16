// Package episode runs one wake episode: battery check, network, time sync,
// data fetch, render, and the choice of the terminal sleep action.
package episode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/weather-epd/internal/battery"
	"github.com/sweeney/weather-epd/internal/clock"
	"github.com/sweeney/weather-epd/internal/config"
	"github.com/sweeney/weather-epd/internal/fetch"
	"github.com/sweeney/weather-epd/internal/gpio"
	"github.com/sweeney/weather-epd/internal/log"
	"github.com/sweeney/weather-epd/internal/mqtt"
	"github.com/sweeney/weather-epd/internal/network"
	"github.com/sweeney/weather-epd/internal/power"
	"github.com/sweeney/weather-epd/internal/render"
	"github.com/sweeney/weather-epd/internal/schedule"
	"github.com/sweeney/weather-epd/internal/state"
	"github.com/sweeney/weather-epd/internal/status"
)

// Kind classifies how an episode ended.
type Kind string

const (
	Success         Kind = "SUCCESS"
	WiFiFailed      Kind = "WIFI_FAILED"
	TimeSyncFailed  Kind = "TIME_SYNC_FAILED"
	APIFailed       Kind = "API_FAILED"
	BatteryLow      Kind = "BATTERY_LOW"
	BatteryVeryLow  Kind = "BATTERY_VERY_LOW"
	BatteryCritical Kind = "BATTERY_CRITICAL"
)

// Messages shown on error screens.
const (
	TextLowBattery          = "Low Battery"
	TextNetworkNotAvailable = "Network Not Available"
	TextWiFiFailed          = "WiFi Connection Failed"
	TextTimeSyncFailed      = "Time Synchronization Failed"
)

// Outcome is the result of an episode. API and Status are set for fetch
// failures only.
type Outcome struct {
	Kind   Kind
	API    string
	Status int
}

func (o Outcome) String() string {
	if o.Kind == APIFailed {
		return fmt.Sprintf("%s (%s: %d)", o.Kind, o.API, o.Status)
	}
	return string(o.Kind)
}

// Result is what Run hands back to the caller, which executes Action.
type Result struct {
	Outcome Outcome
	Action  power.Action
	State   state.CycleState
	Report  status.Snapshot
}

// Settings are the static parameters of an episode.
type Settings struct {
	City              string
	DateFormat        string
	RefreshTimeFormat string
	Location          *time.Location

	// BatteryPolicy is ignored when Runner.Battery is nil.
	BatteryPolicy battery.Policy
	BatteryMin    uint32
	BatteryMax    uint32

	WiFiTimeout time.Duration
	NTPTimeout  time.Duration
	Attempts    int

	Planner schedule.Planner
	Sync    schedule.SyncPolicy
}

// SettingsFromConfig derives Settings from the device configuration.
func SettingsFromConfig(cfg config.Config) Settings {
	interval := time.Duration(cfg.SleepDuration) * time.Minute

	planner := schedule.NewPlanner(cfg.WakeTime, cfg.BedTime, interval)
	planner.MinSleep = time.Duration(cfg.SleepPolicy.MinSleepSeconds) * time.Second
	planner.SkipRatio = cfg.SleepPolicy.SkipRatio
	planner.Bias = time.Duration(cfg.SleepPolicy.BiasSeconds) * time.Second
	planner.Fudge = cfg.SleepPolicy.FudgeFactor

	b := cfg.Battery
	return Settings{
		City:              cfg.City,
		DateFormat:        cfg.DateFormat,
		RefreshTimeFormat: cfg.RefreshTimeFormat,
		Location:          cfg.Location(),
		BatteryPolicy: battery.Policy{
			Low:          b.LowVoltage,
			VeryLow:      b.VeryLowVoltage,
			Critical:     b.CritLowVoltage,
			LowSleep:     time.Duration(b.LowSleepInterval) * time.Minute,
			VeryLowSleep: time.Duration(b.VeryLowSleepInterval) * time.Minute,
		},
		BatteryMin:  b.MinVoltage,
		BatteryMax:  b.MaxVoltage,
		WiFiTimeout: cfg.WiFiTimeout(),
		NTPTimeout:  cfg.NTPTimeout(),
		Attempts:    fetch.DefaultAttempts,
		Planner:     planner,
		Sync:        schedule.NewSyncPolicy(cfg.NTPSyncIntervalHours, interval),
	}
}

// Runner holds the collaborators of one episode. Battery, Publisher, LED
// and Tracker are optional.
type Runner struct {
	Settings

	Battery   battery.Reader
	State     *state.Persistence
	Link      network.Link
	Clock     clock.Syncer
	Data      fetch.DataProvider
	Renderer  render.Renderer
	Publisher mqtt.Publisher
	LED       gpio.Switch
	Tracker   *status.Tracker

	// Now defaults to time.Now. It is read again after a time sync.
	Now func() time.Time
}

// episode is the mutable state of a single Run.
type episode struct {
	*Runner
	ctx     context.Context
	logger  zerolog.Logger
	tracker *status.Tracker

	prev state.CycleState
	next state.CycleState

	batteryMv  uint32
	batteryPct uint8
	monitored  bool

	netStart time.Time
	rssi     int
}

// Run executes one episode and returns the sleep action to take. Every
// operational failure ends in a sleep action; the error is only non-nil
// when the Runner is missing a required collaborator.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Location == nil {
		r.Location = time.Local
	}

	tracker := r.Tracker
	if tracker == nil {
		tracker = status.NewTracker(uuid.NewString(), r.Now)
	}
	e := &episode{
		Runner:  r,
		ctx:     ctx,
		logger:  log.WithEpisode(tracker.Snapshot().EpisodeID),
		tracker: tracker,
	}

	e.led(true)
	outcome, action := e.run()
	e.led(false)

	e.tracker.SetWakeCounter(e.next.WakeCounter)
	e.tracker.SetOutcome(string(outcome.Kind), outcome.API, outcome.Status)
	e.tracker.SetSleep(status.SleepInfo{Duration: action.Duration, Indefinite: action.Indefinite})
	e.tracker.Enter(status.StageSleep)

	if err := r.State.Commit(e.prev, e.next); err != nil {
		e.logger.Error().Err(err).Msg("Failed to commit cycle state")
	}

	report := e.tracker.Snapshot()
	e.logger.Info().
		Str("outcome", outcome.String()).
		Str("action", action.String()).
		Uint32("wake_counter", e.next.WakeCounter).
		Dur("awake", report.Elapsed()).
		Msg("Episode complete")

	return Result{Outcome: outcome, Action: action, State: e.next, Report: report}, nil
}

func (r *Runner) validate() error {
	var errs []error
	if r.State == nil {
		errs = append(errs, errors.New("state persistence is required"))
	}
	if r.Link == nil {
		errs = append(errs, errors.New("network link is required"))
	}
	if r.Clock == nil {
		errs = append(errs, errors.New("clock syncer is required"))
	}
	if r.Data.Forecast == nil || r.Data.AirQuality == nil || r.Data.Astronomy == nil {
		errs = append(errs, errors.New("data provider is incomplete"))
	}
	if r.Renderer == nil {
		errs = append(errs, errors.New("renderer is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("episode: %w", errors.Join(errs...))
	}
	return nil
}

func (e *episode) run() (Outcome, power.Action) {
	prev, err := e.State.Load()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Cycle state partially unreadable")
	}
	e.prev, e.next = prev, prev

	if o, a, done := e.checkBattery(); done {
		return o, a
	}

	e.tracker.Enter(status.StageNetworkAcquire)
	e.netStart = e.Now()
	if o, a, done := e.acquireNetwork(); done {
		return o, a
	}

	e.tracker.Enter(status.StageTimeSync)
	if !e.syncTime() {
		return e.networkError(Outcome{Kind: TimeSyncFailed}, render.IconTime, TextTimeSyncFailed, "")
	}

	e.tracker.Enter(status.StageDataFetch)
	forecast, air, moon, failed := e.fetchAll()
	if failed != nil {
		line2 := fmt.Sprintf("%d: %s", failed.Status, fetch.Phrase(failed.Status))
		return e.networkError(*failed, render.IconCloud, failed.API, line2)
	}

	e.publish()
	e.killNetwork()

	forecast.Apply(*moon)

	e.tracker.Enter(status.StageRender)
	now := e.Now().In(e.Location)
	screen := render.Screen{
		City:              e.City,
		Date:              now.Format(e.DateFormat),
		RefreshTime:       now.Format(e.RefreshTimeFormat),
		Forecast:          forecast,
		AirQuality:        air,
		Moon:              moon,
		BatteryMillivolts: e.batteryMv,
		BatteryPercent:    e.batteryPct,
		RSSI:              e.rssi,
	}
	if err := e.Renderer.DrawWeather(screen); err != nil {
		e.logger.Error().Err(err).Msg("Failed to draw weather")
	}
	e.powerOffDisplay()

	return Outcome{Kind: Success}, e.plannedSleep()
}

// checkBattery returns done when the battery is too low to continue.
func (e *episode) checkBattery() (Outcome, power.Action, bool) {
	if e.Battery == nil {
		return Outcome{}, power.Action{}, false
	}
	e.tracker.Enter(status.StageBatteryCheck)

	mv, err := e.Battery.ReadMillivolts()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Battery read failed, continuing without monitoring")
		return Outcome{}, power.Action{}, false
	}
	e.monitored = true
	e.batteryMv = mv
	e.batteryPct = battery.Percent(mv, e.BatteryMin, e.BatteryMax)

	tier := e.BatteryPolicy.Classify(mv)
	e.logger.Info().Uint32("millivolts", mv).Uint8("percent", e.batteryPct).Str("tier", tier.String()).Msg("Battery")

	defer func() {
		e.tracker.SetBattery(status.BatteryInfo{
			Monitored:  true,
			Millivolts: mv,
			Percent:    e.batteryPct,
			Tier:       tier.String(),
			Latched:    e.next.LowBattery,
		})
	}()

	d, _, low := e.BatteryPolicy.Sleep(tier)
	if !low {
		if e.prev.LowBattery {
			e.logger.Info().Msg("Battery recovered, clearing low battery latch")
			e.next.LowBattery = false
		}
		return Outcome{}, power.Action{}, false
	}

	if !e.prev.LowBattery {
		e.next.LowBattery = true
		e.tracker.Enter(status.StageErrorRender)
		if err := e.Renderer.DrawError(render.IconBattery, TextLowBattery, ""); err != nil {
			e.logger.Error().Err(err).Msg("Failed to draw low battery screen")
		}
		e.powerOffDisplay()
	}

	switch tier {
	case battery.TierCritical:
		e.logger.Warn().Msg("Battery critically low, hibernating indefinitely")
		return Outcome{Kind: BatteryCritical}, power.Hibernate(), true
	case battery.TierVeryLow:
		e.logger.Warn().Dur("sleep", d).Msg("Battery very low")
		return Outcome{Kind: BatteryVeryLow}, power.Sleep(d), true
	default:
		e.logger.Warn().Dur("sleep", d).Msg("Battery low")
		return Outcome{Kind: BatteryLow}, power.Sleep(d), true
	}
}

func (e *episode) acquireNetwork() (Outcome, power.Action, bool) {
	ctx, cancel := context.WithTimeout(e.ctx, e.WiFiTimeout)
	defer cancel()

	st, err := e.Link.Connect(ctx)
	if err == nil && st == network.Connected {
		rssi, err := e.Link.RSSI()
		if err != nil {
			e.logger.Debug().Err(err).Msg("RSSI unavailable")
		}
		e.rssi = rssi
		e.tracker.SetNetwork(&status.NetworkInfo{Status: st.String(), RSSI: rssi})
		e.logger.Info().Int("rssi", rssi).Msg("WiFi connected")
		return Outcome{}, power.Action{}, false
	}

	e.logger.Warn().Err(err).Str("status", st.String()).Msg("WiFi connection failed")
	e.tracker.SetNetwork(&status.NetworkInfo{Status: st.String(), Duration: e.Now().Sub(e.netStart)})
	e.killNetwork()

	msg := TextWiFiFailed
	if st == network.NoSSID {
		msg = TextNetworkNotAvailable
	}
	return e.showError(Outcome{Kind: WiFiFailed}, render.IconWiFi, msg, ""), e.plannedSleep(), true
}

// syncTime applies the resync policy and advances the wake counter. It
// reports whether the clock can be trusted.
func (e *episode) syncTime() bool {
	now := e.Now().In(e.Location)
	need, reason := e.Sync.NeedsResync(now, e.prev.WakeCounter)

	ok, synced := true, false
	if need {
		ctx, cancel := context.WithTimeout(e.ctx, e.NTPTimeout)
		t, err := e.Clock.Sync(ctx)
		cancel()
		if err != nil {
			e.logger.Warn().Err(err).Str("reason", string(reason)).Msg("Time synchronization failed")
			ok = false
		} else {
			e.logger.Info().Time("time", t).Str("reason", string(reason)).Msg("Time synchronized")
			synced = true
		}
	} else {
		e.logger.Debug().
			Uint32("wake", e.prev.WakeCounter).
			Uint32("cycles", e.Sync.CyclesPerInterval).
			Msg("Using retained clock")
	}

	e.next.WakeCounter = schedule.NextCounter(e.prev.WakeCounter, synced)
	e.tracker.SetTimeSync(synced, string(reason))
	return ok
}

// fetchAll performs the three fetches in order and stops at the first
// failure.
func (e *episode) fetchAll() (*fetch.Forecast, *fetch.AirQuality, *fetch.Moon, *Outcome) {
	var (
		forecast *fetch.Forecast
		air      *fetch.AirQuality
		moon     *fetch.Moon
	)

	steps := []struct {
		name string
		do   func(context.Context) error
	}{
		{e.Data.Forecast.Name(), func(ctx context.Context) (err error) {
			forecast, err = e.Data.Forecast.Forecast(ctx)
			return err
		}},
		{e.Data.AirQuality.Name(), func(ctx context.Context) (err error) {
			air, err = e.Data.AirQuality.AirQuality(ctx)
			return err
		}},
		{e.Data.Astronomy.Name(), func(ctx context.Context) (err error) {
			moon, err = e.Data.Astronomy.Moon(ctx, e.Now().In(e.Location))
			return err
		}},
	}

	for _, s := range steps {
		if err := fetch.Retry(e.ctx, e.Link, e.Attempts, s.name, s.do); err != nil {
			return nil, nil, nil, &Outcome{Kind: APIFailed, API: s.name, Status: fetch.Status(err)}
		}
	}
	return forecast, air, moon, nil
}

// networkError is the error path for failures after the link came up:
// telemetry while the link lasts, then disconnect, error screen and sleep.
func (e *episode) networkError(o Outcome, icon render.Icon, line1, line2 string) (Outcome, power.Action) {
	e.publish()
	e.killNetwork()
	return e.showError(o, icon, line1, line2), e.plannedSleep()
}

func (e *episode) showError(o Outcome, icon render.Icon, line1, line2 string) Outcome {
	e.tracker.Enter(status.StageErrorRender)
	e.logger.Warn().Str("icon", icon.String()).Str("line1", line1).Str("line2", line2).Msg("Drawing error screen")
	if err := e.Renderer.DrawError(icon, line1, line2); err != nil {
		e.logger.Error().Err(err).Msg("Failed to draw error screen")
	}
	e.powerOffDisplay()
	return o
}

// publish sends telemetry when a publisher is configured and the link is
// still up. Failures are logged only.
func (e *episode) publish() {
	if e.Publisher == nil || e.Link.Status() != network.Connected {
		return
	}
	t := mqtt.Telemetry{
		BatteryMonitored:  e.monitored,
		BatteryMillivolts: e.batteryMv,
		BatteryPercent:    e.batteryPct,
		RSSI:              e.rssi,
		NetworkDuration:   e.Now().Sub(e.netStart),
	}
	if err := e.Publisher.PublishStatus(t); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to publish telemetry")
	}
}

func (e *episode) killNetwork() {
	if err := e.Link.Close(); err != nil {
		e.logger.Debug().Err(err).Msg("Failed to close link")
	}
	d := e.Now().Sub(e.netStart)
	snap := e.tracker.Snapshot()
	info := status.NetworkInfo{Status: network.Disconnected.String(), RSSI: e.rssi, Duration: d}
	if snap.Network != nil {
		info.Status = snap.Network.Status
	}
	e.tracker.SetNetwork(&info)
	e.logger.Info().Dur("duration", d).Msg("Network operations finished")
}

func (e *episode) powerOffDisplay() {
	if err := e.Renderer.PowerOff(); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to power off display")
	}
}

func (e *episode) plannedSleep() power.Action {
	d := e.Planner.Plan(e.Now().In(e.Location))
	e.logger.Info().Dur("sleep", d).Msg("Planned sleep")
	return power.Sleep(d)
}

func (e *episode) led(on bool) {
	if e.LED == nil {
		return
	}
	if err := e.LED.SetLED(on); err != nil {
		e.logger.Debug().Err(err).Msg("Failed to set LED")
	}
}
