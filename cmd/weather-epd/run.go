package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/weather-epd/internal/battery"
	"github.com/sweeney/weather-epd/internal/clock"
	"github.com/sweeney/weather-epd/internal/config"
	"github.com/sweeney/weather-epd/internal/episode"
	"github.com/sweeney/weather-epd/internal/fetch"
	"github.com/sweeney/weather-epd/internal/gpio"
	"github.com/sweeney/weather-epd/internal/log"
	"github.com/sweeney/weather-epd/internal/metrics"
	"github.com/sweeney/weather-epd/internal/mqtt"
	"github.com/sweeney/weather-epd/internal/network"
	"github.com/sweeney/weather-epd/internal/power"
	"github.com/sweeney/weather-epd/internal/render"
	"github.com/sweeney/weather-epd/internal/state"
	"github.com/sweeney/weather-epd/internal/status"
)

// newSleeper picks the terminal sleeper for cfg.
var newSleeper = func(cfg config.Config) power.Sleeper {
	if cfg.Power.DryRun {
		return power.DryRunSleeper{}
	}
	return power.NewRTCSleeper(cfg.Power.WakeAlarmPath)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one wake episode, then sleep",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, err := loadConfig(cmd)
			if err != nil {
				// Without a usable config the board still has to go back to
				// sleep, on the default schedule and wakealarm.
				cfg = config.Default()
				cfg.Power.DryRun = cfg.Power.DryRun || dryRun
				return errors.Join(err, sleepUntilNextSlot(cfg, newSleeper(cfg), time.Now))
			}
			cfg.Power.DryRun = cfg.Power.DryRun || dryRun

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runEpisode(ctx, cfg, openDevices, newSleeper(cfg), time.Now, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("dry-run", false, "Log the sleep action instead of arming the RTC and powering off")
	return cmd
}

// opener builds the episode collaborators from cfg. The returned func
// releases them.
type opener func(cfg config.Config) (*episode.Runner, func() error, error)

// runEpisode runs one episode and always finishes by entering a sleep
// action, even when the hardware could not be set up.
func runEpisode(ctx context.Context, cfg config.Config, open opener, sleeper power.Sleeper, now func() time.Time, out io.Writer) error {
	logger := log.WithComponent("main")

	runner, closeAll, err := open(cfg)
	if err == nil {
		var res episode.Result
		res, err = runner.Run(ctx)
		if cerr := closeAll(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to release devices")
		}
		if err == nil {
			return finish(cfg, res, sleeper, out)
		}
	}

	logger.Error().Err(err).Msg("Episode could not run, sleeping until the next slot")
	return errors.Join(err, sleepUntilNextSlot(cfg, sleeper, now))
}

// sleepUntilNextSlot enters a timed sleep to the next aligned wake of cfg's
// schedule.
func sleepUntilNextSlot(cfg config.Config, sleeper power.Sleeper, now func() time.Time) error {
	planner := episode.SettingsFromConfig(cfg).Planner
	action := power.Sleep(planner.Plan(now().In(cfg.Location())))
	if err := sleeper.Enter(action); err != nil {
		return fmt.Errorf("enter %s: %w", action, err)
	}
	return nil
}

// finish publishes the episode report and enters the sleep action.
func finish(cfg config.Config, res episode.Result, sleeper power.Sleeper, out io.Writer) error {
	logger := log.WithComponent("main")

	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath, res.Report); err != nil {
		logger.Warn().Err(err).Msg("Failed to write metrics")
	}
	if _, err := fmt.Fprintln(out, string(status.FormatJSON(res.Report))); err != nil {
		logger.Warn().Err(err).Msg("Failed to write report")
	}

	if err := sleeper.Enter(res.Action); err != nil {
		return fmt.Errorf("enter %s: %w", res.Action, err)
	}
	return nil
}

// openDevices wires the real hardware and network collaborators. Optional
// devices that fail to open are logged and left out.
func openDevices(cfg config.Config) (*episode.Runner, func() error, error) {
	logger := log.WithComponent("main")
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*episode.Runner, func() error, error) {
		return nil, nil, errors.Join(err, closeAll())
	}

	r := &episode.Runner{Settings: episode.SettingsFromConfig(cfg)}

	r.State = openState(cfg.Storage)
	closers = append(closers, r.State.Close)

	if cfg.Battery.Monitoring {
		b := cfg.Battery
		reader, err := battery.NewADCReader(b.I2CBus, b.ADCAddress, b.ADCChannel, b.DividerRatio)
		if err != nil {
			logger.Warn().Err(err).Msg("Battery monitor unavailable")
		} else {
			r.Battery = reader
			closers = append(closers, reader.Close)
		}
	}

	var sw gpio.Switch
	if cfg.Display.PowerPin != gpio.Disabled || cfg.Display.LEDPin != gpio.Disabled {
		rs, err := gpio.NewRealSwitch(cfg.Display.GPIOChip, gpio.Pins{Power: cfg.Display.PowerPin, LED: cfg.Display.LEDPin})
		if err != nil {
			logger.Warn().Err(err).Msg("GPIO unavailable")
		} else {
			sw = rs
			r.LED = rs
			closers = append(closers, rs.Close)
		}
	}

	var panel render.Panel
	switch cfg.Display.Panel {
	case config.PanelPNG:
		panel = &render.PNGPanel{Path: cfg.Display.PNGPath}
	default:
		ws, err := render.NewWaveshare()
		if err != nil {
			return fail(fmt.Errorf("open display: %w", err))
		}
		panel = ws
	}
	closers = append(closers, panel.Close)
	r.Renderer = render.NewImageRenderer(panel, sw)

	link, err := network.NewWiFiLink(cfg.WiFiInterface, cfg.WiFiSSID)
	if err != nil {
		return fail(fmt.Errorf("open wifi: %w", err))
	}
	r.Link = link
	closers = append(closers, link.Close)

	r.Clock = clock.NewNTPSyncer(cfg.NTPTimeout(), cfg.NTPServer1, cfg.NTPServer2)

	r.Data, err = fetch.NewDataProvider(cfg, fetch.NewClient(cfg.HTTPTimeout()), fetch.Endpoints{})
	if err != nil {
		return fail(err)
	}

	if cfg.MQTTEnabled() {
		h := cfg.HomeAssistantMQTT
		pub := mqtt.NewDialOnPublish(mqtt.Options{
			Server:   h.Server,
			Port:     h.Port,
			Username: h.Username,
			Password: h.Password,
			Device: mqtt.Device{
				ClientID:        h.ClientID,
				Name:            h.DeviceName,
				Version:         Version,
				DiscoveryPrefix: h.DiscoveryPrefix,
			},
		})
		r.Publisher = pub
		closers = append(closers, pub.Close)
	}

	return r, closeAll, nil
}

// openState opens the two bbolt stores. A store that cannot be opened is
// left out; Persistence then falls back to its defaults.
func openState(sc config.StorageConfig) *state.Persistence {
	logger := log.WithComponent("state")

	var retained, durable state.Store
	if s, err := state.OpenBolt(sc.RetainedPath); err != nil {
		logger.Warn().Err(err).Str("path", sc.RetainedPath).Msg("Retained store unavailable")
	} else {
		retained = s
	}
	if s, err := state.OpenBolt(sc.DurablePath); err != nil {
		logger.Warn().Err(err).Str("path", sc.DurablePath).Msg("Durable store unavailable")
	} else {
		durable = s
	}
	return state.New(retained, durable)
}
