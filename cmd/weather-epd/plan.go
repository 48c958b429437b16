package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/weather-epd/internal/config"
	"github.com/sweeney/weather-epd/internal/episode"
	"github.com/sweeney/weather-epd/internal/power"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the sleep the planner would choose",
		Long: `Print the sleep duration and the resulting wake time for the configured
schedule. --at takes an RFC 3339 timestamp or a local "15:04" clock time
(today); the default is now.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			at, _ := cmd.Flags().GetString("at")
			now, err := parseAt(at, time.Now().In(cfg.Location()))
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), cfg, now)
		},
	}
	cmd.Flags().String("at", "", `Time to plan from (RFC 3339 or "15:04")`)
	return cmd
}

// parseAt resolves the --at flag against now, whose location is used for
// clock times.
func parseAt(at string, now time.Time) (time.Time, error) {
	if at == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, at); err == nil {
		return t.In(now.Location()), nil
	}
	t, err := time.ParseInLocation("15:04", at, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or 15:04", at)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

func printPlan(w io.Writer, cfg config.Config, now time.Time) error {
	s := episode.SettingsFromConfig(cfg)
	a := power.Sleep(s.Planner.Plan(now))

	_, err := fmt.Fprintf(w, "now:      %s\nsleep:    %s (%d us)\nwake:     %s\nresync:   every %d wakes\n",
		now.Format(time.RFC3339),
		a.Duration,
		a.Microseconds(),
		now.Add(a.Duration).Format(time.RFC3339),
		s.Sync.CyclesPerInterval,
	)
	return err
}
