package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/weather-epd/internal/config"
	"github.com/sweeney/weather-epd/internal/episode"
	"github.com/sweeney/weather-epd/internal/state"
)

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted cycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := openState(cfg.Storage)
			defer p.Close()
			return printState(cmd.OutOrStdout(), cfg, p)
		},
	}
}

func printState(w io.Writer, cfg config.Config, p *state.Persistence) error {
	st, loadErr := p.Load()
	cycles := episode.SettingsFromConfig(cfg).Sync.CyclesPerInterval

	counter := fmt.Sprintf("%d/%d", st.WakeCounter, cycles)
	if st.WakeCounter == state.FailSafeCounter {
		counter = "unreadable (resync forced)"
	}

	_, err := fmt.Fprintf(w, "wakeCounter: %s\nlowBattery:  %t\n", counter, st.LowBattery)
	if err != nil {
		return err
	}
	if loadErr != nil {
		return fmt.Errorf("load state: %w", loadErr)
	}
	return nil
}
