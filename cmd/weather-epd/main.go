// Command weather-epd runs one wake episode of the e-paper weather display
// and puts the board to sleep until the next aligned slot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/weather-epd/internal/config"
	"github.com/sweeney/weather-epd/internal/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const defaultConfigPath = "/etc/weather-epd/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "weather-epd",
		Short: "Deep-sleep weather display for a 2.13\" e-paper panel",
		Long: `weather-epd wakes, checks the battery, joins WiFi, syncs the clock when
due, fetches forecast, air quality and moon data, redraws the panel and
powers off with the RTC armed for the next aligned wake.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf(
		"weather-epd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	root.PersistentFlags().String("config", defaultConfigPath, "Path to the YAML configuration")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newStateCmd())
	return root
}

// loadConfig reads the config named by --config and initializes logging
// from it and the logging flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if level == "" {
		level = cfg.LogLevel
	}
	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonLogs,
		Output:     cmd.ErrOrStderr(),
	})
	return cfg, nil
}
