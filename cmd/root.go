package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/eyedrop-checker/cmd/config"
	"github.com/tphakala/eyedrop-checker/cmd/day"
	"github.com/tphakala/eyedrop-checker/cmd/family"
	"github.com/tphakala/eyedrop-checker/cmd/notify"
	"github.com/tphakala/eyedrop-checker/cmd/run"
	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled from the
// config file before any subcommand runs.
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "eyedrop-checker",
		Short:         "Eyedrop reminder and motion check daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	configCmd := config.Command()
	rootCmd.AddCommand(
		run.Command(settings, version),
		notify.Command(settings),
		day.Command(settings),
		family.Command(settings),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config init must work before a config file exists
		if cmd.Parent() == configCmd {
			return nil
		}
		return initialize(settings, configPath, debug)
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging.
func initialize(settings *conf.Settings, configPath string, debug bool) error {
	loaded, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	*settings = *loaded

	if debug {
		settings.Debug = true
		settings.Main.Log.DefaultLevel = "debug"
	}

	central, err := logger.NewCentralLogger(&settings.Main.Log)
	if err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}
