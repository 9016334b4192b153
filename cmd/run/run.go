package run

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/eyedrop-checker/internal/app"
	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/telemetry"
)

// Command creates the command that runs the daemon.
func Command(settings *conf.Settings, version string) *cobra.Command {
	var (
		testMode bool
		monitor  bool
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run reminders, motion monitoring and the HTTP API",
		Long:  "Run the reminder scheduler, the optional camera monitor and the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("monitor") {
				settings.Monitor.Enabled = monitor
			}
			if cmd.Flags().Changed("test-mode") {
				settings.Monitor.TestMode = testMode
			}
			if cmd.Flags().Changed("listen") {
				settings.WebServer.Enabled = true
				settings.WebServer.Listen = listen
			}

			if _, err := telemetry.Init(&settings.Telemetry, version); err != nil {
				logger.Global().Module("main").Warn("telemetry disabled", logger.Error(err))
			}
			defer telemetry.Shutdown()

			a, err := app.New(settings, version)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&monitor, "monitor", false, "Start a motion monitoring session with the daemon")
	cmd.Flags().BoolVar(&testMode, "test-mode", false, "Use the short test deadline for the monitoring session")
	cmd.Flags().StringVar(&listen, "listen", "", "Serve the HTTP API on this address")

	return cmd
}
