package notify

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tphakala/eyedrop-checker/internal/app"
	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/notification"
)

// Command returns a cobra command that sends a test reminder through the dispatcher.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		mobile     bool
		standalone bool
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test reminder",
		Long: `Send a test reminder through the configured channels.

Examples:
  # Foreground notice on the console
  eyedrop-checker notify

  # Prefer the push channel as an installed mobile app would
  eyedrop-checker notify --mobile --standalone`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Notification.Console.Enabled = true
			if cmd.Flags().Changed("mobile") {
				settings.Notification.Presence.Mobile = mobile
			}
			if cmd.Flags().Changed("standalone") {
				settings.Notification.Presence.Standalone = standalone
			}

			a, err := app.New(settings, "")
			if err != nil {
				return err
			}
			defer a.Close()

			attempt := a.Scheduler.SendTest(cmd.Context(), time.Now())
			printAttempt(cmd, attempt)
			if attempt.Err != nil && attempt.Status != notification.StatusUnconfirmed {
				return attempt.Err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mobile, "mobile", false, "Dispatch as a mobile client")
	cmd.Flags().BoolVar(&standalone, "standalone", false, "Dispatch as an installed app")

	return cmd
}

func printAttempt(cmd *cobra.Command, attempt notification.DeliveryAttempt) {
	status := string(attempt.Status)
	switch attempt.Status {
	case notification.StatusDelivered:
		status = color.GreenString(status)
	case notification.StatusUnconfirmed:
		status = color.YellowString(status)
	default:
		status = color.RedString(status)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "channel:  %s\n", attempt.Channel)
	fmt.Fprintf(out, "status:   %s\n", status)
	if attempt.FellBack {
		fmt.Fprintln(out, "fallback: background channel failed")
	}
	if attempt.Err != nil {
		fmt.Fprintf(out, "error:    %v\n", attempt.Err)
	}
}
