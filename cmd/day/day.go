package day

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tphakala/eyedrop-checker/internal/app"
	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/model"
)

// Command groups the day record subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show and edit daily eyedrop records",
	}
	cmd.PersistentFlags().StringVar(&date, "date", "today", "Day to act on (YYYY-MM-DD or today)")

	// withDay opens the app and resolves --date before running fn.
	withDay := func(fn func(a *app.App, key string) error) error {
		a, err := app.New(settings, "")
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := ResolveDate(date, time.Now(), a.Location)
		if err != nil {
			return err
		}
		return fn(a, key)
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the record of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDay(func(a *app.App, key string) error {
				rec, err := a.Records.Day(cmd.Context(), key)
				if err != nil {
					return err
				}
				PrintDay(cmd.OutOrStdout(), a, key, rec)
				return nil
			})
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <morning|noon|night>",
		Short: "Flip the done state of a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := model.ParseSlot(args[0])
			if err != nil {
				return err
			}
			return withDay(func(a *app.App, key string) error {
				rec, err := a.Records.ToggleSlot(cmd.Context(), key, slot)
				if err != nil {
					return err
				}
				PrintDay(cmd.OutOrStdout(), a, key, rec)
				return nil
			})
		},
	}

	note := &cobra.Command{
		Use:   "note <text>",
		Short: "Replace the note of a day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDay(func(a *app.App, key string) error {
				rec, err := a.Records.SetNote(cmd.Context(), key, strings.Join(args, " "))
				if err != nil {
					return err
				}
				PrintDay(cmd.OutOrStdout(), a, key, rec)
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear every slot and the note of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDay(func(a *app.App, key string) error {
				if err := a.Records.ResetDay(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reset\n", key)
				return nil
			})
		},
	}

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "List recent days, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "")
			if err != nil {
				return err
			}
			defer a.Close()

			days, err := a.Records.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(days) == 0 {
				fmt.Fprintln(out, "no records")
				return nil
			}
			for _, d := range days {
				fmt.Fprintf(out, "%s  %3d%%  %s\n", d.Date, d.Progress, slotMarks(d.Record))
			}
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 7, "Number of days to list")

	cmd.AddCommand(show, toggle, note, reset, history)
	return cmd
}

// ResolveDate turns a --date value into a date key. "today" and "" mean the
// current day in loc.
func ResolveDate(value string, now time.Time, loc *time.Location) (string, error) {
	if value == "" || value == "today" {
		return model.DateKey(now, loc), nil
	}
	if _, err := time.Parse(model.DateKeyLayout, value); err != nil {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return value, nil
}

// PrintDay writes one day with a line per slot.
func PrintDay(w io.Writer, a *app.App, key string, rec model.DailyRecord) {
	fmt.Fprintf(w, "%s  %d%%\n", color.New(color.Bold).Sprint(key), rec.Progress())
	for _, slot := range model.Slots {
		mark := color.YellowString("[ ]")
		if rec.Done(slot) {
			mark = color.GreenString("[x]")
		}
		fmt.Fprintf(w, "  %s %s\n", mark, a.Printer.SlotLabel(string(slot)))
	}
	if rec.Note != "" {
		fmt.Fprintf(w, "  note: %s\n", rec.Note)
	}
}

func slotMarks(rec model.DailyRecord) string {
	var b strings.Builder
	for _, slot := range model.Slots {
		if rec.Done(slot) {
			b.WriteString(color.GreenString("●"))
		} else {
			b.WriteString("○")
		}
	}
	return b.String()
}
