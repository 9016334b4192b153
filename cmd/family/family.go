package family

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/eyedrop-checker/internal/app"
	"github.com/tphakala/eyedrop-checker/internal/conf"
)

// Command manages the family members escalations are sent to.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Manage family members who receive escalations",
	}

	var name string
	add := &cobra.Command{
		Use:   "add <address>",
		Short: "Register a family member address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "")
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.Family.AddMember(cmd.Context(), settings.Main.User, args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", m.Address, m.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered family members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "")
			if err != nil {
				return err
			}
			defer a.Close()

			members, err := a.Family.ListMembers(cmd.Context(), settings.Main.User)
			if err != nil {
				return err
			}
			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no family members registered")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tADDRESS\tNAME\tADDED")
			for _, m := range members {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Address, m.Name, m.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a family member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Family.RemoveMember(cmd.Context(), settings.Main.User, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}
