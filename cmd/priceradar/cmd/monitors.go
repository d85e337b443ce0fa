package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"PriceRadar/internal/canonical"
)

var monitorOwner string

func init() {
	monitorsCmd.PersistentFlags().StringVar(&monitorOwner, "owner", "", "owner id (defaults to alerts.defaultOwner)")
	monitorsCmd.AddCommand(monitorsAddCmd, monitorsListCmd, monitorsRemoveCmd)
	rootCmd.AddCommand(monitorsCmd)
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "The 'monitors' subcommand manages price drop monitors.",
}

var monitorsAddCmd = &cobra.Command{
	Use:   "add <target price> <query>",
	Short: "Watches a query and alerts once its best price is at or below the target.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, ok := canonical.ParsePrice(args[0])
		if !ok || target <= 0 {
			return fmt.Errorf("invalid target price %q", args[0])
		}

		application, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		m, err := application.Watch(cmd.Context(), monitorOwner, strings.Join(args[1:], " "), target)
		if err != nil {
			return err
		}
		fmt.Printf("Watching %q for ₹%s or less (monitor %s).\n", m.Query, canonical.FormatMinor(m.TargetPriceMinor), m.ID)
		return nil
	},
}

var monitorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists monitors with their status and last observed price.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		monitors, err := application.Monitors(cmd.Context(), monitorOwner)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Owner", "Query", "Target", "Last price", "Last checked", "Status"})
		for _, m := range monitors {
			last, checked := "-", "-"
			if m.LastPriceMinor > 0 {
				last = "₹" + canonical.FormatMinor(m.LastPriceMinor)
			}
			if !m.LastCheckedAt.IsZero() {
				checked = m.LastCheckedAt.Local().Format(time.DateTime)
			}
			t.AppendRow(table.Row{m.ID, m.OwnerID, m.Query, "₹" + canonical.FormatMinor(m.TargetPriceMinor), last, checked, m.Status})
		}
		t.Render()
		return nil
	},
}

var monitorsRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Removes the monitors given as positional arguments.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		for _, id := range args {
			if err := application.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Removed %s.\n", id)
		}
		return nil
	},
}
