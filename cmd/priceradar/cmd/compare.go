package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"PriceRadar/internal/canonical"
)

func init() {
	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare <query a> <query b>",
	Short: "Finds the best listing for two queries and compares their specifications.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		left, right, res, err := application.Compare(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"", truncate(left.DisplayTitle(), 40), truncate(right.DisplayTitle(), 40)})
		t.AppendRow(table.Row{"price", "₹" + canonical.FormatMinor(left.PriceMinor), "₹" + canonical.FormatMinor(right.PriceMinor)})
		t.AppendRow(table.Row{"source", left.SourceID, right.SourceID})
		for _, d := range res.Differences {
			t.AppendRow(table.Row{d.Name, orDash(d.Left), orDash(d.Right)})
		}
		t.Render()
		fmt.Println(res.Summary)
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
