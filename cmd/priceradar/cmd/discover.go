package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"PriceRadar/internal/canonical"
	"PriceRadar/internal/usecase"
)

var (
	discoverLimit   int
	discoverSources bool
)

func init() {
	discoverCmd.Flags().IntVarP(&discoverLimit, "limit", "n", 10, "maximum number of products to print")
	discoverCmd.Flags().BoolVar(&discoverSources, "sources", false, "print per-retailer diagnostics")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <query>",
	Short: "Searches every configured retailer and prints products ranked by best price.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		res, err := application.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if res.NoResults {
			fmt.Printf("No listings found for %q.\n", res.Query)
			printReports(res.Reports)
			return nil
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Product", "Price", "Sources", "Trust", "URL"})
		for i, c := range res.Clusters {
			if discoverLimit > 0 && i >= discoverLimit {
				break
			}
			t.AppendRow(table.Row{
				i + 1,
				truncate(c.Best.DisplayTitle(), 60),
				"₹" + canonical.FormatMinor(c.Best.PriceMinor),
				strings.Join(c.Sources(), ", "),
				c.TrustScore,
				c.Best.URL,
			})
		}
		if res.Cached {
			t.SetCaption("cached result")
		}
		t.Render()

		if discoverSources {
			printReports(res.Reports)
		}
		return nil
	},
}

func printReports(reports []usecase.SourceReport) {
	if len(reports) == 0 {
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"Source", "Listings", "Elapsed", "Tier", "Error"})
	for _, r := range reports {
		tier := "primary"
		if r.Fallback {
			tier = "fallback"
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.AppendRow(table.Row{r.SourceID, r.Count, r.Elapsed.Round(time.Millisecond), tier, errText})
	}
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
