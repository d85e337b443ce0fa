package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"PriceRadar/internal/app"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies pending schema migrations to the configured SQL store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger := loadConfig()
		applied, err := app.Migrate(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("Schema is up to date.")
			return nil
		}
		for _, name := range applied {
			logger.Info("migration applied", "file", name)
		}
		fmt.Printf("Applied %d migration(s).\n", len(applied))
		return nil
	},
}
