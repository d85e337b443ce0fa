package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"PriceRadar/internal/app"
	"PriceRadar/internal/config"
	"PriceRadar/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "priceradar",
	Short:         "priceradar finds the cheapest listing for a product across retailers and watches prices for drops.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (overrides $PRICERADAR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger) {
	if configPath != "" {
		_ = os.Setenv("PRICERADAR_CONFIG", configPath)
	}
	cfg := config.Load()
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, logging.New(cfg.Logging.Level)
}

// openApp builds the application and returns a closer for deferred cleanup.
func openApp(ctx context.Context) (*app.Application, func(), error) {
	cfg, logger := loadConfig()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, func() {
		if err := application.Close(context.Background()); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
