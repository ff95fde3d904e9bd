package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/analytics"
)

var (
	forecastConfigFile string
	forecastTenantID   string
	forecastAll        bool
	forecastAsOf       string
)

// forecastCmd runs forecast generation on demand
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Generate sales forecasts on demand",
	Long: `Generate forecasts for one tenant or all tenants immediately,
outside the daily schedule.

Regeneration for the same day overwrites the previous forecasts, so running
this repeatedly is safe.

Examples:
  # One tenant
  salectl forecast --config /etc/salescope/config.yaml --tenant <id>

  # All tenants, backdated
  salectl forecast --config /etc/salescope/config.yaml --all --as-of 2026-08-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if forecastTenantID == "" && !forecastAll {
			return fmt.Errorf("either --tenant or --all is required")
		}

		asOf := time.Now()
		if forecastAsOf != "" {
			var err error
			asOf, err = time.Parse("2006-01-02", forecastAsOf)
			if err != nil {
				return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
			}
		}

		cfg, err := loadCLIConfig(forecastConfigFile)
		if err != nil {
			return err
		}

		meta, err := openMetadataDB(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer meta.Close()

		store, err := openMetricStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		generator := analytics.NewForecastGenerator(store.Metrics(), meta.Forecasts(),
			meta.Tenants(), analytics.ForecastOptions{
				HorizonDays: cfg.Analytics.HorizonDays,
				HistoryDays: cfg.Analytics.HistoryDays,
			}, log.Default())

		ctx := context.Background()

		if forecastAll {
			report, err := generator.GenerateAll(ctx, asOf)
			if err != nil {
				return fmt.Errorf("generate forecasts: %w", err)
			}
			fmt.Println(report.Summary())
			if !report.Ok() {
				return fmt.Errorf("forecast failed for tenants: %v", report.FailedTenantIDs())
			}
			return nil
		}

		result, err := generator.Generate(ctx, forecastTenantID, asOf)
		if err != nil {
			return fmt.Errorf("generate forecast: %w", err)
		}

		fmt.Printf("Wrote %d forecast row(s) for tenant %s\n", len(result.Forecasts), result.TenantID)
		for _, m := range result.SkippedMetrics {
			fmt.Printf("  skipped %s: no historical observations\n", m)
		}

		return nil
	},
}

func init() {
	forecastCmd.Flags().StringVarP(&forecastConfigFile, "config", "c", "", "server config file path")
	forecastCmd.Flags().StringVar(&forecastTenantID, "tenant", "", "tenant ID")
	forecastCmd.Flags().BoolVar(&forecastAll, "all", false, "run for all tenants")
	forecastCmd.Flags().StringVar(&forecastAsOf, "as-of", "", "forecast base date (YYYY-MM-DD, default: today)")

	rootCmd.AddCommand(forecastCmd)
}
