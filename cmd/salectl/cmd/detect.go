package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/analytics"
)

var (
	detectConfigFile string
	detectTenantID   string
	detectAll        bool
)

// detectCmd runs anomaly detection on demand
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run anomaly detection on demand",
	Long: `Evaluate the latest observation of every tracked metric against its
baseline for one tenant or all tenants, outside the periodic schedule.

Anomalies are recorded in the metadata database. No alerts are sent;
critical anomalies that would alert are listed instead. A later server
detection cycle will not record the same observation twice.

Examples:
  salectl detect --config /etc/salescope/config.yaml --tenant <id>
  salectl detect --config /etc/salescope/config.yaml --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectTenantID == "" && !detectAll {
			return fmt.Errorf("either --tenant or --all is required")
		}

		cfg, err := loadCLIConfig(detectConfigFile)
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

		baselines := analytics.NewBaselineCalculator(store.Metrics(),
			cfg.Analytics.BaselineWindow, cfg.Analytics.MinSamples)

		queue := &recordingQueue{}
		detector := analytics.NewDetector(store.Metrics(), meta.Anomalies(),
			meta.Tenants(), baselines, queue, analytics.DetectorOptions{
				Thresholds: analytics.Thresholds{
					WarningZ:  cfg.Analytics.WarningZ,
					CriticalZ: cfg.Analytics.CriticalZ,
				},
				Verbose: IsVerbose(),
			}, log.Default())

		ctx := context.Background()

		if detectAll {
			report, err := detector.DetectAll(ctx)
			if err != nil {
				return fmt.Errorf("detect: %w", err)
			}
			fmt.Println(report.Summary())
			queue.report()
			if !report.Ok() {
				return fmt.Errorf("detection failed for tenants: %v", report.FailedTenantIDs())
			}
			return nil
		}

		anomalies, err := detector.Detect(ctx, detectTenantID)
		if err != nil {
			return fmt.Errorf("detect: %w", err)
		}

		if len(anomalies) == 0 {
			fmt.Println("No new anomalies.")
			queue.report()
			return nil
		}

		fmt.Printf("\n%-36s  %-18s  %-9s  %8s  %s\n", "ID", "METRIC", "SEVERITY", "Z-SCORE", "OBSERVED AT")
		fmt.Println(strings.Repeat("-", 100))
		for _, a := range anomalies {
			fmt.Printf("%-36s  %-18s  %-9s  %8.2f  %s\n",
				a.ID, a.Metric, a.Severity, a.ZScore, a.ObservedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("\nTotal: %d new anomaly(ies)\n", len(anomalies))
		queue.report()

		return nil
	},
}

// recordingQueue accepts critical-anomaly IDs and reports them instead of
// dispatching alerts. Enqueue may be called from concurrent tenant runs.
type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(anomalyID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, anomalyID)
	return true
}

func (q *recordingQueue) report() {
	if len(q.ids) == 0 {
		return
	}
	fmt.Printf("%d critical anomaly(ies) would trigger alerts when detected by the server:\n", len(q.ids))
	for _, id := range q.ids {
		fmt.Printf("  %s\n", id)
	}
}

func init() {
	detectCmd.Flags().StringVarP(&detectConfigFile, "config", "c", "", "server config file path")
	detectCmd.Flags().StringVar(&detectTenantID, "tenant", "", "tenant ID")
	detectCmd.Flags().BoolVar(&detectAll, "all", false, "run for all tenants")

	rootCmd.AddCommand(detectCmd)
}
