package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/models"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

var (
	ingestConfigFile string
	ingestTenantID   string
	ingestBatchSize  int
)

// ingestCmd loads metric observations from CSV files into the metric store
var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Load metric observations from CSV files",
	Long: `Load sales metric observations from CSV files into the metric store.

Expected columns: metric,timestamp,value
  metric     one of: revenue, transaction_count, avg_ticket
  timestamp  RFC 3339, e.g. 2026-08-01T14:05:00Z
  value      decimal number

A header row is detected and skipped. Rows are written in batches.

Example:
  salectl ingest --config /etc/salescope/config.yaml --tenant <id> july.csv august.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		cfg, err := loadCLIConfig(ingestConfigFile)
		if err != nil {
			return err
		}

		meta, err := openMetadataDB(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer meta.Close()

		ctx := context.Background()
		if _, err := meta.Tenants().GetByID(ctx, ingestTenantID); err != nil {
			return fmt.Errorf("tenant %s: %w", ingestTenantID, err)
		}

		store, err := openMetricStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var total, skipped int
		for _, path := range args {
			n, bad, err := ingestFile(ctx, store.Metrics(), path)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			PrintVerbose("%s: %d observation(s), %d bad row(s)", path, n, bad)
			total += n
			skipped += bad
		}

		fmt.Printf("Ingested %d observation(s)", total)
		if skipped > 0 {
			fmt.Printf(", skipped %d bad row(s)", skipped)
		}
		fmt.Println()

		return nil
	},
}

// ingestFile reads one CSV file and writes its rows in batches. Malformed
// rows are counted and skipped rather than aborting the file.
func ingestFile(ctx context.Context, repo storage.MetricRepository, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	var batch []*models.MetricObservation
	var total, bad int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := repo.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			bad++
			continue
		}
		obs, err := parseObservation(record)
		if err != nil {
			// Tolerate a header row, count everything else.
			if line == 1 {
				continue
			}
			bad++
			PrintVerbose("%s:%d: %v", path, line, err)
			continue
		}
		obs.TenantID = ingestTenantID
		batch = append(batch, obs)

		if len(batch) >= ingestBatchSize {
			if err := flush(); err != nil {
				return total, bad, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, bad, err
	}
	return total, bad, nil
}

func parseObservation(record []string) (*models.MetricObservation, error) {
	metric := record[0]
	if !models.IsTrackedMetric(metric) {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	ts, err := time.Parse(time.RFC3339, record[1])
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q: %w", record[1], err)
	}
	value, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return nil, fmt.Errorf("bad value %q: %w", record[2], err)
	}
	return &models.MetricObservation{
		Metric:    metric,
		Timestamp: ts,
		Value:     value,
	}, nil
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestConfigFile, "config", "c", "", "server config file path")
	ingestCmd.Flags().StringVar(&ingestTenantID, "tenant", "", "tenant ID (required)")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 1000, "rows per insert batch")

	rootCmd.AddCommand(ingestCmd)
}
