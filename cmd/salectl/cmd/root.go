// Package cmd contains the CLI commands for salescope administration.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/storage"
)

var (
	// Used for flags
	verbose bool
	output  string
)

// defaultDBPath is the default database path, can be overridden via SALESCOPE_DB_PATH env var
var defaultDBPath = "/data/salescope.db"

func init() {
	if envPath := os.Getenv("SALESCOPE_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "salectl",
	Short: "Salescope - sales analytics administration",
	Long: `salectl administers a Salescope deployment: tenants, users,
notification preferences, metric ingestion, and on-demand runs of the
forecast and anomaly-detection jobs.

Tenant, user, and preference commands operate directly on the metadata
database file. Ingest, forecast, and detect commands additionally need the
metric store and take a server config file via --config.

Examples:
  # Register a tenant and an admin user
  salectl tenant create --name acme-stores
  salectl user create --tenant <id> --email ops@acme.example --role admin

  # Subscribe every tenant admin to critical alerts
  salectl pref add --tenant <id> --severities critical

  # Load historical metrics from CSV
  salectl ingest --config /etc/salescope/config.yaml metrics.csv

  # Run a forecast for one tenant right now
  salectl forecast --config /etc/salescope/config.yaml --tenant <id>`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// openMetadataDB opens the metadata database at the given path, falling back
// to the default location.
func openMetadataDB(path string) (*storage.SQLiteStorage, error) {
	if path == "" {
		path = defaultDBPath
	}
	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 2 {
		return s[:max]
	}
	return s[:max-2] + ".."
}
