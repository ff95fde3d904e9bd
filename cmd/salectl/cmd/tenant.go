package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/models"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

var (
	tenantDBPath   string
	tenantName     string
	tenantID       string
	tenantTimezone string
)

// tenantCmd represents the tenant command group
var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Tenant management commands",
	Long: `Commands for managing Salescope tenants.

A tenant is an isolated customer organization. Metrics, forecasts,
anomalies, users, and preferences are all scoped to exactly one tenant.
These commands operate directly on the metadata database file.

Examples:
  # List all tenants
  salectl tenant list

  # Register a tenant
  salectl tenant create --name acme-stores --timezone Europe/Berlin

  # Show tenant details
  salectl tenant show --id 550e8400-e29b-41d4-a716-446655440000`,
}

// tenantListCmd lists all tenants
var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMetadataDB(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		tenants, err := store.Tenants().List(ctx)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}

		if len(tenants) == 0 {
			fmt.Println("No tenants found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-24s  %-20s  %s\n", "ID", "NAME", "TIMEZONE", "CREATED")
		fmt.Println(strings.Repeat("-", 100))
		for _, t := range tenants {
			tz := t.Timezone
			if tz == "" {
				tz = "-"
			}
			fmt.Printf("%-36s  %-24s  %-20s  %s\n",
				t.ID, truncate(t.Name, 24), tz, t.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("\nTotal: %d tenant(s)\n", len(tenants))

		return nil
	},
}

// tenantCreateCmd registers a new tenant
var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new tenant",
	Long: `Register a new tenant in the metadata database.

Example:
  salectl tenant create --name acme-stores --timezone Europe/Berlin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tenantName == "" {
			return fmt.Errorf("--name is required")
		}

		store, err := openMetadataDB(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		tenant := models.NewTenant(strings.TrimSpace(tenantName))
		tenant.Timezone = tenantTimezone

		if err := store.Tenants().Create(context.Background(), tenant); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}

		fmt.Printf("\nTenant created successfully:\n")
		fmt.Printf("  ID:       %s\n", tenant.ID)
		fmt.Printf("  Name:     %s\n", tenant.Name)
		if tenant.Timezone != "" {
			fmt.Printf("  Timezone: %s\n", tenant.Timezone)
		}

		return nil
	},
}

// tenantShowCmd shows tenant details
var tenantShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show tenant details",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tenantID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openMetadataDB(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		tenant, err := store.Tenants().GetByID(ctx, tenantID)
		if err != nil {
			if err == storage.ErrNotFound {
				return fmt.Errorf("tenant not found: %s", tenantID)
			}
			return fmt.Errorf("get tenant: %w", err)
		}

		users, err := store.Users().ListByTenant(ctx, tenant.ID)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		fmt.Println("\nTenant Details:")
		fmt.Printf("  ID:       %s\n", tenant.ID)
		fmt.Printf("  Name:     %s\n", tenant.Name)
		if tenant.Timezone != "" {
			fmt.Printf("  Timezone: %s\n", tenant.Timezone)
		}
		fmt.Printf("  Users:    %d\n", len(users))
		fmt.Printf("  Created:  %s\n", tenant.CreatedAt.Format("2006-01-02 15:04:05"))

		return nil
	},
}

func init() {
	tenantCmd.PersistentFlags().StringVar(&tenantDBPath, "db", "", "metadata database path (default: "+defaultDBPath+")")
	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "tenant name (required)")
	tenantCreateCmd.Flags().StringVar(&tenantTimezone, "timezone", "", "tenant timezone, e.g. Europe/Berlin")
	tenantShowCmd.Flags().StringVar(&tenantID, "id", "", "tenant ID (required)")

	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantShowCmd)
	rootCmd.AddCommand(tenantCmd)
}
