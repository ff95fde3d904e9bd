package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/models"
)

var (
	prefDBPath     string
	prefTenantID   string
	prefUserID     string
	prefSeverities string
)

// prefCmd represents the pref command group
var prefCmd = &cobra.Command{
	Use:   "pref",
	Short: "Notification preference commands",
	Long: `Commands for managing notification preferences.

A preference subscribes one user, or all tenant admins when --user is
omitted, to anomaly alerts of the listed severities.

Examples:
  # Subscribe one user to everything
  salectl pref add --tenant <id> --user <uid> --severities warning,critical

  # Subscribe every tenant admin to critical alerts only
  salectl pref add --tenant <id> --severities critical

  # List a tenant's enabled preferences
  salectl pref list --tenant <id>`,
}

// prefAddCmd creates a preference
var prefAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a notification preference",
	RunE: func(cmd *cobra.Command, args []string) error {
		if prefTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}
		severities, err := parseSeverities(prefSeverities)
		if err != nil {
			return err
		}

		store, err := openMetadataDB(prefDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if _, err := store.Tenants().GetByID(ctx, prefTenantID); err != nil {
			return fmt.Errorf("tenant %s: %w", prefTenantID, err)
		}
		if prefUserID != "" {
			if _, err := store.Users().GetByID(ctx, prefTenantID, prefUserID); err != nil {
				return fmt.Errorf("user %s: %w", prefUserID, err)
			}
		}

		pref := models.NewNotificationPreference(prefTenantID, prefUserID, severities...)
		if err := store.Preferences().Create(ctx, pref); err != nil {
			return fmt.Errorf("create preference: %w", err)
		}

		scope := "tenant-wide (all admins)"
		if prefUserID != "" {
			scope = "user " + prefUserID
		}
		fmt.Printf("\nPreference created successfully:\n")
		fmt.Printf("  ID:         %s\n", pref.ID)
		fmt.Printf("  Scope:      %s\n", scope)
		fmt.Printf("  Severities: %s\n", formatSeverities(pref.Severities))

		return nil
	},
}

// prefListCmd lists a tenant's enabled preferences
var prefListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's enabled preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		if prefTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openMetadataDB(prefDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		prefs, err := store.Preferences().ListEnabled(context.Background(), prefTenantID)
		if err != nil {
			return fmt.Errorf("list preferences: %w", err)
		}

		if len(prefs) == 0 {
			fmt.Println("No enabled preferences found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-38s  %-20s  %s\n", "ID", "SCOPE", "SEVERITIES", "CREATED")
		fmt.Println(strings.Repeat("-", 110))
		for _, p := range prefs {
			scope := "tenant-wide"
			if !p.TenantWide() {
				scope = p.UserID
			}
			fmt.Printf("%-36s  %-38s  %-20s  %s\n",
				p.ID, scope, formatSeverities(p.Severities), p.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("\nTotal: %d preference(s)\n", len(prefs))

		return nil
	},
}

// parseSeverities converts a comma-separated list into severity levels,
// rejecting unknown names.
func parseSeverities(s string) ([]models.Severity, error) {
	var levels []models.Severity
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sev := models.Severity(part)
		if !sev.Valid() {
			return nil, fmt.Errorf("unknown severity %q (use warning or critical)", part)
		}
		levels = append(levels, sev)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("--severities is required (comma-separated: warning,critical)")
	}
	return levels, nil
}

func formatSeverities(set models.SeveritySet) string {
	var names []string
	for _, s := range set.Levels() {
		names = append(names, string(s))
	}
	return strings.Join(names, ",")
}

func init() {
	prefCmd.PersistentFlags().StringVar(&prefDBPath, "db", "", "metadata database path (default: "+defaultDBPath+")")
	prefCmd.PersistentFlags().StringVar(&prefTenantID, "tenant", "", "tenant ID (required)")
	prefAddCmd.Flags().StringVar(&prefUserID, "user", "", "user ID (omit for a tenant-wide preference)")
	prefAddCmd.Flags().StringVar(&prefSeverities, "severities", "", "comma-separated severities (warning,critical)")

	prefCmd.AddCommand(prefAddCmd)
	prefCmd.AddCommand(prefListCmd)
	rootCmd.AddCommand(prefCmd)
}
