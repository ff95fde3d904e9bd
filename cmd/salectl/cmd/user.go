package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/models"
)

var (
	userDBPath   string
	userTenantID string
	userEmail    string
	userRole     string
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long: `Commands for managing tenant users.

Users are alert recipients. Users with the admin role additionally receive
tenant-wide alerts.

Examples:
  # Create an admin user
  salectl user create --tenant <id> --email ops@acme.example --role admin

  # List a tenant's users
  salectl user list --tenant <id>`,
}

// userCreateCmd creates a new user
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}
		if userEmail == "" {
			return fmt.Errorf("--email is required")
		}
		email := strings.TrimSpace(userEmail)
		if !strings.Contains(email, "@") {
			return fmt.Errorf("invalid email address: %s", email)
		}

		store, err := openMetadataDB(userDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if _, err := store.Tenants().GetByID(ctx, userTenantID); err != nil {
			return fmt.Errorf("tenant %s: %w", userTenantID, err)
		}

		user := models.NewUser(userTenantID, email, models.ParseRole(userRole))
		if err := store.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Printf("\nUser created successfully:\n")
		fmt.Printf("  ID:     %s\n", user.ID)
		fmt.Printf("  Tenant: %s\n", user.TenantID)
		fmt.Printf("  Email:  %s\n", user.Email)
		fmt.Printf("  Role:   %s\n", user.Role)

		return nil
	},
}

// userListCmd lists a tenant's users
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's users",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openMetadataDB(userDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.Users().ListByTenant(context.Background(), userTenantID)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		if len(users) == 0 {
			fmt.Println("No users found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-32s  %-10s  %s\n", "ID", "EMAIL", "ROLE", "CREATED")
		fmt.Println(strings.Repeat("-", 96))
		for _, u := range users {
			fmt.Printf("%-36s  %-32s  %-10s  %s\n",
				u.ID, truncate(u.Email, 32), u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("\nTotal: %d user(s)\n", len(users))

		return nil
	},
}

func init() {
	userCmd.PersistentFlags().StringVar(&userDBPath, "db", "", "metadata database path (default: "+defaultDBPath+")")
	userCmd.PersistentFlags().StringVar(&userTenantID, "tenant", "", "tenant ID (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "user email address (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", "viewer", "user role (admin, operator, viewer)")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}
