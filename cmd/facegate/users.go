package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		users, err := store.ListUsers()
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No users enrolled.")
			return nil
		}

		fmt.Println("Enrolled users:")
		for _, user := range users {
			fmt.Printf("  - %s\n", user)
		}
		fmt.Printf("\nTotal: %d user(s)\n", len(users))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <user>",
	Short: "Remove a user's enrolled profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		if err := store.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove '%s': %w", args[0], err)
		}
		fmt.Printf("Profile for '%s' has been removed.\n", args[0])
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <user>",
	Short: "Show a user's profile record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		profile, err := store.GetProfile(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("User:          %s\n", profile.UserID)
		fmt.Printf("Display name:  %s\n", profile.DisplayName)
		fmt.Printf("Enrolled:      %s\n", profile.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:       %s\n", profile.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Samples:       %d\n", profile.SamplesCount)
		fmt.Printf("Schema:        v%d\n", profile.SchemaVersion)
		fmt.Printf("Blob size:     %d bytes\n", len(profile.Blob))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <user>",
	Short: "Verify the integrity of a user's stored embedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		ok, err := store.VerifyIntegrity(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("stored embedding for '%s' is corrupted", args[0])
		}
		fmt.Printf("Stored embedding for '%s' is intact.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, removeCmd, infoCmd, checkCmd)
}
