package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/store"
)

var (
	profileName       string
	profileOccupation string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Set your profile so categorization can use it",
	Long: `Stores your name and occupation. Both are fed to the AI when it
analyzes your notes, which improves categorization for domain-specific
content.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileName, "name", "", "your name")
	profileCmd.Flags().StringVar(&profileOccupation, "occupation", "", "your occupation")
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Store.CreateOwner(ctx, store.Owner{
		ID:         ownerID,
		Name:       profileName,
		Occupation: profileOccupation,
	}); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Printf("Profile saved for owner %s\n", ownerID)
	return nil
}
