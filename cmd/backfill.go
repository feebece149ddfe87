package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed items that are missing vectors",
	RunE:  runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	filled, err := a.Backfill.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("backfilling: %w", err)
	}
	fmt.Printf("Backfilled %d embeddings\n", filled)
	return nil
}
