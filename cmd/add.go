package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/store"
)

var addCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Save a piece of knowledge",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	content := strings.Join(args, " ")
	result, err := a.Ingest.Ingest(ctx, ownerID, content, ingest.KindText)
	if errors.Is(err, store.ErrOwnerNotFound) {
		// First use: register the owner and retry.
		if createErr := a.Store.CreateOwner(ctx, store.Owner{ID: ownerID}); createErr != nil {
			return fmt.Errorf("registering owner: %w", createErr)
		}
		result, err = a.Ingest.Ingest(ctx, ownerID, content, ingest.KindText)
	}
	if err != nil {
		return fmt.Errorf("saving: %w", err)
	}

	fmt.Printf("Saved to %s\n", color.CyanString(result.Category.Name))
	if result.Understanding.Essence != "" {
		fmt.Printf("  %s\n", result.Understanding.Essence)
	}
	if len(result.Understanding.Tags.Keywords) > 0 {
		fmt.Printf("  keywords: %s\n", strings.Join(result.Understanding.Tags.Keywords, ", "))
	}
	if result.Degraded {
		color.Yellow("  (analysis unavailable, filed with defaults)")
	}
	if !result.Item.HasEmbedding {
		color.Yellow("  (embedding deferred, will backfill)")
	}
	return nil
}
