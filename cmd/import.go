package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/extract"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/store"
)

// importMaxChars caps how much extracted text is ingested. Documents
// are knowledge sources, not archives; the head carries the substance.
const importMaxChars = 8000

var importCmd = &cobra.Command{
	Use:   "import [file.pdf | url]",
	Short: "Extract a document and save its content",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source := args[0]

	var doc extract.Document
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		doc, err = extract.WebPage(ctx, source)
	} else {
		doc, err = extract.PDF(source)
	}
	if err != nil {
		return err
	}

	content := doc.Text
	if doc.Title != "" {
		content = doc.Title + "\n" + content
	}
	if len(content) > importMaxChars {
		content = content[:importMaxChars]
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Ingest.Ingest(ctx, ownerID, content, ingest.KindDocument)
	if errors.Is(err, store.ErrOwnerNotFound) {
		if createErr := a.Store.CreateOwner(ctx, store.Owner{ID: ownerID}); createErr != nil {
			return fmt.Errorf("registering owner: %w", createErr)
		}
		result, err = a.Ingest.Ingest(ctx, ownerID, content, ingest.KindDocument)
	}
	if err != nil {
		return fmt.Errorf("saving: %w", err)
	}

	fmt.Printf("Imported %q into %s\n", doc.Title, color.CyanString(result.Category.Name))
	return nil
}
