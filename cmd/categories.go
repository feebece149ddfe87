package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage your knowledge categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with item counts",
	RunE:  runCategoriesList,
}

var categoriesRenameCmd = &cobra.Command{
	Use:   "rename [id] [new-name]",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE:  runCategoriesRename,
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a category, moving its items to Uncategorized",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesDelete,
}

func init() {
	categoriesCmd.AddCommand(categoriesListCmd, categoriesRenameCmd, categoriesDeleteCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runCategoriesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	cats, err := a.Categories.List(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	if len(cats) == 0 {
		fmt.Println("No categories yet.")
		return nil
	}

	for _, c := range cats {
		fmt.Printf("%s  %s (%d items)\n", c.ID, color.CyanString(c.Name), c.ItemCount)
		if c.Description != "" {
			fmt.Printf("    %s\n", c.Description)
		}
	}
	return nil
}

func runCategoriesRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid category ID: %w", err)
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Categories.Rename(ctx, ownerID, id, args[1]); err != nil {
		return fmt.Errorf("renaming category: %w", err)
	}
	fmt.Printf("Renamed to %s\n", color.CyanString(args[1]))
	return nil
}

func runCategoriesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid category ID: %w", err)
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Categories.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	fmt.Println("Deleted. Items moved to Uncategorized.")
	return nil
}
