package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/search"
)

var (
	findLimit       int
	findNoNarrative bool
)

var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Search your saved knowledge",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFind,
}

func init() {
	findCmd.Flags().IntVar(&findLimit, "limit", 0, "maximum number of results")
	findCmd.Flags().BoolVar(&findNoNarrative, "no-narrative", false, "skip the synthesized answer")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	query := strings.Join(args, " ")
	resp, err := a.Search.Search(ctx, ownerID, query, search.Options{
		Limit:         findLimit,
		SkipNarrative: findNoNarrative,
	})
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if resp.Narrative != "" {
		fmt.Println(resp.Narrative)
		fmt.Println()
	}

	for i, hit := range resp.Hits {
		fmt.Printf("%d. %s %s (score %.1f)\n",
			i+1,
			color.CyanString("[%s]", hit.CategoryName),
			hit.Item.CreatedAt.Format("2006-01-02"),
			hit.Score,
		)
		fmt.Printf("   %s\n", hit.Preview)
	}

	if len(resp.Hits) == 0 && resp.Narrative == "" {
		fmt.Println("No results.")
	}
	if resp.Degraded {
		color.Yellow("(partial results: a retrieval strategy was unavailable)")
	}
	return nil
}
