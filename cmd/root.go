// Package cmd implements the lorekeep CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/app"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/log"
)

// ownerID identifies whose knowledge a command operates on.
var ownerID string

var rootCmd = &cobra.Command{
	Use:   "lorekeep",
	Short: "Lorekeep - personal knowledge capture and retrieval",
	Long: `Lorekeep captures short notes, organizes them into a taxonomy that
grows with your knowledge, and answers questions over everything you
have saved.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", defaultOwner(), "owner ID to operate as")
}

// defaultOwner resolves the owner identity from the environment.
func defaultOwner() string {
	if v := os.Getenv("LOREKEEP_OWNER"); v != "" {
		return v
	}
	return "default"
}

// setupApp loads configuration and wires the application. The caller
// must Close the returned App.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelWarn})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
