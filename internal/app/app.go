// Package app wires configuration, storage, and AI services into a
// running application.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorekeep/lorekeep/internal/backfill"
	"github.com/lorekeep/lorekeep/internal/category"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/embed"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/llm"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/store"
)

// App holds every initialized component. Construct with Setup and
// release with Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Store      *store.Store
	LLM        *llm.Client
	Embed      *embed.Service
	Resolver   *category.Resolver
	Categories *category.Manager
	Ingest     *ingest.Pipeline
	Search     *search.Engine
	Backfill   *backfill.Sweeper
}

// Close releases held resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return nil
}
