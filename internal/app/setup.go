package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorekeep/lorekeep/db"
	"github.com/lorekeep/lorekeep/internal/backfill"
	"github.com/lorekeep/lorekeep/internal/category"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/embed"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/llm"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/store"
)

// Setup creates and initializes the application. On any error the
// partially built App is cleaned up before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	a.Genkit = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	a.Embedder = googlegenai.GoogleAIEmbedder(a.Genkit, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Store, err = store.New(pool, logger)
	if err != nil {
		return nil, err
	}

	a.LLM, err = llm.New(a.Genkit, cfg.FullModelName(), logger)
	if err != nil {
		return nil, err
	}

	a.Embed, err = embed.NewService(a.Embedder)
	if err != nil {
		return nil, err
	}

	a.Resolver, err = category.NewResolver(a.Store, a.LLM, logger)
	if err != nil {
		return nil, err
	}

	a.Categories, err = category.NewManager(a.Store, logger)
	if err != nil {
		return nil, err
	}

	a.Ingest, err = ingest.New(a.Store, a.LLM, a.Embed, a.Resolver, logger)
	if err != nil {
		return nil, err
	}

	a.Search, err = search.New(a.Store, a.LLM, a.Embed, cfg.Search, logger)
	if err != nil {
		return nil, err
	}

	a.Backfill, err = backfill.New(a.Store, a.Embed,
		time.Duration(cfg.BackfillIntervalSeconds)*time.Second,
		cfg.BackfillBatchSize, logger)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// provideDBPool creates and verifies the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
