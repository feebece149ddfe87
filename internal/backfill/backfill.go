// Package backfill fills in embeddings for items persisted while the
// embedding service was unavailable.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/store"
)

// DefaultInterval is how often the sweep runs when unconfigured.
const DefaultInterval = 5 * time.Minute

// DefaultBatchSize bounds one sweep when unconfigured.
const DefaultBatchSize = 50

// embedder is the slice of the embedding service the sweeper needs.
type embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// sweepStore is the slice of the store the sweeper needs.
type sweepStore interface {
	ItemsMissingEmbedding(ctx context.Context, limit int) ([]store.Item, error)
	UpdateItemEmbedding(ctx context.Context, id uuid.UUID, vec pgvector.Vector) error
}

// Sweeper periodically embeds items whose vector is still NULL.
type Sweeper struct {
	store     sweepStore
	embedder  embedder
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// New creates a Sweeper. Zero interval and batchSize take defaults.
func New(s sweepStore, emb embedder, interval time.Duration, batchSize int, logger *slog.Logger) (*Sweeper, error) {
	if s == nil || emb == nil {
		return nil, fmt.Errorf("store and embedder are required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, embedder: emb, interval: interval, batchSize: batchSize, logger: logger}, nil
}

// Run blocks until ctx is canceled, sweeping on each tick. Callers
// must track the goroutine with a WaitGroup.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("backfill sweep failed", "error", err)
			}
		}
	}
}

// RunOnce embeds one batch of items missing vectors and returns how
// many were filled. A failed embedding aborts the sweep early; if the
// service is down, retrying the rest of the batch only burns quota.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	items, err := s.store.ItemsMissingEmbedding(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing items missing embedding: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	filled := 0
	for _, item := range items {
		vec, err := s.embedder.Embed(ctx, ingest.EmbedText(item.RawContent, item.Essence))
		if err != nil {
			s.logger.Warn("backfill embedding failed, stopping sweep",
				"item_id", item.ID, "filled", filled, "error", err)
			return filled, nil
		}
		if err := s.store.UpdateItemEmbedding(ctx, item.ID, vec); err != nil {
			s.logger.Warn("backfill update failed", "item_id", item.ID, "error", err)
			continue
		}
		filled++
	}

	if filled > 0 {
		s.logger.Info("backfill sweep completed", "filled", filled)
	}
	return filled, nil
}
