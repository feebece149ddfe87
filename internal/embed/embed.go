// Package embed generates text embeddings for semantic retrieval.
package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// VectorDimension is the embedding dimensionality. Must match the
// vector(768) column width in the items schema.
const VectorDimension = 768

// MaxEmbedChars is the maximum text length submitted to the embedder.
// Longer text is truncated; the head of a note carries its meaning.
const MaxEmbedChars = 512

// Timeout bounds each embedding call.
const Timeout = 15 * time.Second

// Service wraps a Genkit embedder with the fixed dimensionality and
// truncation used across the system.
type Service struct {
	embedder ai.Embedder
}

// NewService creates a Service around the given embedder.
func NewService(embedder ai.Embedder) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &Service{embedder: embedder}, nil
}

// Embed generates a vector for the given text.
func (s *Service) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	if text == "" {
		return pgvector.Vector{}, fmt.Errorf("text is required")
	}
	if len(text) > MaxEmbedChars {
		text = text[:MaxEmbedChars]
	}

	embedCtx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	dim := int32(VectorDimension)
	resp, err := s.embedder.Embed(embedCtx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// EmbedBatch generates vectors for multiple texts concurrently.
// Returns nil (not error) for empty input.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([]pgvector.Vector, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to stay under provider rate limits.

	for i, text := range texts {
		g.Go(func() error {
			vec, err := s.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
