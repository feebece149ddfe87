// Package search answers questions over an owner's knowledge with
// hybrid retrieval: keyword and vector strategies run concurrently,
// their union is scored deterministically, and the top hits feed an
// optional synthesized narrative.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/store"
)

// DefaultLimit is the result cap when the caller doesn't set one.
const DefaultLimit = 15

// perStrategyLimit bounds each retrieval strategy before merging.
const perStrategyLimit = 50

// maxRetrievalKeywords caps how many plan keywords the keyword
// strategy matches on.
const maxRetrievalKeywords = 5

// EmptyResultMessage is returned as the narrative when nothing matched.
const EmptyResultMessage = "I couldn't find anything in your saved knowledge matching that."

// Hit is one scored search result.
type Hit struct {
	Item         store.Item
	CategoryName string
	Score        float64
	Similarity   float64
	Preview      string
}

// Response is the outcome of a search.
type Response struct {
	Hits      []Hit
	Narrative string

	// Degraded is true when at least one retrieval strategy or the
	// query analysis failed and the response was built from what
	// remained.
	Degraded bool
}

// Options tune a single search call.
type Options struct {
	// Limit caps the number of hits. Zero means DefaultLimit.
	Limit int

	// CategoryIDs restricts retrieval to the given categories.
	// Distinct from model-inferred category hints, which only boost
	// scores and never exclude items.
	CategoryIDs []uuid.UUID

	// SkipNarrative suppresses answer synthesis.
	SkipNarrative bool
}

// analyzer is the slice of the LLM client the engine needs.
type analyzer interface {
	Analyze(ctx context.Context, prompt string, out any) error
	Complete(ctx context.Context, prompt string) (string, error)
}

// embedder is the slice of the embedding service the engine needs.
type embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// searchStore is the slice of the store the engine needs.
type searchStore interface {
	SearchKeyword(ctx context.Context, ownerID string, keywords []string,
		since *time.Time, categoryIDs []uuid.UUID, limit int) ([]store.Item, error)
	SearchVector(ctx context.Context, ownerID string, vec pgvector.Vector,
		since *time.Time, categoryIDs []uuid.UUID, limit int) ([]store.VectorHit, error)
	ListCategories(ctx context.Context, ownerID string) ([]store.CategoryCount, error)
}

// Engine runs hybrid retrieval over an owner's items.
type Engine struct {
	store    searchStore
	llm      analyzer
	embedder embedder
	weights  config.SearchConfig
	logger   *slog.Logger
}

// New creates an Engine with the given scoring weights.
func New(s searchStore, llm analyzer, emb embedder, weights config.SearchConfig, logger *slog.Logger) (*Engine, error) {
	if s == nil || llm == nil || emb == nil {
		return nil, fmt.Errorf("store, llm, and embedder are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, llm: llm, embedder: emb, weights: weights, logger: logger}, nil
}

// Search answers a query over the owner's knowledge.
//
// The two retrieval strategies are independent: one failing leaves the
// other's results standing. Only when both fail does Search return an
// error. Narrative synthesis failure never discards retrieved hits.
func (e *Engine) Search(ctx context.Context, ownerID, query string, opts Options) (Response, error) {
	query = strings.TrimSpace(query)
	if ownerID == "" || query == "" {
		return Response{}, fmt.Errorf("owner ID and query are required")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	plan, planDegraded := e.analyzeQuery(ctx, query)

	categories, err := e.store.ListCategories(ctx, ownerID)
	if err != nil {
		return Response{}, fmt.Errorf("loading categories: %w", err)
	}
	catNames := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}
	hintNames := resolveHints(plan.CategoryHints, categories)

	since := sinceFromWindow(plan.TimeWindow, time.Now())

	kwItems, vecHits, retrievalDegraded, err := e.retrieve(ctx, ownerID, query, plan, since, opts.CategoryIDs)
	if err != nil {
		return Response{}, err
	}

	hits := e.scoreAndRank(query, plan, hintNames, catNames, kwItems, vecHits, limit)

	resp := Response{Hits: hits, Degraded: planDegraded || retrievalDegraded}
	if !opts.SkipNarrative {
		resp.Narrative = e.narrate(ctx, query, hits)
	}
	return resp, nil
}

// retrieve fans out to both strategies concurrently. A single failure
// degrades; both failing is an error.
func (e *Engine) retrieve(ctx context.Context, ownerID, query string, plan queryPlan,
	since *time.Time, categoryIDs []uuid.UUID) ([]store.Item, []store.VectorHit, bool, error) {

	var (
		wg      sync.WaitGroup
		kwItems []store.Item
		vecHits []store.VectorHit
		kwErr   error
		vecErr  error
	)

	// Concepts are retrieval terms too; they just score differently.
	keywords := plan.Keywords
	if len(keywords) > maxRetrievalKeywords {
		keywords = keywords[:maxRetrievalKeywords]
	}
	terms := make([]string, 0, len(keywords)+len(plan.Concepts))
	terms = append(terms, keywords...)
	terms = append(terms, plan.Concepts...)

	wg.Add(2)
	go func() {
		defer wg.Done()
		kwItems, kwErr = e.store.SearchKeyword(ctx, ownerID, terms, since, categoryIDs, perStrategyLimit)
	}()
	go func() {
		defer wg.Done()
		vec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			vecErr = fmt.Errorf("embedding query: %w", err)
			return
		}
		vecHits, vecErr = e.store.SearchVector(ctx, ownerID, vec, since, categoryIDs, perStrategyLimit)
	}()
	wg.Wait()

	if kwErr != nil && vecErr != nil {
		return nil, nil, false, fmt.Errorf("all retrieval strategies failed: keyword: %v; vector: %w", kwErr, vecErr)
	}
	degraded := false
	if kwErr != nil {
		e.logger.Warn("keyword retrieval failed, continuing with vector results", "error", kwErr)
		degraded = true
	}
	if vecErr != nil {
		e.logger.Warn("vector retrieval failed, continuing with keyword results", "error", vecErr)
		degraded = true
	}
	return kwItems, vecHits, degraded, nil
}

// scoreAndRank merges both result sets by item ID, scores the union,
// and returns the top hits.
func (e *Engine) scoreAndRank(query string, plan queryPlan, hintNames map[string]bool,
	catNames map[uuid.UUID]string, kwItems []store.Item, vecHits []store.VectorHit, limit int) []Hit {

	merged := make(map[uuid.UUID]*Hit)
	for _, item := range kwItems {
		merged[item.ID] = &Hit{Item: item, CategoryName: catNames[item.CategoryID]}
	}
	for _, vh := range vecHits {
		if h, ok := merged[vh.ID]; ok {
			h.Similarity = vh.Similarity
			continue
		}
		merged[vh.ID] = &Hit{
			Item:         vh.Item,
			CategoryName: catNames[vh.CategoryID],
			Similarity:   vh.Similarity,
		}
	}

	hits := make([]Hit, 0, len(merged))
	for _, h := range merged {
		h.Score = e.score(query, plan, hintNames, h)
		h.Preview = preview(h.Item.RawContent, plan.Keywords)
		hits = append(hits, *h)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Item.CreatedAt.After(hits[j].Item.CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// resolveHints maps model-provided category hints onto the owner's
// actual categories, case-insensitively. Unknown hints are dropped.
func resolveHints(hints []string, categories []store.CategoryCount) map[string]bool {
	if len(hints) == 0 {
		return nil
	}
	names := make(map[string]bool, len(hints))
	for _, hint := range hints {
		for _, c := range categories {
			if strings.EqualFold(c.Name, hint) {
				names[strings.ToLower(c.Name)] = true
			}
		}
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// sinceFromWindow converts a time window name to a cutoff timestamp.
// "day" means today, so it cuts at local midnight rather than 24 hours
// back.
func sinceFromWindow(window string, now time.Time) *time.Time {
	var t time.Time
	switch window {
	case "day":
		t = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		t = now.Add(-7 * 24 * time.Hour)
	case "month":
		t = now.Add(-30 * 24 * time.Hour)
	default:
		return nil
	}
	return &t
}
