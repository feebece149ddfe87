// Package ingest turns raw user submissions into categorized,
// embedded knowledge items.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/lorekeep/lorekeep/internal/store"
)

// Prompt context bounds. Larger taxonomies and vocabularies are
// truncated to keep the prompt stable.
const (
	maxPromptCategories = 10
	maxPromptKeywords   = 15
)

// DefaultCategoryName receives items the model could not understand.
const DefaultCategoryName = "General Notes"

// Content kinds. The kind shapes the analysis prompt only; storage and
// retrieval treat every item the same.
const (
	KindText         = "text"
	KindAudio        = "audio"
	KindDocument     = "document"
	KindImageCaption = "image-caption"
)

// Understanding is the model's analysis of a submission.
type Understanding struct {
	Essence           string     `json:"essence"`
	SuggestedCategory string     `json:"suggested_category"`
	Intent            string     `json:"intent"`
	Tags              store.Tags `json:"tags"`
}

// Result is what a successful ingestion produced.
type Result struct {
	Item          store.Item
	Category      store.Category
	Understanding Understanding

	// Degraded is true when the model failed and the item was filed
	// with fallback metadata.
	Degraded bool
}

// analyzer is the slice of the LLM client the pipeline needs.
type analyzer interface {
	Analyze(ctx context.Context, prompt string, out any) error
}

// embedder is the slice of the embedding service the pipeline needs.
type embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// resolver places an understood item into the owner's taxonomy.
type resolver interface {
	Resolve(ctx context.Context, ownerID, suggested, intent, essence string) (store.Category, error)
}

// ingestStore is the slice of the store the pipeline needs.
type ingestStore interface {
	GetOwner(ctx context.Context, ownerID string) (store.Owner, error)
	RecentCategoryNames(ctx context.Context, ownerID string, limit int) ([]string, error)
	RecentKeywords(ctx context.Context, ownerID string, limit int) ([]string, error)
	InsertItem(ctx context.Context, item store.Item, vec *pgvector.Vector) (store.Item, error)
	UpdateItemEmbedding(ctx context.Context, id uuid.UUID, vec pgvector.Vector) error
}

// Pipeline ingests submissions end to end: understand, categorize,
// persist, embed. Only persistence is allowed to fail the operation;
// every AI step degrades instead.
type Pipeline struct {
	store    ingestStore
	llm      analyzer
	embedder embedder
	resolver resolver
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(s ingestStore, llm analyzer, emb embedder, res resolver, logger *slog.Logger) (*Pipeline, error) {
	if s == nil || llm == nil || emb == nil || res == nil {
		return nil, fmt.Errorf("store, llm, embedder, and resolver are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: s, llm: llm, embedder: emb, resolver: res, logger: logger}, nil
}

// Ingest processes one submission for the owner. kind is one of the
// Kind constants; empty means KindText.
//
// The owner must exist. Model failures never lose the submission: a
// failed analysis files the item under the default category with
// fallback metadata. The item is committed before embedding runs, so a
// slow or failed embedding leaves the vector NULL for the backfill
// sweep instead of blocking or losing the write.
func (p *Pipeline) Ingest(ctx context.Context, ownerID, content, kind string) (Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{}, fmt.Errorf("content is required")
	}
	if len(content) > store.MaxContentLength {
		return Result{}, fmt.Errorf("content length %d exceeds maximum %d",
			len(content), store.MaxContentLength)
	}
	if kind == "" {
		kind = KindText
	}

	owner, err := p.store.GetOwner(ctx, ownerID)
	if err != nil {
		return Result{}, err
	}

	u, degraded := p.understand(ctx, owner, content, kind)

	cat, err := p.resolver.Resolve(ctx, ownerID, u.SuggestedCategory, u.Intent, u.Essence)
	if err != nil {
		return Result{}, fmt.Errorf("resolving category: %w", err)
	}

	item, err := p.store.InsertItem(ctx, store.Item{
		OwnerID:    ownerID,
		CategoryID: cat.ID,
		RawContent: content,
		Essence:    u.Essence,
		Tags:       u.Tags,
	}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("persisting item: %w", err)
	}

	item.HasEmbedding = p.embedItem(ctx, item.ID, content, u.Essence)

	p.logger.Info("item ingested",
		"owner_id", ownerID,
		"item_id", item.ID,
		"category", cat.Name,
		"embedded", item.HasEmbedding,
		"degraded", degraded,
	)

	return Result{Item: item, Category: cat, Understanding: u, Degraded: degraded}, nil
}

// understand runs the analysis prompt. Any model failure yields the
// fallback understanding instead of an error.
func (p *Pipeline) understand(ctx context.Context, owner store.Owner, content, kind string) (Understanding, bool) {
	categories, err := p.store.RecentCategoryNames(ctx, owner.ID, maxPromptCategories)
	if err != nil {
		p.logger.Warn("loading categories for prompt", "error", err)
	}
	keywords, err := p.store.RecentKeywords(ctx, owner.ID, maxPromptKeywords)
	if err != nil {
		p.logger.Warn("loading keywords for prompt", "error", err)
	}

	var u Understanding
	if err := p.llm.Analyze(ctx, understandingPrompt(owner, content, kind, categories, keywords), &u); err != nil {
		p.logger.Warn("understanding failed, using fallback", "owner_id", owner.ID, "error", err)
		return fallbackUnderstanding(content), true
	}

	u = normalizeUnderstanding(u, content)
	return u, false
}

// embedItem computes and stores the persisted item's vector. Reports
// whether the item now has one; on any failure the vector stays NULL
// and the backfill sweep picks it up.
func (p *Pipeline) embedItem(ctx context.Context, id uuid.UUID, content, essence string) bool {
	vec, err := p.embedder.Embed(ctx, EmbedText(content, essence))
	if err != nil {
		p.logger.Warn("embedding failed, deferring to backfill", "item_id", id, "error", err)
		return false
	}
	if err := p.store.UpdateItemEmbedding(ctx, id, vec); err != nil {
		p.logger.Warn("storing embedding failed, deferring to backfill", "item_id", id, "error", err)
		return false
	}
	return true
}

// EmbedText builds the canonical text an item is embedded from. The
// backfill sweep must produce byte-identical input for the same item.
func EmbedText(content, essence string) string {
	if essence == "" {
		return content
	}
	return content + " " + essence
}

// fallbackUnderstanding files content the model could not analyze.
func fallbackUnderstanding(content string) Understanding {
	essence := content
	if len(essence) > 100 {
		essence = essence[:100]
	}
	return Understanding{
		Essence:           essence,
		SuggestedCategory: DefaultCategoryName,
		Intent:            "none",
		Tags:              store.Tags{Sentiment: "neutral", TimeReference: "none"},
	}
}

// normalizeUnderstanding fills gaps in an otherwise well-formed
// response so downstream code never sees empty required fields.
func normalizeUnderstanding(u Understanding, content string) Understanding {
	if strings.TrimSpace(u.Essence) == "" {
		u.Essence = content
		if len(u.Essence) > 100 {
			u.Essence = u.Essence[:100]
		}
	}
	if strings.TrimSpace(u.SuggestedCategory) == "" {
		u.SuggestedCategory = DefaultCategoryName
	}
	if u.Tags.Sentiment == "" {
		u.Tags.Sentiment = "neutral"
	}
	if u.Tags.TimeReference == "" {
		u.Tags.TimeReference = "none"
	}
	if u.Intent == "" {
		u.Intent = "none"
	}
	return u
}
