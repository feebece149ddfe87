// Package category grows and manages each owner's taxonomy. The AI
// proposes a category for every new item; the resolver decides whether
// an existing category absorbs it or a new one is born.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lorekeep/lorekeep/internal/store"
)

// maxExistingInPrompt bounds how many categories the decision prompt
// shows to the model.
const maxExistingInPrompt = 10

// analyzer is the slice of the LLM client the resolver needs.
type analyzer interface {
	Analyze(ctx context.Context, prompt string, out any) error
}

// categoryStore is the slice of the store the resolver needs.
type categoryStore interface {
	RecentCategoryNames(ctx context.Context, ownerID string, limit int) ([]string, error)
	GetCategoryByName(ctx context.Context, ownerID, name string) (store.Category, error)
	CreateCategory(ctx context.Context, ownerID, name, description string) (store.Category, error)
}

// decisionPrompt asks the model to match a suggested category against
// the owner's existing taxonomy. %s placeholders: (1) suggested name,
// (2) item essence, (3) existing category list.
const decisionPrompt = `You manage a personal knowledge taxonomy. A new item was analyzed and a category was suggested for it. Decide whether one of the user's existing categories should hold the item instead.

Suggested category: %s
Item summary: %s

Existing categories:
%s

Rules:
- Choose an existing category ONLY if you are at least 70%% confident the item belongs there.
- Otherwise keep the suggested category so a new one is created.
- Never invent generic names like "Miscellaneous", "Other", or "General".

Output format: JSON object.
Example: {"action": "use_existing", "category": "Cooking Recipes"}
Or: {"action": "create_new", "category": "%s"}

Respond with JSON only:`

// decision is the model's verdict on category placement.
type decision struct {
	Action   string `json:"action"`
	Category string `json:"category"`
}

// Resolver maps an AI-suggested category name onto the owner's
// taxonomy, creating new categories as needed.
type Resolver struct {
	store  categoryStore
	llm    analyzer
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(s categoryStore, llm analyzer, logger *slog.Logger) (*Resolver, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	if llm == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: s, llm: llm, logger: logger}, nil
}

// Resolve returns the category a new item should land in.
//
// The first item an owner ever submits creates the suggested category
// verbatim. After that the model compares the suggestion against the
// owner's existing categories; a model failure falls back to using the
// suggestion as-is, so ingestion never blocks on the model.
func (r *Resolver) Resolve(ctx context.Context, ownerID, suggested, intent, essence string) (store.Category, error) {
	suggested = strings.TrimSpace(suggested)
	if suggested == "" {
		suggested = store.FallbackCategoryName
	}

	existing, err := r.store.RecentCategoryNames(ctx, ownerID, maxExistingInPrompt)
	if err != nil {
		return store.Category{}, fmt.Errorf("loading existing categories: %w", err)
	}

	name := suggested
	if len(existing) > 0 {
		name = r.decide(ctx, suggested, essence, existing)
	}

	if cat, err := r.store.GetCategoryByName(ctx, ownerID, name); err == nil {
		return cat, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Category{}, err
	}

	cat, err := r.store.CreateCategory(ctx, ownerID, name, describeCategory(intent, essence))
	if errors.Is(err, store.ErrCategoryExists) {
		// Lost a creation race; the winner's row is what we want.
		return r.store.GetCategoryByName(ctx, ownerID, name)
	}
	if err != nil {
		return store.Category{}, err
	}

	r.logger.Info("category created", "owner_id", ownerID, "category", cat.Name)
	return cat, nil
}

// decide asks the model whether an existing category should absorb the
// item. Any failure keeps the suggested name.
func (r *Resolver) decide(ctx context.Context, suggested, essence string, existing []string) string {
	prompt := fmt.Sprintf(decisionPrompt,
		suggested, essence, "- "+strings.Join(existing, "\n- "), suggested)

	var d decision
	if err := r.llm.Analyze(ctx, prompt, &d); err != nil {
		r.logger.Warn("category decision failed, keeping suggestion",
			"suggested", suggested, "error", err)
		return suggested
	}

	picked := strings.TrimSpace(d.Category)
	if d.Action == "use_existing" && containsFold(existing, picked) {
		return matchFold(existing, picked)
	}
	if picked != "" && d.Action == "create_new" {
		return picked
	}
	return suggested
}

// describeCategory builds the stored description for a new category
// from the item that created it.
func describeCategory(intent, essence string) string {
	if len(essence) > 100 {
		essence = essence[:100]
	}
	if intent == "" {
		return essence
	}
	return intent + " - " + essence
}

// containsFold reports whether names contains s case-insensitively.
func containsFold(names []string, s string) bool {
	for _, n := range names {
		if strings.EqualFold(n, s) {
			return true
		}
	}
	return false
}

// matchFold returns the canonical spelling of s from names.
func matchFold(names []string, s string) string {
	for _, n := range names {
		if strings.EqualFold(n, s) {
			return n
		}
	}
	return s
}
