package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lorekeep/lorekeep/internal/store"
	"github.com/lorekeep/lorekeep/internal/testutil"
)

// fakeAnalyzer returns a canned JSON decision, or an error.
type fakeAnalyzer struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, prompt string, out any) error {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	return jsonInto(f.response, out)
}

func jsonInto(s string, out any) error {
	d, ok := out.(*decision)
	if !ok {
		return fmt.Errorf("unexpected output type %T", out)
	}
	// Tests hand over pre-built decisions encoded as "action|category".
	parts := strings.SplitN(s, "|", 2)
	d.Action = parts[0]
	if len(parts) == 2 {
		d.Category = parts[1]
	}
	return nil
}

// fakeCategoryStore keeps categories in memory keyed by name.
// getMisses makes that many GetCategoryByName calls report ErrNotFound
// regardless of contents, to simulate losing a creation race.
type fakeCategoryStore struct {
	names      []string
	categories map[string]store.Category
	createErr  error
	created    []string
	getMisses  int
}

func newFakeCategoryStore(names ...string) *fakeCategoryStore {
	f := &fakeCategoryStore{names: names, categories: make(map[string]store.Category)}
	for _, n := range names {
		f.categories[n] = store.Category{Name: n}
	}
	return f
}

func (f *fakeCategoryStore) RecentCategoryNames(ctx context.Context, ownerID string, limit int) ([]string, error) {
	return f.names, nil
}

func (f *fakeCategoryStore) GetCategoryByName(ctx context.Context, ownerID, name string) (store.Category, error) {
	if f.getMisses > 0 {
		f.getMisses--
		return store.Category{}, store.ErrNotFound
	}
	if cat, ok := f.categories[name]; ok {
		return cat, nil
	}
	return store.Category{}, store.ErrNotFound
}

func (f *fakeCategoryStore) CreateCategory(ctx context.Context, ownerID, name, description string) (store.Category, error) {
	if f.createErr != nil {
		return store.Category{}, f.createErr
	}
	f.created = append(f.created, name)
	cat := store.Category{Name: name, Description: description}
	f.categories[name] = cat
	return cat, nil
}

func newTestResolver(t *testing.T, s categoryStore, llm analyzer) *Resolver {
	t.Helper()
	r, err := NewResolver(s, llm, testutil.QuietLogger())
	if err != nil {
		t.Fatalf("creating resolver: %v", err)
	}
	return r
}

func TestResolve_FirstCategoryCreatedVerbatim(t *testing.T) {
	fs := newFakeCategoryStore()
	llm := &fakeAnalyzer{}
	r := newTestResolver(t, fs, llm)

	cat, err := r.Resolve(context.Background(), "alice", "Sourdough Baking", "learning", "starter notes")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cat.Name != "Sourdough Baking" {
		t.Errorf("category = %q, want suggestion verbatim", cat.Name)
	}
	// With no existing categories the model is not consulted.
	if len(llm.prompts) != 0 {
		t.Errorf("model consulted %d times, want 0", len(llm.prompts))
	}
}

func TestResolve_UsesExistingOnModelMatch(t *testing.T) {
	fs := newFakeCategoryStore("Cooking Recipes", "Travel")
	llm := &fakeAnalyzer{response: "use_existing|cooking recipes"}
	r := newTestResolver(t, fs, llm)

	cat, err := r.Resolve(context.Background(), "alice", "Baking", "learning", "pie crust ratios")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Case-insensitive match resolves to the canonical spelling.
	if cat.Name != "Cooking Recipes" {
		t.Errorf("category = %q, want %q", cat.Name, "Cooking Recipes")
	}
	if len(fs.created) != 0 {
		t.Errorf("created %v, want no new categories", fs.created)
	}
}

func TestResolve_IgnoresMatchOutsideTaxonomy(t *testing.T) {
	fs := newFakeCategoryStore("Travel")
	llm := &fakeAnalyzer{response: "use_existing|Cooking"}
	r := newTestResolver(t, fs, llm)

	cat, err := r.Resolve(context.Background(), "alice", "Baking", "", "pie crust")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The model named a category the owner does not have; keep the
	// suggestion instead.
	if cat.Name != "Baking" {
		t.Errorf("category = %q, want %q", cat.Name, "Baking")
	}
}

func TestResolve_CreateNewUsesModelName(t *testing.T) {
	fs := newFakeCategoryStore("Travel")
	llm := &fakeAnalyzer{response: "create_new|Bread Making"}
	r := newTestResolver(t, fs, llm)

	cat, err := r.Resolve(context.Background(), "alice", "Baking", "learning", "pie crust")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cat.Name != "Bread Making" {
		t.Errorf("category = %q, want %q", cat.Name, "Bread Making")
	}
}

func TestResolve_ModelFailureKeepsSuggestion(t *testing.T) {
	fs := newFakeCategoryStore("Travel")
	llm := &fakeAnalyzer{err: errors.New("model unavailable")}
	r := newTestResolver(t, fs, llm)

	cat, err := r.Resolve(context.Background(), "alice", "Baking", "", "pie crust")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cat.Name != "Baking" {
		t.Errorf("category = %q, want suggestion kept on model failure", cat.Name)
	}
}

func TestResolve_EmptySuggestionFallsBack(t *testing.T) {
	fs := newFakeCategoryStore()
	r := newTestResolver(t, fs, &fakeAnalyzer{})

	cat, err := r.Resolve(context.Background(), "alice", "  ", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cat.Name != store.FallbackCategoryName {
		t.Errorf("category = %q, want %q", cat.Name, store.FallbackCategoryName)
	}
}

func TestResolve_CreationRaceRereads(t *testing.T) {
	// Another writer inserts "Baking" between the initial lookup miss and
	// the insert. CreateCategory reports the unique violation; the reread
	// must return the winner's row.
	fs := newFakeCategoryStore()
	fs.createErr = store.ErrCategoryExists
	fs.categories["Baking"] = store.Category{Name: "Baking", Description: "winner"}
	fs.getMisses = 1

	r := newTestResolver(t, fs, &fakeAnalyzer{})

	cat, err := r.Resolve(context.Background(), "alice", "Baking", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cat.Description != "winner" {
		t.Errorf("category = %+v, want the winner's row", cat)
	}
	if len(fs.created) != 0 {
		t.Errorf("created %v, want creation to have failed", fs.created)
	}
}

func TestDescribeCategory(t *testing.T) {
	if got := describeCategory("learning", "short essence"); got != "learning - short essence" {
		t.Errorf("describeCategory = %q", got)
	}
	if got := describeCategory("", "short essence"); got != "short essence" {
		t.Errorf("describeCategory(no intent) = %q", got)
	}
	long := strings.Repeat("x", 150)
	if got := describeCategory("idea", long); got != "idea - "+long[:100] {
		t.Errorf("describeCategory did not truncate essence: %d chars", len(got))
	}
}
