package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/store"
	"github.com/lorekeep/lorekeep/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeIngester struct {
	result ingest.Result
	err    error
	kind   string
}

func (f *fakeIngester) Ingest(ctx context.Context, ownerID, content, kind string) (ingest.Result, error) {
	f.kind = kind
	return f.result, f.err
}

type fakeSearcher struct {
	resp search.Response
	err  error
	opts search.Options
}

func (f *fakeSearcher) Search(ctx context.Context, ownerID, query string, opts search.Options) (search.Response, error) {
	f.opts = opts
	return f.resp, f.err
}

type fakeCategories struct {
	list      []store.CategoryCount
	renameErr error
	deleteErr error
}

func (f *fakeCategories) List(ctx context.Context, ownerID string) ([]store.CategoryCount, error) {
	return f.list, nil
}

func (f *fakeCategories) Rename(ctx context.Context, ownerID string, id uuid.UUID, newName string) error {
	return f.renameErr
}

func (f *fakeCategories) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	return f.deleteErr
}

type fakeOwnerStore struct {
	owners map[string]store.Owner
	items  map[uuid.UUID]store.Item
}

func newFakeOwnerStore() *fakeOwnerStore {
	return &fakeOwnerStore{
		owners: make(map[string]store.Owner),
		items:  make(map[uuid.UUID]store.Item),
	}
}

func (f *fakeOwnerStore) CreateOwner(ctx context.Context, owner store.Owner) error {
	f.owners[owner.ID] = owner
	return nil
}

func (f *fakeOwnerStore) GetOwner(ctx context.Context, ownerID string) (store.Owner, error) {
	if o, ok := f.owners[ownerID]; ok {
		return o, nil
	}
	return store.Owner{}, store.ErrOwnerNotFound
}

func (f *fakeOwnerStore) GetItem(ctx context.Context, ownerID string, id uuid.UUID) (store.Item, error) {
	if item, ok := f.items[id]; ok && item.OwnerID == ownerID {
		return item, nil
	}
	return store.Item{}, store.ErrNotFound
}

func (f *fakeOwnerStore) RecentItems(ctx context.Context, ownerID string, limit int) ([]store.Item, error) {
	var out []store.Item
	for _, item := range f.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	return out, nil
}

type serverFakes struct {
	ingester *fakeIngester
	searcher *fakeSearcher
	cats     *fakeCategories
	store    *fakeOwnerStore
}

func newTestServer(t *testing.T, mutate func(*serverFakes)) (*Server, *serverFakes) {
	t.Helper()
	f := &serverFakes{
		ingester: &fakeIngester{},
		searcher: &fakeSearcher{},
		cats:     &fakeCategories{},
		store:    newFakeOwnerStore(),
	}
	if mutate != nil {
		mutate(f)
	}
	srv, err := NewServer(ServerConfig{
		Logger:     testutil.QuietLogger(),
		Ingester:   f.ingester,
		Searcher:   f.searcher,
		Categories: f.cats,
		Store:      f.store,
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return srv, f
}

func doRequest(srv *Server, method, path, owner, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(srv, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
	// No owner header required outside /api.
}

func TestOwnerHeaderRequired(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	paths := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/v1/items"},
		{http.MethodGet, "/api/v1/search?q=x"},
		{http.MethodGet, "/api/v1/categories"},
	}
	for _, p := range paths {
		rec := doRequest(srv, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without owner = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestCreateItem(t *testing.T) {
	itemID := uuid.New()

	t.Run("created", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.ingester.result = ingest.Result{
				Item:     store.Item{ID: itemID, RawContent: "a note", HasEmbedding: true},
				Category: store.Category{Name: "Baking"},
			}
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/items", "alice", `{"content": "a note"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
		}
		var resp struct {
			ID       uuid.UUID `json:"id"`
			Category string    `json:"category"`
			Degraded bool      `json:"degraded"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.ID != itemID || resp.Category != "Baking" || resp.Degraded {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("kind forwarded", func(t *testing.T) {
		srv, f := newTestServer(t, func(f *serverFakes) {
			f.ingester.result = ingest.Result{Item: store.Item{ID: itemID}}
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/items", "alice", `{"content": "a note", "kind": "audio"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
		}
		if f.ingester.kind != ingest.KindAudio {
			t.Errorf("ingester kind = %q, want %q", f.ingester.kind, ingest.KindAudio)
		}
	})

	t.Run("degraded flagged", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.ingester.result = ingest.Result{
				Item:     store.Item{ID: itemID},
				Category: store.Category{Name: ingest.DefaultCategoryName},
				Degraded: true,
			}
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/items", "alice", `{"content": "a note"}`)
		if !strings.Contains(rec.Body.String(), `"degraded":true`) {
			t.Errorf("degraded flag missing: %s", rec.Body)
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.ingester.err = store.ErrOwnerNotFound
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/items", "ghost", `{"content": "a note"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("ingest failure", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.ingester.err = errors.New("content is required")
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/items", "alice", `{"content": ""}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doRequest(srv, http.MethodPost, "/api/v1/items", "alice", `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestGetItem(t *testing.T) {
	itemID := uuid.New()
	srv, f := newTestServer(t, nil)
	f.store.items[itemID] = store.Item{ID: itemID, OwnerID: "alice", RawContent: "a note"}

	t.Run("found", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/items/"+itemID.String(), "alice", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("other owner", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/items/"+itemID.String(), "bob", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/items/not-a-uuid", "alice", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("results", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.searcher.resp = search.Response{
				Hits: []search.Hit{{
					Item:         store.Item{ID: uuid.New(), CreatedAt: time.Now()},
					CategoryName: "Baking",
					Score:        17.5,
				}},
				Narrative: "an answer",
			}
		})
		rec := doRequest(srv, http.MethodGet, "/api/v1/search?q=sourdough", "alice", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "an answer") {
			t.Errorf("narrative missing: %s", rec.Body)
		}
	})

	t.Run("query required", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doRequest(srv, http.MethodGet, "/api/v1/search", "alice", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("limit validated", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		for _, limit := range []string{"0", "101", "abc"} {
			rec := doRequest(srv, http.MethodGet, "/api/v1/search?q=x&limit="+limit, "alice", "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s status = %d, want 400", limit, rec.Code)
			}
		}
	})

	t.Run("options forwarded", func(t *testing.T) {
		catID := uuid.New()
		srv, f := newTestServer(t, nil)
		path := fmt.Sprintf("/api/v1/search?q=x&limit=5&category_id=%s&skip_narrative=true", catID)
		if rec := doRequest(srv, http.MethodGet, path, "alice", ""); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		opts := f.searcher.opts
		if opts.Limit != 5 || !opts.SkipNarrative || len(opts.CategoryIDs) != 1 || opts.CategoryIDs[0] != catID {
			t.Errorf("options = %+v", opts)
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.searcher.err = errors.New("all retrieval strategies failed")
		})
		rec := doRequest(srv, http.MethodGet, "/api/v1/search?q=x", "alice", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestCategoryEndpoints(t *testing.T) {
	id := uuid.New()

	t.Run("rename ok", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doRequest(srv, http.MethodPatch, "/api/v1/categories/"+id.String(), "alice", `{"name": "Kitchen"}`)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200: %s", rec.Code, rec.Body)
		}
	})

	t.Run("rename conflict", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.cats.renameErr = store.ErrCategoryExists
		})
		rec := doRequest(srv, http.MethodPatch, "/api/v1/categories/"+id.String(), "alice", `{"name": "Kitchen"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("rename missing", func(t *testing.T) {
		srv, _ := newTestServer(t, func(f *serverFakes) {
			f.cats.renameErr = store.ErrNotFound
		})
		rec := doRequest(srv, http.MethodPatch, "/api/v1/categories/"+id.String(), "alice", `{"name": "Kitchen"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("rename empty name", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doRequest(srv, http.MethodPatch, "/api/v1/categories/"+id.String(), "alice", `{"name": ""}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("delete ok", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doRequest(srv, http.MethodDelete, "/api/v1/categories/"+id.String(), "alice", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestOwnerEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	t.Run("me before registration", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/owners/me", "alice", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("register then read back", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/owners", "alice", `{"name": "Alice", "occupation": "engineer"}`)
		if rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
			t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
		}

		rec = doRequest(srv, http.MethodGet, "/api/v1/owners/me", "alice", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("me status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Alice") {
			t.Errorf("profile missing name: %s", rec.Body)
		}
	})
}

func TestRateLimit(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:        testutil.QuietLogger(),
		Ingester:      &fakeIngester{},
		Searcher:      &fakeSearcher{},
		Categories:    &fakeCategories{},
		Store:         newFakeOwnerStore(),
		RatePerSecond: 1,
		RateBurst:     2,
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	limited := false
	for i := 0; i < 5; i++ {
		rec := doRequest(srv, http.MethodGet, "/healthz", "", "")
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") == "" {
				t.Error("429 response missing Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Error("burst of 2 never produced a 429 within 5 requests")
	}
}

func TestNewServer_Validation(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer accepted an empty config")
	}
}
