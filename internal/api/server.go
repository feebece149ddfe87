// Package api exposes knowledge capture and retrieval over HTTP.
// Callers identify themselves with the X-Owner-ID header; every
// operation is scoped to that owner.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/store"
)

// Ingester processes submissions end to end.
type Ingester interface {
	Ingest(ctx context.Context, ownerID, content, kind string) (ingest.Result, error)
}

// Searcher answers queries over an owner's knowledge.
type Searcher interface {
	Search(ctx context.Context, ownerID, query string, opts search.Options) (search.Response, error)
}

// CategoryManager exposes taxonomy operations.
type CategoryManager interface {
	List(ctx context.Context, ownerID string) ([]store.CategoryCount, error)
	Rename(ctx context.Context, ownerID string, id uuid.UUID, newName string) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// OwnerStore exposes the owner and item reads handlers need.
type OwnerStore interface {
	CreateOwner(ctx context.Context, owner store.Owner) error
	GetOwner(ctx context.Context, ownerID string) (store.Owner, error)
	GetItem(ctx context.Context, ownerID string, id uuid.UUID) (store.Item, error)
	RecentItems(ctx context.Context, ownerID string, limit int) ([]store.Item, error)
}

// ServerConfig contains everything needed to build the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Ingester   Ingester
	Searcher   Searcher
	Categories CategoryManager
	Store      OwnerStore

	// RatePerSecond and RateBurst tune per-IP limiting.
	// Zero values take 10 req/s with a burst of 30.
	RatePerSecond float64
	RateBurst     int
}

// Server is the JSON API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ingester == nil || cfg.Searcher == nil || cfg.Categories == nil || cfg.Store == nil {
		return nil, errors.New("ingester, searcher, categories, and store are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ih := &itemHandler{ingester: cfg.Ingester, store: cfg.Store, logger: logger}
	sh := &searchHandler{searcher: cfg.Searcher, logger: logger}
	ch := &categoryHandler{categories: cfg.Categories, logger: logger}
	oh := &ownerHandler{store: cfg.Store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health)

	// All /api routes require the owner header.
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/v1/owners", oh.upsertOwner)
	apiMux.HandleFunc("GET /api/v1/owners/me", oh.getOwner)
	apiMux.HandleFunc("POST /api/v1/items", ih.createItem)
	apiMux.HandleFunc("GET /api/v1/items", ih.listItems)
	apiMux.HandleFunc("GET /api/v1/items/{id}", ih.getItem)
	apiMux.HandleFunc("GET /api/v1/search", sh.search)
	apiMux.HandleFunc("GET /api/v1/categories", ch.listCategories)
	apiMux.HandleFunc("PATCH /api/v1/categories/{id}", ch.renameCategory)
	apiMux.HandleFunc("DELETE /api/v1/categories/{id}", ch.deleteCategory)
	mux.Handle("/api/", ownerMiddleware(apiMux))

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack, outermost first:
	//   Recovery -> Logging -> RateLimit -> Routes
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{handler: handler}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// health is a probe endpoint for orchestration.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
