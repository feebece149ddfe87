package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/internal/search"
)

type searchHandler struct {
	searcher Searcher
	logger   *slog.Logger
}

type searchHit struct {
	ID         uuid.UUID `json:"id"`
	Category   string    `json:"category"`
	Preview    string    `json:"preview"`
	Essence    string    `json:"essence"`
	Score      float64   `json:"score"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

type searchResponse struct {
	Hits      []searchHit `json:"hits"`
	Narrative string      `json:"narrative,omitempty"`
	Degraded  bool        `json:"degraded,omitempty"`
}

// search runs hybrid retrieval for the calling owner.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "q parameter is required")
		return
	}

	opts := search.Options{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		opts.Limit = n
	}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_category", "category_id must be a UUID")
			return
		}
		opts.CategoryIDs = []uuid.UUID{id}
	}
	if r.URL.Query().Get("skip_narrative") == "true" {
		opts.SkipNarrative = true
	}

	resp, err := h.searcher.Search(r.Context(), ownerID, q, opts)
	if err != nil {
		h.logger.Error("search failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "search_failed", "search is temporarily unavailable")
		return
	}

	out := searchResponse{
		Hits:      make([]searchHit, 0, len(resp.Hits)),
		Narrative: resp.Narrative,
		Degraded:  resp.Degraded,
	}
	for _, hit := range resp.Hits {
		out.Hits = append(out.Hits, searchHit{
			ID:         hit.Item.ID,
			Category:   hit.CategoryName,
			Preview:    hit.Preview,
			Essence:    hit.Item.Essence,
			Score:      hit.Score,
			Similarity: hit.Similarity,
			CreatedAt:  hit.Item.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
