package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/internal/store"
)

type itemHandler struct {
	ingester Ingester
	store    OwnerStore
	logger   *slog.Logger
}

type createItemRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

type itemResponse struct {
	ID           uuid.UUID  `json:"id"`
	Category     string     `json:"category,omitempty"`
	CategoryID   uuid.UUID  `json:"category_id"`
	RawContent   string     `json:"raw_content"`
	Essence      string     `json:"essence"`
	Tags         store.Tags `json:"tags"`
	HasEmbedding bool       `json:"has_embedding"`
	CreatedAt    time.Time  `json:"created_at"`
}

type createItemResponse struct {
	itemResponse
	Degraded bool `json:"degraded,omitempty"`
}

// createItem ingests one submission for the calling owner.
func (h *itemHandler) createItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	result, err := h.ingester.Ingest(r.Context(), ownerID, req.Content, req.Kind)
	if errors.Is(err, store.ErrOwnerNotFound) {
		writeError(w, http.StatusNotFound, "owner_not_found", "register the owner before submitting items")
		return
	}
	if err != nil {
		h.logger.Error("ingesting item", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "ingest_failed", err.Error())
		return
	}

	resp := createItemResponse{
		itemResponse: toItemResponse(result.Item),
		Degraded:     result.Degraded,
	}
	resp.Category = result.Category.Name
	writeJSON(w, http.StatusCreated, resp)
}

// getItem returns one of the owner's items.
func (h *itemHandler) getItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "item ID must be a UUID")
		return
	}

	item, err := h.store.GetItem(r.Context(), ownerID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "item not found")
		return
	}
	if err != nil {
		h.logger.Error("fetching item", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load item")
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// listItems returns the owner's newest items.
func (h *itemHandler) listItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	items, err := h.store.RecentItems(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("listing items", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list items")
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func toItemResponse(item store.Item) itemResponse {
	return itemResponse{
		ID:           item.ID,
		CategoryID:   item.CategoryID,
		RawContent:   item.RawContent,
		Essence:      item.Essence,
		Tags:         item.Tags,
		HasEmbedding: item.HasEmbedding,
		CreatedAt:    item.CreatedAt,
	}
}
