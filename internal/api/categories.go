package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/internal/store"
)

type categoryHandler struct {
	categories CategoryManager
	logger     *slog.Logger
}

type categoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type renameCategoryRequest struct {
	Name string `json:"name"`
}

// listCategories returns the owner's taxonomy with item counts.
func (h *categoryHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	cats, err := h.categories.List(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("listing categories", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list categories")
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			ItemCount:   c.ItemCount,
			CreatedAt:   c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// renameCategory changes a category's name.
func (h *categoryHandler) renameCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "category ID must be a UUID")
		return
	}

	var req renameCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	err = h.categories.Rename(r.Context(), ownerID, id, req.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "category not found")
	case errors.Is(err, store.ErrCategoryExists):
		writeError(w, http.StatusConflict, "name_taken", "a category with that name already exists")
	case err != nil:
		h.logger.Error("renaming category", "category_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to rename category")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
	}
}

// deleteCategory removes a category; its items move to the fallback.
func (h *categoryHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "category ID must be a UUID")
		return
	}

	err = h.categories.Delete(r.Context(), ownerID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "category not found")
	case err != nil:
		h.logger.Error("deleting category", "category_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete category")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
