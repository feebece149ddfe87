package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorekeep/lorekeep/internal/store"
)

type ownerHandler struct {
	store  OwnerStore
	logger *slog.Logger
}

type ownerRequest struct {
	Name       string `json:"name"`
	Occupation string `json:"occupation"`
}

type ownerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Occupation string    `json:"occupation"`
	CreatedAt  time.Time `json:"created_at"`
}

// upsertOwner registers the calling owner or updates their profile.
func (h *ownerHandler) upsertOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := h.store.CreateOwner(r.Context(), store.Owner{
		ID:         ownerID,
		Name:       req.Name,
		Occupation: req.Occupation,
	}); err != nil {
		h.logger.Error("upserting owner", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save owner")
		return
	}

	owner, err := h.store.GetOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("reading back owner", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load owner")
		return
	}
	writeJSON(w, http.StatusOK, toOwnerResponse(owner))
}

// getOwner returns the calling owner's profile.
func (h *ownerHandler) getOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity not found")
		return
	}

	owner, err := h.store.GetOwner(r.Context(), ownerID)
	if errors.Is(err, store.ErrOwnerNotFound) {
		writeError(w, http.StatusNotFound, "owner_not_found", "owner is not registered")
		return
	}
	if err != nil {
		h.logger.Error("fetching owner", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load owner")
		return
	}
	writeJSON(w, http.StatusOK, toOwnerResponse(owner))
}

func toOwnerResponse(o store.Owner) ownerResponse {
	return ownerResponse{
		ID:         o.ID,
		Name:       o.Name,
		Occupation: o.Occupation,
		CreatedAt:  o.CreatedAt,
	}
}
