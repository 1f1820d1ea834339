package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
	"github.com/conjugo/conjugo/internal/timeutil"
)

type GenerationRequestHandler struct {
	tracker ports.RequestTracker
	// repo backs the administrative clean, which works on raw rows rather
	// than the tracker's lifecycle.
	repo ports.GenerationRequestRepository
}

func NewGenerationRequestHandler(tracker ports.RequestTracker, repo ports.GenerationRequestRepository) *GenerationRequestHandler {
	return &GenerationRequestHandler{tracker: tracker, repo: repo}
}

// Get handles GET /generation-requests/{id}, returning the request with its
// generated problems embedded.
func (h *GenerationRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	request, err := h.tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, request, http.StatusOK)
}

// List handles GET /generation-requests.
func (h *GenerationRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ports.RequestListFilter{
		Status:     models.RequestStatus(r.URL.Query().Get("status")),
		EntityType: r.URL.Query().Get("entity_type"),
		Limit:      parseIntQuery(r, "limit", 50),
	}

	requests, err := h.tracker.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.GenerationRequest{}
	}
	respondJSON(w, requests, http.StatusOK)
}

// Clean handles DELETE /generation-requests?older_than=<cutoff>. The cutoff
// uses the same syntax as the CLI: <n>{m|h|d|w} or a date. Only terminal
// requests are removed; problems keep existing with their back reference
// nulled.
func (h *GenerationRequestHandler) Clean(w http.ResponseWriter, r *http.Request) {
	cutoff, err := timeutil.ParseCutoff(r.URL.Query().Get("older_than"), time.Now().UTC())
	if err != nil {
		respondError(w, dto.CodeValidationError, "older_than must be <n>{m|h|d|w} or a date", http.StatusBadRequest)
		return
	}

	deleted, err := h.repo.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, dto.CleanResponse{Deleted: deleted}, http.StatusOK)
}
