package handler

import (
	"net/http"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/service"
	"pemilihan-be/pkg/logger"
)

type CandidateHandler struct {
	candidateService *service.CandidateService
	logger           *logger.Logger
}

func NewCandidateHandler(candidateService *service.CandidateService, logger *logger.Logger) *CandidateHandler {
	return &CandidateHandler{
		candidateService: candidateService,
		logger:           logger,
	}
}

// List handles GET /api/v1/candidates
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.candidateService.List(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	respondWithETag(w, r, candidates, 60)
}

// Get handles GET /api/v1/candidates/{id}
func (h *CandidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	candidate, err := h.candidateService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, candidate)
}

// Create handles POST /api/v1/admin/candidates
func (h *CandidateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CandidateInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	candidate, err := h.candidateService.Create(r.Context(), input)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, candidate)
}

// Update handles PUT /api/v1/admin/candidates/{id}
func (h *CandidateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var input domain.CandidateInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	candidate, err := h.candidateService.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, candidate)
}

// Delete handles DELETE /api/v1/admin/candidates/{id}
func (h *CandidateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.candidateService.Delete(r.Context(), id); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
