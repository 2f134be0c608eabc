package handler

import (
	"net/http"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/service"
	"pemilihan-be/pkg/logger"
)

// VoterHandler serves the admin voter list
type VoterHandler struct {
	voterService *service.VoterService
	logger       *logger.Logger
}

func NewVoterHandler(voterService *service.VoterService, logger *logger.Logger) *VoterHandler {
	return &VoterHandler{
		voterService: voterService,
		logger:       logger,
	}
}

// List handles GET /api/v1/admin/voters?filter=all|voted|not_voted&q=
func (h *VoterHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("q")
	if search == "" {
		search = q.Get("search")
	}

	voters, err := h.voterService.List(r.Context(), domain.VoterListQuery{
		Filter: domain.VoterFilter(q.Get("filter")),
		Search: search,
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if voters == nil {
		voters = []domain.VoterListItem{}
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, voters)
}

// Delete handles DELETE /api/v1/admin/voters/{id}
func (h *VoterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.voterService.Delete(r.Context(), id); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
