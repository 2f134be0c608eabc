package handler

import (
	"net/http"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/service"
	"pemilihan-be/pkg/logger"
)

type ElectionHandler struct {
	electionService *service.ElectionService
	logger          *logger.Logger
}

func NewElectionHandler(electionService *service.ElectionService, logger *logger.Logger) *ElectionHandler {
	return &ElectionHandler{
		electionService: electionService,
		logger:          logger,
	}
}

// Info handles GET /api/v1/election
func (h *ElectionHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.electionService.Info(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// Open handles PUT /api/v1/admin/election
func (h *ElectionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var input domain.ElectionSettingsInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	settings, err := h.electionService.Open(r.Context(), input)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
