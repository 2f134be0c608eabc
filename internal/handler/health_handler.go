package handler

import (
	"context"
	"net/http"
	"time"

	"pemilihan-be/pkg/logger"
)

// HealthChecker reports the state of one backing store
type HealthChecker func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	checks      map[string]HealthChecker
	subscribers func() int
	mode        string
	logger      *logger.Logger
}

// NewHealthHandler creates a new health handler. Nil checks are skipped.
func NewHealthHandler(checks map[string]HealthChecker, subscribers func() int, mode string, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:      checks,
		subscribers: subscribers,
		mode:        mode,
		logger:      logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Service     string            `json:"service"`
	Mode        string            `json:"mode"`
	Checks      map[string]string `json:"checks"`
	Subscribers int               `json:"subscribers"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "pemilihan-be",
		Mode:      h.mode,
		Checks:    make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			response.Checks[name] = "unhealthy"
			response.Status = "degraded"
			continue
		}
		response.Checks[name] = "ok"
	}

	if h.subscribers != nil {
		response.Subscribers = h.subscribers()
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, response)
}
