package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/service"
	"pemilihan-be/pkg/logger"
)

// heartbeatInterval keeps idle SSE connections open through proxies
const heartbeatInterval = 25 * time.Second

type VotingHandler struct {
	votingService *service.VotingService
	logger        *logger.Logger
}

func NewVotingHandler(votingService *service.VotingService, logger *logger.Logger) *VotingHandler {
	return &VotingHandler{
		votingService: votingService,
		logger:        logger,
	}
}

// SubmitBallot handles POST /api/v1/ballots
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	var req domain.BallotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	result, err := h.votingService.SubmitBallot(r.Context(), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if result.Status == domain.VoteStatusAlreadyVoted {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

// VoterStatus handles GET /api/v1/voters/status?name=&class=
func (h *VotingHandler) VoterStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := h.votingService.VoterStatus(r.Context(), q.Get("name"), q.Get("class"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, status)
}

// GetTally handles GET /api/v1/tally
func (h *VotingHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	entries, err := h.votingService.GetTally(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondWithETag(w, r, entries, 5)
}

// GetResults handles GET /api/v1/results
func (h *VotingHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.votingService.GetResults(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	// generated_at changes on every computation; hash only what clients render
	etag := generateETag(struct {
		Items []domain.ProjectedResult
		Total int
	}{results.Items, results.TotalVotes})
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=5")
	respondJSON(w, http.StatusOK, results)
}

// GetStats handles GET /api/v1/stats
func (h *VotingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.votingService.GetStats(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ResyncTally handles POST /api/v1/admin/tally/resync
func (h *VotingHandler) ResyncTally(w http.ResponseWriter, r *http.Request) {
	results, err := h.votingService.ResyncTally(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// StreamResults handles GET /api/v1/results/stream as Server-Sent Events.
// The current results are sent first, then every refresh. A slow client
// only ever receives the newest projection.
func (h *VotingHandler) StreamResults(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	updates := make(chan *domain.Results, 1)
	unsubscribe := h.votingService.Subscribe(func(results *domain.Results) {
		select {
		case updates <- results:
		default:
			// Replace the stale pending projection
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- results:
			default:
			}
		}
	})
	defer unsubscribe()

	initial, err := h.votingService.GetResults(ctx)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "results", initial); err != nil {
		return
	}
	flusher.Flush()

	h.logger.Debug("Results stream opened")
	defer h.logger.Debug("Results stream closed")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case results := <-updates:
			if err := writeEvent(w, "results", results); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
