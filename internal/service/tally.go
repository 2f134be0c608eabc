package service

import (
	"context"
	"sync"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

// ResultsListener receives every projection produced by Refresh. It runs on
// the refreshing goroutine and must not block.
type ResultsListener func(*domain.Results)

// TallyAggregator derives vote counts from the voter rows and fans the
// projected results out to subscribers.
type TallyAggregator struct {
	voters     repository.VoterRepository
	candidates repository.CandidateRepository
	logger     *logger.Logger

	mu          sync.RWMutex
	subscribers map[uint64]ResultsListener
	nextID      uint64

	// Serializes Refresh so subscribers see projections in order
	refreshMu sync.Mutex
}

func NewTallyAggregator(voters repository.VoterRepository, candidates repository.CandidateRepository, log *logger.Logger) *TallyAggregator {
	return &TallyAggregator{
		voters:      voters,
		candidates:  candidates,
		logger:      log.Named("tally"),
		subscribers: make(map[uint64]ResultsListener),
	}
}

// ComputeTally scans every voter with has_voted=true. The advisory
// candidates.votes counter is never consulted.
func (a *TallyAggregator) ComputeTally(ctx context.Context) (domain.Tally, error) {
	votedFor, err := a.voters.ListVotedFor(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to scan votes", err)
	}

	tally := make(domain.Tally)
	for _, id := range votedFor {
		tally[id]++
	}
	return tally, nil
}

// Results computes and projects the current tally without notifying anyone
func (a *TallyAggregator) Results(ctx context.Context) (*domain.Results, error) {
	tally, err := a.ComputeTally(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := a.candidates.List(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to list candidates", err)
	}

	results := Project(tally, candidates)
	if results.Orphans > 0 {
		orphanIDs := make([]int64, 0, results.Orphans)
		for _, item := range results.Items {
			if item.Orphan {
				orphanIDs = append(orphanIDs, item.CandidateID)
			}
		}
		a.logger.WithField("candidate_ids", orphanIDs).Warn("Votes reference candidates that no longer exist")
	}
	return results, nil
}

// Refresh recomputes the projection and emits it to every subscriber
func (a *TallyAggregator) Refresh(ctx context.Context) (*domain.Results, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	results, err := a.Results(ctx)
	if err != nil {
		a.logger.WithError(err).Error("Tally refresh failed")
		return nil, err
	}

	for _, listener := range a.listeners() {
		a.emit(listener, results)
	}

	a.logger.WithFields(map[string]interface{}{
		"total_votes": results.TotalVotes,
		"candidates":  len(results.Items),
	}).Debug("Tally refreshed")

	return results, nil
}

// Subscribe registers listener for future refreshes. The returned function
// removes it and is safe to call more than once.
func (a *TallyAggregator) Subscribe(listener ResultsListener) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subscribers[id] = listener
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subscribers, id)
			a.mu.Unlock()
		})
	}
}

// SubscriberCount is exposed for health output
func (a *TallyAggregator) SubscriberCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.subscribers)
}

func (a *TallyAggregator) listeners() []ResultsListener {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]ResultsListener, 0, len(a.subscribers))
	for _, l := range a.subscribers {
		out = append(out, l)
	}
	return out
}

// emit isolates subscribers from each other; a panicking listener is logged
func (a *TallyAggregator) emit(listener ResultsListener, results *domain.Results) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithField("panic", r).Error("Results subscriber panicked")
		}
	}()
	listener(results)
}

// RefreshAsync runs Refresh on its own goroutine with a bounded timeout.
// Errors are logged by Refresh.
func (a *TallyAggregator) RefreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = a.Refresh(ctx)
	}()
}
