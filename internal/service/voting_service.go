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

// VotingService is the entry point for ballots, tallies and statistics
type VotingService struct {
	repos      *repository.Repositories
	resolver   *IdentityResolver
	guard      *VoteGuard
	aggregator *TallyAggregator
	cache      *CacheService
	logger     *logger.Logger

	unsubscribe func()

	// Ballot-triggered refreshes collapse into one running and one queued
	requester     RefreshRequester
	pending       chan struct{}
	refreshWorker sync.Mutex
}

// RefreshRequester takes over ballot-triggered refreshes when it accepts them.
// *ChangeListener implements it.
type RefreshRequester interface {
	Request(reason string) bool
}

func NewVotingService(
	repos *repository.Repositories,
	guard *VoteGuard,
	aggregator *TallyAggregator,
	cache *CacheService,
	log *logger.Logger,
) *VotingService {
	s := &VotingService{
		repos:      repos,
		resolver:   NewIdentityResolver(repos.Voter),
		guard:      guard,
		aggregator: aggregator,
		cache:      cache,
		logger:     log.Named("voting"),
		pending:    make(chan struct{}, 1),
	}

	// Every refresh, whoever triggered it, lands in the cache and on the channel
	s.unsubscribe = aggregator.Subscribe(s.publishResults)
	return s
}

// Close detaches the service from the aggregator
func (s *VotingService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// SubmitBallot normalizes the identity and hands it to the vote guard. A
// recorded vote triggers an asynchronous tally refresh.
func (s *VotingService) SubmitBallot(ctx context.Context, req *domain.BallotRequest) (*domain.VoteResult, error) {
	if req == nil {
		return nil, apperrors.NewValidationError("Ballot is required", nil)
	}

	identity, err := NormalizeIdentity(req.Name, req.Class, req.Email)
	if err != nil {
		return nil, err
	}

	result, err := s.guard.CastVote(ctx, identity, req.CandidateID)
	if err != nil {
		return nil, err
	}

	if result.Status == domain.VoteStatusRecorded {
		s.scheduleRefresh()
	}

	return result, nil
}

// GetTally returns the compact per-candidate counts, highest first
func (s *VotingService) GetTally(ctx context.Context) ([]domain.TallyEntry, error) {
	results, err := s.GetResults(ctx)
	if err != nil {
		return nil, err
	}
	return results.Entries(), nil
}

// GetResults returns the ranked projection, served from cache when possible
func (s *VotingService) GetResults(ctx context.Context) (*domain.Results, error) {
	return s.cache.GetResultsWithCache(ctx, s.aggregator.Results)
}

// GetStats returns candidate and voter counts with participation
func (s *VotingService) GetStats(ctx context.Context) (*domain.ElectionStats, error) {
	return s.cache.GetStatsWithCache(ctx, func(ctx context.Context) (*domain.ElectionStats, error) {
		candidates, err := s.repos.Candidate.Count(ctx)
		if err != nil {
			return nil, apperrors.NewPersistenceError("Failed to count candidates", err)
		}

		total, voted, err := s.repos.Voter.Counts(ctx)
		if err != nil {
			return nil, apperrors.NewPersistenceError("Failed to count voters", err)
		}

		return BuildStats(candidates, total, voted), nil
	})
}

// VoterStatus tells whether an identity has already voted
func (s *VotingService) VoterStatus(ctx context.Context, name, class string) (*domain.VoterStatus, error) {
	resolved, err := s.resolver.Resolve(ctx, name, class, nil)
	if err != nil {
		return nil, err
	}

	return &domain.VoterStatus{
		Name:     resolved.Identity.Name,
		Class:    resolved.Identity.Class,
		Exists:   resolved.Exists,
		HasVoted: resolved.Voter.HasVoted,
		VotedAt:  resolved.Voter.VotedAt,
	}, nil
}

// ResyncTally overwrites the advisory candidate counters with the scanned
// tally and emits fresh results.
func (s *VotingService) ResyncTally(ctx context.Context) (*domain.Results, error) {
	tally, err := s.aggregator.ComputeTally(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Candidate.SyncVotes(ctx, tally); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to sync candidate counters", err)
	}

	s.logger.WithField("total_votes", tally.Total()).Info("Advisory vote counters resynced")
	return s.aggregator.Refresh(ctx)
}

// Subscribe forwards to the aggregator; used by the results stream
func (s *VotingService) Subscribe(listener ResultsListener) func() {
	return s.aggregator.Subscribe(listener)
}

// Refresh recomputes and emits results on demand
func (s *VotingService) Refresh(ctx context.Context) (*domain.Results, error) {
	return s.aggregator.Refresh(ctx)
}

// SetRefreshRequester routes ballot-triggered refreshes through r, so a
// NOTIFY for the same write does not cause a second refresh. Call before serving.
func (s *VotingService) SetRefreshRequester(r RefreshRequester) {
	s.requester = r
}

func (s *VotingService) scheduleRefresh() {
	if s.requester != nil && s.requester.Request("ballot") {
		return
	}

	select {
	case s.pending <- struct{}{}:
	default:
		// The queued refresh has not started and will see this vote
		return
	}
	go s.runPendingRefresh()
}

func (s *VotingService) runPendingRefresh() {
	s.refreshWorker.Lock()
	defer s.refreshWorker.Unlock()

	select {
	case <-s.pending:
	default:
		return
	}
	s.refreshAsync()
}

func (s *VotingService) refreshAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.cache.InvalidateStats(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate stats cache")
	}
	if _, err := s.aggregator.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Tally refresh after vote failed")
	}
}

// publishResults runs on the refreshing goroutine
func (s *VotingService) publishResults(results *domain.Results) {
	if !s.cache.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.cache.StoreResults(ctx, results); err != nil {
		s.logger.WithError(err).Warn("Failed to cache results")
	}
	if err := s.cache.PublishResults(ctx, results); err != nil {
		s.logger.WithError(err).Warn("Failed to publish results")
	}
}
