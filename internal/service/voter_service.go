package service

import (
	"context"
	"errors"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

// VoterService backs the committee's voter list
type VoterService struct {
	voters     repository.VoterRepository
	aggregator *TallyAggregator
	cache      *CacheService
	logger     *logger.Logger
}

func NewVoterService(voters repository.VoterRepository, aggregator *TallyAggregator, cache *CacheService, log *logger.Logger) *VoterService {
	return &VoterService{
		voters:     voters,
		aggregator: aggregator,
		cache:      cache,
		logger:     log.Named("voters"),
	}
}

func (s *VoterService) List(ctx context.Context, query domain.VoterListQuery) ([]domain.VoterListItem, error) {
	if query.Filter == "" {
		query.Filter = domain.VoterFilterAll
	}
	if !query.Filter.Valid() {
		return nil, apperrors.NewValidationError("Invalid filter", map[string]interface{}{
			"filter":  query.Filter,
			"allowed": []domain.VoterFilter{domain.VoterFilterAll, domain.VoterFilterVoted, domain.VoterFilterNotVoted},
		})
	}
	query.Search = collapseSpaces(query.Search)

	items, err := s.voters.List(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to list voters", err)
	}
	return items, nil
}

// Delete removes a voter row, vote included. This is an administrative
// correction and bypasses the vote guard.
func (s *VoterService) Delete(ctx context.Context, id int64) error {
	err := s.voters.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("Voter not found")
	}
	if err != nil {
		return apperrors.NewPersistenceError("Failed to delete voter", err)
	}

	s.logger.WithField("voter_id", id).Warn("Voter deleted by administrator")

	if err := s.cache.InvalidateStats(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate stats cache")
	}
	s.aggregator.RefreshAsync()
	return nil
}
