package service

import (
	"context"
	"errors"
	"strings"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

type CandidateService struct {
	candidates repository.CandidateRepository
	aggregator *TallyAggregator
	cache      *CacheService
	logger     *logger.Logger
}

func NewCandidateService(candidates repository.CandidateRepository, aggregator *TallyAggregator, cache *CacheService, log *logger.Logger) *CandidateService {
	return &CandidateService{
		candidates: candidates,
		aggregator: aggregator,
		cache:      cache,
		logger:     log.Named("candidates"),
	}
}

func (s *CandidateService) List(ctx context.Context) ([]domain.Candidate, error) {
	candidates, err := s.cache.GetCandidatesWithCache(ctx, s.candidates.List)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to list candidates", err)
	}
	return candidates, nil
}

func (s *CandidateService) Get(ctx context.Context, id int64) (*domain.Candidate, error) {
	candidate, err := s.cache.GetCandidateWithCache(ctx, id, s.candidates.GetByID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to get candidate", err)
	}
	if candidate == nil {
		return nil, apperrors.NewNotFoundError("Candidate not found")
	}
	return candidate, nil
}

func (s *CandidateService) Create(ctx context.Context, input domain.CandidateInput) (*domain.Candidate, error) {
	input, err := normalizeCandidateInput(input)
	if err != nil {
		return nil, err
	}

	candidate, err := s.candidates.Create(ctx, input)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to create candidate", err)
	}

	s.logger.WithField("candidate_id", candidate.ID).Info("Candidate created")
	s.changed(candidate.ID)
	return candidate, nil
}

func (s *CandidateService) Update(ctx context.Context, id int64, input domain.CandidateInput) (*domain.Candidate, error) {
	input, err := normalizeCandidateInput(input)
	if err != nil {
		return nil, err
	}

	candidate, err := s.candidates.Update(ctx, id, input)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Candidate not found")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to update candidate", err)
	}

	s.logger.WithField("candidate_id", id).Info("Candidate updated")
	s.changed(id)
	return candidate, nil
}

// Delete removes the candidate. Votes already cast for it stay on the voter
// rows and show up as orphans in the results.
func (s *CandidateService) Delete(ctx context.Context, id int64) error {
	err := s.candidates.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("Candidate not found")
	}
	if err != nil {
		return apperrors.NewPersistenceError("Failed to delete candidate", err)
	}

	s.logger.WithField("candidate_id", id).Info("Candidate deleted")
	s.changed(id)
	return nil
}

func (s *CandidateService) changed(id int64) {
	s.cache.InvalidateCandidateCaches(id)
	s.aggregator.RefreshAsync()
}

func normalizeCandidateInput(in domain.CandidateInput) (domain.CandidateInput, error) {
	in.Name = collapseSpaces(in.Name)
	if in.Name == "" {
		return in, apperrors.NewValidationError("Candidate name is required", map[string]interface{}{"field": "name"})
	}
	in.Class = trimOptional(in.Class)
	in.PhotoURL = trimOptional(in.PhotoURL)
	in.Vision = trimOptional(in.Vision)
	in.Mission = trimOptional(in.Mission)
	return in, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
