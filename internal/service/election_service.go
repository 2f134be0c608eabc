package service

import (
	"context"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

type ElectionService struct {
	elections repository.ElectionRepository
	logger    *logger.Logger
	now       func() time.Time
}

func NewElectionService(elections repository.ElectionRepository, log *logger.Logger) *ElectionService {
	return &ElectionService{
		elections: elections,
		logger:    log.Named("election"),
		now:       time.Now,
	}
}

// Info returns the current settings row and the status derived from it
func (s *ElectionService) Info(ctx context.Context) (*domain.ElectionInfo, error) {
	settings, err := s.elections.Current(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to load election settings", err)
	}

	now := s.now()
	return &domain.ElectionInfo{
		Settings: settings,
		Status:   settings.StatusAt(now),
		Now:      now,
	}, nil
}

// Open appends a new settings row, which replaces the current period
func (s *ElectionService) Open(ctx context.Context, input domain.ElectionSettingsInput) (*domain.ElectionSettings, error) {
	if input.StartDate != nil && input.EndDate != nil && !input.EndDate.After(*input.StartDate) {
		return nil, apperrors.NewValidationError("End date must be after start date", map[string]interface{}{
			"start_date": input.StartDate,
			"end_date":   input.EndDate,
		})
	}
	input.ElectionName = trimOptional(input.ElectionName)
	input.Announcement = trimOptional(input.Announcement)

	settings, err := s.elections.Create(ctx, input)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to save election settings", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"settings_id":  settings.ID,
		"is_active":    settings.IsActive,
		"allow_voting": settings.AllowVoting,
	}).Info("Election settings updated")
	return settings, nil
}
