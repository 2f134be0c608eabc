package service

import (
	"context"

	"pemilihan-be/internal/domain"
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	// ValidateToken verifies a Supabase access token and returns the caller
	ValidateToken(ctx context.Context, token string) (*domain.UserProfile, error)
}

// Services aggregates the services the HTTP layer depends on
type Services struct {
	Auth       AuthService
	Voting     *VotingService
	Candidates *CandidateService
	Voters     *VoterService
	Election   *ElectionService
	Aggregator *TallyAggregator
	Cache      *CacheService
	Limiter    *BallotLimiter
}
