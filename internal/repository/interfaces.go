package repository

import (
	"context"
	"errors"

	"pemilihan-be/internal/domain"
)

// ErrNotFound is returned by mutations that address a missing row.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// VoterRepository defines the interface for voter data operations
type VoterRepository interface {
	// GetByIdentity retrieves a voter by exact (name, class)
	GetByIdentity(ctx context.Context, name, class string) (*domain.Voter, error)

	// GetByID retrieves a voter by ID
	GetByID(ctx context.Context, id int64) (*domain.Voter, error)

	// CastVote upserts the voter and records the vote in one conditional
	// statement. recorded is false when the voter had already voted.
	CastVote(ctx context.Context, params domain.CastVoteParams) (voterID int64, recorded bool, err error)

	// ListVotedFor returns voted_for of every voter with has_voted = true
	ListVotedFor(ctx context.Context) ([]int64, error)

	// List returns voters for the admin list, newest votes first
	List(ctx context.Context, query domain.VoterListQuery) ([]domain.VoterListItem, error)

	// Delete removes a voter without any guard
	Delete(ctx context.Context, id int64) error

	// Counts returns the number of voters and how many of them have voted
	Counts(ctx context.Context) (total int, voted int, err error)
}

// CandidateRepository defines the interface for candidate data operations
type CandidateRepository interface {
	// List returns every candidate in creation order
	List(ctx context.Context) ([]domain.Candidate, error)

	// GetByID retrieves a candidate by ID
	GetByID(ctx context.Context, id int64) (*domain.Candidate, error)

	Create(ctx context.Context, input domain.CandidateInput) (*domain.Candidate, error)
	Update(ctx context.Context, id int64, input domain.CandidateInput) (*domain.Candidate, error)
	Delete(ctx context.Context, id int64) error

	// IncrementVotes bumps the advisory votes counter
	IncrementVotes(ctx context.Context, id int64) error

	// SyncVotes overwrites every advisory counter with the given tally
	SyncVotes(ctx context.Context, tally domain.Tally) error

	Count(ctx context.Context) (int, error)
}

// ElectionRepository defines the interface for election settings
type ElectionRepository interface {
	// Current returns the settings row with the highest id
	Current(ctx context.Context) (*domain.ElectionSettings, error)

	// Create appends a new settings row, which becomes current
	Create(ctx context.Context, input domain.ElectionSettingsInput) (*domain.ElectionSettings, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Voter     VoterRepository
	Candidate CandidateRepository
	Election  ElectionRepository
}
