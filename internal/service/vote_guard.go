package service

import (
	"context"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

// VoteGuard records at most one vote per voter identity
type VoteGuard struct {
	voters        repository.VoterRepository
	candidates    repository.CandidateRepository
	elections     repository.ElectionRepository
	enforceWindow bool
	logger        *logger.Logger
	now           func() time.Time
}

func NewVoteGuard(repos *repository.Repositories, enforceWindow bool, log *logger.Logger) *VoteGuard {
	return &VoteGuard{
		voters:        repos.Voter,
		candidates:    repos.Candidate,
		elections:     repos.Election,
		enforceWindow: enforceWindow,
		logger:        log.Named("vote_guard"),
		now:           time.Now,
	}
}

// CastVote records the vote for identity, or reports AlreadyVoted without
// touching the stored row. The write itself is a single conditional upsert;
// the read before it only short-circuits the common repeat case.
func (g *VoteGuard) CastVote(ctx context.Context, identity domain.VoterIdentity, candidateID int64) (*domain.VoteResult, error) {
	if candidateID <= 0 {
		return nil, apperrors.NewValidationError("Candidate is required", map[string]interface{}{"candidate_id": candidateID})
	}

	candidate, err := g.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to look up candidate", err)
	}
	if candidate == nil {
		return nil, apperrors.NewValidationError("Candidate not found", map[string]interface{}{"candidate_id": candidateID})
	}

	now := g.now()
	if g.enforceWindow {
		if err := g.checkWindow(ctx, now); err != nil {
			return nil, err
		}
	}

	existing, err := g.voters.GetByIdentity(ctx, identity.Name, identity.Class)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to look up voter", err)
	}
	if existing != nil && existing.HasVoted {
		return alreadyVoted(existing), nil
	}

	voterID, recorded, err := g.voters.CastVote(ctx, domain.CastVoteParams{
		Identity:    identity,
		CandidateID: candidateID,
		VotedAt:     now,
	})
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to record vote", err)
	}

	if !recorded {
		// Another ballot for the same identity won the race
		winner, err := g.voters.GetByIdentity(ctx, identity.Name, identity.Class)
		if err != nil {
			return nil, apperrors.NewPersistenceError("Failed to look up voter", err)
		}
		if winner == nil {
			return &domain.VoteResult{Status: domain.VoteStatusAlreadyVoted}, nil
		}
		return alreadyVoted(winner), nil
	}

	if err := g.candidates.IncrementVotes(ctx, candidateID); err != nil {
		g.logger.WithError(err).WithField("candidate_id", candidateID).Warn("Failed to increment advisory vote counter")
	}

	g.logger.WithFields(map[string]interface{}{
		"voter_id":     voterID,
		"candidate_id": candidateID,
	}).Info("Vote recorded")

	return &domain.VoteResult{
		Status:      domain.VoteStatusRecorded,
		VoterID:     voterID,
		CandidateID: candidateID,
		VotedAt:     &now,
	}, nil
}

// checkWindow rejects ballots outside the current election period. With no
// settings row there is no window and voting is open.
func (g *VoteGuard) checkWindow(ctx context.Context, now time.Time) error {
	settings, err := g.elections.Current(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("Failed to load election settings", err)
	}
	if settings == nil {
		return nil
	}

	if status := settings.StatusAt(now); status != domain.ElectionStatusActive {
		return apperrors.NewElectionClosedError("Voting is not open", map[string]interface{}{
			"status": status,
		})
	}
	return nil
}

func alreadyVoted(v *domain.Voter) *domain.VoteResult {
	// The earlier choice is not echoed back to whoever typed the name
	return &domain.VoteResult{
		Status:  domain.VoteStatusAlreadyVoted,
		VoterID: v.ID,
		VotedAt: v.VotedAt,
	}
}
