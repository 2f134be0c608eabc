package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingVoters fails CastVote while delegating everything else
type failingVoters struct {
	repository.VoterRepository
}

func (f failingVoters) CastVote(context.Context, domain.CastVoteParams) (int64, bool, error) {
	return 0, false, errors.New("connection reset")
}

// racingVoters hides the winner from the first lookup, as if a concurrent
// ballot committed between the read and the conditional write
type racingVoters struct {
	repository.VoterRepository
	lookups int32
}

func (r *racingVoters) GetByIdentity(ctx context.Context, name, class string) (*domain.Voter, error) {
	if atomic.AddInt32(&r.lookups, 1) == 1 {
		return nil, nil
	}
	return r.VoterRepository.GetByIdentity(ctx, name, class)
}

func identity(name, class string) domain.VoterIdentity {
	return domain.VoterIdentity{Name: name, Class: class}
}

func TestVoteGuard_SecondBallotIsAlreadyVoted(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c := env.addCandidates(t, "Ahmad", "Bunga")

	first, err := env.guard.CastVote(ctx, identity("Budi", "X-1"), c[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteStatusRecorded, first.Status)
	assert.NotZero(t, first.VoterID)

	second, err := env.guard.CastVote(ctx, identity("Budi", "X-1"), c[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteStatusAlreadyVoted, second.Status)
	assert.Equal(t, first.VoterID, second.VoterID)
	assert.Zero(t, second.CandidateID)

	tally, err := env.aggregator.ComputeTally(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{c[0].ID: 1}, tally)

	voter, err := env.repos.Voter.GetByID(ctx, first.VoterID)
	require.NoError(t, err)
	assert.Equal(t, c[0].ID, *voter.VotedFor, "voted_for is immutable once set")
}

func TestVoteGuard_ConcurrentBallotsRecordOnce(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c := env.addCandidates(t, "Ahmad", "Bunga")

	const ballots = 40
	var wg sync.WaitGroup
	var recorded, already int32

	start := make(chan struct{})
	for i := 0; i < ballots; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			result, err := env.guard.CastVote(ctx, identity("Siti", "XI-A"), c[i%2].ID)
			if !assert.NoError(t, err) {
				return
			}
			switch result.Status {
			case domain.VoteStatusRecorded:
				atomic.AddInt32(&recorded, 1)
			case domain.VoteStatusAlreadyVoted:
				atomic.AddInt32(&already, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), recorded)
	assert.Equal(t, int32(ballots-1), already)

	tally, err := env.aggregator.ComputeTally(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Total())
}

func TestVoteGuard_LostRaceReportsWinner(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c := env.addCandidates(t, "Ahmad")

	winner, err := env.guard.CastVote(ctx, identity("Rina", "XII"), c[0].ID)
	require.NoError(t, err)

	racing := &racingVoters{VoterRepository: env.repos.Voter}
	guard := NewVoteGuard(&repository.Repositories{
		Voter:     racing,
		Candidate: env.repos.Candidate,
		Election:  env.repos.Election,
	}, false, logger.NewNop())

	result, err := guard.CastVote(ctx, identity("Rina", "XII"), c[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteStatusAlreadyVoted, result.Status)
	assert.Equal(t, winner.VoterID, result.VoterID)
	assert.Equal(t, int32(2), racing.lookups)
}

func TestVoteGuard_Validation(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.addCandidates(t, "Ahmad")

	_, err := env.guard.CastVote(ctx, identity("Budi", "X-1"), 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = env.guard.CastVote(ctx, identity("Budi", "X-1"), 9999)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	total, _, err := env.repos.Voter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestVoteGuard_PersistenceError(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c := env.addCandidates(t, "Ahmad")

	guard := NewVoteGuard(&repository.Repositories{
		Voter:     failingVoters{env.repos.Voter},
		Candidate: env.repos.Candidate,
		Election:  env.repos.Election,
	}, false, logger.NewNop())

	_, err := guard.CastVote(ctx, identity("Budi", "X-1"), c[0].ID)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrorTypePersistence, appErr.Type)
	assert.Equal(t, 503, appErr.StatusCode)

	voter, err := env.repos.Voter.GetByIdentity(ctx, "Budi", "X-1")
	require.NoError(t, err)
	assert.Nil(t, voter, "no partial write")
}

func TestVoteGuard_IncrementsAdvisoryCounter(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c := env.addCandidates(t, "Ahmad")

	_, err := env.guard.CastVote(ctx, identity("Budi", "X-1"), c[0].ID)
	require.NoError(t, err)
	_, err = env.guard.CastVote(ctx, identity("Budi", "X-1"), c[0].ID)
	require.NoError(t, err)

	got, err := env.repos.Candidate.GetByID(ctx, c[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Votes)
}

func TestVoteGuard_ElectionWindow(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		enforce       bool
		settings      *domain.ElectionSettingsInput
		expectClosed  bool
		expectedState domain.ElectionStatus
	}{
		{
			name:    "No settings row leaves voting open",
			enforce: true,
		},
		{
			name:    "Active period",
			enforce: true,
			settings: &domain.ElectionSettingsInput{
				StartDate: timePtr(now.Add(-time.Hour)), EndDate: timePtr(now.Add(time.Hour)),
				IsActive: true, AllowVoting: true,
			},
		},
		{
			name:    "Not started yet",
			enforce: true,
			settings: &domain.ElectionSettingsInput{
				StartDate: timePtr(now.Add(time.Hour)), IsActive: true, AllowVoting: true,
			},
			expectClosed:  true,
			expectedState: domain.ElectionStatusUpcoming,
		},
		{
			name:    "Already ended",
			enforce: true,
			settings: &domain.ElectionSettingsInput{
				EndDate: timePtr(now.Add(-time.Minute)), IsActive: true, AllowVoting: true,
			},
			expectClosed:  true,
			expectedState: domain.ElectionStatusEnded,
		},
		{
			name:          "Voting disabled",
			enforce:       true,
			settings:      &domain.ElectionSettingsInput{IsActive: true, AllowVoting: false},
			expectClosed:  true,
			expectedState: domain.ElectionStatusInactive,
		},
		{
			name:     "Window not enforced",
			enforce:  false,
			settings: &domain.ElectionSettingsInput{IsActive: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.enforce)
			env.guard.now = func() time.Time { return now }
			ctx := context.Background()
			c := env.addCandidates(t, "Ahmad")

			if tt.settings != nil {
				_, err := env.repos.Election.Create(ctx, *tt.settings)
				require.NoError(t, err)
			}

			result, err := env.guard.CastVote(ctx, identity("Budi", "X-1"), c[0].ID)
			if tt.expectClosed {
				require.Error(t, err)
				appErr := apperrors.AsAppError(err)
				assert.Equal(t, apperrors.ErrorTypeElectionClosed, appErr.Type)
				assert.Equal(t, tt.expectedState, appErr.Details["status"])
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.VoteStatusRecorded, result.Status)
		})
	}
}
