package service

import (
	"context"
	"testing"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	"pemilihan-be/internal/repository/memory"
	"pemilihan-be/pkg/logger"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	repos      *repository.Repositories
	guard      *VoteGuard
	aggregator *TallyAggregator
	voting     *VotingService
}

func newTestEnv(t *testing.T, enforceWindow bool) *testEnv {
	t.Helper()

	log := logger.NewNop()
	repos := memory.NewStore().Repositories()
	guard := NewVoteGuard(repos, enforceWindow, log)
	aggregator := NewTallyAggregator(repos.Voter, repos.Candidate, log)
	voting := NewVotingService(repos, guard, aggregator, NewCacheService(nil, nil, 0), log)
	t.Cleanup(voting.Close)

	return &testEnv{repos: repos, guard: guard, aggregator: aggregator, voting: voting}
}

func (e *testEnv) addCandidates(t *testing.T, names ...string) []domain.Candidate {
	t.Helper()

	out := make([]domain.Candidate, 0, len(names))
	for _, name := range names {
		c, err := e.repos.Candidate.Create(context.Background(), domain.CandidateInput{Name: name})
		require.NoError(t, err)
		out = append(out, *c)
	}
	return out
}

func (e *testEnv) vote(t *testing.T, name, class string, candidateID int64) *domain.VoteResult {
	t.Helper()

	result, err := e.voting.SubmitBallot(context.Background(), &domain.BallotRequest{
		Name:        name,
		Class:       class,
		CandidateID: candidateID,
	})
	require.NoError(t, err)
	return result
}

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }
