// Package memory is an in-process implementation of the repositories, used
// for demo mode and service tests. A single mutex guards all tables so the
// vote compare-and-set is atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
)

type identityKey struct {
	name  string
	class string
}

type Store struct {
	mu sync.RWMutex

	voters          map[int64]domain.Voter
	voterByIdentity map[identityKey]int64
	candidates      map[int64]domain.Candidate
	elections       []domain.ElectionSettings

	sequence int64
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		voters:          make(map[int64]domain.Voter),
		voterByIdentity: make(map[identityKey]int64),
		candidates:      make(map[int64]domain.Candidate),
		now:             time.Now,
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Voter:     &voterStore{s},
		Candidate: &candidateStore{s},
		Election:  &electionStore{s},
	}
}

func (s *Store) nextID() int64 {
	s.sequence++
	return s.sequence
}

type voterStore struct{ s *Store }

func (v *voterStore) GetByIdentity(_ context.Context, name, class string) (*domain.Voter, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	id, ok := v.s.voterByIdentity[identityKey{name, class}]
	if !ok {
		return nil, nil
	}
	voter := v.s.voters[id]
	return &voter, nil
}

func (v *voterStore) GetByID(_ context.Context, id int64) (*domain.Voter, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	voter, ok := v.s.voters[id]
	if !ok {
		return nil, nil
	}
	return &voter, nil
}

func (v *voterStore) CastVote(_ context.Context, p domain.CastVoteParams) (int64, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	key := identityKey{p.Identity.Name, p.Identity.Class}
	now := v.s.now()
	votedAt := p.VotedAt
	candidateID := p.CandidateID

	if id, ok := v.s.voterByIdentity[key]; ok {
		voter := v.s.voters[id]
		if voter.HasVoted {
			return 0, false, nil
		}
		voter.HasVoted = true
		voter.VotedFor = &candidateID
		voter.VotedAt = &votedAt
		if p.Identity.Email != nil {
			email := *p.Identity.Email
			voter.Email = &email
		}
		voter.UpdatedAt = now
		v.s.voters[id] = voter
		return id, true, nil
	}

	voter := domain.Voter{
		ID:        v.s.nextID(),
		Name:      p.Identity.Name,
		Class:     p.Identity.Class,
		HasVoted:  true,
		VotedFor:  &candidateID,
		VotedAt:   &votedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Identity.Email != nil {
		email := *p.Identity.Email
		voter.Email = &email
	}
	v.s.voters[voter.ID] = voter
	v.s.voterByIdentity[key] = voter.ID
	return voter.ID, true, nil
}

func (v *voterStore) ListVotedFor(_ context.Context) ([]int64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	ids := make([]int64, 0, len(v.s.voters))
	for _, voter := range v.s.voters {
		if voter.HasVoted && voter.VotedFor != nil {
			ids = append(ids, *voter.VotedFor)
		}
	}
	return ids, nil
}

func (v *voterStore) List(_ context.Context, q domain.VoterListQuery) ([]domain.VoterListItem, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	items := make([]domain.VoterListItem, 0, len(v.s.voters))
	for _, voter := range v.s.voters {
		switch q.Filter {
		case domain.VoterFilterVoted:
			if !voter.HasVoted {
				continue
			}
		case domain.VoterFilterNotVoted:
			if voter.HasVoted {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(voter.Name), search) &&
			!strings.Contains(strings.ToLower(voter.Class), search) {
			continue
		}

		item := domain.VoterListItem{Voter: voter}
		if voter.VotedFor != nil {
			if c, ok := v.s.candidates[*voter.VotedFor]; ok {
				item.VotedForName = c.Name
			}
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.VotedAt != nil && b.VotedAt == nil:
			return true
		case a.VotedAt == nil && b.VotedAt != nil:
			return false
		case a.VotedAt != nil && !a.VotedAt.Equal(*b.VotedAt):
			return a.VotedAt.After(*b.VotedAt)
		case a.Name != b.Name:
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return items, nil
}

func (v *voterStore) Delete(_ context.Context, id int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	voter, ok := v.s.voters[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(v.s.voters, id)
	delete(v.s.voterByIdentity, identityKey{voter.Name, voter.Class})
	return nil
}

func (v *voterStore) Counts(_ context.Context) (int, int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	voted := 0
	for _, voter := range v.s.voters {
		if voter.HasVoted {
			voted++
		}
	}
	return len(v.s.voters), voted, nil
}

type candidateStore struct{ s *Store }

func (c *candidateStore) List(_ context.Context) ([]domain.Candidate, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	list := make([]domain.Candidate, 0, len(c.s.candidates))
	for _, candidate := range c.s.candidates {
		list = append(list, candidate)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (c *candidateStore) GetByID(_ context.Context, id int64) (*domain.Candidate, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	candidate, ok := c.s.candidates[id]
	if !ok {
		return nil, nil
	}
	return &candidate, nil
}

func (c *candidateStore) Create(_ context.Context, in domain.CandidateInput) (*domain.Candidate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	now := c.s.now()
	candidate := domain.Candidate{
		ID:        c.s.nextID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyCandidateInput(&candidate, in)
	c.s.candidates[candidate.ID] = candidate
	return &candidate, nil
}

func (c *candidateStore) Update(_ context.Context, id int64, in domain.CandidateInput) (*domain.Candidate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	candidate, ok := c.s.candidates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	applyCandidateInput(&candidate, in)
	candidate.UpdatedAt = c.s.now()
	c.s.candidates[id] = candidate
	return &candidate, nil
}

func applyCandidateInput(c *domain.Candidate, in domain.CandidateInput) {
	c.Name = in.Name
	c.Class = in.Class
	c.PhotoURL = in.PhotoURL
	c.Vision = in.Vision
	c.Mission = in.Mission
}

func (c *candidateStore) Delete(_ context.Context, id int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.candidates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(c.s.candidates, id)
	return nil
}

func (c *candidateStore) IncrementVotes(_ context.Context, id int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	candidate, ok := c.s.candidates[id]
	if !ok {
		return repository.ErrNotFound
	}
	candidate.Votes++
	c.s.candidates[id] = candidate
	return nil
}

func (c *candidateStore) SyncVotes(_ context.Context, tally domain.Tally) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for id, candidate := range c.s.candidates {
		candidate.Votes = tally[id]
		c.s.candidates[id] = candidate
	}
	return nil
}

func (c *candidateStore) Count(_ context.Context) (int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return len(c.s.candidates), nil
}

type electionStore struct{ s *Store }

func (e *electionStore) Current(_ context.Context) (*domain.ElectionSettings, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	if len(e.s.elections) == 0 {
		return nil, nil
	}
	current := e.s.elections[len(e.s.elections)-1]
	return &current, nil
}

func (e *electionStore) Create(_ context.Context, in domain.ElectionSettingsInput) (*domain.ElectionSettings, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	now := e.s.now()
	settings := domain.ElectionSettings{
		ID:           e.s.nextID(),
		ElectionName: in.ElectionName,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		IsActive:     in.IsActive,
		AllowVoting:  in.AllowVoting,
		Announcement: in.Announcement,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	e.s.elections = append(e.s.elections, settings)
	return &settings, nil
}
