package domain

import "time"

// Tally maps candidate id to the number of voters whose recorded choice is
// that id. Orphaned ids (deleted candidates) are kept.
type Tally map[int64]int

// Total is the number of votes in the tally
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// VoteStatus is the outcome of a ballot. AlreadyVoted is not an error.
type VoteStatus string

const (
	VoteStatusRecorded     VoteStatus = "recorded"
	VoteStatusAlreadyVoted VoteStatus = "already_voted"
)

// VoteResult is returned by the vote guard
type VoteResult struct {
	Status      VoteStatus `json:"status"`
	VoterID     int64      `json:"voter_id"`
	CandidateID int64      `json:"candidate_id,omitempty"`
	VotedAt     *time.Time `json:"voted_at,omitempty"`
}

// BallotRequest is the submitBallot payload
type BallotRequest struct {
	Name        string  `json:"name"`
	Class       string  `json:"class"`
	CandidateID int64   `json:"candidate_id"`
	Email       *string `json:"email,omitempty"`
}

// ProjectedResult is one ranked row of the results
type ProjectedResult struct {
	CandidateID int64   `json:"candidate_id"`
	Name        string  `json:"name"`
	Class       *string `json:"class,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Votes       int     `json:"votes"`
	Percentage  int     `json:"percentage"`
	Rank        int     `json:"rank"`
	IsWinner    bool    `json:"is_winner"`
	Orphan      bool    `json:"orphan,omitempty"`
}

// TallyEntry is the compact getTally row
type TallyEntry struct {
	CandidateID int64 `json:"candidate_id"`
	Votes       int   `json:"votes"`
	Percentage  int   `json:"percentage"`
}

// Results is the full projection emitted to subscribers
type Results struct {
	Items       []ProjectedResult `json:"items"`
	TotalVotes  int               `json:"total_votes"`
	Winner      *ProjectedResult  `json:"winner,omitempty"`
	Orphans     int               `json:"orphans"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Entries converts results to the compact tally list, keeping the order
func (r *Results) Entries() []TallyEntry {
	entries := make([]TallyEntry, 0, len(r.Items))
	for _, item := range r.Items {
		entries = append(entries, TallyEntry{
			CandidateID: item.CandidateID,
			Votes:       item.Votes,
			Percentage:  item.Percentage,
		})
	}
	return entries
}

// ElectionStats feeds the dashboard cards
type ElectionStats struct {
	TotalCandidates      int       `json:"total_candidates"`
	TotalVoters          int       `json:"total_voters"`
	VotedCount           int       `json:"voted_count"`
	ParticipationPercent int       `json:"participation_percent"`
	GeneratedAt          time.Time `json:"generated_at"`
}
