package domain

import "time"

// Voter is a row of the voters table. The vote fields (HasVoted, VotedFor,
// VotedAt) are only ever written together by the vote guard.
type Voter struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Class     string     `json:"class"`
	Email     *string    `json:"email,omitempty"`
	HasVoted  bool       `json:"has_voted"`
	VotedAt   *time.Time `json:"voted_at,omitempty"`
	VotedFor  *int64     `json:"voted_for,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// VoterIdentity is the natural key of a voter after normalization
type VoterIdentity struct {
	Name  string  `json:"name"`
	Class string  `json:"class"`
	Email *string `json:"email,omitempty"`
}

// ResolvedVoter is the outcome of an identity lookup. Exists is false when
// Voter was built in memory and has not been stored yet.
type ResolvedVoter struct {
	Identity VoterIdentity `json:"identity"`
	Voter    Voter         `json:"voter"`
	Exists   bool          `json:"exists"`
}

// CastVoteParams is the write the vote guard hands to the store
type CastVoteParams struct {
	Identity    VoterIdentity
	CandidateID int64
	VotedAt     time.Time
}

// VoterFilter selects rows for the administrative voter list
type VoterFilter string

const (
	VoterFilterAll      VoterFilter = "all"
	VoterFilterVoted    VoterFilter = "voted"
	VoterFilterNotVoted VoterFilter = "not_voted"
)

// Valid reports whether f is a known filter
func (f VoterFilter) Valid() bool {
	switch f {
	case VoterFilterAll, VoterFilterVoted, VoterFilterNotVoted:
		return true
	}
	return false
}

// VoterListQuery is the input of the voter list
type VoterListQuery struct {
	Filter VoterFilter
	Search string
}

// VoterListItem is a voter row with the chosen candidate's name resolved
type VoterListItem struct {
	Voter
	VotedForName string `json:"voted_for_name,omitempty"`
}

// VoterStatus answers "has this identity voted"
type VoterStatus struct {
	Name     string     `json:"name"`
	Class    string     `json:"class"`
	Exists   bool       `json:"exists"`
	HasVoted bool       `json:"has_voted"`
	VotedAt  *time.Time `json:"voted_at,omitempty"`
}
