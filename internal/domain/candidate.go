package domain

import "time"

// Candidate represents an election candidate. Votes is a denormalized
// counter; the authoritative count always comes from scanning voters.
type Candidate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Class     *string   `json:"class,omitempty"`
	PhotoURL  *string   `json:"photo_url,omitempty"`
	Vision    *string   `json:"vision,omitempty"`
	Mission   *string   `json:"mission,omitempty"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CandidateInput is the admin payload for creating or editing a candidate
type CandidateInput struct {
	Name     string  `json:"name"`
	Class    *string `json:"class,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
	Vision   *string `json:"vision,omitempty"`
	Mission  *string `json:"mission,omitempty"`
}
