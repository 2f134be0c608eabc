package domain

import "time"

// ElectionStatus is derived from the latest settings row and the clock
type ElectionStatus string

const (
	ElectionStatusNone     ElectionStatus = "none"
	ElectionStatusUpcoming ElectionStatus = "upcoming"
	ElectionStatusActive   ElectionStatus = "active"
	ElectionStatusEnded    ElectionStatus = "ended"
	ElectionStatusInactive ElectionStatus = "inactive"
)

// ElectionSettings is one voting period. The row with the highest id is current.
type ElectionSettings struct {
	ID           int64      `json:"id"`
	ElectionName *string    `json:"election_name,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `json:"is_active"`
	AllowVoting  bool       `json:"allow_voting"`
	Announcement *string    `json:"announcement,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StatusAt computes the election status at now. A missing start or end
// leaves that side of the window open.
func (s *ElectionSettings) StatusAt(now time.Time) ElectionStatus {
	if s == nil {
		return ElectionStatusNone
	}
	if !s.IsActive || !s.AllowVoting {
		return ElectionStatusInactive
	}
	if s.StartDate != nil && now.Before(*s.StartDate) {
		return ElectionStatusUpcoming
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return ElectionStatusEnded
	}
	return ElectionStatusActive
}

// ElectionInfo is returned by the public election endpoint
type ElectionInfo struct {
	Settings *ElectionSettings `json:"settings,omitempty"`
	Status   ElectionStatus    `json:"status"`
	Now      time.Time         `json:"now"`
}

// ElectionSettingsInput opens a new voting period
type ElectionSettingsInput struct {
	ElectionName *string    `json:"election_name,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `json:"is_active"`
	AllowVoting  bool       `json:"allow_voting"`
	Announcement *string    `json:"announcement,omitempty"`
}
