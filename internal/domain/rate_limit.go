package domain

import "time"

// RateLimitInfo describes a client's position in the current ballot window
type RateLimitInfo struct {
	RequestCount int64         `json:"request_count"`
	Limit        int           `json:"limit"`
	RetryAfter   time.Duration `json:"-"`
	IsAllowed    bool          `json:"is_allowed"`
}
