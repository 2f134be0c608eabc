package domain

// Role is the application role carried in Supabase metadata
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePanitia Role = "panitia"
	RoleMember  Role = "member"
)

// UserProfile is the authenticated caller extracted from a verified token
type UserProfile struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// IsStaff reports whether the user may manage the election
func (u *UserProfile) IsStaff() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RolePanitia)
}
