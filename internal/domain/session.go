package domain

import "time"

// Identity is what the identity provider vouches for.
type Identity struct {
	ID    string
	Email string
}

// Session is a resolved, authorized caller.
type Session struct {
	Identity  Identity
	Role      Role
	Profile   *Profile
	Token     string
	ExpiresAt time.Time
}

// Blocked reports whether the profile behind the session was blocked.
func (s *Session) Blocked() bool {
	return s != nil && s.Profile != nil && s.Profile.Blocked
}

// IsAdmin reports whether the session carries the administrator tier.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
