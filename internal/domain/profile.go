package domain

import "time"

// Role is the authorization tier of a profile.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

// Normalize maps unknown or empty roles to the least privileged tier.
func (r Role) Normalize() Role {
	if r == RoleAdmin {
		return RoleAdmin
	}
	return RoleCitizen
}

// Profile is the identity record of a signed-in person.
type Profile struct {
	ID          string
	Email       string
	Role        Role
	AadharHash  *string
	Blocked     bool
	SpamStrikes int
	HouseNo     *string
	ColonyName  *string
	Pincode     *string
	MapLink     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
