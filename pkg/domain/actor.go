package domain

import dErrors "suvidha/pkg/domain-errors"

// Role is the privilege level of an authenticated actor.
// Invariant: the value must be one of the supported roles.
type Role string

const (
	RoleCitizen    Role = "CITIZEN"
	RoleOfficer    Role = "OFFICER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// roleRank is the single source of truth for role ordering.
var roleRank = map[Role]int{
	RoleCitizen:    0,
	RoleOfficer:    1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether the role is one of the supported roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role holds at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

// Actor is the authenticated identity performing an operation. For officers,
// ID is the officer code; for administrators it is the admin account ID.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsZero() bool {
	return a.ID == "" && a.Role == ""
}
