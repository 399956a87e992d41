package domain

// Role is a member's standing in the league.
type Role string

const (
	// RolePending members have signed up but are not yet approved.
	RolePending Role = "pending"
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
)

// Roles lists every role a session may carry.
func Roles() []string {
	return []string{string(RolePending), string(RoleMember), string(RoleAdmin)}
}

// ParseRole maps a stored value onto a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePending, RoleMember, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Approved reports whether the role grants access to member features.
func (r Role) Approved() bool {
	return r == RoleMember || r == RoleAdmin
}
