package domain

// Role is the fixed role hierarchy enforced by the gateway. Ranks form a
// strict total order; higher rank subsumes lower for coarse checks, while
// resource scoping is applied separately per role.
type Role string

const (
	RoleSysAdmin    Role = "sys_admin"
	RoleSchoolAdmin Role = "school_admin"
	RoleInstructor  Role = "instructor"
	RoleStudent     Role = "student"
)

var roleRanks = map[Role]int{
	RoleSysAdmin:    4,
	RoleSchoolAdmin: 3,
	RoleInstructor:  2,
	RoleStudent:     1,
}

// Rank returns the role's position in the hierarchy, or 0 for unknown roles
// so that malformed claims never outrank a declared requirement.
func (r Role) Rank() int {
	return roleRanks[r]
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Principal is the authenticated identity derived from a verified session
// token. It is constructed once per request and never mutated.
type Principal struct {
	UserID       uint
	Role         Role
	SchoolID     *uint
	StudentID    *uint
	InstructorID *uint
}
