package models

import "fmt"

// Role is the closed set of roles a user can hold. The profile document's
// role field is the canonical role; per-role marker collections are a
// denormalized index over it.
type Role string

const (
	RoleMaster Role = "master"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// KnownRoles enumerates every role collection the deleter and auditor must
// visit. Adding a role means adding one entry here.
var KnownRoles = []Role{RoleMaster, RoleAdmin, RoleViewer}

// ParseRole validates caller-supplied role input at the API boundary.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMaster, RoleAdmin, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	return string(r)
}

// Collection returns the document store collection holding the marker
// documents for this role.
func (r Role) Collection() string {
	return string(r)
}

// AtLeast reports whether r grants the privileges of required. Roles are
// strictly ordered: master > admin > viewer.
func (r Role) AtLeast(required Role) bool {
	return r.rank() >= required.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleMaster:
		return 3
	case RoleAdmin:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}
