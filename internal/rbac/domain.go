package rbac

import (
	"errors"
	"strings"
)

// Role represents the dashboard area a user is allowed into.
type Role string

// Known roles. The set is closed; anything else fails ParseRole.
const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleTelecaller Role = "Telecaller"
	RoleStudent    Role = "Student"
)

var allRoles = []Role{RoleAdmin, RoleManager, RoleTelecaller, RoleStudent}

// Roles returns every known role in navigation order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole maps a server supplied role name onto a Role. Matching is exact.
func ParseRole(name string) (Role, bool) {
	for _, r := range allRoles {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Slug returns the lowercase path segment used for the role's dashboard and stats endpoint.
func (r Role) Slug() string {
	return strings.ToLower(string(r))
}

// Home returns the dashboard root for the role.
func (r Role) Home() string {
	if !r.Valid() {
		return "/"
	}
	return "/" + r.Slug()
}

// In reports whether r is a member of roles.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Identity describes the authenticated actor as returned by the portal API.
type Identity struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

// ErrInvalidIdentity is returned when an identity misses required fields.
var ErrInvalidIdentity = errors.New("rbac: invalid identity")

// Validate checks the fields the rest of the dashboard relies on.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.Join(ErrInvalidIdentity, errors.New("id is empty"))
	}
	if !i.Role.Valid() {
		return errors.Join(ErrInvalidIdentity, errors.New("unknown role "+string(i.Role)))
	}
	return nil
}

// Can reports whether the identity was granted action on module.
func (i *Identity) Can(module, action string) bool {
	if i == nil {
		return false
	}
	return HasPermission(i.Permissions, module, action)
}

// Clone returns a deep copy so callers cannot mutate shared permission slices.
func (i Identity) Clone() Identity {
	out := i
	if i.Permissions != nil {
		out.Permissions = make([]Permission, len(i.Permissions))
		copy(out.Permissions, i.Permissions)
	}
	return out
}
