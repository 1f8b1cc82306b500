package roles

import "github.com/course-portal/portal/internal/rbac"

// Permission is a grantable permission record as served by the API.
type Permission struct {
	ID     string `json:"_id"`
	Module string `json:"module"`
	Action string `json:"action"`
}

// Key returns the canonical module.action form.
func (p Permission) Key() string {
	return rbac.Permission{Module: rbac.NormalizeModule(p.Module), Action: p.Action}.String()
}

// Role represents a role with its granted permissions.
type Role struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// PermissionIDs lists the ids of the role's permissions.
func (r Role) PermissionIDs() []string {
	ids := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

type updateRequest struct {
	Permissions []string `json:"permissions"`
}

// PageView feeds pages/roles.html.
type PageView struct {
	Roles       []Role
	Permissions []Permission
	Selected    *Role
	SelectedIDs []string
}
