package roles

import (
	"context"
	"net/url"

	"github.com/course-portal/portal/internal/platform/backend"
)

// Service handles role permission management through the API.
type Service struct {
	api backend.API
}

// NewService builds Service instance.
func NewService(api backend.API) *Service {
	return &Service{api: api}
}

// ListRoles returns all roles with their permissions.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	if err := s.api.Get(ctx, "/roles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPermissions returns every grantable permission.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	if err := s.api.Get(ctx, "/roles/permissions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePermissions replaces the permission set of the named role.
func (s *Service) UpdatePermissions(ctx context.Context, roleName string, permissionIDs []string) error {
	if permissionIDs == nil {
		permissionIDs = []string{}
	}
	return s.api.Put(ctx, "/roles/"+url.PathEscape(roleName), updateRequest{Permissions: permissionIDs}, nil)
}
