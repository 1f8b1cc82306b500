package logs

import (
	"context"

	"github.com/course-portal/portal/internal/platform/backend"
)

// Service reads the activity log from the API.
type Service struct {
	api backend.API
}

// NewService builds Service instance.
func NewService(api backend.API) *Service {
	return &Service{api: api}
}

// List returns the log entries in the order the API sends them.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := s.api.Get(ctx, "/logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}
