package courses

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/course-portal/portal/internal/platform/backend"
)

// Invalidator drops cached aggregates after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service wraps the course endpoints of the API.
type Service struct {
	api    backend.API
	stats  Invalidator
	logger *slog.Logger
}

// NewService constructs a new Service. stats may be nil.
func NewService(api backend.API, stats Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, stats: stats, logger: logger}
}

// List returns every course.
func (s *Service) List(ctx context.Context) ([]Course, error) {
	var out []Course
	if err := s.api.Get(ctx, "/courses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a course.
func (s *Service) Create(ctx context.Context, in Input) error {
	if err := s.api.Post(ctx, "/courses", in, nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Update replaces a course's fields.
func (s *Service) Update(ctx context.Context, id string, in Input) error {
	return s.api.Put(ctx, "/courses/"+url.PathEscape(id), in, nil)
}

// Delete removes a course.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, "/courses/"+url.PathEscape(id), nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Enroll enrolls the signed-in user in a course.
func (s *Service) Enroll(ctx context.Context, id string) error {
	if err := s.api.Post(ctx, "/courses/enroll", enrollRequest{CourseID: id}, nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate dashboard stats", slog.Any("error", err))
	}
}
