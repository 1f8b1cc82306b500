package users

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

// Service handles user management through the API.
type Service struct {
	api    backend.API
	stats  Invalidator
	logger *slog.Logger
}

// NewService builds Service instance. stats may be nil.
func NewService(api backend.API, stats Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, stats: stats, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.api.Get(ctx, "/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser registers a user with the named role.
func (s *Service) CreateUser(ctx context.Context, in Input) error {
	if err := s.api.Post(ctx, "/users", in, nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpdateUser replaces a user's details. An empty password keeps the current one.
func (s *Service) UpdateUser(ctx context.Context, id string, in Input) error {
	return s.api.Put(ctx, "/users/"+url.PathEscape(id), in, nil)
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, "/users/"+url.PathEscape(id), nil); err != nil {
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
