package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
)

// Service wraps the login exchange with the API and the session audit trail.
type Service struct {
	api    backend.API
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service. repo may be nil when no database is configured.
func NewService(api backend.API, repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, repo: repo, logger: logger}
}

// Authenticate exchanges credentials for an identity and bearer token.
// API rejections keep their *backend.Error so the server message reaches the form.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Result, error) {
	var resp loginResponse
	if err := s.api.Post(ctx, "/auth/login", creds, &resp); err != nil {
		var apiErr *backend.Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return Result{}, errors.Join(shared.ErrInvalidCredentials, err)
		}
		return Result{}, err
	}
	result, err := DecodeLogin(resp)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// RegisterSession records a login for audit. Failures are logged and never block login.
func (s *Service) RegisterSession(ctx context.Context, sessionID string, identity rbac.Identity, ttl time.Duration, ip, ua string) {
	if s.repo == nil || sessionID == "" {
		return
	}
	now := time.Now().UTC()
	record := SessionRecord{
		ID:        sessionID,
		UserID:    identity.ID,
		Role:      identity.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IP:        ip,
		UserAgent: ua,
	}
	if err := s.repo.RecordLogin(ctx, record); err != nil {
		s.logger.Warn("register session", slog.String("session", sessionID), slog.Any("error", err))
	}
}

// EndSession marks the audit record of a session as ended.
func (s *Service) EndSession(ctx context.Context, sessionID string) {
	if s.repo == nil || sessionID == "" {
		return
	}
	if err := s.repo.EndSession(ctx, sessionID, time.Now().UTC()); err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("end session", slog.String("session", sessionID), slog.Any("error", err))
	}
}

// PruneExpired removes audit rows that expired before cutoff.
func (s *Service) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	n, err := s.repo.PruneExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auth: prune sessions: %w", err)
	}
	return n, nil
}
