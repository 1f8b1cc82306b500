package students

import (
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
)

// Invalidator drops cached aggregates after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service wraps the student endpoints of the API.
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

// Listing is the result of Load. Each half carries its own error so one
// failing endpoint does not hide the other.
type Listing struct {
	Students    []Student
	StudentsErr error
	Courses     []CourseRef
	CoursesErr  error
}

// Load fetches students and courses concurrently.
func (s *Service) Load(ctx context.Context) Listing {
	var listing Listing
	var g errgroup.Group
	g.Go(func() error {
		listing.StudentsErr = s.api.Get(ctx, "/students", &listing.Students)
		return nil
	})
	g.Go(func() error {
		listing.CoursesErr = s.api.Get(ctx, "/courses", &listing.Courses)
		return nil
	})
	_ = g.Wait()
	return listing
}

// Create registers a student under the API's Student role.
func (s *Service) Create(ctx context.Context, in CreateInput) error {
	var roles []roleRef
	if err := s.api.Get(ctx, "/roles", &roles); err != nil {
		return err
	}
	in.RoleID = ""
	for _, role := range roles {
		if role.Name == string(rbac.RoleStudent) {
			in.RoleID = role.ID
			break
		}
	}
	if in.RoleID == "" {
		return ErrStudentRoleMissing
	}
	if in.EnrolledCourses == nil {
		in.EnrolledCourses = []string{}
	}
	if err := s.api.Post(ctx, "/students/create", in, nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// AssignCourses replaces a student's enrolments.
func (s *Service) AssignCourses(ctx context.Context, id string, courseIDs []string) error {
	if courseIDs == nil {
		courseIDs = []string{}
	}
	return s.api.Put(ctx, "/students/"+url.PathEscape(id), assignRequest{EnrolledCourses: courseIDs}, nil)
}

// Delete removes a student.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, "/students/"+url.PathEscape(id), nil); err != nil {
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
