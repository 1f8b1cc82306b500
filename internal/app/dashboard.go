package app

import (
	"log/slog"

	"github.com/course-portal/portal/internal/courses"
	"github.com/course-portal/portal/internal/dashboard"
	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/logs"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/platform/cache"
	"github.com/course-portal/portal/internal/observability"
	"github.com/course-portal/portal/internal/roles"
	"github.com/course-portal/portal/internal/students"
	"github.com/course-portal/portal/internal/users"
	"github.com/course-portal/portal/internal/view"
)

// DashboardParams groups what the role dashboards and their screens need.
type DashboardParams struct {
	Logger     *slog.Logger
	API        backend.API
	StatsCache *cache.JSON
	Guard      *guard.Guard
	Responder  *view.Responder
	Metrics    *observability.Metrics
}

// NewDashboard builds every feature screen and mounts them behind the role dashboards.
func NewDashboard(p DashboardParams) *dashboard.Handler {
	stats := dashboard.NewStatsService(p.API, p.StatsCache, p.Metrics)

	screens := map[string]dashboard.Mounter{
		dashboard.ScreenUsers:    users.NewHandler(p.Logger, users.NewService(p.API, stats, p.Logger), p.Responder),
		dashboard.ScreenCourses:  courses.NewHandler(p.Logger, courses.NewService(p.API, stats, p.Logger), p.Responder, p.Guard),
		dashboard.ScreenStudents: students.NewHandler(p.Logger, students.NewService(p.API, stats, p.Logger), p.Responder, p.Guard),
		dashboard.ScreenRoles:    roles.NewHandler(p.Logger, roles.NewService(p.API), p.Responder, p.Guard),
		dashboard.ScreenLogs:     logs.NewHandler(p.Logger, logs.NewService(p.API), p.Responder),
	}
	return dashboard.NewHandler(p.Logger, p.Guard, stats, p.Responder, screens)
}
