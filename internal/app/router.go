package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/course-portal/portal/internal/auth"
	"github.com/course-portal/portal/internal/dashboard"
	"github.com/course-portal/portal/internal/observability"
	"github.com/course-portal/portal/internal/platform/httpx"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
	"github.com/course-portal/portal/jobs"
	"github.com/course-portal/portal/web"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(r *http.Request) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Responder        *view.Responder
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	Health           map[string]HealthCheck
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params.Logger, params.Health))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		home := ""
		if user := shared.SessionFromContext(r.Context()).CurrentUser(); user != nil {
			home = user.Role.Home()
		}
		params.Responder.Render(w, r, http.StatusOK, "pages/home.html", "Welcome", home)
	})

	params.AuthHandler.MountRoutes(r)
	params.DashboardHandler.MountRoutes(r)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.NotFound(params.Responder.NotFound)
	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, check := range checks {
			if err := check(r); err != nil {
				logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, httpx.Health{Status: "degraded", Failing: name})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, httpx.Health{Status: "ok"})
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
