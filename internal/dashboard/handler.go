package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
)

const statsErrorMessage = "Failed to load dashboard stats."

// Mounter is implemented by every feature screen handler.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// Handler serves the four role dashboards.
type Handler struct {
	logger    *slog.Logger
	guard     *guard.Guard
	stats     *StatsService
	responder *view.Responder
	screens   map[string]http.Handler
}

// RootView feeds pages/dashboard.html.
type RootView struct {
	Name  string
	Cards []Card
	Error string
}

// NewHandler builds Handler. screens is keyed by segment; each is mounted on
// its own router so its routes are relative to the screen.
func NewHandler(logger *slog.Logger, g *guard.Guard, stats *StatsService, responder *view.Responder, screens map[string]Mounter) *Handler {
	h := &Handler{logger: logger, guard: g, stats: stats, responder: responder, screens: make(map[string]http.Handler, len(screens))}
	for segment, screen := range screens {
		router := chi.NewRouter()
		router.NotFound(responder.NotFound)
		screen.MountRoutes(router)
		h.screens[segment] = router
	}
	return h
}

// MountRoutes registers /admin, /manager, /telecaller and /student, each behind
// the guard for its own role.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, role := range rbac.Roles() {
		r.Route(role.Home(), func(r chi.Router) {
			r.Use(h.guard.Require(role))
			r.Handle("/*", h.dispatch(role))
		})
	}
}

func (h *Handler) dispatch(role rbac.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc := Resolve(role, r.URL.Path)
		switch loc.Mode {
		case ModeRoot:
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Allow", "GET, HEAD")
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
			h.root(w, r)
		case ModeSubroute:
			screen, ok := h.screens[loc.Screen.Segment]
			if !ok {
				h.responder.NotFound(w, r)
				return
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				rctx.RoutePath = loc.Rest
			}
			ctx := shared.ContextWithBasePath(r.Context(), role.Home()+"/"+loc.Screen.Segment)
			screen.ServeHTTP(w, r.WithContext(ctx))
		default:
			h.responder.NotFound(w, r)
		}
	}
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	user := shared.SessionFromContext(r.Context()).CurrentUser()
	data := RootView{Name: user.Name}

	stats, err := h.stats.Load(r.Context(), user)
	switch {
	case err == nil:
		data.Cards = Cards(user.Role, stats)
	case h.responder.Abort(w, r, err):
		return
	default:
		h.logger.Warn("load dashboard stats", slog.String("role", string(user.Role)), slog.Any("error", err))
		data.Error = statsErrorMessage
	}
	h.responder.Render(w, r, http.StatusOK, "pages/dashboard.html", string(user.Role)+" Dashboard", data)
}
