package roles

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
)

// Handler manages role permission endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guard     *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, g *guard.Guard) *Handler {
	return &Handler{logger: logger, service: service, responder: responder, guard: g}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleRole, rbac.ActionUpdate))
		r.Post("/{name}", h.updatePermissions)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	var data PageView
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		if h.responder.Abort(w, r, err) {
			return
		}
		h.logger.Warn("list roles", slog.Any("error", err))
		h.responder.Flash(r, view.FlashError, backend.Message(err, "Failed to fetch roles"))
	}
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		if h.responder.Abort(w, r, err) {
			return
		}
		h.logger.Warn("list permissions", slog.Any("error", err))
		h.responder.Flash(r, view.FlashError, backend.Message(err, "Failed to fetch permissions"))
	}
	data.Roles = roles
	data.Permissions = perms

	user := shared.SessionFromContext(r.Context()).CurrentUser()
	if name := r.URL.Query().Get("role"); name != "" && user.Can(rbac.ModuleRole, rbac.ActionView) {
		for i := range roles {
			if roles[i].Name == name {
				data.Selected = &roles[i]
				data.SelectedIDs = roles[i].PermissionIDs()
				break
			}
		}
	}
	h.responder.Render(w, r, http.StatusOK, "pages/roles.html", "Roles", data)
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := chi.URLParam(r, "name")
	location := shared.BasePathFromContext(r.Context()) + "?role=" + url.QueryEscape(name)

	if err := h.service.UpdatePermissions(r.Context(), name, r.PostForm["permissions"]); err != nil {
		if h.responder.Abort(w, r, err) {
			return
		}
		h.logger.Warn("update role permissions", slog.String("role", name), slog.Any("error", err))
		h.responder.Redirect(w, r, location, view.FlashError, backend.Message(err, "Failed to update permissions"))
		return
	}
	h.responder.Redirect(w, r, location, view.FlashSuccess, "Permissions updated!")
}
