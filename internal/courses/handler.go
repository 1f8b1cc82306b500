package courses

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
)

// Handler serves the course screen.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guard     *guard.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, g *guard.Guard) *Handler {
	return &Handler{logger: logger, service: service, responder: responder, guard: g, validator: validator.New()}
}

// MountRoutes registers course routes relative to the screen root.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleCourse, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleCourse, rbac.ActionUpdate))
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleCourse, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleCourse, rbac.ActionEnroll))
		r.Post("/{id}/enroll", h.enroll)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, PageView{Errors: map[string]string{}}, r.URL.Query().Get("edit"))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseForm(w, r, "")
	if !ok {
		return
	}
	if err := h.service.Create(r.Context(), in); err != nil {
		h.fail(w, r, err, "Failed to process course")
		return
	}
	h.back(w, r, view.FlashSuccess, "Course created!")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := h.parseForm(w, r, id)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, in); err != nil {
		h.fail(w, r, err, "Failed to process course")
		return
	}
	h.back(w, r, view.FlashSuccess, "Course updated!")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete course")
		return
	}
	h.back(w, r, view.FlashSuccess, "Course deleted!")
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Enroll(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Enrollment failed")
		return
	}
	h.back(w, r, view.FlashSuccess, "Enrolled successfully!")
}

// parseForm validates the submitted course. On failure it re-renders the
// screen with the submitted values and reports false.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, editID string) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	in := Input{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Duration:    strings.TrimSpace(r.PostFormValue("duration")),
	}
	if err := h.validator.Struct(in); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, PageView{Form: in, Errors: shared.FieldErrors(err)}, editID)
		return Input{}, false
	}
	return in, true
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, data PageView, editID string) {
	courses, err := h.service.List(r.Context())
	if err != nil {
		if h.responder.Abort(w, r, err) {
			return
		}
		h.logger.Warn("list courses", slog.Any("error", err))
		h.responder.Flash(r, view.FlashError, backend.Message(err, "Failed to fetch courses"))
	}
	data.Courses = courses
	if editID != "" {
		for i := range courses {
			if courses[i].ID != editID {
				continue
			}
			data.Editing = &courses[i]
			if status == http.StatusOK {
				data.Form = Input{Title: courses[i].Title, Description: courses[i].Description, Duration: courses[i].Duration}
			}
			break
		}
	}
	h.responder.Render(w, r, status, "pages/courses.html", "Courses", data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if h.responder.Abort(w, r, err) {
		return
	}
	h.logger.Warn("course mutation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.back(w, r, view.FlashError, backend.Message(err, fallback))
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request, kind, message string) {
	h.responder.Redirect(w, r, screenRoot(r), kind, message)
}

func screenRoot(r *http.Request) string {
	if base := shared.BasePathFromContext(r.Context()); base != "" {
		return base
	}
	return "/"
}
