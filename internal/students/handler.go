package students

import (
	"errors"
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

// Handler serves the student screen.
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

// MountRoutes registers student routes relative to the screen root.
func (h *Handler) MountRoutes(r chi.Router) {
	// The listing itself is not permission gated; the API decides what it returns.
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleStudent, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleCourse, rbac.ActionAssign))
		r.Post("/{id}/courses", h.assign)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(rbac.ModuleStudent, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	data := PageView{Errors: map[string]string{}}
	if user := shared.SessionFromContext(r.Context()).CurrentUser(); user.Can(rbac.ModuleCourse, rbac.ActionAssign) {
		data.Assigning = r.URL.Query().Get("assign")
	}
	h.renderPage(w, r, http.StatusOK, data)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := CreateInput{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		Address:  strings.TrimSpace(r.PostFormValue("address")),
	}
	// Course selection is only offered to users who can view courses.
	if user := shared.SessionFromContext(r.Context()).CurrentUser(); user.Can(rbac.ModuleCourse, rbac.ActionView) {
		in.EnrolledCourses = nonEmpty(r.PostForm["courses"])
	}
	if err := h.validator.Struct(in); err != nil {
		in.Password = ""
		h.renderPage(w, r, http.StatusBadRequest, PageView{Form: in, Errors: shared.FieldErrors(err)})
		return
	}
	if err := h.service.Create(r.Context(), in); err != nil {
		if errors.Is(err, ErrStudentRoleMissing) {
			h.logger.Error("create student", slog.Any("error", err))
		}
		h.fail(w, r, err, "Failed to create student")
		return
	}
	h.back(w, r, view.FlashSuccess, "Student created!")
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.service.AssignCourses(r.Context(), chi.URLParam(r, "id"), nonEmpty(r.PostForm["courses"])); err != nil {
		h.fail(w, r, err, "Failed to update courses")
		return
	}
	h.back(w, r, view.FlashSuccess, "Courses updated successfully!")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete student")
		return
	}
	h.back(w, r, view.FlashSuccess, "Student deleted!")
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, data PageView) {
	listing := h.service.Load(r.Context())
	for _, err := range []error{listing.StudentsErr, listing.CoursesErr} {
		if h.responder.Abort(w, r, err) {
			return
		}
	}
	if listing.StudentsErr != nil {
		h.logger.Warn("list students", slog.Any("error", listing.StudentsErr))
		h.responder.Flash(r, view.FlashError, "Failed to fetch students")
	}
	if listing.CoursesErr != nil {
		h.logger.Warn("list courses", slog.Any("error", listing.CoursesErr))
		h.responder.Flash(r, view.FlashError, "Failed to fetch courses")
	}
	data.Students = listing.Students
	data.Courses = listing.Courses
	h.responder.Render(w, r, status, "pages/students.html", "Students", data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if h.responder.Abort(w, r, err) {
		return
	}
	h.logger.Warn("student mutation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.back(w, r, view.FlashError, backend.Message(err, fallback))
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request, kind, message string) {
	location := shared.BasePathFromContext(r.Context())
	if location == "" {
		location = "/"
	}
	h.responder.Redirect(w, r, location, kind, message)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
