package users

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
)

// Handler manages user management endpoints. The screen is only mounted on
// the Admin dashboard, so no per-action permissions are checked.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder) *Handler {
	return &Handler{logger: logger, service: service, responder: responder, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Post("/{id}", h.updateUser)
	r.Post("/{id}/delete", h.deleteUser)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, PageView{Errors: map[string]string{}}, r.URL.Query().Get("edit"))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseForm(w, r, "")
	if !ok {
		return
	}
	if err := h.service.CreateUser(r.Context(), in); err != nil {
		h.fail(w, r, err, "Failed to create user!")
		return
	}
	h.back(w, r, view.FlashSuccess, "User created successfully!")
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := h.parseForm(w, r, id)
	if !ok {
		return
	}
	if err := h.service.UpdateUser(r.Context(), id, in); err != nil {
		h.fail(w, r, err, "Failed to update user!")
		return
	}
	h.back(w, r, view.FlashSuccess, "User updated successfully!")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete user!")
		return
	}
	h.back(w, r, view.FlashSuccess, "User deleted successfully!")
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, editID string) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	in := Input{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		RoleName: r.PostFormValue("roleName"),
	}
	errs := shared.FieldErrors(h.validator.Struct(in))
	if editID == "" && in.Password == "" {
		errs["password"] = "This field is required."
	}
	if len(errs) > 0 {
		in.Password = ""
		h.renderPage(w, r, http.StatusBadRequest, PageView{Form: in, Errors: errs}, editID)
		return Input{}, false
	}
	return in, true
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, data PageView, editID string) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		if h.responder.Abort(w, r, err) {
			return
		}
		h.logger.Warn("list users", slog.Any("error", err))
		h.responder.Flash(r, view.FlashError, backend.Message(err, "Failed to fetch users"))
	}
	data.Users = users
	for _, role := range rbac.Roles() {
		data.Roles = append(data.Roles, string(role))
	}
	if editID != "" {
		for i := range users {
			if users[i].ID != editID {
				continue
			}
			data.Editing = &users[i]
			if status == http.StatusOK {
				data.Form = Input{Name: users[i].Name, Email: users[i].Email, RoleName: users[i].Role.Name}
			}
			break
		}
	}
	h.responder.Render(w, r, status, "pages/users.html", "Users", data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if h.responder.Abort(w, r, err) {
		return
	}
	h.logger.Warn("user mutation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.back(w, r, view.FlashError, backend.Message(err, fallback))
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request, kind, message string) {
	location := shared.BasePathFromContext(r.Context())
	if location == "" {
		location = "/"
	}
	h.responder.Redirect(w, r, location, kind, message)
}
