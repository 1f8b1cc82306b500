package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/platform/httpx"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	responder   *view.Responder
	csrfManager *shared.CSRFManager
	sessionTTL  time.Duration
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, csrf *shared.CSRFManager, sessionTTL time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		responder:   responder,
		csrfManager: csrf,
		sessionTTL:  sessionTTL,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(guard.LoginPath, h.showLogin)
	r.Post(guard.LoginPath, h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/auth/session", h.showSession)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if user := shared.SessionFromContext(r.Context()).CurrentUser(); user != nil {
		http.Redirect(w, r, user.Role.Home(), http.StatusSeeOther)
		return
	}
	h.responder.Render(w, r, http.StatusOK, "pages/login.html", "Login", loginPageData{Errors: map[string]string{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := shared.FieldErrors(h.validator.Struct(form))
	if len(errs) == 0 {
		result, err := h.service.Authenticate(r.Context(), form)
		switch {
		case err == nil:
			sess.Login(result.Identity, result.Token)
			h.csrfManager.Rotate(sess)
			h.service.RegisterSession(r.Context(), sess.ID, result.Identity, h.sessionTTL, r.RemoteAddr, r.UserAgent())
			h.logger.Info("login", slog.String("user", result.Identity.ID), slog.String("role", string(result.Identity.Role)))
			http.Redirect(w, r, result.Identity.Role.Home(), http.StatusSeeOther)
			return
		case backend.IsCanceled(err):
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			h.logger.Info("login rejected", slog.String("email", form.Email))
		default:
			h.logger.Warn("login failed", slog.String("email", form.Email), slog.Any("error", err))
		}
		errs["general"] = backend.Message(err, "Login failed")
	}

	form.Password = ""
	h.responder.Render(w, r, http.StatusBadRequest, "pages/login.html", "Login", loginPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if sess.CurrentUser() != nil {
			h.service.EndSession(r.Context(), sess.ID)
		}
		sess.Logout()
		h.csrfManager.Rotate(sess)
	}
	h.responder.Redirect(w, r, guard.LoginPath, view.FlashSuccess, "You have been signed out.")
}

func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	out := sessionView{State: sess.Status().String(), Permissions: []string{}}
	if user := sess.CurrentUser(); user != nil {
		out.User = &sessionUser{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Home: user.Role.Home()}
		for _, p := range user.Permissions {
			out.Permissions = append(out.Permissions, p.String())
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, out)
}
