package view

import (
	"log/slog"
	"net/http"

	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
)

// Flash kinds understood by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// NavFunc builds the sidebar for the signed-in user.
type NavFunc func(user *rbac.Identity, currentPath string) (panel string, items []NavItem)

// Responder renders pages with the session derived fields every screen needs.
type Responder struct {
	engine *Engine
	csrf   *shared.CSRFManager
	logger *slog.Logger
	nav    NavFunc
}

// NewResponder builds a Responder. nav may be nil for pages without a sidebar.
func NewResponder(engine *Engine, csrf *shared.CSRFManager, logger *slog.Logger, nav NavFunc) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{engine: engine, csrf: csrf, logger: logger, nav: nav}
}

// Render writes template name with status.
func (rs *Responder) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := rs.csrf.EnsureToken(sess)
	if err != nil {
		rs.logger.Warn("csrf token unavailable", slog.Any("error", err))
	}
	var flashes []shared.FlashMessage
	if sess != nil {
		for flash := sess.PopFlash(); flash != nil; flash = sess.PopFlash() {
			flashes = append(flashes, *flash)
		}
	}
	viewData := TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		User:        sess.CurrentUser(),
		BasePath:    shared.BasePathFromContext(r.Context()),
		Data:        data,
	}
	if rs.nav != nil && viewData.User != nil {
		viewData.Panel, viewData.Nav = rs.nav(viewData.User, r.URL.Path)
	}
	if err := rs.engine.Render(w, status, name, viewData); err != nil {
		rs.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Redirect queues a flash message and sends the browser to location.
func (rs *Responder) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	rs.Flash(r, kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// Flash queues a message for the next render of this session.
func (rs *Responder) Flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

// Abort handles the API failures that end the request: a canceled request gets
// no response and a rejected credential signs the user out. It reports whether
// the caller must stop.
func (rs *Responder) Abort(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case backend.IsCanceled(err):
		return true
	case backend.IsUnauthorized(err):
		rs.Expire(w, r)
		return true
	default:
		return false
	}
}

// Expire signs the session out after the API rejected its credential and sends
// the browser to the login page.
func (rs *Responder) Expire(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := sess.CurrentUser(); user != nil {
			rs.logger.Info("credential rejected, signing out", slog.String("user", user.ID))
		}
		sess.Logout()
		rs.csrf.Rotate(sess)
	}
	rs.Redirect(w, r, "/login", FlashError, "Your session has expired. Please sign in again.")
}

// Forbidden renders the access denied page.
func (rs *Responder) Forbidden() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.Render(w, r, http.StatusForbidden, "pages/forbidden.html", "Access denied", nil)
	})
}

// NotFound renders the fallback page for unknown dashboard paths.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.Render(w, r, http.StatusNotFound, "pages/notfound.html", "Page not found", nil)
}
