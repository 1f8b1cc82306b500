// Package guard decides whether a request may enter a role-restricted part of the dashboard.
package guard

import (
	"log/slog"
	"net/http"

	"github.com/course-portal/portal/internal/observability"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
)

// State is the outcome of a guard evaluation.
type State int

const (
	// StatePending means the session has not been resolved; nothing may be rendered yet.
	StatePending State = iota
	// StateDenied means the request must be turned away.
	StateDenied
	// StateAdmitted means the protected content may be served.
	StateAdmitted
)

func (s State) String() string {
	switch s {
	case StateDenied:
		return "denied"
	case StateAdmitted:
		return "admitted"
	default:
		return "pending"
	}
}

// Denial reasons.
const (
	ReasonLoading   = "loading"
	ReasonAnonymous = "anonymous"
	ReasonRole      = "role"
	ReasonAllowed   = "allowed"
)

const (
	// LoginPath is where anonymous visitors are sent.
	LoginPath = "/login"
	// DeadEndTarget is the neutral anchor used when compat mode is on.
	DeadEndTarget = "#"
)

// Decision is the result of Evaluate. Redirect is only set for anonymous denials.
type Decision struct {
	State    State
	Reason   string
	Redirect string
}

// Evaluate applies the guard rules to a session. An empty allow-list admits any
// authenticated identity. Permissions are never consulted.
func Evaluate(sess *shared.Session, allowed []rbac.Role) Decision {
	if sess.IsLoading() {
		return Decision{State: StatePending, Reason: ReasonLoading}
	}
	user := sess.CurrentUser()
	if user == nil {
		return Decision{State: StateDenied, Reason: ReasonAnonymous, Redirect: LoginPath}
	}
	if len(allowed) > 0 && !user.Role.In(allowed) {
		return Decision{State: StateDenied, Reason: ReasonRole}
	}
	return Decision{State: StateAdmitted, Reason: ReasonAllowed}
}

// Options configures a Guard.
type Options struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// CompatDeadEnd answers role denials with "Location: #" instead of the forbidden page.
	CompatDeadEnd bool
	// Forbidden renders the page shown for role and permission denials.
	Forbidden http.Handler
}

// Guard wraps handlers with route and permission checks.
type Guard struct {
	logger    *slog.Logger
	metrics   *observability.Metrics
	deadEnd   bool
	forbidden http.Handler
}

// New builds a Guard.
func New(opts Options) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	forbidden := opts.Forbidden
	if forbidden == nil {
		forbidden = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
	return &Guard{logger: logger, metrics: opts.Metrics, deadEnd: opts.CompatDeadEnd, forbidden: forbidden}
}

// Require admits requests whose session role is in roles. It runs on every
// request so a logout or role change takes effect on the next navigation.
func (g *Guard) Require(roles ...rbac.Role) func(http.Handler) http.Handler {
	allowed := append([]rbac.Role(nil), roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			decision := Evaluate(sess, allowed)
			g.metrics.ObserveGuard(decision.State.String(), decision.Reason)

			switch decision.State {
			case StateAdmitted:
				next.ServeHTTP(w, r)
			case StatePending:
				g.logger.Warn("route guard pending", slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				g.deny(w, r, sess, decision)
			}
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, sess *shared.Session, decision Decision) {
	attrs := []any{slog.String("path", r.URL.Path), slog.String("reason", decision.Reason)}
	if user := sess.CurrentUser(); user != nil {
		attrs = append(attrs, slog.String("user", user.ID), slog.String("role", string(user.Role)))
	}
	g.logger.Debug("route guard denied", attrs...)

	if decision.Redirect != "" {
		http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
		return
	}
	if g.deadEnd {
		// http.Redirect would resolve "#" against the request path.
		w.Header().Set("Location", DeadEndTarget)
		w.WriteHeader(http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	g.forbidden.ServeHTTP(w, r)
}

// RequirePermission rejects requests whose identity lacks module.action.
func (g *Guard) RequirePermission(module, action string) func(http.Handler) http.Handler {
	return g.RequireAny(rbac.Permission{Module: module, Action: action})
}

// RequireAny rejects requests whose identity holds none of perms.
func (g *Guard) RequireAny(perms ...rbac.Permission) func(http.Handler) http.Handler {
	required := append([]rbac.Permission(nil), perms...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := shared.SessionFromContext(r.Context()).CurrentUser()
			for _, p := range required {
				if user.Can(p.Module, p.Action) {
					next.ServeHTTP(w, r)
					return
				}
			}
			attrs := []any{slog.String("path", r.URL.Path)}
			if user != nil {
				attrs = append(attrs, slog.String("user", user.ID))
			}
			g.logger.Warn("permission denied", attrs...)
			g.metrics.ObserveGuard(StateDenied.String(), "permission")
			w.Header().Set("Cache-Control", "no-store")
			g.forbidden.ServeHTTP(w, r)
		})
	}
}
