// Package webtest drives handlers through the real session stack for tests:
// Redis (miniredis), cookies, CSRF tokens and the template engine.
package webtest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
)

// SessionSecret is the session secret used by every Env.
const SessionSecret = "webtest-session-secret-0123456789"

// Env bundles the collaborators handlers are built from.
type Env struct {
	Redis     *miniredis.Miniredis
	Client    *redis.Client
	Sessions  *shared.SessionManager
	CSRF      *shared.CSRFManager
	Engine    *view.Engine
	Responder *view.Responder
	Guard     *guard.Guard
}

// New starts miniredis and builds the session and view stack. nav may be nil.
func New(t testing.TB, nav view.NavFunc) *Env {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions, err := shared.NewSessionManager(client, "portal_session", SessionSecret, time.Hour, false)
	require.NoError(t, err)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("webtest-csrf-secret")
	responder := view.NewResponder(engine, csrf, nil, nav)

	return &Env{
		Redis:     mr,
		Client:    client,
		Sessions:  sessions,
		CSRF:      csrf,
		Engine:    engine,
		Responder: responder,
		Guard:     guard.New(guard.Options{Forbidden: responder.Forbidden()}),
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Screen mounts a screen's routes under base the way the role dashboards do,
// so redirects and form actions see the same base path.
func (e *Env) Screen(base string, mount func(chi.Router)) http.Handler {
	screen := chi.NewRouter()
	screen.NotFound(e.Responder.NotFound)
	mount(screen)

	r := chi.NewRouter()
	r.Mount(base, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		screen.ServeHTTP(w, r.WithContext(shared.ContextWithBasePath(r.Context(), base)))
	}))
	return r
}

// Browser carries a session cookie and CSRF token across requests.
type Browser struct {
	env    *Env
	cookie *http.Cookie
	token  string
}

// Anonymous returns a browser with a stored, signed-out session.
func (e *Env) Anonymous(t testing.TB) *Browser {
	t.Helper()
	return e.browser(t, nil)
}

// SignedIn returns a browser whose session holds identity and a bearer token.
func (e *Env) SignedIn(t testing.TB, identity rbac.Identity) *Browser {
	t.Helper()
	return e.browser(t, &identity)
}

func (e *Env) browser(t testing.TB, identity *rbac.Identity) *Browser {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := e.Sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if identity != nil {
		sess.Login(*identity, "token-"+identity.ID)
	}
	token, err := e.CSRF.EnsureToken(sess)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, e.Sessions.Commit(context.Background(), rec, req, sess))
	b := &Browser{env: e, token: token}
	b.remember(rec.Result())
	require.NotNil(t, b.cookie, "session cookie not issued")
	return b
}

func (b *Browser) remember(res *http.Response) {
	for _, c := range res.Cookies() {
		if c.Name == b.env.Sessions.CookieName() {
			b.cookie = c
		}
	}
}

// Token returns the CSRF token of the browser's session.
func (b *Browser) Token() string {
	return b.token
}

// Get sends a GET through the session middleware.
func (b *Browser) Get(h http.Handler, target string) *httptest.ResponseRecorder {
	return b.Do(h, httptest.NewRequest(http.MethodGet, target, nil))
}

// Post submits form values together with the CSRF token.
func (b *Browser) Post(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	return b.Do(h, b.PostForm(target, form))
}

// Do sends req through the session middleware with the browser's cookie and
// keeps any cookie the response sets.
func (b *Browser) Do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	return b.DoRaw(b.env.Sessions.Middleware(h), req)
}

// DoRaw is Do for handlers that already install the session middleware.
func (b *Browser) DoRaw(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(&http.Cookie{Name: b.cookie.Name, Value: b.cookie.Value})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	b.remember(rec.Result())
	return rec
}

// PostForm builds a form POST carrying the browser's CSRF token.
func (b *Browser) PostForm(target string, form url.Values) *http.Request {
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form[shared.CSRFFormField]; !ok {
		form.Set(shared.CSRFFormField, b.token)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Session loads the browser's current session from Redis.
func (b *Browser) Session(t testing.TB) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if b.cookie != nil {
		req.AddCookie(&http.Cookie{Name: b.cookie.Name, Value: b.cookie.Value})
	}
	sess, err := b.env.Sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

// Flashes drains the browser's pending flash messages and stores the session
// back without them.
func (b *Browser) Flashes(t testing.TB) []shared.FlashMessage {
	t.Helper()
	sess := b.Session(t)
	var out []shared.FlashMessage
	for f := sess.PopFlash(); f != nil; f = sess.PopFlash() {
		out = append(out, *f)
	}
	require.NoError(t, b.env.Sessions.Commit(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))
	return out
}
