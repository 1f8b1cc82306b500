package view

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestEngineRenderSetsStatusAndContentType(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, http.StatusNotFound, "pages/notfound.html", TemplateData{Title: "Page not found"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestEngineRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, engine.Render(rec, http.StatusOK, "pages/missing.html", TemplateData{}))
	assert.Zero(t, rec.Body.Len())
}

func TestTemplateDataCan(t *testing.T) {
	data := TemplateData{User: &rbac.Identity{
		ID:   "u1",
		Role: rbac.RoleManager,
		Permissions: []rbac.Permission{
			{Module: rbac.ModuleCourse, Action: rbac.ActionUpdate},
		},
	}}
	assert.True(t, data.Can(rbac.ModuleCourse, rbac.ActionUpdate))
	assert.False(t, data.Can(rbac.ModuleCourse, rbac.ActionDelete))
	assert.True(t, data.CanAny(rbac.ModuleCourse, rbac.ActionCreate, rbac.ActionUpdate))
	assert.False(t, data.CanAny(rbac.ModuleStudent, rbac.ActionCreate, rbac.ActionUpdate))

	assert.False(t, TemplateData{}.Can(rbac.ModuleCourse, rbac.ActionUpdate), "anonymous users hold nothing")
}

func newTestResponder(t *testing.T) (*Responder, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions, err := shared.NewSessionManager(client, "test_session", "0123456789abcdef0123456789abcdef", time.Hour, false)
	require.NoError(t, err)
	engine, err := NewEngine()
	require.NoError(t, err)
	nav := func(user *rbac.Identity, currentPath string) (string, []NavItem) {
		return string(user.Role) + " Panel", []NavItem{{Label: "Home", Path: user.Role.Home(), Active: currentPath == user.Role.Home()}}
	}
	return NewResponder(engine, shared.NewCSRFManager("csrf-secret"), nil, nav), sessions
}

func requestWithSession(t *testing.T, sessions *shared.SessionManager, method, target string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestResponderRenderShowsAllFlashesOnce(t *testing.T) {
	responder, sessions := newTestResponder(t)
	req, sess := requestWithSession(t, sessions, http.MethodGet, "/admin")
	sess.Login(rbac.Identity{ID: "u1", Name: "Ada", Role: rbac.RoleAdmin}, "token")
	sess.AddFlash(shared.FlashMessage{Kind: FlashSuccess, Message: "Course created!"})
	sess.AddFlash(shared.FlashMessage{Kind: FlashError, Message: "Failed to fetch students"})

	rec := httptest.NewRecorder()
	responder.Render(rec, req, http.StatusOK, "pages/notfound.html", "Page not found", nil)

	body := rec.Body.String()
	assert.Contains(t, body, "Course created!")
	assert.Contains(t, body, "Failed to fetch students")
	assert.Contains(t, body, "Admin Panel")
	assert.Contains(t, body, `name="csrf_token"`)
	assert.Nil(t, sess.PopFlash(), "flashes are consumed by the render")
}

func TestResponderAbort(t *testing.T) {
	responder, sessions := newTestResponder(t)

	t.Run("nil error continues", func(t *testing.T) {
		req, _ := requestWithSession(t, sessions, http.MethodGet, "/admin/courses")
		rec := httptest.NewRecorder()
		assert.False(t, responder.Abort(rec, req, nil))
	})

	t.Run("canceled request writes nothing", func(t *testing.T) {
		req, _ := requestWithSession(t, sessions, http.MethodGet, "/admin/courses")
		rec := httptest.NewRecorder()
		assert.True(t, responder.Abort(rec, req, context.Canceled))
		assert.Zero(t, rec.Body.Len())
		assert.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("rejected credential signs out", func(t *testing.T) {
		req, sess := requestWithSession(t, sessions, http.MethodGet, "/admin/courses")
		sess.Login(rbac.Identity{ID: "u1", Role: rbac.RoleAdmin}, "token")
		rec := httptest.NewRecorder()

		assert.True(t, responder.Abort(rec, req, &backend.Error{Status: http.StatusUnauthorized}))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.Nil(t, sess.CurrentUser())
		flash := sess.PopFlash()
		require.NotNil(t, flash)
		assert.Equal(t, FlashError, flash.Kind)
	})

	t.Run("other failures are left to the caller", func(t *testing.T) {
		req, _ := requestWithSession(t, sessions, http.MethodGet, "/admin/courses")
		rec := httptest.NewRecorder()
		assert.False(t, responder.Abort(rec, req, &backend.Error{Status: http.StatusInternalServerError}))
		assert.False(t, responder.Abort(rec, req, errors.New("dial tcp: refused")))
	})
}

func TestResponderForbiddenRendersAccessDenied(t *testing.T) {
	responder, sessions := newTestResponder(t)
	req, _ := requestWithSession(t, sessions, http.MethodGet, "/admin")

	rec := httptest.NewRecorder()
	responder.Forbidden().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("Access denied")))
}
