package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/course-portal/portal/internal/auth"
	"github.com/course-portal/portal/internal/mocks"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/webtest"
	_ "github.com/course-portal/portal/testing"
)

func newAuthRouter(t *testing.T) (http.Handler, *mocks.MockAPI, *webtest.Env) {
	t.Helper()
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	env := webtest.New(t, nil)
	handler := auth.NewHandler(nil, auth.NewService(api, nil, nil), env.Responder, env.CSRF, time.Hour)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, api, env
}

func respondWith(payload string) func(context.Context, string, any, any) error {
	return func(_ context.Context, _ string, _ any, out any) error {
		return json.Unmarshal([]byte(payload), out)
	}
}

func TestLoginPage(t *testing.T) {
	router, _, env := newAuthRouter(t)
	res := env.Anonymous(t).Get(router, "/login")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.Contains(t, res.Body.String(), `name="csrf_token"`)
}

func TestLoginPageRedirectsSignedInUsers(t *testing.T) {
	router, _, env := newAuthRouter(t)
	browser := env.SignedIn(t, rbac.Identity{ID: "t1", Role: rbac.RoleTelecaller})

	res := browser.Get(router, "/login")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/telecaller", res.Header().Get("Location"))
}

func TestLoginSuccessStoresSessionAndRedirectsToRoleRoot(t *testing.T) {
	router, api, env := newAuthRouter(t)
	browser := env.Anonymous(t)
	before := browser.Session(t).ID

	api.EXPECT().
		Post(gomock.Any(), "/auth/login", auth.Credentials{Email: "ada@example.com", Password: "secret"}, gomock.Any()).
		DoAndReturn(respondWith(`{"token":"jwt","user":{"_id":"u1","name":"Ada","email":"ada@example.com","role":"Admin","permissions":[{"module":"roles","action":"update"}]}}`))

	res := browser.Post(router, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/admin", res.Header().Get("Location"))

	sess := browser.Session(t)
	assert.NotEqual(t, before, sess.ID, "login moves the session to a fresh id")
	user := sess.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "Ada", user.Name)
	assert.True(t, user.Can(rbac.ModuleRole, rbac.ActionUpdate))
	credential, ok := sess.Credential()
	assert.True(t, ok)
	assert.Equal(t, "jwt", credential)

	exists := env.Redis.Exists("session:" + before)
	assert.False(t, exists, "pre-login record is dropped")
}

func TestLoginRejectedShowsServerMessage(t *testing.T) {
	router, api, env := newAuthRouter(t)
	browser := env.Anonymous(t)

	api.EXPECT().
		Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
		Return(&backend.Error{Method: http.MethodPost, Path: "/auth/login", Status: http.StatusBadRequest, Message: "Invalid credentials"})

	res := browser.Post(router, "/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid credentials")
	assert.NotContains(t, res.Body.String(), "wrong", "password is not echoed back")
	assert.Nil(t, browser.Session(t).CurrentUser())
}

func TestLoginMalformedResponseFallsBackToGenericMessage(t *testing.T) {
	router, api, env := newAuthRouter(t)
	browser := env.Anonymous(t)

	api.EXPECT().
		Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
		DoAndReturn(respondWith(`{"token":"jwt","user":{"_id":"u1","role":"Principal"}}`))

	res := browser.Post(router, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Login failed")
	assert.Nil(t, browser.Session(t).CurrentUser())
}

func TestLoginValidationSkipsAPI(t *testing.T) {
	router, _, env := newAuthRouter(t)

	res := env.Anonymous(t).Post(router, "/login", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "valid email")
}

func TestLogoutClearsSession(t *testing.T) {
	router, _, env := newAuthRouter(t)
	browser := env.SignedIn(t, rbac.Identity{ID: "s1", Role: rbac.RoleStudent})

	res := browser.Post(router, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))

	sess := browser.Session(t)
	assert.Nil(t, sess.CurrentUser())
	_, ok := sess.Credential()
	assert.False(t, ok)

	again := browser.Post(router, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, again.Code, "logout is idempotent")
}

func TestSessionEndpoint(t *testing.T) {
	router, _, env := newAuthRouter(t)

	var anonymous struct {
		State string `json:"state"`
		User  any    `json:"user"`
	}
	res := env.Anonymous(t).Get(router, "/auth/session")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &anonymous))
	assert.Equal(t, "anonymous", anonymous.State)
	assert.Nil(t, anonymous.User)

	browser := env.SignedIn(t, rbac.Identity{
		ID:          "m1",
		Name:        "Mira",
		Role:        rbac.RoleManager,
		Permissions: []rbac.Permission{{Module: rbac.ModuleCourse, Action: rbac.ActionView}},
	})
	var signedIn struct {
		State string `json:"state"`
		User  struct {
			Role string `json:"role"`
			Home string `json:"home"`
		} `json:"user"`
		Permissions []string `json:"permissions"`
	}
	res = browser.Get(router, "/auth/session")
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &signedIn))
	assert.Equal(t, "authenticated", signedIn.State)
	assert.Equal(t, "Manager", signedIn.User.Role)
	assert.Equal(t, "/manager", signedIn.User.Home)
	assert.Equal(t, []string{"course.view"}, signedIn.Permissions)
}
