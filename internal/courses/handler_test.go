package courses_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/course-portal/portal/internal/courses"
	"github.com/course-portal/portal/internal/mocks"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
	"github.com/course-portal/portal/internal/webtest"
)

const base = "/admin/courses"

var catalog = []courses.Course{
	{ID: "c1", Title: "Go Basics", Description: "Types and interfaces", Duration: "4 weeks"},
	{ID: "c2", Title: "Databases", Description: "SQL from scratch"},
}

func setup(t *testing.T) (*webtest.Env, *mocks.MockAPI, http.Handler) {
	t.Helper()
	env := webtest.New(t, nil)
	api := mocks.NewMockAPI(gomock.NewController(t))
	logger := webtest.Discard()
	h := courses.NewHandler(logger, courses.NewService(api, nil, logger), env.Responder, env.Guard)
	return env, api, env.Screen(base, h.MountRoutes)
}

func user(role rbac.Role, actions ...string) rbac.Identity {
	identity := rbac.Identity{ID: "u1", Name: "Uma", Role: role}
	for _, action := range actions {
		identity.Permissions = append(identity.Permissions, rbac.Permission{Module: rbac.ModuleCourse, Action: action})
	}
	return identity
}

func listReturns(api *mocks.MockAPI, list []courses.Course) {
	api.EXPECT().Get(gomock.Any(), "/courses", gomock.Any()).DoAndReturn(func(_ context.Context, _ string, out any) error {
		raw, _ := json.Marshal(list)
		return json.Unmarshal(raw, out)
	})
}

func TestListShowsActionsPerPermission(t *testing.T) {
	env, api, h := setup(t)
	listReturns(api, catalog)

	browser := env.SignedIn(t, user(rbac.RoleStudent, rbac.ActionView, rbac.ActionEnroll))
	rec := browser.Get(h, base)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Go Basics")
	assert.Contains(t, body, "Duration: 4 weeks")
	assert.Contains(t, body, base+"/c1/enroll")
	assert.NotContains(t, body, "Add Course", "no create permission")
	assert.NotContains(t, body, base+"/c1/delete")
}

func TestListWithoutViewPermissionHidesCourses(t *testing.T) {
	env, api, h := setup(t)
	listReturns(api, catalog)

	rec := env.SignedIn(t, user(rbac.RoleManager, rbac.ActionCreate)).Get(h, base)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Add Course")
	assert.NotContains(t, rec.Body.String(), "Go Basics")
}

func TestEditPrefillsForm(t *testing.T) {
	env, api, h := setup(t)
	listReturns(api, catalog)

	rec := env.SignedIn(t, user(rbac.RoleAdmin, rbac.ActionView, rbac.ActionUpdate)).Get(h, base+"?edit=c1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Edit Course")
	assert.Contains(t, body, `action="`+base+`/c1"`)
	assert.Contains(t, body, `value="Go Basics"`)
}

func TestCreate(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleAdmin, rbac.ActionCreate))
	api.EXPECT().Post(gomock.Any(), "/courses", courses.Input{Title: "Go Basics", Description: "Intro", Duration: "4 weeks"}, nil).Return(nil)

	rec := browser.Post(h, base, url.Values{"title": {" Go Basics "}, "description": {"Intro"}, "duration": {"4 weeks"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, base, rec.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: view.FlashSuccess, Message: "Course created!"}}, browser.Flashes(t))
}

func TestCreateValidationRerendersForm(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleAdmin, rbac.ActionCreate, rbac.ActionView))
	listReturns(api, catalog)

	rec := browser.Post(h, base, url.Values{"title": {"  "}, "description": {"kept"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "kept")
	assert.Contains(t, rec.Body.String(), "Go Basics")
}

func TestMutationsRequirePermission(t *testing.T) {
	env, _, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleStudent, rbac.ActionView, rbac.ActionEnroll))

	for _, target := range []string{base, base + "/c1", base + "/c1/delete"} {
		rec := browser.Post(h, target, url.Values{"title": {"x"}})
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

func TestUpdate(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleManager, rbac.ActionUpdate))
	api.EXPECT().Put(gomock.Any(), "/courses/c1", courses.Input{Title: "Go Advanced"}, nil).Return(nil)

	rec := browser.Post(h, base+"/c1", url.Values{"title": {"Go Advanced"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Course updated!", browser.Flashes(t)[0].Message)
}

func TestDeleteFailureFlashesServerMessage(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleAdmin, rbac.ActionDelete))
	api.EXPECT().Delete(gomock.Any(), "/courses/c1", nil).
		Return(&backend.Error{Method: http.MethodDelete, Path: "/courses/c1", Status: http.StatusConflict, Message: "Course has enrolled students"})

	rec := browser.Post(h, base+"/c1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []shared.FlashMessage{{Kind: view.FlashError, Message: "Course has enrolled students"}}, browser.Flashes(t))
}

func TestEnroll(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleStudent, rbac.ActionEnroll))

	t.Run("success", func(t *testing.T) {
		api.EXPECT().Post(gomock.Any(), "/courses/enroll", gomock.Any(), nil).DoAndReturn(func(_ context.Context, _ string, in, _ any) error {
			raw, err := json.Marshal(in)
			require.NoError(t, err)
			assert.JSONEq(t, `{"courseId":"c2"}`, string(raw))
			return nil
		})
		rec := browser.Post(h, base+"/c2/enroll", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "Enrolled successfully!", browser.Flashes(t)[0].Message)
	})

	t.Run("network failure uses the generic message", func(t *testing.T) {
		api.EXPECT().Post(gomock.Any(), "/courses/enroll", gomock.Any(), nil).Return(errors.New("dial tcp: refused"))
		rec := browser.Post(h, base+"/c2/enroll", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "Enrollment failed", browser.Flashes(t)[0].Message)
	})
}

func TestExpiredCredentialSignsOut(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, user(rbac.RoleAdmin, rbac.ActionView))
	api.EXPECT().Get(gomock.Any(), "/courses", gomock.Any()).Return(&backend.Error{Status: http.StatusUnauthorized})

	rec := browser.Get(h, base)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Nil(t, browser.Session(t).CurrentUser())
}
