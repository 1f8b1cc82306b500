package students_test

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

	"github.com/course-portal/portal/internal/mocks"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/students"
	"github.com/course-portal/portal/internal/view"
	"github.com/course-portal/portal/internal/webtest"
)

const base = "/manager/students"

const studentsJSON = `[
	{"_id":"s1","userId":{"_id":"u7","name":"Priya","email":"priya@example.com"},"phone":"555","enrolledCourses":[{"_id":"c1","title":"Go Basics"}]},
	{"_id":"s2","userId":{"_id":"u8","name":"Omar","email":"omar@example.com"},"enrolledCourses":[]}
]`

const coursesJSON = `[{"_id":"c1","title":"Go Basics"},{"_id":"c2","title":"Databases"}]`

func setup(t *testing.T) (*webtest.Env, *mocks.MockAPI, http.Handler) {
	t.Helper()
	env := webtest.New(t, nil)
	api := mocks.NewMockAPI(gomock.NewController(t))
	logger := webtest.Discard()
	h := students.NewHandler(logger, students.NewService(api, nil, logger), env.Responder, env.Guard)
	return env, api, env.Screen(base, h.MountRoutes)
}

func respond(body string) func(context.Context, string, any) error {
	return func(_ context.Context, _ string, out any) error {
		return json.Unmarshal([]byte(body), out)
	}
}

func expectListing(api *mocks.MockAPI) {
	api.EXPECT().Get(gomock.Any(), "/students", gomock.Any()).DoAndReturn(respond(studentsJSON))
	api.EXPECT().Get(gomock.Any(), "/courses", gomock.Any()).DoAndReturn(respond(coursesJSON))
}

func manager(perms ...rbac.Permission) rbac.Identity {
	return rbac.Identity{ID: "m1", Name: "Mia", Role: rbac.RoleManager, Permissions: perms}
}

var (
	studentCreate = rbac.Permission{Module: rbac.ModuleStudent, Action: rbac.ActionCreate}
	studentDelete = rbac.Permission{Module: rbac.ModuleStudent, Action: rbac.ActionDelete}
	courseView    = rbac.Permission{Module: rbac.ModuleCourse, Action: rbac.ActionView}
	courseAssign  = rbac.Permission{Module: rbac.ModuleCourse, Action: rbac.ActionAssign}
)

func TestListRendersStudentsFromLinkedAccount(t *testing.T) {
	env, api, h := setup(t)
	expectListing(api)

	rec := env.SignedIn(t, manager()).Get(h, base)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Priya")
	assert.Contains(t, body, "priya@example.com")
	assert.Contains(t, body, "Enrolled: Go Basics")
	assert.Contains(t, body, "Enrolled: None")
	assert.NotContains(t, body, "Create New Student")
	assert.NotContains(t, body, "Edit Courses")
}

func TestListFailuresAreReportedSeparately(t *testing.T) {
	env, api, h := setup(t)
	api.EXPECT().Get(gomock.Any(), "/students", gomock.Any()).Return(errors.New("timeout"))
	api.EXPECT().Get(gomock.Any(), "/courses", gomock.Any()).DoAndReturn(respond(coursesJSON))

	rec := env.SignedIn(t, manager(studentCreate, courseView)).Get(h, base)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to fetch students")
	assert.NotContains(t, body, "Failed to fetch courses")
	assert.Contains(t, body, "Databases", "course checkboxes still render")
}

func TestAssignModeNeedsPermission(t *testing.T) {
	t.Run("with course.assign", func(t *testing.T) {
		env, api, h := setup(t)
		expectListing(api)
		rec := env.SignedIn(t, manager(courseAssign)).Get(h, base+"?assign=s1")
		body := rec.Body.String()
		assert.Contains(t, body, `action="`+base+`/s1/courses"`)
		assert.Contains(t, body, `value="c1" checked`)
		assert.Contains(t, body, "Save Courses")
	})

	t.Run("without", func(t *testing.T) {
		env, api, h := setup(t)
		expectListing(api)
		rec := env.SignedIn(t, manager()).Get(h, base+"?assign=s1")
		assert.NotContains(t, rec.Body.String(), "Save Courses")
	})
}

func TestCreateLooksUpStudentRole(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, manager(studentCreate, courseView))
	api.EXPECT().Get(gomock.Any(), "/roles", gomock.Any()).DoAndReturn(respond(`[{"_id":"r1","name":"Admin"},{"_id":"r4","name":"Student"}]`))
	api.EXPECT().Post(gomock.Any(), "/students/create", students.CreateInput{
		Name:            "Priya",
		Email:           "priya@example.com",
		Password:        "secret1",
		Phone:           "555",
		EnrolledCourses: []string{"c1", "c2"},
		RoleID:          "r4",
	}, nil).Return(nil)

	rec := browser.Post(h, base, url.Values{
		"name":     {"Priya"},
		"email":    {"priya@example.com"},
		"password": {"secret1"},
		"phone":    {"555"},
		"courses":  {"c1", "", "c2"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, base, rec.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: view.FlashSuccess, Message: "Student created!"}}, browser.Flashes(t))
}

func TestCreateIgnoresCoursesWithoutViewPermission(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, manager(studentCreate))
	api.EXPECT().Get(gomock.Any(), "/roles", gomock.Any()).DoAndReturn(respond(`[{"_id":"r4","name":"Student"}]`))
	api.EXPECT().Post(gomock.Any(), "/students/create", gomock.Any(), nil).DoAndReturn(func(_ context.Context, _ string, in, _ any) error {
		assert.Empty(t, in.(students.CreateInput).EnrolledCourses)
		return nil
	})

	rec := browser.Post(h, base, url.Values{"name": {"Omar"}, "email": {"omar@example.com"}, "password": {"secret1"}, "courses": {"c1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCreateWithoutStudentRole(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, manager(studentCreate))
	api.EXPECT().Get(gomock.Any(), "/roles", gomock.Any()).DoAndReturn(respond(`[{"_id":"r1","name":"Admin"}]`))

	rec := browser.Post(h, base, url.Values{"name": {"Omar"}, "email": {"omar@example.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []shared.FlashMessage{{Kind: view.FlashError, Message: "Failed to create student"}}, browser.Flashes(t))
}

func TestCreateValidation(t *testing.T) {
	env, api, h := setup(t)
	expectListing(api)

	rec := env.SignedIn(t, manager(studentCreate)).Post(h, base, url.Values{"name": {"Omar"}, "email": {"not-an-email"}, "password": {"123"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Omar"`)
}

func TestAssignCourses(t *testing.T) {
	env, api, h := setup(t)
	browser := env.SignedIn(t, manager(courseAssign))
	api.EXPECT().Put(gomock.Any(), "/students/s2", gomock.Any(), nil).DoAndReturn(func(_ context.Context, _ string, in, _ any) error {
		raw, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"enrolledCourses":[]}`, string(raw), "unchecking everything sends an empty list")
		return nil
	})

	rec := browser.Post(h, base+"/s2/courses", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Courses updated successfully!", browser.Flashes(t)[0].Message)
}

func TestDelete(t *testing.T) {
	env, api, h := setup(t)

	forbidden := env.SignedIn(t, manager(courseAssign))
	assert.Equal(t, http.StatusForbidden, forbidden.Post(h, base+"/s1/delete", nil).Code)

	browser := env.SignedIn(t, manager(studentDelete))
	api.EXPECT().Delete(gomock.Any(), "/students/s1", nil).
		Return(&backend.Error{Status: http.StatusNotFound, Message: "Student not found"})
	rec := browser.Post(h, base+"/s1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []shared.FlashMessage{{Kind: view.FlashError, Message: "Student not found"}}, browser.Flashes(t))
}
