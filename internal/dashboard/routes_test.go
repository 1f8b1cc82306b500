package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-portal/portal/internal/rbac"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name    string
		role    rbac.Role
		path    string
		mode    Mode
		segment string
		rest    string
	}{
		{name: "bare root", role: rbac.RoleAdmin, path: "/admin", mode: ModeRoot, rest: "/"},
		{name: "root with slash", role: rbac.RoleAdmin, path: "/admin/", mode: ModeRoot, rest: "/"},
		{name: "screen", role: rbac.RoleAdmin, path: "/admin/logs", mode: ModeSubroute, segment: ScreenLogs, rest: "/"},
		{name: "screen tail", role: rbac.RoleManager, path: "/manager/students/s1/delete", mode: ModeSubroute, segment: ScreenStudents, rest: "/s1/delete"},
		{name: "outside table", role: rbac.RoleManager, path: "/manager/users", mode: ModeUnknown},
		{name: "telecaller courses", role: rbac.RoleTelecaller, path: "/telecaller/courses", mode: ModeUnknown},
		{name: "prefix only", role: rbac.RoleAdmin, path: "/administrator", mode: ModeUnknown},
		{name: "other dashboard", role: rbac.RoleStudent, path: "/admin/courses", mode: ModeUnknown},
		{name: "invalid role", role: rbac.Role("Guest"), path: "/", mode: ModeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc := Resolve(tc.role, tc.path)
			assert.Equal(t, tc.mode, loc.Mode, loc.Mode.String())
			if tc.mode == ModeUnknown {
				return
			}
			assert.Equal(t, tc.segment, loc.Screen.Segment)
			assert.Equal(t, tc.rest, loc.Rest)
		})
	}
}

func TestScreensFollowRouteTables(t *testing.T) {
	segments := func(role rbac.Role) []string {
		var out []string
		for _, s := range Screens(role) {
			out = append(out, s.Segment)
		}
		return out
	}
	assert.Equal(t, []string{ScreenUsers, ScreenCourses, ScreenStudents, ScreenRoles, ScreenLogs}, segments(rbac.RoleAdmin))
	assert.Equal(t, []string{ScreenCourses, ScreenStudents}, segments(rbac.RoleManager))
	assert.Equal(t, []string{ScreenStudents}, segments(rbac.RoleTelecaller))
	assert.Equal(t, []string{ScreenCourses}, segments(rbac.RoleStudent))
	assert.Empty(t, Screens(rbac.Role("Guest")))
}

func TestNavigation(t *testing.T) {
	panel, items := Navigation(&rbac.Identity{ID: "a1", Role: rbac.RoleAdmin}, "/admin/roles")
	assert.Equal(t, "Admin Panel", panel)
	if assert.Len(t, items, 6) {
		assert.Equal(t, "Home", items[0].Label)
		assert.Equal(t, "/admin/roles", items[4].Path)
		assert.True(t, items[4].Active)
		assert.False(t, items[0].Active)
	}

	panel, items = Navigation(&rbac.Identity{ID: "t1", Role: rbac.RoleTelecaller}, "/telecaller")
	assert.Equal(t, "Telecaller Panel", panel)
	if assert.Len(t, items, 1) {
		assert.Equal(t, "/telecaller/students", items[0].Path)
		assert.False(t, items[0].Active)
	}

	panel, items = Navigation(nil, "/")
	assert.Empty(t, panel)
	assert.Nil(t, items)
}

func TestCards(t *testing.T) {
	cards := Cards(rbac.RoleManager, Stats{"coursesCount": "3"})
	assert.Equal(t, []Card{
		{Title: "Courses", Count: "3", Link: "/manager/courses", LinkText: "Manage Courses"},
		{Title: "Students", Count: "-", Link: "/manager/students", LinkText: "Manage Students"},
	}, cards)
}

func TestStatsDecodeSkipsNonNumericFields(t *testing.T) {
	var stats Stats
	require.NoError(t, json.Unmarshal([]byte(`{"usersCount":5,"coursesCount":"7","recent":[{"x":1}],"label":"admin","rolesCount":null}`), &stats))
	assert.Equal(t, Stats{"usersCount": "5", "coursesCount": "7"}, stats)
	assert.Equal(t, "5", stats.Count("usersCount"))
	assert.Equal(t, "-", stats.Count("recent"))

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &stats))
}
