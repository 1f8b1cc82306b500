// Package dashboard mounts the per-role dashboards and resolves paths inside them.
package dashboard

import (
	"strings"

	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/view"
)

// Screen segments.
const (
	ScreenUsers    = "users"
	ScreenCourses  = "courses"
	ScreenStudents = "students"
	ScreenRoles    = "roles"
	ScreenLogs     = "logs"
)

// Screen is one entry of a role's route table.
type Screen struct {
	Segment  string
	Label    string
	LinkText string
	// Counter is the stats field shown on the dashboard card.
	Counter string
}

var screenCatalog = map[string]Screen{
	ScreenUsers:    {Segment: ScreenUsers, Label: "Users", LinkText: "Manage Users", Counter: "usersCount"},
	ScreenCourses:  {Segment: ScreenCourses, Label: "Courses", LinkText: "Manage Courses", Counter: "coursesCount"},
	ScreenStudents: {Segment: ScreenStudents, Label: "Students", LinkText: "Manage Students", Counter: "studentsCount"},
	ScreenRoles:    {Segment: ScreenRoles, Label: "Roles", LinkText: "Manage Roles", Counter: "rolesCount"},
	ScreenLogs:     {Segment: ScreenLogs, Label: "Logs", LinkText: "View Logs", Counter: "logsCount"},
}

var routeTables = map[rbac.Role][]string{
	rbac.RoleAdmin:      {ScreenUsers, ScreenCourses, ScreenStudents, ScreenRoles, ScreenLogs},
	rbac.RoleManager:    {ScreenCourses, ScreenStudents},
	rbac.RoleTelecaller: {ScreenStudents},
	rbac.RoleStudent:    {ScreenCourses},
}

// Screens returns the route table of role in navigation order. Unknown roles get none.
func Screens(role rbac.Role) []Screen {
	segments := routeTables[role]
	out := make([]Screen, 0, len(segments))
	for _, segment := range segments {
		out = append(out, screenCatalog[segment])
	}
	return out
}

// Mode says which part of a dashboard a path selects.
type Mode int

const (
	// ModeUnknown is a path outside the role's table.
	ModeUnknown Mode = iota
	// ModeRoot is the bare dashboard root showing the stats cards.
	ModeRoot
	// ModeSubroute is a screen from the role's table.
	ModeSubroute
)

func (m Mode) String() string {
	switch m {
	case ModeRoot:
		return "root"
	case ModeSubroute:
		return "subroute"
	default:
		return "unknown"
	}
}

// Location is the result of Resolve. Rest is the remainder of the path below
// the screen segment, always starting with "/".
type Location struct {
	Mode   Mode
	Screen Screen
	Rest   string
}

// Resolve maps a request path onto the dashboard of role. The root matches the
// bare role path, with or without a trailing slash.
func Resolve(role rbac.Role, path string) Location {
	if !role.Valid() {
		return Location{Mode: ModeUnknown}
	}
	home := role.Home()
	if !strings.HasPrefix(path, home) {
		return Location{Mode: ModeUnknown}
	}
	rest := path[len(home):]
	if rest == "" || rest == "/" {
		return Location{Mode: ModeRoot, Rest: "/"}
	}
	if rest[0] != '/' {
		return Location{Mode: ModeUnknown}
	}
	segment, tail, _ := strings.Cut(rest[1:], "/")
	for _, candidate := range routeTables[role] {
		if candidate == segment {
			return Location{Mode: ModeSubroute, Screen: screenCatalog[segment], Rest: "/" + tail}
		}
	}
	return Location{Mode: ModeUnknown}
}

// Navigation builds the sidebar for user. Admin also gets a Home link.
func Navigation(user *rbac.Identity, currentPath string) (string, []view.NavItem) {
	if user == nil || !user.Role.Valid() {
		return "", nil
	}
	home := user.Role.Home()
	var items []view.NavItem
	if user.Role == rbac.RoleAdmin {
		items = append(items, view.NavItem{Label: "Home", Path: home, Active: currentPath == home})
	}
	current := Resolve(user.Role, currentPath)
	for _, screen := range Screens(user.Role) {
		items = append(items, view.NavItem{
			Label:  screen.Label,
			Path:   home + "/" + screen.Segment,
			Active: current.Mode == ModeSubroute && current.Screen.Segment == screen.Segment,
		})
	}
	return string(user.Role) + " Panel", items
}
