package rbac

import "strings"

// Permission is a single (module, action) capability grant.
type Permission struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// Canonical module names.
const (
	ModuleCourse  = "course"
	ModuleStudent = "student"
	ModuleRole    = "role"
)

// Actions observed in the portal.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionView   = "view"
	ActionEnroll = "enroll"
	ActionAssign = "assign"
)

// moduleAliases maps module names the portal API still emits onto canonical names.
var moduleAliases = map[string]string{
	"roles": ModuleRole,
}

// String renders the permission as "module.action".
func (p Permission) String() string {
	return p.Module + "." + p.Action
}

// HasPermission reports whether perms contains exactly (module, action).
// Matching is case-sensitive with no wildcards and no role fallback.
func HasPermission(perms []Permission, module, action string) bool {
	for _, p := range perms {
		if p.Module == module && p.Action == action {
			return true
		}
	}
	return false
}

// NormalizeModule maps legacy module names onto the canonical singular form.
func NormalizeModule(module string) string {
	if canonical, ok := moduleAliases[module]; ok {
		return canonical
	}
	return module
}

// NormalizePermissions canonicalises module names, drops blank entries and
// removes duplicate pairs while keeping first-seen order.
func NormalizePermissions(perms []Permission) []Permission {
	if len(perms) == 0 {
		return nil
	}
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p.Module = NormalizeModule(strings.TrimSpace(p.Module))
		p.Action = strings.TrimSpace(p.Action)
		if p.Module == "" || p.Action == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
