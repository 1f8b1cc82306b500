package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/course-portal/portal/internal/rbac"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NavItem is one sidebar link.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flashes     []shared.FlashMessage
	CurrentPath string
	User        *rbac.Identity
	Panel       string
	Nav         []NavItem
	BasePath    string
	Data        any
}

// Can reports whether the signed-in user holds module.action. Templates use it
// to decide which affordances to render.
func (d TemplateData) Can(module, action string) bool {
	return d.User.Can(module, action)
}

// CanAny reports whether the user holds any of actions on module.
func (d TemplateData) CanAny(module string, actions ...string) bool {
	for _, action := range actions {
		if d.User.Can(module, action) {
			return true
		}
	}
	return false
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"title": func(s string) string {
			// Casers keep state and may not be shared between renders.
			return cases.Title(language.English).String(s)
		},
		"hasID": func(ids []string, id string) bool {
			for _, candidate := range ids {
				if candidate == id {
					return true
				}
			}
			return false
		},
		"join": strings.Join,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData. Output is buffered so a
// failing template never leaves a half-written page behind.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
