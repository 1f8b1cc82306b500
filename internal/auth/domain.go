package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/course-portal/portal/internal/rbac"
)

// ErrMalformedLogin is returned when the login response does not carry a usable session.
var ErrMalformedLogin = errors.New("auth: malformed login response")

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// loginResponse mirrors the API payload before it is trusted.
type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	ID          string            `json:"id"`
	ObjectID    string            `json:"_id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Role        string            `json:"role" validate:"required"`
	Permissions []rbac.Permission `json:"permissions"`
}

// Result is a decoded, validated login.
type Result struct {
	Identity rbac.Identity
	Token    string
}

var decodeValidator = validator.New()

// DecodeLogin turns the raw API response into a typed identity. Everything the
// guard and the permission checks rely on is verified here.
func DecodeLogin(resp loginResponse) (Result, error) {
	if strings.TrimSpace(resp.Token) == "" {
		return Result{}, fmt.Errorf("%w: token is empty", ErrMalformedLogin)
	}
	if err := decodeValidator.Struct(resp.User); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedLogin, err)
	}
	role, ok := rbac.ParseRole(resp.User.Role)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown role %q", ErrMalformedLogin, resp.User.Role)
	}
	id := resp.User.ObjectID
	if id == "" {
		id = resp.User.ID
	}
	identity := rbac.Identity{
		ID:          id,
		Name:        resp.User.Name,
		Email:       resp.User.Email,
		Role:        role,
		Permissions: rbac.NormalizePermissions(resp.User.Permissions),
	}
	if err := identity.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedLogin, err)
	}
	return Result{Identity: identity, Token: resp.Token}, nil
}

// SessionRecord is an audit row for one login.
type SessionRecord struct {
	ID        string
	UserID    string
	Role      rbac.Role
	CreatedAt time.Time
	ExpiresAt time.Time
	EndedAt   *time.Time
	IP        string
	UserAgent string
}

type loginPageData struct {
	Form   Credentials
	Errors map[string]string
}

// sessionView is the JSON shape of GET /auth/session.
type sessionView struct {
	State       string       `json:"state"`
	User        *sessionUser `json:"user,omitempty"`
	Permissions []string     `json:"permissions"`
}

type sessionUser struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  rbac.Role `json:"role"`
	Home  string    `json:"home"`
}
