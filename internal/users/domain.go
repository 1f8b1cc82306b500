package users

// User represents a user account as served by the API.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  struct {
		Name string `json:"name"`
	} `json:"role"`
}

// Input is the create/update payload. Password is optional on update.
type Input struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
	RoleName string `json:"roleName" validate:"required,oneof=Admin Manager Telecaller Student"`
}

// PageView feeds pages/users.html.
type PageView struct {
	Users   []User
	Roles   []string
	Form    Input
	Editing *User
	Errors  map[string]string
}
