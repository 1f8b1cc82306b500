package shared

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors flattens validator errors into field -> message, keyed by the
// lowercased struct field name. Non-validation errors land under "general".
func FieldErrors(err error) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["general"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + fe.Param() + " characters."
	case "max":
		return "Must be at most " + fe.Param() + " characters."
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return "Invalid value."
	}
}
