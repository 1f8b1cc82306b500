package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s %s: %d", e.Method, e.Path, e.Status)
}

func newError(method, path string, status int, body io.Reader) *Error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(body).Decode(&payload)
	return &Error{Method: method, Path: path, Status: status, Message: strings.TrimSpace(payload.Message)}
}

// Message returns the server supplied message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether the API rejected the credential.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsCanceled reports whether the call was abandoned because the request went away.
// Such results must not be rendered or flashed.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
