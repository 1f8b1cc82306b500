// Package httpx holds the JSON helpers used by the portal's machine-readable
// endpoints. Everything user facing is HTML and goes through view.Responder.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Health is the body of the health endpoints. Failing names the first
// dependency that did not answer.
type Health struct {
	Status  string `json:"status"`
	Failing string `json:"failing,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem document titled after the status code.
func Problem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
