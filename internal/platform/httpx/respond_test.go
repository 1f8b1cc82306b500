package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusServiceUnavailable, Health{Status: "degraded", Failing: "redis"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"degraded","failing":"redis"}`, rec.Body.String())
}

func TestHealthOmitsEmptyFailing(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, Health{Status: "ok"})
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusServiceUnavailable, "queue inspector unavailable")

	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"title":"Service Unavailable","status":503,"detail":"queue inspector unavailable"}`, rec.Body.String())
}
