package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (f fixedCounter) SessionCount() int { return int(f) }

func doRequest(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	s := New("127.0.0.1:0", fixedCounter(0))

	rec, body := doRequest(t, s, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestHandleVersion(t *testing.T) {
	s := New("127.0.0.1:0", fixedCounter(0))

	rec, body := doRequest(t, s, "/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", body["version"])
	assert.Contains(t, body, "go_version")
}

func TestHandleSessions(t *testing.T) {
	s := New("127.0.0.1:0", fixedCounter(3))

	rec, body := doRequest(t, s, "/sessions")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["sessions"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := New("127.0.0.1:0", fixedCounter(0))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
