package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"citizen-portal-be/internal/bootstrap"
	"citizen-portal-be/internal/config"
	"citizen-portal-be/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("GOOGLE_GEMINI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "app.log"))
	t.Setenv("USAGE_LOG_FILE_PATH", filepath.Join(dir, "usage.log"))
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.example.gov")

	cfg := config.Load()
	container := bootstrap.NewContainer(context.Background(), cfg)
	t.Cleanup(func() { _ = container.Close() })

	return New(cfg, container)
}

func TestServer_HealthAndStatus(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.GetApp().Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = srv.GetApp().Test(httptest.NewRequest("GET", "/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var status dto.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.False(t, status.Available)
	assert.Equal(t, 15, status.RateLimit.RequestsRemaining)
}

func TestServer_ChatWithoutCredentialIsUnavailable(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "Where do I pay property tax?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.True(t, body.Fallback)
	assert.NotEmpty(t, body.Error)
}

func TestServer_InvalidInputBeforeAvailability(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "`+strings.Repeat("a", 1001)+`"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "hello"}`))
	req.Header.Set("Content-Type", "application/json")
	_, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)

	resp, err := srv.GetApp().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `citizen_portal_chat_requests_total{outcome="service_unavailable"} 1`)
}

func TestServer_CORS(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "https://portal.example.gov")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.gov", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.GetApp().Test(httptest.NewRequest("GET", "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
