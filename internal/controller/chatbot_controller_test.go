package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"citizen-portal-be/internal/dto"
	"citizen-portal-be/internal/pkg/serverutils"
	"citizen-portal-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatService struct {
	lastReq *dto.ChatRequest
	lastIP  string
	err     error
}

func (s *stubChatService) SendChat(_ context.Context, clientIP string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	s.lastReq = req
	s.lastIP = clientIP
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ChatResponse{
		Success:    true,
		Response:   "Contact Transport at 555-0101.",
		TokensUsed: llm.TokenUsage{Prompt: 10, Completion: 5, Total: 15},
		RateLimit:  dto.RateLimitStatus{RequestsUsed: 1, RequestsRemaining: 14, WindowResetIn: 60},
	}, nil
}

func (s *stubChatService) Status(context.Context) *dto.StatusResponse {
	return &dto.StatusResponse{
		Available: true,
		Model:     "gemini-2.0-flash",
		RateLimit: dto.RateLimitStatus{RequestsUsed: 0, RequestsRemaining: 15, WindowResetIn: 60},
	}
}

func newTestApp(svc *stubChatService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewChatbotController(svc).RegisterRoutes(app)
	NewHealthController("citizen-portal-assistant").RegisterRoutes(app)
	return app
}

func postChat(t *testing.T, app *fiber.App, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestSendChat_Success(t *testing.T) {
	svc := &stubChatService{}
	app := newTestApp(svc)

	status, body := postChat(t, app, `{
		"message": "How do I renew my license?",
		"history": [{"sender": "user", "text": "hi", "timestamp": "2025-01-01T10:00:00Z"}],
		"departmentContext": [{"name": "Transport", "description": "Roads", "link": "/transport", "services": ["Driver license renewal"], "keywords": ["license"]}]
	}`)

	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Contact Transport at 555-0101.", body["response"])
	assert.Equal(t, map[string]interface{}{"prompt": 10.0, "completion": 5.0, "total": 15.0}, body["tokensUsed"])
	assert.Equal(t, map[string]interface{}{"requestsUsed": 1.0, "requestsRemaining": 14.0, "windowResetIn": 60.0}, body["rateLimit"])

	require.NotNil(t, svc.lastReq)
	assert.Equal(t, "How do I renew my license?", svc.lastReq.Message)
	require.Len(t, svc.lastReq.History, 1)
	require.Len(t, svc.lastReq.DepartmentContext, 1)
	assert.Equal(t, []string{"license"}, svc.lastReq.DepartmentContext[0].Keywords)
	assert.NotEmpty(t, svc.lastIP)
}

func TestSendChat_TypeErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not json", `{"message": `, "request body must be valid JSON"},
		{"not an object", `["hello"]`, "request body must be a JSON object"},
		{"missing message", `{}`, "message is required"},
		{"null message", `{"message": null}`, "message is required"},
		{"numeric message", `{"message": 42}`, "message must be a string"},
		{"history object", `{"message": "hi", "history": {"sender": "user"}}`, "history must be an array"},
		{"history string", `{"message": "hi", "history": "none"}`, "history must be an array"},
		{"departments object", `{"message": "hi", "departmentContext": {}}`, "departmentContext must be an array"},
		{"bad entry shape", `{"message": "hi", "departmentContext": [{"name": 7}]}`, "history and departmentContext entries must match the expected shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubChatService{}
			app := newTestApp(svc)

			status, body := postChat(t, app, tt.body)

			assert.Equal(t, 400, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantErr, body["error"])
			assert.NotContains(t, body, "fallback")
			assert.Nil(t, svc.lastReq)
		})
	}
}

func TestSendChat_NullOptionalFieldsAccepted(t *testing.T) {
	svc := &stubChatService{}
	app := newTestApp(svc)

	status, _ := postChat(t, app, `{"message": "hi", "history": null, "departmentContext": null}`)

	assert.Equal(t, 200, status)
}

func TestSendChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantRetry  interface{}
	}{
		{"throttled", &dto.ChatError{Kind: dto.ErrClientThrottled, Message: "slow down", RetryAfter: 60 * time.Second}, 429, 60.0},
		{"quota", &dto.ChatError{Kind: dto.ErrQuotaExceeded, Message: "busy", RetryAfter: 37 * time.Second}, 429, 37.0},
		{"unavailable", &dto.ChatError{Kind: dto.ErrServiceUnavailable, Message: "offline"}, 503, nil},
		{"configuration", &dto.ChatError{Kind: dto.ErrConfiguration, Message: "misconfigured"}, 500, nil},
		{"failed", &dto.ChatError{Kind: dto.ErrCompletionFailed, Message: "failed"}, 500, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&stubChatService{err: tt.err})

			status, body := postChat(t, app, `{"message": "hi"}`)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, true, body["fallback"])
			assert.Equal(t, tt.wantRetry, body["retryAfter"])
		})
	}
}

func TestSendChat_RetryAfterHeader(t *testing.T) {
	app := newTestApp(&stubChatService{err: &dto.ChatError{Kind: dto.ErrClientThrottled, Message: "slow down", RetryAfter: time.Minute}})

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestGetStatus(t *testing.T) {
	app := newTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body dto.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Available)
	assert.Equal(t, "gemini-2.0-flash", body.Model)
	assert.Equal(t, 15, body.RateLimit.RequestsRemaining)
}

func TestGetHealth(t *testing.T) {
	app := newTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "citizen-portal-assistant", body.Service)

	_, err = time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}
