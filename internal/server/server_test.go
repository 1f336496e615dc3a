package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"socialhub/config"
	"socialhub/internal/domain/user"
	"socialhub/internal/handler"
	"socialhub/internal/metrics"
	"socialhub/internal/websocket"
	socialhub_errors "socialhub/pkg/errors"
	"socialhub/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string) (user.User, error) {
	return user.User{}, socialhub_errors.ErrUnauthorized
}

func newTestServer(health map[string]HealthChecker) *Server {
	cfg := config.Defaults()
	cfg.AppMode = TestMode
	s := New(&cfg, logger.NewNop())
	s.SetupRoutes(&Handlers{
		Chat:      handler.NewChatHandler(nil),
		Message:   handler.NewMessageHandler(nil, nil, nil, nil),
		Presence:  handler.NewPresenceHandler(nil, nil, nil),
		WebSocket: websocket.NewHandler(nil, denyAll{}),
	}, Dependencies{
		Auth:         denyAll{},
		Metrics:      metrics.New(),
		HealthChecks: health,
	})
	return s
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(nil)

	w := serve(s, http.MethodGet, "/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "socialhub_"), "custom collectors are exported")
}

func TestHealthReportsFailingDependency(t *testing.T) {
	s := newTestServer(map[string]HealthChecker{
		"database": func(context.Context) error { return errors.New("connection refused") },
	})

	w := serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/chats"},
		{http.MethodPost, "/v1/messages"},
		{http.MethodGet, "/v1/users/" + "00000000-0000-0000-0000-000000000000" + "/presence"},
		{http.MethodGet, "/v1/ws"},
	} {
		w := serve(s, tc.method, tc.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}
