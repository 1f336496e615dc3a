package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialhub/internal/domain/user"
	"socialhub/internal/redis"
	"socialhub/internal/services"
	socialhub_errors "socialhub/pkg/errors"
	"socialhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	users map[string]user.User
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (user.User, error) {
	u, ok := f.users[token]
	if !ok {
		return user.User{}, socialhub_errors.ErrUnauthorized
	}
	return u, nil
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f fakeLimiter) AllowMessage(context.Context, string) (*redis.RateLimitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &redis.RateLimitResult{Allowed: f.allowed, Limit: 10, ResetIn: 30 * time.Second}, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/me", func(c *gin.Context) {
		id, _ := services.UserIDFromContext(c.Request.Context())
		c.String(http.StatusOK, id.String())
	})
	return r
}

func get(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	alice := user.User{ID: uuid.New(), Name: "Alice"}
	r := newEngine(AuthMiddleware(fakeAuth{users: map[string]user.User{"good": alice}}))

	w := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, http.Header{"Authorization": {"Bearer bad"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	w = get(r, http.Header{"Authorization": {"Bearer good"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alice.ID.String(), w.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := get(r, nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = get(r, http.Header{RequestIDHeader: {"abc"}})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestMessageRateLimitMiddleware(t *testing.T) {
	alice := user.User{ID: uuid.New()}
	auth := AuthMiddleware(fakeAuth{users: map[string]user.User{"t": alice}})
	header := http.Header{"Authorization": {"Bearer t"}}

	w := get(newEngine(auth, MessageRateLimitMiddleware(nil)), header)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(newEngine(auth, MessageRateLimitMiddleware(fakeLimiter{allowed: true})), header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))

	w = get(newEngine(auth, MessageRateLimitMiddleware(fakeLimiter{allowed: false})), header)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("X-RateLimit-Reset"))

	w = get(newEngine(auth, MessageRateLimitMiddleware(fakeLimiter{err: errors.New("down")})), header)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorHandlerMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/forbidden", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("edit: %w", socialhub_errors.ErrForbidden))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db exploded"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forbidden", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
	assert.NotContains(t, w.Body.String(), "exploded")
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(CORSMiddleware())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/me", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
