package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
)

type counterStub struct {
	hits map[string]int64
	err  error
}

func (c *counterStub) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.hits[key]++
	return c.hits[key], nil
}

func limitedRouter(t *testing.T, counter windowCounter) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt := auth.NewJWTManager("test-secret", time.Minute)
	rl := newRateLimiter(counter, 2, time.Minute, "preview", slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	r.POST("/preview", auth.AuthRequired(jwt), rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, jwt
}

func hit(t *testing.T, r http.Handler, jwt *auth.JWTManager, user string) int {
	t.Helper()
	token, err := jwt.GenerateAccessToken(user, "member")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/preview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_PerUser(t *testing.T) {
	counter := &counterStub{hits: map[string]int64{}}
	r, jwt := limitedRouter(t, counter)

	assert.Equal(t, http.StatusNoContent, hit(t, r, jwt, "alice"))
	assert.Equal(t, http.StatusNoContent, hit(t, r, jwt, "alice"))
	assert.Equal(t, http.StatusTooManyRequests, hit(t, r, jwt, "alice"))
	assert.Equal(t, http.StatusNoContent, hit(t, r, jwt, "bob"))

	assert.Equal(t, int64(3), counter.hits["preview:alice"])
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	r, jwt := limitedRouter(t, &counterStub{err: errors.New("connection refused")})

	for range 5 {
		assert.Equal(t, http.StatusNoContent, hit(t, r, jwt, "alice"))
	}
}

func TestRouter_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Config{JWTManager: auth.NewJWTManager("test-secret", time.Minute)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAllowedOrigins(t *testing.T) {
	assert.Contains(t, allowedOrigins(false, ""), "http://localhost:3000")
	assert.Equal(t, []string{"https://a.example", "https://b.example"},
		allowedOrigins(true, " https://a.example , https://b.example,"))
}
