package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"`+email+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	userCtx := WithUser(context.Background(), auth.Actor{UserID: "user-1", Role: auth.RoleLeader})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/e1/submit", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	assert.Equal(t, http.StatusNoContent, serve(limited, first).Code)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/e1/submit", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, second).Code)
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "203.0.113.10:4444")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, loginRequest("b@example.com", "203.0.113.10:5555")).Code)
}

func TestRateLimitWindowReset(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())

	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "192.0.2.20:1111")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, loginRequest("a@example.com", "192.0.2.20:1111")).Code)

	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "192.0.2.20:1111")).Code)
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	serve(limited, loginRequest("a@example.com", "192.0.2.30:1234"))
	rec := serve(limited, loginRequest("a@example.com", "192.0.2.30:1234"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestLoginLimitKeepsBodyReadable(t *testing.T) {
	limited := SensitiveMutationRateLimit(40, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		assert.Equal(t, `{"email":"a@example.com"}`, buf.String())
		w.WriteHeader(http.StatusNoContent)
	}))
	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "192.0.2.31:1")).Code)
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles/c1/summary", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		assert.Equal(t, http.StatusNoContent, serve(limited, req).Code, "read request %d", i+1)
	}

	userCtx := WithUser(context.Background(), auth.Actor{UserID: "leader-1", Role: auth.RoleLeader})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/c1/employees/e1/transition", nil).WithContext(userCtx)
		req.RemoteAddr = "198.51.100.41:9999"
		want := http.StatusNoContent
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		assert.Equal(t, want, serve(limited, req).Code, "transition %d", i+1)
	}
}

func TestSensitiveRateScope(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   sensitiveScope
	}{
		{http.MethodPost, "/api/v1/auth/login", scopeLogin},
		{http.MethodPost, "/api/v1/users", scopeMutation},
		{http.MethodPost, "/api/v1/evaluations/x/submit", scopeMutation},
		{http.MethodPost, "/api/v1/cycles/c/employees/e/transition", scopeMutation},
		{http.MethodPost, "/api/v1/cycles/c/employees/e/f/transition", scopeNone},
		{http.MethodPut, "/api/v1/evaluations/x/weights", scopeNone},
		{http.MethodGet, "/api/v1/evaluations/x/submit", scopeNone},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		assert.Equal(t, tc.want, sensitiveRateScope(req), tc.path)
	}
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestRateLimitAllowsWhenCounterFails(t *testing.T) {
	limited := RateLimit(1, time.Minute, WithCounter(failingCounter{}))(noContent())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "192.0.2.50:1")).Code)
	}
}

func TestMemoryCounterResetsWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	count, resetIn, err := c.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, time.Minute, resetIn)

	now = now.Add(30 * time.Second)
	count, resetIn, _ = c.Incr(ctx, "k", time.Minute)
	assert.Equal(t, 2, count)
	assert.Equal(t, 30*time.Second, resetIn)

	now = now.Add(30 * time.Second)
	count, _, _ = c.Incr(ctx, "k", time.Minute)
	assert.Equal(t, 1, count)
}
