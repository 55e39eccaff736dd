package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"hrreview/internal/transport/http/api"
)

// Counter increments a fixed-window counter and reports the count inside the
// current window together with the time left until it resets.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

type KeyFunc func(r *http.Request) string

type LimitOption func(*limiter)

// WithCounter shares window state through counter, e.g. Redis across replicas.
func WithCounter(counter Counter) LimitOption {
	return func(l *limiter) {
		if counter != nil {
			l.counter = counter
		}
	}
}

type limiter struct {
	name    string
	limit   int
	window  time.Duration
	key     KeyFunc
	counter Counter
}

func newLimiter(name string, limit int, window time.Duration, key KeyFunc, opts ...LimitOption) *limiter {
	l := &limiter{name: name, limit: limit, window: window, key: key}
	for _, opt := range opts {
		opt(l)
	}
	if l.counter == nil {
		l.counter = NewMemoryCounter()
	}
	return l
}

// RateLimit caps requests per authenticated user, or per client IP for
// anonymous callers.
func RateLimit(limit int, window time.Duration, opts ...LimitOption) func(http.Handler) http.Handler {
	l := newLimiter("api", limit, window, userOrIP, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SensitiveMutationRateLimit applies tighter limits to login and to the
// mutations listed in sensitiveRoutes. Login is limited per IP and per email.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration, opts ...LimitOption) func(http.Handler) http.Handler {
	loginLimit := max(baseLimit/4, 1)
	byScope := map[sensitiveScope][]*limiter{
		scopeLogin: {
			newLimiter("login-ip", loginLimit, window, clientIPKey, opts...),
			newLimiter("login-email", loginLimit, window, loginEmailKey, opts...),
		},
		scopeMutation: {
			newLimiter("mutation", max(baseLimit/2, 1), window, userOrIP, opts...),
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, l := range byScope[sensitiveRateScope(r)] {
				if !l.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}

	key := l.key(r)
	if key == "" {
		key = clientIPKey(r)
	}
	key = "ratelimit:" + l.name + ":" + key

	count, resetIn, err := l.counter.Incr(r.Context(), key, l.window)
	if err != nil {
		slog.Warn("rate limit counter failed", "limiter", l.name, "err", err)
		return true
	}

	resetSec := ceilSeconds(resetIn)
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-count, 0)))
	headers.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if count <= l.limit {
		return true
	}

	headers.Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded",
		"limiter", l.name,
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", l.limit,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func userOrIP(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

// loginEmailKey reads the email from a JSON login body and restores the body
// for the handler.
func loginEmailKey(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return clientIPKey(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return clientIPKey(r)
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil || strings.TrimSpace(body.Email) == "" {
		return clientIPKey(r)
	}
	return "email:" + strings.ToLower(strings.TrimSpace(body.Email))
}

func clientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

type sensitiveScope int

const (
	scopeNone sensitiveScope = iota
	scopeLogin
	scopeMutation
)

// sensitiveRoutes are matched segment by segment against the path below
// /api/v1; "*" matches any single segment.
var sensitiveRoutes = []struct {
	pattern string
	scope   sensitiveScope
}{
	{"/auth/login", scopeLogin},
	{"/users", scopeMutation},
	{"/evaluations/*/submit", scopeMutation},
	{"/cycles/*/employees/*/transition", scopeMutation},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return scopeNone
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	for _, route := range sensitiveRoutes {
		if matchSegments(route.pattern, path) {
			return route.scope
		}
	}
	return scopeNone
}

func matchSegments(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}

// MemoryCounter keeps fixed windows in process memory.
type MemoryCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	count int
	reset time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{now: time.Now, windows: map[string]*memoryWindow{}}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.windows[key]
	if !ok || !now.Before(entry.reset) {
		if len(c.windows) >= 10000 {
			c.evictExpired(now)
		}
		entry = &memoryWindow{reset: now.Add(window)}
		c.windows[key] = entry
	}
	entry.count++
	return entry.count, entry.reset.Sub(now), nil
}

func (c *MemoryCounter) evictExpired(now time.Time) {
	for key, entry := range c.windows {
		if !now.Before(entry.reset) {
			delete(c.windows, key)
		}
	}
}
