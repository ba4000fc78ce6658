package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:5123"
	return req
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, request(http.MethodGet, "/api", ""))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestMaxBodySize(t *testing.T) {
	rec := httptest.NewRecorder()
	MaxBodySize(8)(ok).ServeHTTP(rec, request(http.MethodPost, "/api/context", `{"channelId":"x"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	MaxBodySize(64)(ok).ServeHTTP(rec, request(http.MethodPost, "/api/context", `{}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, "/api/context", `{}`, "application/json", http.StatusOK},
		{"json with charset", http.MethodPost, "/api/context", `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, "/api/context", `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"empty patch", http.MethodPatch, "/api/tasks/1", "", "", http.StatusOK},
		{"traversal", http.MethodGet, "/api/messages/../etc", "", "", http.StatusBadRequest},
		{"script in query", http.MethodGet, "/api/messages/c?limit=<script>", "", "", http.StatusBadRequest},
		{"plain get", http.MethodGet, "/api/messages/dev-frontend?limit=5", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(tt.method, "/", tt.body)
			req.URL.Path, req.URL.RawQuery, _ = strings.Cut(tt.path, "?")
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			ValidateRequest(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRealIP(t *testing.T) {
	req := request(http.MethodGet, "/", "")
	assert.Equal(t, "203.0.113.7", RealIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", RealIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", RealIP(req))
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	var seen string
	r.Get("/api/tasks/{channelId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		seen = routePattern(r)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, request(http.MethodGet, "/api/tasks/dev-frontend", ""))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	r.ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/probe", ""))
	assert.Equal(t, "/probe", seen)

	assert.Equal(t, "unmatched", routePattern(request(http.MethodGet, "/nowhere", "")))
}

func TestLogger_PassesThrough(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)

	rec := httptest.NewRecorder()
	Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})).ServeHTTP(rec, request(http.MethodGet, "/api/tasks/x", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"status":404`)
}

func limitedHandler(backend Backend, whitelist ...string) http.Handler {
	rl := NewRateLimiter(backend, zerolog.Nop(), RateLimiterConfig{
		Whitelist: whitelist,
		Limits: []RateLimit{
			{"POST /api/context", 2, time.Minute, ipKey},
			{"GET /api/", 100, time.Minute, ipKey},
		},
	})
	return rl.Middleware(ok)
}

func hit(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(method, path, ""))
	return rec
}

func TestRateLimiter_LocalBackend(t *testing.T) {
	h := limitedHandler(NewLocalBackend(100, time.Minute))

	first := hit(h, http.MethodPost, "/api/context")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/api/context").Code)

	blocked := hit(h, http.MethodPost, "/api/context")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// Other endpoints have their own limit.
	assert.Equal(t, http.StatusOK, hit(h, http.MethodGet, "/api/channels").Code)

	// Unlimited routes carry no headers.
	rec := hit(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiter_Whitelist(t *testing.T) {
	h := limitedHandler(NewLocalBackend(100, time.Minute), "203.0.113.0/24", "not-a-cidr/99")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/api/context").Code)
	}
}

func TestRateLimiter_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := limitedHandler(NewRedisBackend(client))

	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/api/context").Code)
	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/api/context").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, http.MethodPost, "/api/context").Code)
}

func TestRedisBackend_FaultAdmits(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	allowed, remaining, _ := NewRedisBackend(client).Allow(context.Background(), "k", 3, time.Minute)
	require.True(t, allowed)
	assert.Equal(t, 3, remaining)
}
