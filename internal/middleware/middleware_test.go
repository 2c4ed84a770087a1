package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"registrationportal/internal/cache"
	"registrationportal/internal/ctxdata"
	"registrationportal/internal/errdefs"
	"registrationportal/internal/logging"
	"registrationportal/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── ClientIP ──

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr only", nil, "198.51.100.9:5000", "198.51.100.9"},
		{"forwarded public", map[string]string{"X-Forwarded-For": "81.2.69.160"}, "10.0.0.1:1", "81.2.69.160"},
		{"skips private hops", map[string]string{"X-Forwarded-For": "10.1.1.1, 192.168.0.4, 81.2.69.161"}, "10.0.0.1:1", "81.2.69.161"},
		{"real ip", map[string]string{"X-Real-IP": "2a00:1450:4001:81b::200e"}, "10.0.0.1:1", "2a00:1450:4001:81b::200e"},
		{"client ip header", map[string]string{"Client-IP": "1.1.1.1"}, "10.0.0.1:1", "1.1.1.1"},
		{"skips shared and documentation ranges", map[string]string{"X-Forwarded-For": "100.64.0.5, 192.0.2.4, 198.51.100.7, 203.0.113.9, 81.2.69.162"}, "10.0.0.1:1", "81.2.69.162"},
		{"only reserved falls back", map[string]string{"X-Forwarded-For": "100.127.255.1, 198.18.0.1, 240.0.0.1", "X-Real-IP": "2001:db8::1"}, "10.0.0.1:1", "10.0.0.1"},
		{"only private falls back", map[string]string{"X-Forwarded-For": "127.0.0.1, 172.16.0.3"}, "192.0.2.1:80", "192.0.2.1"},
		{"garbage header", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.0.2.1:80", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

// ── logging ──

func TestLoggingMiddleware_PopulatesContext(t *testing.T) {
	var gotTrace, gotIP string
	var hasLogger bool
	h := NewLoggingMiddleware(logging.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace, _ = ctxdata.GetTraceID(r.Context())
		gotIP, _ = ctxdata.GetClientIP(r.Context())
		_, hasLogger = logging.GetFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "81.2.69.160")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.NotEmpty(t, gotTrace)
	assert.Equal(t, gotTrace, w.Header().Get("X-Trace-Id"))
	assert.Equal(t, "81.2.69.160", gotIP)
	assert.True(t, hasLogger)
}

// ── security headers ──

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
}

// ── metrics ──

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(m))
	r.Get("/success", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/success?id=x", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/success", "303")))
}

// ── rate limit ──

func TestRateLimit(t *testing.T) {
	store := cache.NewMemoryCache()
	calls := 0
	var rejected []error
	reject := func(w http.ResponseWriter, _ *http.Request, err error) {
		rejected = append(rejected, err)
		w.WriteHeader(http.StatusTooManyRequests)
	}
	h := NewRateLimitMiddleware(store, time.Minute, reject)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	post := func(ip string) int {
		r := httptest.NewRequest(http.MethodPost, "/submit", nil)
		r = r.WithContext(ctxdata.WithClientIP(context.Background(), ip))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7"))
	assert.Equal(t, http.StatusOK, post("203.0.113.8"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/submit", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, calls)
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], errdefs.ErrRateLimited)
}

func TestRateLimit_DefaultReject(t *testing.T) {
	h := NewRateLimitMiddleware(cache.NewMemoryCache(), 30*time.Second, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/submit", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "30", last.Header().Get("Retry-After"))
}

func TestRateLimit_DisabledByDefault(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := NewRateLimitMiddleware(cache.NewMemoryCache(), 0, nil)(next)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
