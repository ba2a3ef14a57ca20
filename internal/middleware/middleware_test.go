package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:5678", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		r.Header.Set("X-Forwarded-For", "203.0.113.7")
		if got := ClientIP(r); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestTrustedProxiesResolve(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.50"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer ignores headers", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "198.51.100.1:1234", "198.51.100.1"},
		{"untrusted peer ignores real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.1:1234", "198.51.100.1"},
		{"right-most untrusted hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"spoofed left hop is skipped", map[string]string{"X-Forwarded-For": "6.6.6.6, 203.0.113.8"}, "192.0.2.50:80", "203.0.113.8"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.1"}, "10.0.0.2:1234", "10.1.1.1"},
		{"real ip from trusted peer", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:1234", "198.51.100.4"},
		{"garbage hop stops the walk", map[string]string{"X-Forwarded-For": "203.0.113.7, not-an-ip"}, "10.0.0.2:1234", "10.0.0.2"},
		{"no headers", nil, "10.0.0.2:1234", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := proxies.Resolve(r); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Error("expected invalid prefix to be rejected")
	}
	if _, err := ParseTrustedProxies([]string{"proxy.local"}); err == nil {
		t.Error("expected hostname to be rejected")
	}
}

func TestRealIPRewritesRemoteAddr(t *testing.T) {
	proxies, _ := ParseTrustedProxies([]string{"10.0.0.0/8"})

	var seen string
	h := RealIP(proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if seen != "203.0.113.7" {
		t.Errorf("expected handler to see the forwarded client, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/abc", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	h := RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/list/{code}", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/list/aaaa", "/list/bbbb"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `route="/list/{code}"`) {
		t.Errorf("expected route pattern label, got:\n%s", body)
	}
	if strings.Contains(body, "aaaa") {
		t.Error("short codes must not appear in labels")
	}
}
