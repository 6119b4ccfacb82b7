package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_IsSuspicious(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{name: "dashboard", method: http.MethodGet, target: "/", want: false},
		{name: "expenses for a day", method: http.MethodGet, target: "/ui/expenses?date=2024-03-01", want: false},
		{name: "dotenv probe", method: http.MethodGet, target: "/.env", want: true},
		{name: "traversal in query", method: http.MethodGet, target: "/ui/expenses?date=../../etc/passwd", want: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: true},
		{name: "trace method", method: "TRACE", target: "/", want: true},
		{name: "overlong url", method: http.MethodGet, target: "/?q=" + strings.Repeat("a", maxURLLength), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			assert.Equal(t, tt.want, d.IsSuspicious(r))
		})
	}
}

func TestDetector_MiddlewareCountsButServes(t *testing.T) {
	d := NewDetector(nil)
	served := false
	h := d.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { served = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	assert.True(t, served)
	assert.Equal(t, int64(1), d.SuspiciousRequests())
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.7", d.ExtractClientIP(r), "untrusted peer cannot forward")

	r.RemoteAddr = "10.1.2.3:4000"
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(r))

	r.Header.Set("X-Forwarded-For", "garbage")
	r.Header.Set("X-Real-IP", "198.51.100.9")
	assert.Equal(t, "198.51.100.9", d.ExtractClientIP(r))

	require.Error(t, d.AddTrustedProxy("nope"))
	require.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))
	r.RemoteAddr = "203.0.113.7:4000"
	assert.Equal(t, "198.51.100.9", d.ExtractClientIP(r))
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "cdn.jsdelivr.net")
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}
