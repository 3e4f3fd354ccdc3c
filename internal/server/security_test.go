package server

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHSTSHeader(t *testing.T) {
	tests := []struct {
		name string
		hsts *HSTSConfig
		want string
	}{
		{"max age only", &HSTSConfig{MaxAge: 60}, "max-age=60"},
		{"subdomains", &HSTSConfig{MaxAge: 60, IncludeSubDomains: true}, "max-age=60; includeSubDomains"},
		{"preload", &HSTSConfig{MaxAge: 60, IncludeSubDomains: true, Preload: true}, "max-age=60; includeSubDomains; preload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildHSTSHeader(tt.hsts))
		})
	}
}

func TestBuildPermissionsPolicyHeader(t *testing.T) {
	got := buildPermissionsPolicyHeader(&PermissionsPolicyConfig{Fullscreen: []string{"self"}})
	assert.Equal(t, "geolocation=(), camera=(), microphone=(), payment=(), usb=(), fullscreen=(self)", got)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": " 10.0.0.9 "}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestHSTSOnlyOverTLS(t *testing.T) {
	h := SecurityMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "same-origin", rec.Header().Get("Cross-Origin-Opener-Policy"))
}
