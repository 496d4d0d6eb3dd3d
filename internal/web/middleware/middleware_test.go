package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/tbrates/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.SecurityConfig
		key        string
		wantStatus int
	}{
		{name: "disabled", cfg: config.SecurityConfig{}, wantStatus: http.StatusOK},
		{name: "missing key", cfg: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", cfg: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, key: "k2", wantStatus: http.StatusForbidden},
		{name: "second key matches", cfg: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}, key: "k2", wantStatus: http.StatusOK},
		{name: "no keys configured", cfg: config.SecurityConfig{RequireAPIKey: true}, key: "k1", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(&tt.cfg)(okHandler())
			req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), `"code":"AUTH`)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remote     string
		realIP     string
		forwarded  string
		wantRemote string
	}{
		{name: "no trusted proxies ignores headers", remote: "10.0.0.1:5000", realIP: "1.2.3.4", wantRemote: "10.0.0.1:5000"},
		{name: "trusted proxy real ip", trusted: []string{"10.0.0.0/8"}, remote: "10.0.0.1:5000", realIP: "1.2.3.4", wantRemote: "1.2.3.4"},
		{name: "trusted proxy forwarded chain", trusted: []string{"10.0.0.1"}, remote: "10.0.0.1:5000", forwarded: "5.6.7.8, 10.0.0.1", wantRemote: "5.6.7.8"},
		{name: "untrusted client spoofing", trusted: []string{"10.0.0.0/8"}, remote: "192.168.1.9:5000", realIP: "1.2.3.4", wantRemote: "192.168.1.9:5000"},
		{name: "garbage header ignored", trusted: []string{"10.0.0.0/8"}, remote: "10.0.0.1:5000", realIP: "not-an-ip", wantRemote: "10.0.0.1:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := TrustedRealIP(tt.trusted)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantRemote, rec.Body.String())
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got := ParseTrustedProxies([]string{"10.0.0.0/8", " 127.0.0.1 ", "", "bogus", "::1"})
	if assert.Len(t, got, 3) {
		assert.Equal(t, "10.0.0.0/8", got[0].String())
		assert.Equal(t, "127.0.0.1/32", got[1].String())
		assert.Equal(t, "::1/128", got[2].String())
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK) // ignored
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	ww := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	ww.Write([]byte("abc"))
	assert.Equal(t, 3, ww.bytes)
	assert.Equal(t, http.StatusOK, ww.status)
}
