package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithCORS(allowed []string, method, origin string) *httptest.ResponseRecorder {
	handler := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/saved-faces", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestCORS_AllowsLocalhost(t *testing.T) {
	recorder := serveWithCORS(nil, http.MethodGet, "http://localhost:3000")

	assert.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func TestCORS_AllowsConfiguredOrigins(t *testing.T) {
	allowed := []string{" https://kiosk.example/ ", ""}

	recorder := serveWithCORS(allowed, http.MethodGet, "https://kiosk.example")
	assert.Equal(t, "https://kiosk.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	recorder = serveWithCORS(allowed, http.MethodGet, "https://evil.example")
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOrigin(t *testing.T) {
	recorder := serveWithCORS([]string{"https://kiosk.example"}, http.MethodGet, "")

	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func TestCORS_Preflight(t *testing.T) {
	recorder := serveWithCORS(nil, http.MethodOptions, "http://localhost:5173")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Origin", recorder.Header().Get("Vary"))
}

func TestIsLocalhostOrigin(t *testing.T) {
	assert.True(t, isLocalhostOrigin("http://localhost"))
	assert.True(t, isLocalhostOrigin("https://localhost:8443"))
	assert.True(t, isLocalhostOrigin("http://127.0.0.1:5000"))
	assert.True(t, isLocalhostOrigin("http://[::1]:5000"))
	assert.False(t, isLocalhostOrigin("http://localhost.evil.example"))
	assert.False(t, isLocalhostOrigin("http://localhost@evil.example"))
	assert.False(t, isLocalhostOrigin("ftp://localhost"))
	assert.False(t, isLocalhostOrigin("http://127.0.0.2"))
	assert.False(t, isLocalhostOrigin("https://example.com"))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", recorder.Header().Get("Referrer-Policy"))
	assert.Contains(t, recorder.Header().Get("Content-Security-Policy"), "default-src 'self'")
}
