package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/detector/mock"
	"github.com/kozaktomas/face-recognizer/internal/enrollment"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Web.AllowedOrigins = []string{"https://kiosk.example"}

	st, err := store.NewDiskStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	det := mock.NewDetector()
	svc := enrollment.New(st, det, enrollment.Options{}, zerolog.Nop())

	return NewServer(cfg, Deps{
		Enrollment: svc,
		Store:      st,
		Detector:   det,
		Events:     recognition.NewBroadcaster(),
	}, zerolog.Nop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/api/v1/health", http.StatusOK, "application/json"},
		{"/saved-faces", http.StatusOK, "application/json"},
		{"/api/v1/gallery", http.StatusOK, "application/json"},
		{"/api/v1/recognition", http.StatusOK, "application/json"},
		{"/uploads/missing.jpg", http.StatusNotFound, "application/json"},
		{"/", http.StatusOK, "text/html; charset=utf-8"},
		{"/app.js", http.StatusOK, "text/javascript; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			recorder := get(t, s, tt.path)
			assert.Equal(t, tt.status, recorder.Code, recorder.Body.String())
			assert.Equal(t, tt.contentType, recorder.Header().Get("Content-Type"))
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)
	get(t, s, "/api/v1/health")

	recorder := get(t, s, "/metrics")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "faces_http_request_duration_seconds")
}

func TestServer_KioskPage(t *testing.T) {
	s := newTestServer(t)

	page := get(t, s, "/")
	assert.Contains(t, page.Body.String(), `<script src="/app.js"`)
	assert.NotContains(t, page.Header().Get("Content-Security-Policy"), "unsafe-eval")
	assert.Equal(t, "DENY", page.Header().Get("X-Frame-Options"))

	script := get(t, s, "/app.js")
	assert.Contains(t, script.Body.String(), "/api/v1/recognition/events")
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://kiosk.example")
	recorder := httptest.NewRecorder()

	s.Router().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "https://kiosk.example", recorder.Header().Get("Access-Control-Allow-Origin"))
}
