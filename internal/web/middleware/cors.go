package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Accept, Content-Type, X-Requested-With"
	corsMaxAge       = "86400"
)

// originPolicy decides which browser origins receive CORS headers.
// Loopback origins are always accepted so the kiosk page can be developed
// against a local server.
type originPolicy map[string]struct{}

func newOriginPolicy(configured []string) originPolicy {
	p := make(originPolicy, len(configured))
	for _, o := range configured {
		if o = strings.TrimSpace(o); o != "" {
			p[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if isLocalhostOrigin(origin) {
		return true
	}
	_, ok := p[origin]
	return ok
}

// isLocalhostOrigin reports whether origin is an http(s) origin on a loopback host.
func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if u.Path != "" || u.User != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// CORS answers preflight requests and echoes allowed origins back to the browser.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			if origin := r.Header.Get("Origin"); policy.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets a same-origin content security policy and forbids framing.
// The kiosk page loads images from blob: URLs and inline styles.
func SecurityHeaders() func(http.Handler) http.Handler {
	const csp = "default-src 'self'; img-src 'self' data: blob:; connect-src 'self'; " +
		"style-src 'self' 'unsafe-inline'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
