package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/glukw/sshterm/internal/access"
	"github.com/glukw/sshterm/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SessionToken extracts the session token from a request: the session
// cookie when present, otherwise the token query parameter used by
// non-browser clients.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// ClientIP returns the peer address without the port. chi's RealIP
// middleware has already folded any proxy headers into RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequireSession gates a route group behind a valid session token. When
// authentication is not configured everything passes through. API and
// WebSocket paths answer 401 JSON, page paths redirect to the login form.
func RequireSession(guard *access.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard.TokenValid(SessionToken(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Unauthorized"})
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
		})
	}
}

// IPAllowlist rejects peers outside the configured networks. With no
// networks configured everything passes.
func IPAllowlist(guard *access.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guard.IPAllowed(ClientIP(r)) {
				writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
