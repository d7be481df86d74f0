package handlers

import (
	"net/http"

	"github.com/glukw/sshterm/internal/config"
	"github.com/glukw/sshterm/internal/middleware"
	"github.com/glukw/sshterm/internal/session"
)

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(config.SessionMaxAge().Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Login checks the admin password and issues the session cookie. With no
// admin password configured there is nothing to match, so every attempt
// fails.
func Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !session.CheckAdminPassword(config.Cfg.AdminPassword, body.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := session.Issue(config.Cfg.SecretKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	setSessionCookie(w, r, token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout clears the session cookie. Tokens expire on their own; there is
// no revocation list.
func Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AuthStatus reports whether authentication is configured and whether the
// caller currently holds a valid session. The login page uses it to decide
// whether to show the password form.
func AuthStatus(w http.ResponseWriter, r *http.Request) {
	authEnabled := config.AuthEnabled()
	authenticated := !authEnabled ||
		session.Verify(middleware.SessionToken(r), config.Cfg.SecretKey, config.SessionMaxAge())
	writeJSON(w, http.StatusOK, map[string]bool{
		"auth_enabled":  authEnabled,
		"authenticated": authenticated,
	})
}
