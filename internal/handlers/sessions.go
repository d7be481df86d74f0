package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glukw/sshterm/internal/bridge"
)

// Registry is set from main.go during init.
var Registry *bridge.Registry

// ListSessions returns the active terminal sessions.
func ListSessions(w http.ResponseWriter, r *http.Request) {
	if Registry == nil {
		writeJSON(w, http.StatusOK, []bridge.Info{})
		return
	}
	writeJSON(w, http.StatusOK, Registry.List())
}

// CloseSession force-closes an active terminal session.
func CloseSession(w http.ResponseWriter, r *http.Request) {
	if Registry == nil || !Registry.Close(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
