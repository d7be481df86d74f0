package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/glukw/sshterm/internal/database"
)

// ListCommands returns the saved command shortcuts.
func ListCommands(w http.ResponseWriter, r *http.Request) {
	cmds, err := database.ListCommands()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, cmds)
}

// CreateCommand saves a new command shortcut and returns it.
func CreateCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label    string `json:"label"`
		Cmd      string `json:"cmd"`
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Label == "" || body.Cmd == "" {
		writeError(w, http.StatusBadRequest, "Label and cmd are required")
		return
	}
	if body.Category == "" {
		body.Category = "General"
	}

	cmd := database.Command{
		ID:       database.NewCommandID(),
		Label:    body.Label,
		Cmd:      body.Cmd,
		Category: body.Category,
	}
	if err := database.CreateCommand(&cmd); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

// DeleteCommand removes a saved command shortcut.
func DeleteCommand(w http.ResponseWriter, r *http.Request) {
	if err := database.DeleteCommand(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Command not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
