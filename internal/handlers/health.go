package handlers

import (
	"net/http"

	"github.com/glukw/sshterm/internal/database"
)

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := database.Ping(); err != nil {
		dbStatus = "disconnected"
	}

	status := "ok"
	if dbStatus != "connected" {
		status = "degraded"
	}

	active := 0
	if Registry != nil {
		active = Registry.Count()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"database":        dbStatus,
		"active_sessions": active,
	})
}
