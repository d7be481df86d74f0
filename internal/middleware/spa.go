package middleware

import (
	"io/fs"
	"net/http"
	"strings"
)

// SPAHandler serves the terminal UI: real files when they exist, the login
// page at /login, and index.html for anything else so client-side routing
// works. A missing static directory degrades to 404s.
type SPAHandler struct {
	fs        http.FileSystem
	indexHTML []byte
	loginHTML []byte
}

func NewSPAHandler(fsys fs.FS) *SPAHandler {
	index, _ := fs.ReadFile(fsys, "index.html")
	login, _ := fs.ReadFile(fsys, "login.html")
	return &SPAHandler{
		fs:        http.FS(fsys),
		indexHTML: index,
		loginHTML: login,
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") || r.URL.Path == "/health" {
		http.NotFound(w, r)
		return
	}

	if r.URL.Path == "/login" {
		if h.loginHTML == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(h.loginHTML)
		return
	}

	// Try to serve the actual file
	path := strings.TrimPrefix(r.URL.Path, "/")
	if f, err := h.fs.Open(path); err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			http.FileServer(h.fs).ServeHTTP(w, r)
			return
		}
	}

	// Fall back to index.html for client-side routing
	if h.indexHTML != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(h.indexHTML)
		return
	}

	http.NotFound(w, r)
}
