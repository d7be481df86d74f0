package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func setupStaticDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html": "INDEX",
		"login.html": "LOGIN",
		"app.js":     "JS",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func serveSPA(t *testing.T, h *SPAHandler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestSPAHandler_ServesRealFile(t *testing.T) {
	h := NewSPAHandler(os.DirFS(setupStaticDir(t)))
	rec := serveSPA(t, h, http.MethodGet, "/app.js")
	if rec.Code != http.StatusOK || rec.Body.String() != "JS" {
		t.Errorf("expected app.js content, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSPAHandler_RootServesIndex(t *testing.T) {
	h := NewSPAHandler(os.DirFS(setupStaticDir(t)))
	rec := serveSPA(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusOK || rec.Body.String() != "INDEX" {
		t.Errorf("expected index content, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSPAHandler_UnknownPathFallsBackToIndex(t *testing.T) {
	h := NewSPAHandler(os.DirFS(setupStaticDir(t)))
	rec := serveSPA(t, h, http.MethodGet, "/some/client/route")
	if rec.Code != http.StatusOK || rec.Body.String() != "INDEX" {
		t.Errorf("expected index fallback, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSPAHandler_LoginPage(t *testing.T) {
	h := NewSPAHandler(os.DirFS(setupStaticDir(t)))
	rec := serveSPA(t, h, http.MethodGet, "/login")
	if rec.Code != http.StatusOK || rec.Body.String() != "LOGIN" {
		t.Errorf("expected login page, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSPAHandler_NeverShadowsAPI(t *testing.T) {
	h := NewSPAHandler(os.DirFS(setupStaticDir(t)))
	for _, path := range []string{"/api/unknown", "/ws/ssh", "/health"} {
		rec := serveSPA(t, h, http.MethodGet, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestSPAHandler_NonGETRejected(t *testing.T) {
	h := NewSPAHandler(os.DirFS(setupStaticDir(t)))
	rec := serveSPA(t, h, http.MethodPost, "/")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for POST, got %d", rec.Code)
	}
}

func TestSPAHandler_MissingDirectory(t *testing.T) {
	h := NewSPAHandler(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	rec := serveSPA(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with no static directory, got %d", rec.Code)
	}
}
