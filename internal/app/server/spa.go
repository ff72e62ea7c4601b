package server

import (
	"net/http"
	"os"
	"path/filepath"
)

// spaHandler serves the built frontend and answers client routes such as
// /employees/edit/:id with index.html.
type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if err == nil || os.IsNotExist(err) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
