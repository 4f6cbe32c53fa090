package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/pugar/internal/build"
	rendererrors "github.com/conneroisu/pugar/internal/errors"
	"github.com/conneroisu/pugar/internal/version"
	"github.com/conneroisu/pugar/pkg/pug"
)

var errBadPath = errors.New("invalid page path")

// pageCandidates maps a request path to the source files that may serve it,
// most specific first.
func pageCandidates(urlPath string) ([]string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if clean == "" {
		return []string{"index" + pug.Extension}, nil
	}
	if !fs.ValidPath(clean) {
		return nil, errBadPath
	}
	if strings.HasSuffix(urlPath, "/") {
		return []string{clean + "/index" + pug.Extension}, nil
	}

	switch path.Ext(clean) {
	case pug.Extension:
		return []string{clean}, nil
	case ".html":
		clean = strings.TrimSuffix(clean, ".html")
	}
	return []string{clean + pug.Extension, clean + "/index" + pug.Extension}, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	candidates, err := pageCandidates(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fsys := s.renderer.Renderer().FS()
	for _, name := range candidates {
		if build.IsPartial(name) {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			http.Error(w, "Failed to read page", http.StatusInternalServerError)
			s.logger.Error(r.Context(), err, "reading page", "name", name)
			return
		}
		s.servePage(w, r, name, data)
		return
	}

	if r.URL.Path == "/" {
		s.handleIndex(w, r)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, name string, data []byte) {
	html, hit, err := s.renderer.Render(r.Context(), name, data)
	if err != nil {
		s.collector.ClearFile(name)
		s.collector.Add(rendererrors.FromError(name, err))
		s.logger.Error(r.Context(), err, "render failed", "name", name)
		templ.Handler(errorPage(s.collector.ErrorOverlay()),
			templ.WithStatus(http.StatusInternalServerError)).ServeHTTP(w, r)
		return
	}

	s.collector.ClearFile(name)
	s.logger.Debug(r.Context(), "rendered", "name", name, "cached", hit)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(injectReload(html)))
}

// handleIndex lists the pages under the source directory.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sources, err := build.Discover([]string{s.root}, s.config.Build.Exclude)
	if err != nil {
		http.Error(w, "Failed to list pages", http.StatusInternalServerError)
		s.logger.Error(r.Context(), err, "listing pages")
		return
	}

	links := make([]pageLink, 0, len(sources))
	for _, src := range sources {
		links = append(links, pageLink{
			Href: "/" + strings.TrimSuffix(src.Rel, pug.Extension),
			Name: src.Rel,
		})
	}
	templ.Handler(indexPage(s.root, links)).ServeHTTP(w, r)
}

// handleHealth returns the server health status for health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	sourceStatus := "healthy"
	if !s.sourceExists() {
		status, sourceStatus = "degraded", "missing"
	}

	checks := map[string]interface{}{
		"source":    map[string]interface{}{"status": sourceStatus, "root": s.root},
		"websocket": map[string]interface{}{"status": "healthy", "clients": s.ClientCount()},
		"render":    map[string]interface{}{"status": "healthy", "errors": len(s.collector.GetErrors())},
	}
	if s.store != nil {
		checks["cache"] = s.store.Stats()
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"checks":    checks,
	}
	s.writeJSON(w, r, health)
}

// handleErrors returns the current render failures
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, r, map[string]interface{}{"errors": s.collector.GetErrors()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "encoding response")
	}
}

// sourceExists reports whether the server root still exists.
func (s *Server) sourceExists() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}
