// Package server is the development server: it renders pages on request,
// shows render failures in an overlay and reloads the browser when sources
// change.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/pugar/internal/cache"
	"github.com/conneroisu/pugar/internal/config"
	rendererrors "github.com/conneroisu/pugar/internal/errors"
	"github.com/conneroisu/pugar/internal/logging"
	"github.com/conneroisu/pugar/internal/watcher"
	"github.com/conneroisu/pugar/pkg/pug"
)

// Server serves rendered pages with live reload.
type Server struct {
	config       *config.Config
	root         string
	renderer     *cache.Cached
	store        cache.Store
	collector    *rendererrors.ErrorCollector
	watcher      *watcher.FileWatcher
	logger       logging.Logger
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}
	hubOnce      sync.Once
	shutdownOnce sync.Once
}

// New creates a server rendering pages from the first configured source
// directory. store may be nil.
func New(cfg *config.Config, store cache.Store, logger logging.Logger) (*Server, error) {
	if len(cfg.Build.SourceDirs) == 0 {
		return nil, errors.New("no source directory configured")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	root := cfg.Build.SourceDirs[0]
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source dir %s is not a directory", root)
	}

	fileWatcher, err := watcher.NewFileWatcher(300*time.Millisecond, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	renderer := pug.New(cfg.Render.Options(), os.DirFS(root))
	return &Server{
		config:     cfg,
		root:       root,
		renderer:   cache.NewCached(renderer, store, cfg.Cache.Enabled, logger),
		store:      store,
		collector:  rendererrors.NewErrorCollector(),
		watcher:    fileWatcher,
		logger:     logger,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}, nil
}

// Handler returns the server's routes wrapped in its middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/errors", s.handleErrors)
	mux.HandleFunc("/", s.handlePage)
	return s.addMiddleware(mux)
}

// Start watches the sources and serves until ctx is done or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	s.startHub(ctx)
	if err := s.setupFileWatcher(ctx); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "shutdown")
		}
	}()

	if s.config.Server.Open {
		go s.openBrowser("http://" + addr)
	}

	s.logger.Info(ctx, "serving", "addr", addr, "root", s.root)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) startHub(ctx context.Context) {
	s.hubOnce.Do(func() { go s.runWebSocketHub(ctx) })
}

func (s *Server) setupFileWatcher(ctx context.Context) error {
	s.watcher.AddFilter(watcher.PugFilter)
	s.watcher.AddFilter(watcher.NoGitFilter)
	s.watcher.AddFilter(watcher.NoHiddenFilter)
	s.watcher.AddHandler(s.handleFileChange)

	if err := s.watcher.AddRecursive(s.root); err != nil {
		return fmt.Errorf("watching %s: %w", s.root, err)
	}
	return s.watcher.Start(ctx)
}

// handleFileChange tells every browser to reload. Stale overlay entries for
// the changed files are dropped; the next request renders them again.
func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	for _, event := range events {
		s.logger.Info(context.Background(), "file changed", "path", event.Path, "type", event.Type.String())
	}
	s.collector.Clear()
	target := ""
	if len(events) == 1 {
		target = events[0].Path
	}
	s.Broadcast(UpdateMessage{Type: "reload", Target: target})
	return nil
}

func (s *Server) openBrowser(rawURL string) {
	time.Sleep(100 * time.Millisecond)

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		s.logger.Warn(context.Background(), err, "refusing to open browser", "url", rawURL)
		return
	}

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", u.String()).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", u.String()).Start()
	case "darwin":
		err = exec.Command("open", u.String()).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(context.Background(), err, "failed to open browser")
	}
}

func (s *Server) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Errors returns the render failures shown in the overlay.
func (s *Server) Errors() *rendererrors.ErrorCollector { return s.collector }

// Shutdown stops the watcher and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down")
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "stopping watcher")
		}

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}
