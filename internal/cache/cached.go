package cache

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/conneroisu/pugar/internal/logging"
	"github.com/conneroisu/pugar/pkg/pug"
)

// Open returns the store for backend. dir is the directory for the file
// backend and the directory holding renders.db for sqlite.
func Open(backend, dir string, ttl time.Duration) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir, ttl)
	case "sqlite":
		if dir == "" {
			dir = DefaultDir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
		return OpenSQLite(filepath.Join(dir, "renders.db"), ttl)
	case "memory":
		return NewMemoryStore(0, ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// Cached fronts a renderer with a store. A nil store or a disabled Cached
// renders every time.
type Cached struct {
	renderer *pug.Renderer
	store    Store
	enabled  bool
	logger   logging.Logger
}

// NewCached wraps renderer. store may be nil when enabled is false.
func NewCached(renderer *pug.Renderer, store Store, enabled bool, logger logging.Logger) *Cached {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Cached{
		renderer: renderer,
		store:    store,
		enabled:  enabled && store != nil,
		logger:   logger.WithComponent("cache"),
	}
}

// Renderer returns the wrapped renderer.
func (c *Cached) Renderer() *pug.Renderer { return c.renderer }

// Render renders source as the file name. The bool reports a cache hit.
// Store failures are logged and fall back to rendering.
func (c *Cached) Render(ctx context.Context, name string, source []byte) (string, bool, error) {
	if !c.enabled {
		out, err := c.render(ctx, name, source)
		return out, false, err
	}

	key, err := Key(c.renderer.Options(), name, c.material(name, source))
	if err != nil {
		return "", false, err
	}

	body, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn(ctx, err, "cache lookup failed", "name", name)
	}
	if ok {
		c.logger.Debug(ctx, "cache hit", "name", name, "key", key[:12])
		return string(body), true, nil
	}

	out, err := c.render(ctx, name, source)
	if err != nil {
		return "", false, err
	}
	if err := c.store.Put(ctx, key, []byte(out)); err != nil {
		c.logger.Warn(ctx, err, "cache store failed", "name", name)
	}
	return out, false, nil
}

// material is the source followed by the content of every file it
// includes, so editing a partial invalidates the pages using it.
func (c *Cached) material(name string, source []byte) []byte {
	deps := c.renderer.Dependencies(name, source)
	if len(deps) == 0 {
		return source
	}
	buf := bytes.NewBuffer(slices.Clip(source))
	for _, dep := range deps {
		buf.WriteString("\x00include\x00")
		buf.WriteString(dep)
		buf.WriteByte(0)
		if body, err := fs.ReadFile(c.renderer.FS(), dep); err == nil {
			buf.Write(body)
		}
	}
	return buf.Bytes()
}

func (c *Cached) render(ctx context.Context, name string, source []byte) (string, error) {
	if name == "" {
		text, err := pug.Decode(source)
		if err != nil {
			return "", err
		}
		return c.renderer.RenderString(ctx, text)
	}
	return c.renderer.RenderSource(ctx, name, source)
}
