package pug

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Renderer turns documents into HTML. It is safe for concurrent use; every
// render owns its own closure stack and output buffer.
type Renderer struct {
	opts Options
	fsys fs.FS
}

// New returns a renderer that resolves files and includes through fsys. A
// nil fsys means the working directory.
func New(opts Options, fsys fs.FS) *Renderer {
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	return &Renderer{opts: opts.withDefaults(), fsys: fsys}
}

// Options returns the effective options with defaults applied.
func (r *Renderer) Options() Options {
	return r.opts
}

// RenderString renders src. Includes are resolved from the root of the
// renderer's file system.
func (r *Renderer) RenderString(ctx context.Context, src string) (string, error) {
	return r.render(ctx, src, "", r.opts, nil, 0)
}

// RenderFile reads name from the renderer's file system and renders it.
func (r *Renderer) RenderFile(ctx context.Context, name string) (string, error) {
	b, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return r.RenderSource(ctx, name, b)
}

// RenderSource renders already loaded bytes as if they were read from name,
// so includes resolve relative to it.
func (r *Renderer) RenderSource(ctx context.Context, name string, b []byte) (string, error) {
	src, err := Decode(b)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", name, err)
	}
	return r.render(ctx, src, name, r.opts, []string{name}, 0)
}

// FS returns the file system includes are resolved from.
func (r *Renderer) FS() fs.FS {
	return r.fsys
}

// Render renders src with includes resolved from the working directory.
func Render(src string, opts Options) (string, error) {
	return New(opts, nil).RenderString(context.Background(), src)
}

// RenderFile renders the file at path with includes resolved from its
// directory.
func RenderFile(path string, opts Options) (string, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return New(opts, os.DirFS(dir)).RenderFile(context.Background(), name)
}

func (r *Renderer) render(ctx context.Context, src, file string, opts Options, chain []string, level int) (string, error) {
	p := &parser{
		r:      r,
		ctx:    ctx,
		file:   file,
		opts:   opts,
		interp: opts.interpolation(),
		chain:  chain,
		level:  level,
		stack:  newClosureStack(opts.IndentUnit),
	}
	return p.run(src)
}

// parser holds the state of one document render.
type parser struct {
	r      *Renderer
	ctx    context.Context
	file   string
	opts   Options
	interp InterpolationContext
	chain  []string // files being rendered, outermost first
	level  int      // number of includes above this document
	stack  *closureStack
}

func (p *parser) run(src string) (string, error) {
	var out strings.Builder
	for line := range Lines(src) {
		if err := p.ctx.Err(); err != nil {
			return "", err
		}
		if line.Blank() {
			continue
		}

		if line.Sentinel {
			line.Depth = p.opts.AdditionalIndent
		} else {
			line.Depth = Depth(line.Raw, p.opts.AdditionalIndent)
		}
		closing := p.stack.flush(line.Depth)
		if line.Sentinel {
			out.WriteString(closing)
			break
		}

		el, err := p.format(strings.TrimSpace(line.Raw), line)
		if err != nil {
			return "", err
		}
		opening := strings.TrimLeftFunc(el.Opening, unicode.IsSpace)
		out.WriteString(closing)
		if opening == "" {
			continue
		}
		p.stack.push(line.Index, line.Depth, el)
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(Indentation(line.Depth, p.opts.IndentUnit))
		out.WriteString(opening)
	}
	return out.String(), nil
}
