package pug

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// Extension is appended to include references that have none.
const Extension = ".pug"

// resolve maps an include reference to a name in the renderer's file system.
// Relative references are resolved against the including file, references
// starting with a slash against the root.
func resolve(current, ref string) string {
	ref = strings.TrimSpace(ref)
	var name string
	if strings.HasPrefix(ref, "/") {
		name = path.Clean(strings.TrimLeft(ref, "/"))
	} else {
		name = path.Join(path.Dir(current), ref)
	}
	if path.Ext(name) == "" {
		name += Extension
	}
	return name
}

// include renders the referenced file at the depth of the include line and
// returns its HTML for splicing.
func (p *parser) include(ref string, src SourceLine) (string, error) {
	name := resolve(p.file, ref)
	fail := func(err error) (string, error) {
		return "", &IncludeError{File: p.file, Line: src.Index + 1, Ref: ref, Err: err}
	}

	if p.level >= p.opts.MaxIncludeDepth {
		return fail(ErrIncludeDepth)
	}
	if slices.Contains(p.chain, name) {
		return fail(fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(p.chain, name), " -> ")))
	}

	b, err := fs.ReadFile(p.r.fsys, name)
	if err != nil {
		return fail(err)
	}
	text, err := Decode(b)
	if err != nil {
		return fail(err)
	}

	chain := append(slices.Clone(p.chain), name)
	return p.r.render(p.ctx, text, name, p.opts.nested(src.Depth), chain, p.level+1)
}
