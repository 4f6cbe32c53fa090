package pug

import (
	"io/fs"
	"slices"
	"strings"
)

// Dependencies returns every file that rendering src as name would include,
// directly or transitively, in first-seen order. References that cannot be
// read are still listed but not followed; rendering reports them.
func (r *Renderer) Dependencies(name string, src []byte) []string {
	var (
		deps []string
		seen = map[string]bool{name: true}
		walk func(file string, b []byte)
	)
	interp := r.opts.interpolation()

	walk = func(file string, b []byte) {
		text, err := Decode(b)
		if err != nil {
			return
		}
		for line := range Lines(text) {
			trimmed := strings.TrimSpace(line.Raw)
			if line.Sentinel || trimmed == "" || isComment(trimmed) || isBlockingComment(trimmed) || isRawHTML(trimmed) {
				continue
			}
			ex := extract(trimmed)
			if ex.tag != "include" {
				continue
			}
			dep := resolve(file, Interpolate(ex.text, interp))
			if seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
			if body, err := fs.ReadFile(r.fsys, dep); err == nil {
				walk(dep, body)
			}
		}
	}
	walk(name, src)
	return slices.Clip(deps)
}
