package build

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/conneroisu/pugar/pkg/pug"
)

// Source is a page discovered under one of the source roots.
type Source struct {
	// Root is the source directory the page was found in.
	Root string
	// Rel is the slash separated path relative to Root.
	Rel string
}

// Path returns the page's path on disk.
func (s Source) Path() string {
	return filepath.Join(s.Root, filepath.FromSlash(s.Rel))
}

// OutputPath maps the page into outDir with an .html extension.
func (s Source) OutputPath(outDir string) string {
	rel := strings.TrimSuffix(s.Rel, pug.Extension) + ".html"
	return filepath.Join(outDir, filepath.FromSlash(rel))
}

// IsPartial reports whether name is only meant to be included.
func IsPartial(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "_")
}

// Discover walks roots for pages. Partials, hidden directories and paths
// matching an exclude pattern are skipped. Results are sorted per root.
func Discover(roots, exclude []string) ([]Source, error) {
	var sources []Source
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("source dir %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source dir %s: not a directory", root)
		}

		var found []Source
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel != "." && (strings.HasPrefix(d.Name(), ".") || excluded(rel, exclude)) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != pug.Extension || IsPartial(path) || excluded(rel, exclude) {
				return nil
			}
			found = append(found, Source{Root: root, Rel: rel})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}

		slices.SortFunc(found, func(a, b Source) int { return strings.Compare(a.Rel, b.Rel) })
		sources = append(sources, found...)
	}
	return sources, nil
}

// excluded matches patterns against the relative path and its base name.
func excluded(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
