package pug

import (
	"errors"
	"fmt"
)

var (
	// ErrIncludeCycle is returned when a file includes itself, directly or
	// through other files.
	ErrIncludeCycle = errors.New("include cycle")

	// ErrIncludeDepth is returned when includes nest deeper than
	// Options.MaxIncludeDepth.
	ErrIncludeDepth = errors.New("include depth exceeded")
)

// IncludeError reports an include line that could not be rendered.
type IncludeError struct {
	File string // including file, empty for string sources
	Line int    // one-based
	Ref  string // reference as written on the include line
	Err  error
}

func (e *IncludeError) Error() string {
	file := e.File
	if file == "" {
		file = "<string>"
	}
	return fmt.Sprintf("%s:%d: include %q: %v", file, e.Line, e.Ref, e.Err)
}

func (e *IncludeError) Unwrap() error {
	return e.Err
}
