package pug

import (
	"slices"
	"strings"
)

// PendingClosure is the markup still owed for a line that opened at Depth.
// Closing is empty for elements that need no end tag; the entry is kept
// anyway so the layout break after it is preserved. Inner, when set, is
// written on its own line one level deeper, just before Closing.
type PendingClosure struct {
	Closing string
	Inner   string
	Depth   int
	Line    int
}

// closureStack tracks, per depth, the closing markup of every still-open
// line. There is at most one entry per depth.
type closureStack struct {
	entries map[int]PendingClosure
	unit    int
}

func newClosureStack(unit int) *closureStack {
	return &closureStack{
		entries: make(map[int]PendingClosure),
		unit:    unit,
	}
}

// flush removes every entry at depth or deeper and returns their closing
// markup, deepest first. A closed entry that is strictly deeper than depth is
// followed by a line break and the indentation of its parent level. An entry
// with Inner markup always starts that markup on a new line, whether or not
// a child was closed before it.
func (s *closureStack) flush(depth int) string {
	toClose := make([]int, 0, len(s.entries))
	for d := range s.entries {
		if d >= depth {
			toClose = append(toClose, d)
		}
	}
	if len(toClose) == 0 {
		return ""
	}
	slices.Sort(toClose)
	slices.Reverse(toClose)

	var b strings.Builder
	owed := -1 // depth of the last closed child whose break is not yet written
	for _, d := range toClose {
		e := s.entries[d]
		switch {
		case e.Inner != "":
			b.WriteByte('\n')
			b.WriteString(Indentation(d+s.unit, s.unit))
			b.WriteString(e.Inner)
			b.WriteByte('\n')
			b.WriteString(Indentation(d, s.unit))
		case owed >= 0:
			s.writeBreak(&b, owed)
		}
		owed = -1
		b.WriteString(e.Closing)
		if d > depth {
			owed = d
		}
		delete(s.entries, d)
	}
	if owed >= 0 {
		s.writeBreak(&b, owed)
	}
	return b.String()
}

func (s *closureStack) writeBreak(b *strings.Builder, child int) {
	b.WriteByte('\n')
	b.WriteString(Indentation(child-s.unit, s.unit))
}

// push registers the closing markup owed at depth. The caller flushes first,
// so an existing entry at the same depth has already been emitted.
func (s *closureStack) push(line, depth int, el ParsedElement) {
	s.entries[depth] = PendingClosure{Closing: el.Closing, Inner: el.Inner, Depth: depth, Line: line}
}

// size returns the number of open entries.
func (s *closureStack) size() int {
	return len(s.entries)
}
