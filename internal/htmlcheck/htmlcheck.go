// Package htmlcheck verifies that rendered HTML is balanced: every start
// tag is closed, in nesting order.
package htmlcheck

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind classifies a problem.
type Kind string

const (
	Unclosed   Kind = "unclosed"
	Unexpected Kind = "unexpected"
	Mismatched Kind = "mismatched"
)

// Problem is one balance violation.
type Problem struct {
	Kind Kind
	Tag  string
	// Line is the 1-based output line the offending token starts on.
	Line int
	// Want is the tag that should have been closed instead, for Mismatched.
	Want string
}

func (p Problem) String() string {
	switch p.Kind {
	case Mismatched:
		return fmt.Sprintf("line %d: </%s> closes <%s>", p.Line, p.Tag, p.Want)
	case Unexpected:
		return fmt.Sprintf("line %d: </%s> has no matching start tag", p.Line, p.Tag)
	default:
		return fmt.Sprintf("line %d: <%s> is never closed", p.Line, p.Tag)
	}
}

type open struct {
	tag  string
	line int
}

// Check tokenizes src and reports unbalanced tags. Void elements and
// self-closing tags need no end tag. Raw text elements such as script are
// handled by the tokenizer.
func Check(src string) []Problem {
	var (
		problems []Problem
		stack    []open
		line     = 1
	)

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				problems = append(problems, Problem{Kind: Unclosed, Tag: z.Err().Error(), Line: line})
			}
			break
		}
		raw := z.Raw()
		tokenLine := line
		line += strings.Count(string(raw), "\n")

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if isVoid(tag) {
				continue
			}
			stack = append(stack, open{tag: tag, line: tokenLine})

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if len(stack) == 0 {
				problems = append(problems, Problem{Kind: Unexpected, Tag: tag, Line: tokenLine})
				continue
			}
			top := stack[len(stack)-1]
			if top.tag == tag {
				stack = stack[:len(stack)-1]
				continue
			}
			problems = append(problems, Problem{Kind: Mismatched, Tag: tag, Want: top.tag, Line: tokenLine})
			// Recover by unwinding to the matching start tag when there is one.
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].tag == tag {
					stack = stack[:i]
					break
				}
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		problems = append(problems, Problem{Kind: Unclosed, Tag: stack[i].tag, Line: stack[i].line})
	}
	return problems
}

// Balanced reports whether Check finds nothing.
func Balanced(src string) bool {
	return len(Check(src)) == 0
}

func isVoid(tag string) bool {
	switch atom.Lookup([]byte(tag)) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Keygen, atom.Link, atom.Meta, atom.Param, atom.Source,
		atom.Track, atom.Wbr:
		return true
	}
	return tag == "command"
}
