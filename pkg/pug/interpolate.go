package pug

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// InterpolationContext holds the values placeholders resolve against.
type InterpolationContext struct {
	Variables map[string]string
	CSRFToken string
	Escape    EscapePolicy
}

var placeholderPattern = regexp.MustCompile(`(?s)#\{(.*?)\}`)

var (
	sanitizerOnce sync.Once
	sanitizer     *bluemonday.Policy
)

// UnresolvedMarker is what an unbound placeholder renders as.
func UnresolvedMarker(name string) string {
	return "!!{" + name + "}"
}

// segment is a piece of interpolated text. Opaque segments hold bound
// values and are never scanned again.
type segment struct {
	text   string
	opaque bool
}

// Interpolate replaces every #{name} in text. Bound names take their value,
// unbound names become UnresolvedMarker(name). Bound values are inserted as
// opaque text; the remaining text is scanned again until no placeholder is
// left, which handles placeholders nested inside unbound names.
func Interpolate(text string, ctx InterpolationContext) string {
	if !strings.Contains(text, "#{") {
		return text
	}

	segs := []segment{{text: text}}
	for {
		segs = mergeScannable(segs)
		next := make([]segment, 0, len(segs))
		changed := false
		for _, s := range segs {
			if s.opaque {
				next = append(next, s)
				continue
			}
			locs := placeholderPattern.FindAllStringSubmatchIndex(s.text, -1)
			if len(locs) == 0 {
				next = append(next, s)
				continue
			}
			changed = true
			last := 0
			for _, loc := range locs {
				next = append(next, segment{text: s.text[last:loc[0]]})
				name := s.text[loc[2]:loc[3]]
				if value, ok := ctx.lookup(name); ok {
					next = append(next, segment{text: value, opaque: true})
				} else {
					next = append(next, segment{text: UnresolvedMarker(name)})
				}
				last = loc[1]
			}
			next = append(next, segment{text: s.text[last:]})
		}
		segs = next
		if !changed {
			break
		}
	}

	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.text)
	}
	return b.String()
}

// mergeScannable joins neighbouring non-opaque segments so a placeholder
// split by an earlier replacement is seen whole.
func mergeScannable(segs []segment) []segment {
	out := segs[:0:0]
	for _, s := range segs {
		if s.text == "" && !s.opaque {
			continue
		}
		if n := len(out); n > 0 && !s.opaque && !out[n-1].opaque {
			out[n-1].text += s.text
			continue
		}
		out = append(out, s)
	}
	return out
}

func (c InterpolationContext) lookup(name string) (string, bool) {
	value, ok := c.Variables[name]
	if !ok {
		return "", false
	}
	switch c.Escape {
	case EscapeHTML:
		return html.EscapeString(value), true
	case EscapeSanitize:
		return valueSanitizer().Sanitize(value), true
	default:
		return value, true
	}
}

func valueSanitizer() *bluemonday.Policy {
	sanitizerOnce.Do(func() {
		sanitizer = bluemonday.UGCPolicy()
	})
	return sanitizer
}
