package pug

import (
	"bytes"
	"iter"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SentinelText is the raw text of the line appended after the last line of
// every source. It never reaches the classifier.
const SentinelText = "\x00pug:end-of-source\x00"

// SourceLine is one line of a document.
type SourceLine struct {
	Raw   string
	Index int
	// Depth is filled in by the renderer from the raw text and the
	// inherited include offset.
	Depth    int
	Sentinel bool
}

// Blank reports whether the line holds only whitespace.
func (l SourceLine) Blank() bool {
	return !l.Sentinel && strings.TrimSpace(l.Raw) == ""
}

// Lines splits src into lines and yields them followed by one sentinel line.
// Carriage returns are removed first. The sequence may be ranged over more
// than once.
func Lines(src string) iter.Seq[SourceLine] {
	return func(yield func(SourceLine) bool) {
		text := strings.ReplaceAll(src, "\r", "")
		index := 0
		for line := range strings.SplitSeq(text, "\n") {
			if !yield(SourceLine{Raw: line, Index: index}) {
				return
			}
			index++
		}
		yield(SourceLine{Raw: SentinelText, Index: index, Sentinel: true})
	}
}

// Decode converts raw source bytes to text. UTF-16 input is recognised by its
// byte order mark; anything else is read as UTF-8 with an optional BOM.
func Decode(b []byte) (string, error) {
	if !bytes.HasPrefix(b, []byte{0xFE, 0xFF}) && !bytes.HasPrefix(b, []byte{0xFF, 0xFE}) {
		return string(bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})), nil
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
