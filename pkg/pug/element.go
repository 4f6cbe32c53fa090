package pug

import (
	"html"
	"regexp"
	"slices"
	"strings"
)

// ParsedElement is the markup produced for one line. Closing is empty for
// lines that owe nothing when they go out of scope. Inner is markup placed
// on its own line inside the element, right before Closing.
type ParsedElement struct {
	Opening string
	Closing string
	Inner   string
}

var selfClosingTags = []string{
	"area", "base", "br", "col", "command", "embed", "hr", "img", "input",
	"keygen", "link", "meta", "param", "source", "track", "wbr",
}

// IsSelfClosing reports whether tag renders as <tag/>.
func IsSelfClosing(tag string) bool {
	return slices.Contains(selfClosingTags, tag) || strings.HasSuffix(tag, "/")
}

var tagPattern = regexp.MustCompile(`^(?:\||[A-Za-z][A-Za-z0-9:_-]*/?)`)

// lineRule classifies a trimmed line; the first rule whose match returns
// true formats it.
type lineRule struct {
	name   string
	match  func(line string) bool
	format func(p *parser, line string, src SourceLine) (ParsedElement, error)
}

var lineRules []lineRule

// The table is assigned in init because formatElement reaches back into the
// renderer through includes.
func init() {
	lineRules = []lineRule{
		{name: "comment", match: isComment, format: (*parser).formatComment},
		{name: "blocking-comment", match: isBlockingComment, format: (*parser).formatBlockingComment},
		{name: "raw-html", match: isRawHTML, format: (*parser).formatRaw},
		{name: "element", match: func(string) bool { return true }, format: (*parser).formatElement},
	}
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "//") && !strings.HasPrefix(line, "//-")
}

func isBlockingComment(line string) bool {
	return strings.HasPrefix(line, "//-")
}

func isRawHTML(line string) bool {
	return strings.HasPrefix(line, "<")
}

func (p *parser) format(line string, src SourceLine) (ParsedElement, error) {
	for _, rule := range lineRules {
		if rule.match(line) {
			return rule.format(p, line, src)
		}
	}
	return ParsedElement{}, nil
}

func (p *parser) formatComment(line string, _ SourceLine) (ParsedElement, error) {
	return ParsedElement{Opening: "<!-- " + strings.TrimSpace(line[2:]) + " -->"}, nil
}

func (p *parser) formatBlockingComment(string, SourceLine) (ParsedElement, error) {
	return ParsedElement{}, nil
}

func (p *parser) formatRaw(line string, _ SourceLine) (ParsedElement, error) {
	return ParsedElement{Opening: Interpolate(line, p.interp)}, nil
}

func (p *parser) formatElement(line string, src SourceLine) (ParsedElement, error) {
	ex := extract(line)
	switch ex.tag {
	case "":
		return ParsedElement{Opening: Interpolate(line, p.interp)}, nil
	case "doctype":
		return ParsedElement{Opening: Doctype(Interpolate(ex.text, p.interp))}, nil
	case "include":
		out, err := p.include(Interpolate(ex.text, p.interp), src)
		if err != nil {
			return ParsedElement{}, err
		}
		return ParsedElement{Opening: out}, nil
	}

	attrs := ex.attrs + ex.style
	if IsSelfClosing(ex.tag) {
		name := strings.ReplaceAll(ex.tag, "/", "")
		return ParsedElement{Opening: "<" + name + attrs + "/>"}, nil
	}

	el := ParsedElement{
		Opening: "<" + ex.tag + attrs + ">" + Interpolate(ex.text, p.interp),
		Closing: "</" + ex.tag + ">",
	}
	if ex.tag == "form" && p.interp.CSRFToken != "" {
		el.Inner = p.csrfField()
	}
	return el, nil
}

// csrfField returns the hidden input placed in front of </form>.
func (p *parser) csrfField() string {
	return `<input type="hidden" name="` + html.EscapeString(p.opts.CSRFField) +
		`" value="` + html.EscapeString(p.interp.CSRFToken) + `"/>`
}

// extraction holds the independently extracted parts of an element line.
type extraction struct {
	tag   string
	attrs string
	style string
	text  string
}

// extract splits an element line into tag, attribute list, class/id
// shorthand and trailing text. A line with shorthand but no tag is a div.
// An attribute list without its closing parenthesis is dropped along with
// the text after it.
func extract(line string) extraction {
	var ex extraction
	ex.tag = tagPattern.FindString(line)
	rest := line[len(ex.tag):]

	if ex.tag == "|" {
		ex.tag = "p"
		ex.text = strings.TrimPrefix(rest, " ")
		return ex
	}

	end := strings.IndexAny(rest, " (")
	if end < 0 {
		end = len(rest)
	}
	ex.style = shorthand(rest[:end])
	rest = rest[end:]
	if ex.tag == "" {
		if ex.style == "" {
			return extraction{}
		}
		ex.tag = "div"
	}

	if strings.HasPrefix(rest, "(") {
		closeAt := matchParen(rest)
		if closeAt < 0 {
			return ex
		}
		if inner := rest[1:closeAt]; inner != "" {
			ex.attrs = " " + inner
		}
		rest = rest[closeAt+1:]
	}

	if strings.HasPrefix(rest, " ") {
		ex.text = rest[1:]
	}
	return ex
}

// shorthand turns ".a#b.c" into ` class="a c" id="b"`. Anything before the
// first . or # is ignored.
func shorthand(token string) string {
	var classes, ids []string
	for i := 0; i < len(token); {
		marker := token[i]
		if marker != '.' && marker != '#' {
			i++
			continue
		}
		j := i + 1
		for j < len(token) && token[j] != '.' && token[j] != '#' {
			j++
		}
		if name := token[i+1 : j]; name != "" {
			if marker == '.' {
				classes = append(classes, name)
			} else {
				ids = append(ids, name)
			}
		}
		i = j
	}

	var b strings.Builder
	if len(classes) > 0 {
		b.WriteString(` class="` + strings.Join(classes, " ") + `"`)
	}
	if len(ids) > 0 {
		b.WriteString(` id="` + strings.Join(ids, " ") + `"`)
	}
	return b.String()
}

// matchParen returns the index of the parenthesis closing s[0], skipping
// quoted strings, or -1 when there is none.
func matchParen(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
