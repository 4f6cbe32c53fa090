package pug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		line     string
		expected extraction
	}{
		{"div", extraction{tag: "div"}},
		{"p hello world", extraction{tag: "p", text: "hello world"}},
		{"p  two spaces", extraction{tag: "p", text: " two spaces"}},
		{"a#x.y(href='/') go", extraction{tag: "a", attrs: " href='/'", style: ` class="y" id="x"`, text: "go"}},
		{"p() empty", extraction{tag: "p", text: "empty"}},
		{"#main", extraction{tag: "div", style: ` id="main"`}},
		{"| piped", extraction{tag: "p", text: "piped"}},
		{"include partials/nav", extraction{tag: "include", text: "partials/nav"}},
		{"= expr", extraction{}},
		{"p(a=\"(x\" b) t", extraction{tag: "p", attrs: ` a="(x" b`, text: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract(tt.line))
		})
	}
}

func TestIsSelfClosing(t *testing.T) {
	for _, tag := range selfClosingTags {
		assert.True(t, IsSelfClosing(tag), tag)
	}
	assert.True(t, IsSelfClosing("custom/"))
	assert.False(t, IsSelfClosing("div"))
}

func TestLineRuleOrder(t *testing.T) {
	match := func(line string) string {
		for _, rule := range lineRules {
			if rule.match(line) {
				return rule.name
			}
		}
		return ""
	}

	assert.Equal(t, "comment", match("// hi"))
	assert.Equal(t, "blocking-comment", match("//- hi"))
	assert.Equal(t, "raw-html", match("<br>"))
	assert.Equal(t, "element", match("div"))
}

func TestDoctype(t *testing.T) {
	assert.Equal(t, "<!DOCTYPE html>", Doctype("html"))
	assert.Equal(t, `<?xml version="1.0" encoding="utf-8" ?>`, Doctype("xml"))
	assert.Equal(t, "<!DOCTYPE weird>", Doctype("weird"))
}
