package htmlcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Problem
	}{
		{"empty", "", nil},
		{"balanced", "<div>\n\t<p>hi</p>\n</div>", nil},
		{"void and self closing", "<div>\n\t<br/>\n\t<img src=\"a.png\">\n\t<foo/>\n</div>", nil},
		{"comment and doctype", "<!DOCTYPE html>\n<!-- x -->\n<html></html>", nil},
		{"script body ignored", "<script>if (a < b) { x = '</p>' }</script>", nil},
		{
			"unclosed",
			"<div>\n\t<p>hi",
			[]Problem{{Kind: Unclosed, Tag: "p", Line: 2}, {Kind: Unclosed, Tag: "div", Line: 1}},
		},
		{
			"unexpected",
			"<p>a</p>\n</div>",
			[]Problem{{Kind: Unexpected, Tag: "div", Line: 2}},
		},
		{
			"mismatched",
			"<div>\n<span>\n</div>",
			[]Problem{{Kind: Mismatched, Tag: "div", Want: "span", Line: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.src))
			assert.Equal(t, len(tt.want) == 0, Balanced(tt.src))
		})
	}
}

func TestProblemString(t *testing.T) {
	assert.Equal(t, "line 3: </div> closes <span>", Problem{Kind: Mismatched, Tag: "div", Want: "span", Line: 3}.String())
	assert.Equal(t, "line 1: </b> has no matching start tag", Problem{Kind: Unexpected, Tag: "b", Line: 1}.String())
	assert.Equal(t, "line 2: <p> is never closed", Problem{Kind: Unclosed, Tag: "p", Line: 2}.String())
}
