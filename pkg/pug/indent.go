package pug

import "strings"

// indentChars are the characters counted as indentation. Other Unicode
// spaces, such as U+00A0, belong to the line's content.
const indentChars = " \t\n\r\v\x00"

// Depth returns the nesting depth of a raw line: the number of leading
// indentation characters plus the inherited offset.
func Depth(raw string, additional int) int {
	trimmed := strings.TrimLeft(raw, indentChars)
	return len(raw) - len(trimmed) + additional
}

// Indentation renders depth as output whitespace, one tab per unit columns.
func Indentation(depth, unit int) string {
	if depth <= 0 || unit <= 0 {
		return ""
	}
	return strings.Repeat("\t", depth/unit)
}
