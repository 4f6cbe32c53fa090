package pug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(src string) []SourceLine {
	var out []SourceLine
	for line := range Lines(src) {
		out = append(out, line)
	}
	return out
}

func TestLines(t *testing.T) {
	lines := collect("a\r\n  b\n\nc")
	require.Len(t, lines, 5)

	assert.Equal(t, "a", lines[0].Raw)
	assert.Equal(t, "  b", lines[1].Raw)
	assert.True(t, lines[2].Blank())
	assert.Equal(t, 3, lines[3].Index)

	last := lines[4]
	assert.True(t, last.Sentinel)
	assert.Equal(t, SentinelText, last.Raw)
	assert.False(t, last.Blank())
}

func TestLinesRestartable(t *testing.T) {
	seq := Lines("a\nb")
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
}

func TestLinesStopEarly(t *testing.T) {
	n := 0
	for range Lines("a\nb\nc") {
		n++
		if n == 1 {
			break
		}
	}
	assert.Equal(t, 1, n)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"plain utf-8", []byte("p x"), "p x"},
		{"utf-8 bom", []byte("\xEF\xBB\xBFp x"), "p x"},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'p', 0, ' ', 0, 'x', 0}, "p x"},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, 'p', 0, ' ', 0, 'x'}, "p x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
