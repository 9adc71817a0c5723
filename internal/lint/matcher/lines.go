package matcher

import (
	"sort"
	"unicode/utf8"
)

// LineIndex maps byte offsets of a text to 1-based line and column numbers
type LineIndex struct {
	text   string
	starts []int // byte offset of the first byte of every line
}

// NewLineIndex indexes the line starts of text
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Position returns the 1-based line and column (in runes) of offset
func (li *LineIndex) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.text) {
		offset = len(li.text)
	}
	line = sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset })
	start := li.starts[line-1]
	return line, utf8.RuneCountInString(li.text[start:offset]) + 1
}
