package pattern

import (
	"fmt"
	"strconv"
	"strings"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
)

const (
	refLiteral = -1 // segment is literal text
	refMissing = -2 // positional reference to a group that does not exist
)

type segment struct {
	literal string
	ref     int // 0 is the whole match, k >= 1 is textual group k
}

// Template is a parsed replacement template bound to one Pattern.
//
// References: $0 is the whole match, $k or ${k} is textual group k, $name or
// ${name} is a named group. $$ and \$ produce a literal dollar sign and \\ a
// literal backslash. Positional references past the last group and groups
// that did not participate render as empty text.
type Template struct {
	source   string
	segments []segment
}

// ParseTemplate parses src against the groups of p. A reference to an
// unknown group name is an error.
func ParseTemplate(rule, src string, p *Pattern) (*Template, error) {
	t := &Template{source: src}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String(), ref: refLiteral})
			lit.Reset()
		}
	}
	unknown := func(name string) error {
		return &linterrors.PatternCompileError{
			Code: linterrors.ErrTemplateReference, Rule: rule, Pattern: src,
			Reason: fmt.Sprintf("replacement references unknown group %q", name),
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\\' && i+1 < len(src) && (src[i+1] == '$' || src[i+1] == '\\') {
			lit.WriteByte(src[i+1])
			i++
			continue
		}
		if c != '$' || i+1 >= len(src) {
			lit.WriteByte(c)
			continue
		}

		next := src[i+1]
		switch {
		case next == '$':
			lit.WriteByte('$')
			i++

		case next == '{':
			end := strings.IndexByte(src[i+2:], '}')
			if end < 0 {
				lit.WriteByte(c)
				continue
			}
			name := src[i+2 : i+2+end]
			var ref int
			switch {
			case isAllDigits(name):
				n, _ := strconv.Atoi(name)
				ref = positional(n, p.NumGroups())
			default:
				idx, ok := p.GroupIndex(name)
				if !ok {
					return nil, unknown(name)
				}
				ref = idx
			}
			flush()
			t.segments = append(t.segments, segment{ref: ref})
			i += 2 + end

		case isDigit(next):
			j := i + 1
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			digits := src[i+1 : j]
			ref, used := refMissing, 1
			if digits[0] == '0' {
				ref = 0
			} else if n, k := resolveNumber(digits, p.NumGroups()); k > 0 {
				ref, used = n, k
			}
			flush()
			t.segments = append(t.segments, segment{ref: ref})
			i += used

		case isIdentStart(next):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			word := src[i+1 : j]
			name := longestGroupPrefix(word, p)
			if name == "" {
				return nil, unknown(word)
			}
			idx, _ := p.GroupIndex(name)
			flush()
			t.segments = append(t.segments, segment{ref: idx})
			i += len(name)

		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func positional(n, groupCount int) int {
	if n > groupCount {
		return refMissing
	}
	return n
}

// longestGroupPrefix returns the longest group name that prefixes word
func longestGroupPrefix(word string, p *Pattern) string {
	for n := len(word); n > 0; n-- {
		if _, ok := p.GroupIndex(word[:n]); ok {
			return word[:n]
		}
	}
	return ""
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// String returns the template source
func (t *Template) String() string {
	return t.source
}

// Render expands the template for one match of text
func (t *Template) Render(text string, span Span) string {
	var sb strings.Builder
	for _, seg := range t.segments {
		switch {
		case seg.ref == refLiteral:
			sb.WriteString(seg.literal)
		case seg.ref == 0:
			sb.WriteString(text[span.Start:span.End])
		case seg.ref > 0:
			if g, ok := span.Group(seg.ref); ok {
				sb.WriteString(g.Text(text))
			}
		}
	}
	return sb.String()
}
