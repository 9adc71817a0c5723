// Package matcher executes compiled rules against file content and paths.
//
// Scanning is pure: rules and content are only read, so any number of
// (rule, file) scans may run concurrently.
package matcher

import (
	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// Capture is one captured group of a match
type Capture struct {
	Name    string // empty for unnamed groups
	Text    string
	Matched bool
}

// Match is one non-overlapping match of a rule in a file or path
type Match struct {
	Rule   string
	Path   string
	Start  int // byte offsets into the scanned text
	End    int
	Line   int // 1-based line of Start; 0 for path matches
	Column int // 1-based rune column of Start; 0 for path matches
	Text   string

	// Captures are in textual group order: Captures[k-1] is group $k
	Captures []Capture

	// Replacement is the rendered correction when HasReplacement is set
	Replacement    string
	HasReplacement bool

	span pattern.Span
}

// Named returns the captured text of a named group
func (m Match) Named(name string) (string, bool) {
	for _, c := range m.Captures {
		if c.Name == name {
			return c.Text, c.Matched
		}
	}
	return "", false
}

// Positional returns the captured text of group k (1-based)
func (m Match) Positional(k int) (string, bool) {
	if k < 1 || k > len(m.Captures) {
		return "", false
	}
	c := m.Captures[k-1]
	return c.Text, c.Matched
}

// Span returns the underlying pattern span
func (m Match) Span() pattern.Span {
	return m.span
}

// ScanContent returns every match of r in content, in order. For
// correctable rules a match already in corrected form (its replacement
// equals the matched text) is not returned.
func ScanContent(r *rule.Rule, path, content string) ([]Match, error) {
	spans, err := r.Pattern.FindAll(content)
	if err != nil {
		return nil, &linterrors.MatchTimeoutError{Rule: r.ID, Path: path, Err: err}
	}
	if len(spans) == 0 {
		return nil, nil
	}

	lines := NewLineIndex(content)
	matches := make([]Match, 0, len(spans))
	for _, span := range spans {
		m := newMatch(r, path, content, span)
		if r.Correctable() {
			m.Replacement = r.Template.Render(content, span)
			m.HasReplacement = true
			if m.Replacement == m.Text {
				continue
			}
		}
		m.Line, m.Column = lines.Position(span.Start)
		matches = append(matches, m)
	}
	return matches, nil
}

// ScanPath matches r against path itself and returns the match, if any
func ScanPath(r *rule.Rule, path string) (*Match, error) {
	span, err := r.Pattern.FindFirst(path)
	if err != nil {
		return nil, &linterrors.MatchTimeoutError{Rule: r.ID, Path: path, Err: err}
	}
	if span == nil {
		return nil, nil
	}
	m := newMatch(r, path, path, *span)
	return &m, nil
}

// Contains reports whether r has at least one match in content, using the
// same correctable-match definition as ScanContent.
func Contains(r *rule.Rule, path, content string) (bool, error) {
	if !r.Correctable() {
		ok, err := r.Pattern.MatchString(content)
		if err != nil {
			return false, &linterrors.MatchTimeoutError{Rule: r.ID, Path: path, Err: err}
		}
		return ok, nil
	}
	matches, err := ScanContent(r, path, content)
	return len(matches) > 0, err
}

func newMatch(r *rule.Rule, path, text string, span pattern.Span) Match {
	m := Match{
		Rule:     r.ID,
		Path:     path,
		Start:    span.Start,
		End:      span.End,
		Text:     text[span.Start:span.End],
		Captures: make([]Capture, len(span.Groups)),
		span:     span,
	}
	for i, g := range span.Groups {
		m.Captures[i] = Capture{Name: g.Name, Text: g.Text(text), Matched: g.Matched()}
	}
	return m
}
