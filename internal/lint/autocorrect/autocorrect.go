// Package autocorrect renders and applies rule corrections.
//
// Corrections for one rule are applied end to start so earlier byte ranges
// stay valid. Rules are applied one after another, each re-scanning the
// output of the previous one, so no correction is ever computed against
// stale offsets.
package autocorrect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/rulelint/internal/lint/matcher"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// Correction is one replacement of the byte range [Start, End). Corrections
// returned in Result.Applied locate the range in the content handed to
// Sequence, even when an earlier rule had already rewritten the text around
// it; Original is the text the rule actually replaced.
type Correction struct {
	Rule        string
	Path        string
	Start       int
	End         int
	Line        int
	Column      int
	Original    string
	Replacement string
}

// FromMatches turns the correctable matches of one scan into corrections
func FromMatches(matches []matcher.Match) []Correction {
	out := make([]Correction, 0, len(matches))
	for _, m := range matches {
		if !m.HasReplacement {
			continue
		}
		out = append(out, Correction{
			Rule:        m.Rule,
			Path:        m.Path,
			Start:       m.Start,
			End:         m.End,
			Line:        m.Line,
			Column:      m.Column,
			Original:    m.Text,
			Replacement: m.Replacement,
		})
	}
	return out
}

// Apply splices corrections into content. Corrections must not overlap and
// must lie within content; they are applied from the end toward the start.
func Apply(content string, corrections []Correction) (string, error) {
	if len(corrections) == 0 {
		return content, nil
	}
	ordered := append([]Correction(nil), corrections...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	out := content
	limit := len(content)
	for _, c := range ordered {
		if c.Start < 0 || c.End < c.Start || c.End > limit {
			return content, fmt.Errorf("correction %d..%d of rule %s overlaps or exceeds the content", c.Start, c.End, c.Rule)
		}
		if content[c.Start:c.End] != c.Original {
			return content, fmt.Errorf("correction %d..%d of rule %s does not match the content", c.Start, c.End, c.Rule)
		}
		out = out[:c.Start] + c.Replacement + out[c.End:]
		limit = c.Start
	}
	return out, nil
}

// Result is the outcome of correcting one text with one or more rules
type Result struct {
	Content string
	Applied []Correction

	// Residual are matches still present for correctable rules after
	// their corrections were applied
	Residual []matcher.Match
}

// Changed reports whether any correction was applied
func (r *Result) Changed() bool {
	return len(r.Applied) > 0
}

// Correct applies a single rule to content: scan, apply end to start,
// then re-scan for residual matches.
func Correct(r *rule.Rule, path, content string) (*Result, error) {
	return Sequence([]*rule.Rule{r}, path, content)
}

// Sequence applies rules in order. Each rule scans the output of the one
// before it. Residual matches are collected by re-scanning the final
// content with every correctable rule. Report-only rules are ignored.
func Sequence(rules []*rule.Rule, path, content string) (*Result, error) {
	res := &Result{Content: content}
	origin := matcher.NewLineIndex(content)

	var (
		correctable []*rule.Rule
		steps       [][]edit
	)
	for _, r := range rules {
		if !r.Correctable() || r.Kind != rule.KindContent {
			continue
		}
		correctable = append(correctable, r)

		matches, err := matcher.ScanContent(r, path, res.Content)
		if err != nil {
			return nil, err
		}
		corrections := FromMatches(matches)
		next, err := Apply(res.Content, corrections)
		if err != nil {
			return nil, err
		}
		res.Content = next
		for _, c := range corrections {
			c.Start, c.End = toOriginal(steps, c.Start, c.End)
			c.Line, c.Column = origin.Position(c.Start)
			res.Applied = append(res.Applied, c)
		}
		steps = append(steps, editsOf(corrections))
	}

	for _, r := range correctable {
		matches, err := matcher.ScanContent(r, path, res.Content)
		if err != nil {
			return nil, err
		}
		res.Residual = append(res.Residual, matches...)
	}
	return res, nil
}

// edit is one splice of [start, end) into size bytes, in the coordinates of
// the text the splice was applied to
type edit struct {
	start, end, size int
}

func editsOf(corrections []Correction) []edit {
	out := make([]edit, len(corrections))
	for i, c := range corrections {
		out[i] = edit{start: c.Start, end: c.End, size: len(c.Replacement)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// toOriginal maps a range found after steps back to the content before the
// first step. A bound that falls inside replaced text widens to the edge of
// the range that was replaced.
func toOriginal(steps [][]edit, start, end int) (int, int) {
	for i := len(steps) - 1; i >= 0; i-- {
		start = beforeStep(steps[i], start, false)
		end = beforeStep(steps[i], end, true)
	}
	if end < start {
		end = start
	}
	return start, end
}

func beforeStep(edits []edit, offset int, isEnd bool) int {
	delta := 0
	for _, e := range edits {
		from := e.start + delta
		to := from + e.size
		if offset <= from {
			break
		}
		if offset < to {
			if isEnd {
				return e.end
			}
			return e.start
		}
		delta += e.size - (e.end - e.start)
	}
	return offset - delta
}

// Text applies one rule to text and returns the corrected text only. Used by
// the self-test harness, which has no path.
func Text(r *rule.Rule, text string) (string, error) {
	res, err := Sequence([]*rule.Rule{r}, "", text)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// Preview renders corrections as "path:line: rule: original -> replacement" lines
func Preview(corrections []Correction) string {
	var sb strings.Builder
	for _, c := range corrections {
		fmt.Fprintf(&sb, "%s:%d: %s: %q -> %q\n", c.Path, c.Line, c.Rule, c.Original, c.Replacement)
	}
	return sb.String()
}
