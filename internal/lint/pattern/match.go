package pattern

import (
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Group is one captured group of a Span. Start and End are byte offsets
// into the scanned text, both -1 when the group did not participate.
type Group struct {
	Name       string
	Start, End int
}

// Matched reports whether the group participated in the match
func (g Group) Matched() bool {
	return g.Start >= 0
}

// Text returns the captured text, or "" for a group that did not participate
func (g Group) Text(text string) string {
	if !g.Matched() {
		return ""
	}
	return text[g.Start:g.End]
}

// Span is one match of a Pattern. Groups are in textual order, so
// Groups[k-1] is the group referenced as $k.
type Span struct {
	Start, End int
	Groups     []Group
}

// Group returns the k-th group (1-based); ok is false when k is out of range
func (s Span) Group(k int) (Group, bool) {
	if k < 1 || k > len(s.Groups) {
		return Group{Start: -1, End: -1}, false
	}
	return s.Groups[k-1], true
}

// Named returns the group called name
func (s Span) Named(name string) (Group, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{Start: -1, End: -1}, false
}

// FindAll returns every non-overlapping match in text, left to right. The
// only error is a match timeout reported by the regex engine.
func (p *Pattern) FindAll(text string) ([]Span, error) {
	return p.find(text, -1)
}

// FindFirst returns the leftmost match in text, or nil when there is none
func (p *Pattern) FindFirst(text string) (*Span, error) {
	spans, err := p.find(text, 1)
	if err != nil || len(spans) == 0 {
		return nil, err
	}
	return &spans[0], nil
}

// MatchString reports whether text contains at least one match
func (p *Pattern) MatchString(text string) (bool, error) {
	return p.re.MatchString(text)
}

func (p *Pattern) find(text string, limit int) ([]Span, error) {
	runes, offsets := runeOffsets(text)

	var spans []Span
	m, err := p.re.FindRunesMatch(runes)
	for err == nil && m != nil {
		spans = append(spans, p.span(m, offsets))
		if limit > 0 && len(spans) >= limit {
			break
		}
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return spans, nil
}

func (p *Pattern) span(m *regexp2.Match, offsets []int) Span {
	s := Span{
		Start:  offsets[m.Index],
		End:    offsets[m.Index+m.Length],
		Groups: make([]Group, len(p.groups)),
	}
	for i, info := range p.groups {
		g := Group{Name: info.name, Start: -1, End: -1}
		if rg := m.GroupByNumber(info.number); rg != nil && len(rg.Captures) > 0 {
			g.Start = offsets[rg.Index]
			g.End = offsets[rg.Index+rg.Length]
		}
		s.Groups[i] = g
	}
	return s
}

// runeOffsets decodes text the way regexp2 sees it and returns the byte
// offset of every rune index, plus len(text) for the end position.
func runeOffsets(text string) ([]rune, []int) {
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		runes = append(runes, r)
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))
	return runes, offsets
}
