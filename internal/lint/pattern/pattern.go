// Package pattern compiles rule pattern specifications into a single regular
// expression with stable capture-group numbering.
//
// Patterns are executed with regexp2, which supports backreferences and
// lookaround. regexp2 numbers named groups after unnamed ones, so the
// compiler keeps its own textual group order: group k is the k-th capturing
// parenthesis in the composed source, named or not. Numeric backreferences
// and $k template references both use that order.
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
)

var partNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Part is one named sub-pattern of a multi-part specification
type Part struct {
	Name    string
	Pattern string
}

// Spec is a pattern specification: either Regex or an ordered list of Parts
type Spec struct {
	Regex string
	Parts []Part
}

// IsMultipart reports whether the spec uses named parts
func (s Spec) IsMultipart() bool {
	return len(s.Parts) > 0
}

// Options control how a composed pattern is executed
type Options struct {
	DotAll     bool // `.` also matches line separators
	IgnoreCase bool
	Timeout    time.Duration // 0 means no timeout
}

// groupInfo maps a textual group to its regexp2 group number
type groupInfo struct {
	name   string
	number int
}

// Pattern is a compiled, immutable pattern safe for concurrent use
type Pattern struct {
	source string // composed source after backreference rewriting
	parts  []string
	re     *regexp2.Regexp
	groups []groupInfo
	byName map[string]int // group name -> 1-based textual index
}

// Compile turns spec into a Pattern. Failures are *errors.PatternCompileError
// values naming rule and, for multi-part specs, the offending part.
func Compile(rule string, spec Spec, opts Options) (*Pattern, error) {
	if spec.IsMultipart() && spec.Regex != "" {
		return nil, &linterrors.PatternCompileError{
			Code: linterrors.ErrPatternSyntax, Rule: rule,
			Reason: "pattern has both a single regex and named parts",
		}
	}

	var (
		composed string
		offsets  []int // start offset of each part in composed
		names    []string
	)

	if spec.IsMultipart() {
		seen := make(map[string]bool, len(spec.Parts))
		var sb strings.Builder
		for _, part := range spec.Parts {
			if err := validatePartName(rule, part.Name, seen); err != nil {
				return nil, err
			}
			seen[part.Name] = true
			if _, err := scanSyntax(part.Pattern); err != nil {
				return nil, &linterrors.PatternCompileError{
					Code: linterrors.ErrUnbalancedGroup, Rule: rule, Part: part.Name,
					Pattern: part.Pattern, Reason: "sub-pattern is not self-contained", Cause: err,
				}
			}
			offsets = append(offsets, sb.Len())
			names = append(names, part.Name)
			fmt.Fprintf(&sb, "(?<%s>%s)", part.Name, part.Pattern)
		}
		composed = sb.String()
	} else {
		if spec.Regex == "" {
			return nil, &linterrors.PatternCompileError{
				Code: linterrors.ErrPatternSyntax, Rule: rule, Reason: "empty pattern",
			}
		}
		var suffix Options
		composed, suffix = StripOptionSuffix(spec.Regex)
		opts.DotAll = opts.DotAll || suffix.DotAll
		opts.IgnoreCase = opts.IgnoreCase || suffix.IgnoreCase
	}

	partAt := func(offset int) string {
		name := ""
		for i, start := range offsets {
			if offset >= start {
				name = names[i]
			}
		}
		return name
	}

	syn, err := scanSyntax(composed)
	if err != nil {
		return nil, &linterrors.PatternCompileError{
			Code: linterrors.ErrUnbalancedGroup, Rule: rule, Pattern: composed, Reason: "malformed pattern", Cause: err,
		}
	}

	byName := make(map[string]int)
	for i, g := range syn.groups {
		if g.name == "" {
			continue
		}
		if isAllDigits(g.name) {
			return nil, &linterrors.PatternCompileError{
				Code: linterrors.ErrInvalidPartName, Rule: rule, Part: partAt(g.offset),
				Reason: fmt.Sprintf("group name %q collides with positional references", g.name),
			}
		}
		if _, dup := byName[g.name]; dup {
			return nil, &linterrors.PatternCompileError{
				Code: linterrors.ErrDuplicateGroupName, Rule: rule, Part: partAt(g.offset),
				Reason: fmt.Sprintf("group name %q is defined more than once", g.name),
			}
		}
		byName[g.name] = i + 1
	}

	rewritten, err := rewriteBackrefs(rule, composed, syn, byName, partAt)
	if err != nil {
		return nil, err
	}

	re, err := regexp2.Compile(rewritten, regexOptions(opts))
	if err != nil {
		part := ""
		if spec.IsMultipart() {
			part = firstFailingPart(spec.Parts, opts)
		}
		return nil, &linterrors.PatternCompileError{
			Code: linterrors.ErrPatternSyntax, Rule: rule, Part: part,
			Pattern: rewritten, Reason: "pattern does not compile", Cause: err,
		}
	}
	if opts.Timeout > 0 {
		re.MatchTimeout = opts.Timeout
	}

	groups := make([]groupInfo, len(syn.groups))
	unnamed := 0
	for i, g := range syn.groups {
		if g.name == "" {
			unnamed++
			groups[i] = groupInfo{number: unnamed}
			continue
		}
		groups[i] = groupInfo{name: g.name, number: re.GroupNumberFromName(g.name)}
	}
	if len(re.GetGroupNumbers()) != len(groups)+1 {
		return nil, &linterrors.PatternCompileError{
			Code: linterrors.ErrAmbiguousGroups, Rule: rule, Pattern: rewritten,
			Reason: fmt.Sprintf("found %d capturing groups but the engine reports %d",
				len(groups), len(re.GetGroupNumbers())-1),
		}
	}

	return &Pattern{
		source: rewritten,
		parts:  names,
		re:     re,
		groups: groups,
		byName: byName,
	}, nil
}

// MustCompile is like Compile but panics on error. For tests and fixed
// internal patterns only.
func MustCompile(spec Spec) *Pattern {
	p, err := Compile("<internal>", spec, Options{})
	if err != nil {
		panic(err)
	}
	return p
}

func validatePartName(rule, name string, seen map[string]bool) error {
	switch {
	case name == "":
		return &linterrors.PatternCompileError{
			Code: linterrors.ErrInvalidPartName, Rule: rule, Reason: "part name is empty",
		}
	case isAllDigits(name):
		return &linterrors.PatternCompileError{
			Code: linterrors.ErrInvalidPartName, Rule: rule, Part: name,
			Reason: "digit-only part names collide with positional references",
		}
	case !partNamePattern.MatchString(name):
		return &linterrors.PatternCompileError{
			Code: linterrors.ErrInvalidPartName, Rule: rule, Part: name,
			Reason: "part names must be identifiers",
		}
	case seen[name]:
		return &linterrors.PatternCompileError{
			Code: linterrors.ErrDuplicateGroupName, Rule: rule, Part: name,
			Reason: "part name is declared more than once",
		}
	}
	return nil
}

// rewriteBackrefs validates every backreference and rewrites numeric ones
// from textual numbering into references regexp2 resolves identically.
func rewriteBackrefs(rule, src string, syn syntax, byName map[string]int, partAt func(int) string) (string, error) {
	if len(syn.backrefs) == 0 {
		return src, nil
	}

	var sb strings.Builder
	last := 0
	for _, ref := range syn.backrefs {
		var target, used int
		switch {
		case ref.isNamed():
			idx, ok := byName[ref.name]
			if !ok {
				return "", &linterrors.PatternCompileError{
					Code: linterrors.ErrUndefinedBackref, Rule: rule, Part: partAt(ref.start),
					Reason: fmt.Sprintf(`backreference \k<%s> refers to an undefined group`, ref.name),
				}
			}
			target = idx
		case ref.explicit:
			v, _ := strconv.Atoi(ref.digits)
			target, used = v, len(ref.digits)
		default:
			target, used = resolveNumber(ref.digits, len(syn.groups))
		}

		if target < 1 || target > len(syn.groups) {
			return "", &linterrors.PatternCompileError{
				Code: linterrors.ErrUndefinedBackref, Rule: rule, Part: partAt(ref.start),
				Reason: fmt.Sprintf(`backreference %s refers to an undefined group`, src[ref.start:ref.end]),
			}
		}
		if syn.groups[target-1].offset > ref.start {
			return "", &linterrors.PatternCompileError{
				Code: linterrors.ErrForwardBackref, Rule: rule, Part: partAt(ref.start),
				Reason: fmt.Sprintf(`backreference %s refers to a group defined after it`, src[ref.start:ref.end]),
			}
		}
		if ref.isNamed() {
			continue
		}

		sb.WriteString(src[last:ref.start])
		if name := syn.groups[target-1].name; name != "" {
			fmt.Fprintf(&sb, `\k<%s>`, name)
		} else {
			fmt.Fprintf(&sb, `(?:\%d)`, unnamedOrdinal(syn.groups, target))
		}
		// Digits beyond the resolved group number are literal text.
		sb.WriteString(ref.digits[used:])
		last = ref.end
	}
	sb.WriteString(src[last:])
	return sb.String(), nil
}

// unnamedOrdinal returns the regexp2 number of the unnamed textual group k
func unnamedOrdinal(groups []groupToken, k int) int {
	n := 0
	for i := 0; i < k; i++ {
		if groups[i].name == "" {
			n++
		}
	}
	return n
}

// firstFailingPart attributes a compile failure to the first part whose
// prefix composition no longer compiles.
func firstFailingPart(parts []Part, opts Options) string {
	var sb strings.Builder
	for _, part := range parts {
		fmt.Fprintf(&sb, "(?<%s>%s)", part.Name, part.Pattern)
		if _, err := regexp2.Compile(sb.String(), regexOptions(opts)); err != nil {
			return part.Name
		}
	}
	return ""
}

func regexOptions(opts Options) regexp2.RegexOptions {
	o := regexp2.RegexOptions(regexp2.Multiline)
	if opts.DotAll {
		o |= regexp2.Singleline
	}
	if opts.IgnoreCase {
		o |= regexp2.IgnoreCase
	}
	return o
}

// StripOptionSuffix removes trailing `\m` (dot-all) and `\i` (ignore-case)
// markers from a single regex and returns the options they enable.
func StripOptionSuffix(src string) (string, Options) {
	var opts Options
	for len(src) >= 2 && src[len(src)-2] == '\\' && !escapedAt(src, len(src)-2) {
		switch src[len(src)-1] {
		case 'm':
			opts.DotAll = true
		case 'i':
			opts.IgnoreCase = true
		default:
			return src, opts
		}
		src = src[:len(src)-2]
	}
	return src, opts
}

// escapedAt reports whether the backslash at i is itself escaped
func escapedAt(src string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && src[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// String returns the composed source handed to the regex engine
func (p *Pattern) String() string {
	return p.source
}

// Parts returns the part names in declaration order (nil for single regexes)
func (p *Pattern) Parts() []string {
	return append([]string(nil), p.parts...)
}

// NumGroups returns the number of capturing groups in textual order
func (p *Pattern) NumGroups() int {
	return len(p.groups)
}

// GroupNames returns the name of every textual group ("" for unnamed)
func (p *Pattern) GroupNames() []string {
	names := make([]string, len(p.groups))
	for i, g := range p.groups {
		names[i] = g.name
	}
	return names
}

// GroupIndex returns the 1-based textual index of a named group
func (p *Pattern) GroupIndex(name string) (int, bool) {
	idx, ok := p.byName[name]
	return idx, ok
}
