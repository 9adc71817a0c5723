// Package rule holds the rule model, the registry and the YAML rule loader.
//
// A Rule is immutable once built: its pattern, filters and template are
// compiled up front and the same value is shared read-only by every worker.
package rule

import (
	"fmt"
	"strings"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
)

// Kind selects what a rule's pattern is matched against
type Kind int

const (
	// KindContent rules scan file content
	KindContent Kind = iota
	// KindPath rules scan the slash-separated file path
	KindPath
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name into a Kind; empty means content
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "content", "contents":
		return KindContent, nil
	case "path", "paths", "file_paths":
		return KindPath, nil
	default:
		return KindContent, fmt.Errorf("unknown rule kind %q (expected content or path)", name)
	}
}

// CorrectionExample is a declared before/after pair for a correctable rule
type CorrectionExample struct {
	Before string `yaml:"before" json:"before"`
	After  string `yaml:"after" json:"after"`
}

// Rule is a compiled, validated rule
type Rule struct {
	ID       string
	Hint     string
	Severity linterrors.Severity
	Kind     Kind
	Source   string // rule file the rule was loaded from, if any

	Spec    pattern.Spec
	Options pattern.Options
	Pattern *pattern.Pattern

	// Template is nil for report-only rules
	Template *pattern.Template

	Include []*pattern.Pattern // empty means every file
	Exclude []*pattern.Pattern

	ViolateIfNoMatchesFound bool

	MatchingExamples    []string
	NonMatchingExamples []string
	CorrectionExamples  []CorrectionExample
}

// Correctable reports whether the rule carries a correction template
func (r *Rule) Correctable() bool {
	return r.Template != nil
}

// ExistenceCheck reports whether a violation means "no match anywhere"
func (r *Rule) ExistenceCheck() bool {
	return r.ViolateIfNoMatchesFound
}

// Definition is the uncompiled form of a rule, as authored
type Definition struct {
	ID                      string
	Hint                    string
	Severity                string
	Kind                    string
	Regex                   string
	Parts                   []pattern.Part
	Options                 []string
	IncludeFilters          []string
	ExcludeFilters          []string
	ViolateIfNoMatchesFound bool
	MatchingExamples        []string
	NonMatchingExamples     []string
	Replacement             *string
	CorrectionExamples      []CorrectionExample
	Source                  string
}

// BuildOptions are applied to every rule built
type BuildOptions struct {
	Options pattern.Options // timeout and defaults for every compiled pattern
}

// Build validates def and compiles its pattern, filters and template
func Build(def Definition, opts BuildOptions) (*Rule, error) {
	defErr := func(code, reason string) error {
		return &linterrors.RuleDefinitionError{Code: code, Rule: def.ID, Source: def.Source, Reason: reason}
	}

	if strings.TrimSpace(def.ID) == "" {
		return nil, defErr(linterrors.ErrMissingID, "rule has no identifier")
	}
	severity, err := linterrors.ParseSeverity(def.Severity)
	if err != nil {
		return nil, defErr(linterrors.ErrInvalidSeverity, err.Error())
	}
	kind, err := ParseKind(def.Kind)
	if err != nil {
		return nil, defErr(linterrors.ErrInvalidKind, err.Error())
	}
	switch {
	case def.Regex != "" && len(def.Parts) > 0:
		return nil, defErr(linterrors.ErrPatternForm, "rule declares both regex and parts")
	case def.Regex == "" && len(def.Parts) == 0:
		return nil, defErr(linterrors.ErrPatternForm, "rule declares neither regex nor parts")
	}
	if kind == KindPath && (def.Replacement != nil || len(def.CorrectionExamples) > 0) {
		return nil, defErr(linterrors.ErrPathRuleTemplate, "path rules are report-only")
	}

	po := opts.Options
	for _, o := range def.Options {
		switch strings.ToLower(strings.TrimSpace(o)) {
		case "dotall", "dotmatchesnewlines", "m":
			po.DotAll = true
		case "ignorecase", "caseinsensitive", "i":
			po.IgnoreCase = true
		default:
			return nil, &linterrors.PatternCompileError{
				Code: linterrors.ErrInvalidRegexOptions, Rule: def.ID,
				Reason: fmt.Sprintf("unknown regex option %q (expected dotall or ignorecase)", o),
			}
		}
	}

	spec := pattern.Spec{Regex: def.Regex, Parts: def.Parts}
	compiled, err := pattern.Compile(def.ID, spec, po)
	if err != nil {
		return nil, err
	}

	r := &Rule{
		ID:                      def.ID,
		Hint:                    def.Hint,
		Severity:                severity,
		Kind:                    kind,
		Source:                  def.Source,
		Spec:                    spec,
		Options:                 po,
		Pattern:                 compiled,
		ViolateIfNoMatchesFound: def.ViolateIfNoMatchesFound,
		MatchingExamples:        def.MatchingExamples,
		NonMatchingExamples:     def.NonMatchingExamples,
		CorrectionExamples:      def.CorrectionExamples,
	}

	if def.Replacement != nil {
		r.Template, err = pattern.ParseTemplate(def.ID, *def.Replacement, compiled)
		if err != nil {
			return nil, err
		}
	}

	filterOpts := pattern.Options{Timeout: opts.Options.Timeout}
	if r.Include, err = compileFilters(def.ID, "include", def.IncludeFilters, filterOpts); err != nil {
		return nil, err
	}
	if r.Exclude, err = compileFilters(def.ID, "exclude", def.ExcludeFilters, filterOpts); err != nil {
		return nil, err
	}

	return r, nil
}

func compileFilters(rule, which string, filters []string, opts pattern.Options) ([]*pattern.Pattern, error) {
	out := make([]*pattern.Pattern, 0, len(filters))
	for i, f := range filters {
		p, err := pattern.Compile(fmt.Sprintf("%s (%s filter #%d)", rule, which, i+1), pattern.Spec{Regex: f}, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
