package rule

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
)

// File is the on-disk layout of a rule file
type File struct {
	Rules []Record `yaml:"rules"`
}

// Record is one rule as written in YAML
type Record struct {
	ID                      string              `yaml:"id"`
	CheckInfo               string              `yaml:"check_info"`
	Hint                    string              `yaml:"hint"`
	Severity                string              `yaml:"severity"`
	Kind                    string              `yaml:"kind"`
	Regex                   string              `yaml:"regex"`
	Parts                   Parts               `yaml:"parts"`
	Options                 []string            `yaml:"options"`
	IncludeFilters          []string            `yaml:"include_filters"`
	ExcludeFilters          []string            `yaml:"exclude_filters"`
	ViolateIfNoMatchesFound bool                `yaml:"violate_if_no_matches_found"`
	MatchingExamples        []string            `yaml:"matching_examples"`
	NonMatchingExamples     []string            `yaml:"non_matching_examples"`
	Replacement             *string             `yaml:"autocorrect_replacement"`
	CorrectionExamples      []CorrectionExample `yaml:"autocorrect_examples"`
}

// Parts is an ordered list of named sub-patterns. In YAML it is a mapping
// whose key order is the composition order.
type Parts []pattern.Part

// UnmarshalYAML keeps mapping keys in document order
func (p *Parts) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parts must be a mapping of name to pattern", node.Line)
	}
	out := make(Parts, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: part %q must be a string", value.Line, key.Value)
		}
		out = append(out, pattern.Part{Name: key.Value, Pattern: value.Value})
	}
	*p = out
	return nil
}

// MarshalYAML writes parts back as an ordered mapping
func (p Parts) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, part := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: part.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: part.Pattern, Style: yaml.SingleQuotedStyle},
		)
	}
	return node, nil
}

// Definition converts the record into a Definition, expanding check_info
func (rec Record) Definition(source string) Definition {
	def := Definition{
		ID:                      rec.ID,
		Hint:                    rec.Hint,
		Severity:                rec.Severity,
		Kind:                    rec.Kind,
		Regex:                   rec.Regex,
		Parts:                   rec.Parts,
		Options:                 rec.Options,
		IncludeFilters:          rec.IncludeFilters,
		ExcludeFilters:          rec.ExcludeFilters,
		ViolateIfNoMatchesFound: rec.ViolateIfNoMatchesFound,
		MatchingExamples:        rec.MatchingExamples,
		NonMatchingExamples:     rec.NonMatchingExamples,
		Replacement:             rec.Replacement,
		CorrectionExamples:      rec.CorrectionExamples,
		Source:                  source,
	}
	if rec.CheckInfo != "" {
		id, severity, hint := ParseCheckInfo(rec.CheckInfo)
		if def.ID == "" {
			def.ID = id
		}
		if def.Severity == "" {
			def.Severity = severity
		}
		if def.Hint == "" {
			def.Hint = hint
		}
	}
	return def
}

// ParseCheckInfo splits the "ID@severity: hint" shorthand. Severity is
// optional; a string without ':' is an identifier only.
func ParseCheckInfo(s string) (id, severity, hint string) {
	head := s
	if colon := strings.Index(s, ":"); colon >= 0 {
		head = s[:colon]
		hint = strings.TrimSpace(s[colon+1:])
	}
	id = head
	if at := strings.Index(head, "@"); at >= 0 {
		id = head[:at]
		severity = strings.TrimSpace(head[at+1:])
	}
	return strings.TrimSpace(id), severity, hint
}

// Parse decodes a rule file and builds its rules in declaration order
func Parse(data []byte, source string, opts BuildOptions) ([]*Rule, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	rules := make([]*Rule, 0, len(file.Rules))
	for i, rec := range file.Rules {
		def := rec.Definition(source)
		if def.ID == "" {
			return nil, &linterrors.RuleDefinitionError{
				Code: linterrors.ErrMissingID, Rule: fmt.Sprintf("#%d", i+1), Source: source,
				Reason: "rule has neither id nor check_info",
			}
		}
		r, err := Build(def, opts)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadFile reads and builds one rule file
func LoadFile(path string, opts BuildOptions) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return Parse(data, path, opts)
}

// LoadRegistry loads every rule file in order into one registry
func LoadRegistry(paths []string, opts BuildOptions) (*Registry, error) {
	var all []*Rule
	for _, path := range paths {
		rules, err := LoadFile(path, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, rules...)
	}
	return NewRegistry(all...)
}
