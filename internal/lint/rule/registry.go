package rule

import (
	"fmt"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
)

// Registry is an ordered, identifier-unique set of rules
type Registry struct {
	rules []*Rule
	byID  map[string]*Rule
}

// NewRegistry creates a registry holding rules in the given order
func NewRegistry(rules ...*Rule) (*Registry, error) {
	reg := &Registry{byID: make(map[string]*Rule, len(rules))}
	for _, r := range rules {
		if err := reg.Add(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Add appends a rule. Identifiers must be unique.
func (reg *Registry) Add(r *Rule) error {
	if prev, exists := reg.byID[r.ID]; exists {
		reason := "identifier is already defined"
		if prev.Source != "" {
			reason = fmt.Sprintf("identifier is already defined in %s", prev.Source)
		}
		return &linterrors.RuleDefinitionError{
			Code: linterrors.ErrDuplicateRule, Rule: r.ID, Source: r.Source, Reason: reason,
		}
	}
	reg.rules = append(reg.rules, r)
	reg.byID[r.ID] = r
	return nil
}

// Get looks up a rule by identifier
func (reg *Registry) Get(id string) (*Rule, bool) {
	r, ok := reg.byID[id]
	return r, ok
}

// Rules returns the rules in declaration order
func (reg *Registry) Rules() []*Rule {
	return append([]*Rule(nil), reg.rules...)
}

// Len returns the number of rules
func (reg *Registry) Len() int {
	return len(reg.rules)
}

// Index returns the declaration index of a rule, or -1
func (reg *Registry) Index(id string) int {
	for i, r := range reg.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Select returns a registry restricted to the given identifiers, keeping
// declaration order. Unknown identifiers are an error.
func (reg *Registry) Select(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return reg, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := reg.byID[id]; !ok {
			return nil, fmt.Errorf("unknown rule %q", id)
		}
		want[id] = true
	}
	var picked []*Rule
	for _, r := range reg.rules {
		if want[r.ID] {
			picked = append(picked, r)
		}
	}
	return NewRegistry(picked...)
}
