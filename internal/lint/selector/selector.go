// Package selector applies a rule's include and exclude path filters to a
// candidate file list.
package selector

import (
	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// Applies reports whether r must scan path. A path is selected when it
// matches any include filter (or there are none) and no exclude filter.
func Applies(r *rule.Rule, path string) (bool, error) {
	if len(r.Include) > 0 {
		included, err := anyMatch(r.Include, path)
		if err != nil || !included {
			return false, wrap(r, path, err)
		}
	}
	excluded, err := anyMatch(r.Exclude, path)
	if err != nil {
		return false, wrap(r, path, err)
	}
	return !excluded, nil
}

// Select returns the subset of paths r must scan, in input order
func Select(r *rule.Rule, paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		ok, err := Applies(r, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Plan is the per-rule file selection for a whole registry
type Plan struct {
	// Files[i] are the paths selected for rules[i]
	Files [][]string
	// Union is every path selected by at least one rule, in input order
	Union []string
}

// Build selects files for every rule. Path rules contribute to Union only
// when their path needs no content, so Union lists exactly the files whose
// content must be read.
func Build(rules []*rule.Rule, paths []string) (*Plan, error) {
	plan := &Plan{Files: make([][]string, len(rules))}
	needed := make(map[string]bool)
	for i, r := range rules {
		files, err := Select(r, paths)
		if err != nil {
			return nil, err
		}
		plan.Files[i] = files
		if r.Kind == rule.KindPath {
			continue
		}
		for _, f := range files {
			needed[f] = true
		}
	}
	for _, p := range paths {
		if needed[p] {
			plan.Union = append(plan.Union, p)
		}
	}
	return plan, nil
}

func anyMatch(filters []*pattern.Pattern, path string) (bool, error) {
	for _, f := range filters {
		ok, err := f.MatchString(path)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func wrap(r *rule.Rule, path string, err error) error {
	if err == nil {
		return nil
	}
	return &linterrors.MatchTimeoutError{Rule: r.ID, Path: path, Err: err}
}
