package engine

import (
	"github.com/conduit-lang/rulelint/internal/lint/autocorrect"
	"github.com/conduit-lang/rulelint/internal/lint/matcher"
	"github.com/conduit-lang/rulelint/internal/lint/report"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
	"github.com/conduit-lang/rulelint/internal/lint/selector"
)

// DocumentResult is the lint outcome of one in-memory document
type DocumentResult struct {
	Violations []report.Violation
	Errors     []error // recoverable problems such as match timeouts
}

// LintDocument scans a single document that may not be saved yet. Existence
// rules need the whole corpus and are skipped. Rules are assumed to have
// passed Verify already.
func (e *Engine) LintDocument(path, content string) *DocumentResult {
	res := &DocumentResult{}
	for _, rl := range e.registry.Rules() {
		if rl.ExistenceCheck() {
			continue
		}
		ok, err := selector.Applies(rl, path)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if !ok {
			continue
		}

		if rl.Kind == rule.KindPath {
			m, err := matcher.ScanPath(rl, path)
			if err != nil {
				res.Errors = append(res.Errors, err)
			} else if m != nil {
				res.Violations = append(res.Violations, report.FromMatch(rl, *m))
			}
			continue
		}

		matches, err := matcher.ScanContent(rl, path, content)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		for _, m := range matches {
			res.Violations = append(res.Violations, report.FromMatch(rl, m))
		}
	}
	report.SortViolations(res.Violations)
	return res
}

// FixDocument applies every correctable rule selecting path to content, in
// declaration order, and returns the corrected text.
func (e *Engine) FixDocument(path, content string) (*autocorrect.Result, error) {
	var rules []*rule.Rule
	for _, rl := range e.registry.Rules() {
		if !rl.Correctable() {
			continue
		}
		ok, err := selector.Applies(rl, path)
		if err != nil {
			return nil, err
		}
		if ok {
			rules = append(rules, rl)
		}
	}
	return autocorrect.Sequence(rules, path, content)
}
