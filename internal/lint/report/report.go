// Package report aggregates violations and recoverable diagnostics of a run
// into a deterministic, sorted report.
package report

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/matcher"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// Status is the overall outcome of a run
type Status int

const (
	// StatusSuccess means no violations and no diagnostics
	StatusSuccess Status = iota
	// StatusWarning means only info/warning violations or diagnostics
	StatusWarning
	// StatusFailure means at least one error-severity violation
	StatusFailure
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Status
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Violation is one reportable finding
type Violation struct {
	Rule        string              `json:"rule"`
	Severity    linterrors.Severity `json:"severity"`
	Path        string              `json:"path"`
	Line        int                 `json:"line"`
	Column      int                 `json:"column"`
	Start       int                 `json:"start"`
	End         int                 `json:"end"`
	Hint        string              `json:"hint,omitempty"`
	Matched     string              `json:"matched,omitempty"`
	Replacement *string             `json:"replacement,omitempty"`

	// Corrected marks an applied correction. Corrected entries are
	// informational and never affect the status.
	Corrected bool `json:"corrected,omitempty"`
	// Residual marks a match of a correctable rule left after correction
	Residual bool `json:"residual,omitempty"`
}

// FromMatch builds the violation for a match of r
func FromMatch(r *rule.Rule, m matcher.Match) Violation {
	v := Violation{
		Rule:     r.ID,
		Severity: r.Severity,
		Path:     m.Path,
		Line:     m.Line,
		Column:   m.Column,
		Start:    m.Start,
		End:      m.End,
		Hint:     r.Hint,
		Matched:  m.Text,
	}
	if m.HasReplacement {
		replacement := m.Replacement
		v.Replacement = &replacement
	}
	return v
}

// Missing builds the single synthetic violation of an existence rule that
// matched nowhere
func Missing(r *rule.Rule) Violation {
	return Violation{Rule: r.ID, Severity: r.Severity, Hint: r.Hint}
}

// Diagnostic is a recoverable problem encountered during a run
type Diagnostic struct {
	Code     string              `json:"code"`
	Severity linterrors.Severity `json:"severity"`
	Path     string              `json:"path,omitempty"`
	Rule     string              `json:"rule,omitempty"`
	Message  string              `json:"message"`
}

// DiagnosticFrom converts a recoverable error into a warning diagnostic
func DiagnosticFrom(err error) Diagnostic {
	d := Diagnostic{Code: linterrors.CodeOf(err), Severity: linterrors.Warning, Message: err.Error()}

	var fre *linterrors.FileReadError
	var fwe *linterrors.FileWriteError
	var mte *linterrors.MatchTimeoutError
	switch {
	case stderrors.As(err, &fre):
		d.Path, d.Message = fre.Path, fre.Err.Error()
	case stderrors.As(err, &fwe):
		d.Path, d.Message = fwe.Path, fwe.Err.Error()
	case stderrors.As(err, &mte):
		d.Path, d.Rule, d.Message = mte.Path, mte.Rule, mte.Err.Error()
	}
	return d
}

// Summary holds the counts of a report
type Summary struct {
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Infos       int `json:"infos"`
	Corrected   int `json:"corrected"`
	Residual    int `json:"residual"`
	Diagnostics int `json:"diagnostics"`
	Files       int `json:"files"`
	Rules       int `json:"rules"`
}

// Report is the finalized, immutable result of a run
type Report struct {
	Status      Status       `json:"status"`
	Violations  []Violation  `json:"violations"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Summary     Summary      `json:"summary"`
}

// Findings returns the violations that count toward the status
func (r *Report) Findings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if !v.Corrected {
			out = append(out, v)
		}
	}
	return out
}

// Collector accumulates violations from concurrent scans. Nothing is visible
// until Finalize.
type Collector struct {
	mu          sync.Mutex
	violations  []Violation
	diagnostics []Diagnostic
	finalized   bool
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends violations
func (c *Collector) Add(vs ...Violation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		panic("report: Add after Finalize")
	}
	c.violations = append(c.violations, vs...)
}

// AddError records a recoverable error as a diagnostic
func (c *Collector) AddError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		panic("report: AddError after Finalize")
	}
	c.diagnostics = append(c.diagnostics, DiagnosticFrom(err))
}

// Finalize sorts everything collected and computes status and summary
func (c *Collector) Finalize(files, rules int) *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized = true

	violations := append([]Violation(nil), c.violations...)
	diagnostics := append([]Diagnostic(nil), c.diagnostics...)
	SortViolations(violations)
	sort.SliceStable(diagnostics, func(i, j int) bool {
		a, b := diagnostics[i], diagnostics[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})

	rep := &Report{
		Violations:  violations,
		Diagnostics: diagnostics,
		Summary:     Summary{Diagnostics: len(diagnostics), Files: files, Rules: rules},
	}
	if rep.Violations == nil {
		rep.Violations = []Violation{}
	}
	if rep.Diagnostics == nil {
		rep.Diagnostics = []Diagnostic{}
	}

	for _, v := range violations {
		if v.Corrected {
			rep.Summary.Corrected++
			continue
		}
		if v.Residual {
			rep.Summary.Residual++
		}
		switch v.Severity {
		case linterrors.Error:
			rep.Summary.Errors++
		case linterrors.Warning:
			rep.Summary.Warnings++
		default:
			rep.Summary.Infos++
		}
	}

	switch {
	case rep.Summary.Errors > 0:
		rep.Status = StatusFailure
	case rep.Summary.Warnings > 0 || rep.Summary.Infos > 0 || rep.Summary.Diagnostics > 0:
		rep.Status = StatusWarning
	default:
		rep.Status = StatusSuccess
	}
	return rep
}

// SortViolations orders violations by path, line and rule identifier, then
// by position and flags so equal keys never depend on completion order.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Corrected != b.Corrected {
			return a.Corrected
		}
		return a.Matched < b.Matched
	})
}

// ExitCode maps a status to a process exit code: 0 for success and
// warnings, 1 for failure
func (s Status) ExitCode() int {
	if s == StatusFailure {
		return 1
	}
	return 0
}

// Location formats "path:line:column" for a violation
func (v Violation) Location() string {
	switch {
	case v.Path == "":
		return "<project>"
	case v.Line == 0:
		return v.Path
	default:
		return fmt.Sprintf("%s:%d:%d", v.Path, v.Line, v.Column)
	}
}
