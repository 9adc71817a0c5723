// Package errors defines the rulelint error taxonomy.
//
// Configuration defects (PatternCompileError, RuleSelfTestFailure,
// RuleDefinitionError) are fatal and abort a run before any real file is
// scanned. I/O problems (FileReadError, FileWriteError, MatchTimeoutError) are
// recovered per file and surface as warning-level diagnostics in the report.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Severity represents the severity level of a rule or diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity name into a Severity. An empty name
// yields Error, the default severity of a rule.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Error, nil
	case "info":
		return Info, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	default:
		return Error, fmt.Errorf("unknown severity %q (expected info, warning or error)", name)
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PatternCompileError reports a malformed or ambiguous pattern composition.
type PatternCompileError struct {
	Code    string
	Rule    string
	Part    string // empty for single-pattern rules
	Pattern string
	Reason  string
	Cause   error
}

func (e *PatternCompileError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: rule %s", e.Code, e.Rule)
	if e.Part != "" {
		fmt.Fprintf(&sb, " part %q", e.Part)
	}
	fmt.Fprintf(&sb, ": %s", e.Reason)
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

func (e *PatternCompileError) Unwrap() error { return e.Cause }

// ExampleKind names the kind of example a self-test failure refers to
type ExampleKind string

const (
	KindMatching    ExampleKind = "matching"
	KindNonMatching ExampleKind = "non-matching"
	KindCorrection  ExampleKind = "autocorrect"
	KindIdempotence ExampleKind = "idempotence"
	KindResidual    ExampleKind = "residual"
	KindTemplate    ExampleKind = "template"
)

// RuleSelfTestFailure reports a rule whose own examples contradict its
// compiled pattern or correction template.
type RuleSelfTestFailure struct {
	Code     string
	Rule     string
	Kind     ExampleKind
	Index    int // 0-based index into the example list
	Example  string
	Expected string
	Actual   string
	Cause    error
}

func (e *RuleSelfTestFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: rule %s failed %s example #%d %q", e.Code, e.Rule, e.Kind, e.Index+1, e.Example)
	switch {
	case e.Cause != nil:
		fmt.Fprintf(&sb, ": %v", e.Cause)
	case e.Expected != "" || e.Actual != "":
		fmt.Fprintf(&sb, ": expected %q, got %q", e.Expected, e.Actual)
	}
	return sb.String()
}

func (e *RuleSelfTestFailure) Unwrap() error { return e.Cause }

// RuleDefinitionError reports a structurally invalid rule record.
type RuleDefinitionError struct {
	Code   string
	Rule   string
	Source string // rule file, when known
	Reason string
}

func (e *RuleDefinitionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: rule %s: %s", e.Code, e.Source, e.Rule, e.Reason)
	}
	return fmt.Sprintf("%s: rule %s: %s", e.Code, e.Rule, e.Reason)
}

// FileReadError reports a selected file that could not be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("%s: read %s: %v", ErrFileRead, e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// FileWriteError reports an autocorrect write that did not happen.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("%s: write %s: %v", ErrFileWrite, e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error { return e.Err }

// MatchTimeoutError reports a pattern that exceeded its match timeout.
type MatchTimeoutError struct {
	Rule string
	Path string
	Err  error
}

func (e *MatchTimeoutError) Error() string {
	return fmt.Sprintf("%s: rule %s on %s: %v", ErrMatchTimeout, e.Rule, e.Path, e.Err)
}

func (e *MatchTimeoutError) Unwrap() error { return e.Err }

// IsFatal reports whether err is a configuration defect that must abort a run.
func IsFatal(err error) bool {
	var pce *PatternCompileError
	var stf *RuleSelfTestFailure
	var rde *RuleDefinitionError
	return stderrors.As(err, &pce) || stderrors.As(err, &stf) || stderrors.As(err, &rde)
}

// CodeOf returns the stable code carried by err, or "" when it has none.
func CodeOf(err error) string {
	var pce *PatternCompileError
	var stf *RuleSelfTestFailure
	var rde *RuleDefinitionError
	var fre *FileReadError
	var fwe *FileWriteError
	var mte *MatchTimeoutError
	switch {
	case stderrors.As(err, &pce):
		return pce.Code
	case stderrors.As(err, &stf):
		return stf.Code
	case stderrors.As(err, &rde):
		return rde.Code
	case stderrors.As(err, &fre):
		return ErrFileRead
	case stderrors.As(err, &fwe):
		return ErrFileWrite
	case stderrors.As(err, &mte):
		return ErrMatchTimeout
	default:
		return ""
	}
}
