package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
)

// Format selects a report serialization
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatCompact Format = "compact"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatText, FormatJSON, FormatCompact:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text, json or compact)", name)
	}
}

// Write serializes rep in the given format
func Write(w io.Writer, rep *Report, format Format, noColor bool) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatCompact:
		return WriteCompact(w, rep)
	default:
		return WriteText(w, rep, noColor)
	}
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteCompact writes one line per violation and diagnostic:
// "location: severity[rule]: hint"
func WriteCompact(w io.Writer, rep *Report) error {
	var sb strings.Builder
	for _, v := range rep.Violations {
		fmt.Fprintf(&sb, "%s: %s[%s]: %s", v.Location(), label(v), v.Rule, v.Hint)
		if v.Replacement != nil {
			fmt.Fprintf(&sb, " (fix: %q)", *v.Replacement)
		}
		sb.WriteString("\n")
	}
	for _, d := range rep.Diagnostics {
		loc := d.Path
		if loc == "" {
			loc = "<project>"
		}
		fmt.Fprintf(&sb, "%s: %s[%s]: %s\n", loc, d.Severity, d.Code, d.Message)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteText writes a coloured, human-readable report followed by a summary
func WriteText(w io.Writer, rep *Report, noColor bool) error {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		for _, c := range []*color.Color{red, yellow, blue, green, cyan, gray} {
			c.DisableColor()
		}
	}
	severityColor := func(s linterrors.Severity) *color.Color {
		switch s {
		case linterrors.Error:
			return red
		case linterrors.Warning:
			return yellow
		default:
			return blue
		}
	}

	var sb strings.Builder
	for _, v := range rep.Violations {
		if v.Corrected {
			green.Fprint(&sb, "fixed")
		} else {
			severityColor(v.Severity).Fprint(&sb, label(v))
		}
		fmt.Fprintf(&sb, "[%s]: %s\n", v.Rule, v.Hint)
		cyan.Fprint(&sb, "  --> ")
		sb.WriteString(v.Location() + "\n")
		if v.Matched != "" {
			gray.Fprintf(&sb, "   | %s\n", firstLine(v.Matched))
		}
		if v.Replacement != nil {
			green.Fprintf(&sb, "   = %s\n", firstLine(*v.Replacement))
		}
	}
	for _, d := range rep.Diagnostics {
		yellow.Fprintf(&sb, "warning[%s]", d.Code)
		fmt.Fprintf(&sb, ": %s\n", d.Message)
		if d.Path != "" {
			cyan.Fprint(&sb, "  --> ")
			sb.WriteString(d.Path + "\n")
		}
	}

	s := rep.Summary
	if len(rep.Violations) > 0 || len(rep.Diagnostics) > 0 {
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%d errors, %d warnings, %d infos", s.Errors, s.Warnings, s.Infos)
	if s.Corrected > 0 || s.Residual > 0 {
		fmt.Fprintf(&sb, ", %d corrected, %d residual", s.Corrected, s.Residual)
	}
	if s.Diagnostics > 0 {
		fmt.Fprintf(&sb, ", %d diagnostics", s.Diagnostics)
	}
	fmt.Fprintf(&sb, " (%d files, %d rules): ", s.Files, s.Rules)
	switch rep.Status {
	case StatusFailure:
		red.Fprint(&sb, rep.Status.String())
	case StatusWarning:
		yellow.Fprint(&sb, rep.Status.String())
	default:
		green.Fprint(&sb, rep.Status.String())
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func label(v Violation) string {
	switch {
	case v.Corrected:
		return "fixed"
	case v.Residual:
		return v.Severity.String() + " (residual)"
	default:
		return v.Severity.String()
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
