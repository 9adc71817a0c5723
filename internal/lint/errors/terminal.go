package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// FormatForTerminal renders a configuration defect with its offending rule,
// part and example. Errors outside the taxonomy render as a single line.
func FormatForTerminal(err error, noColor bool) string {
	var sb strings.Builder

	header := color.New(color.FgRed, color.Bold)
	arrow := color.New(color.FgCyan)
	gutter := color.New(color.FgBlue)
	gray := color.New(color.FgHiBlack)
	if noColor {
		for _, c := range []*color.Color{header, arrow, gutter, gray} {
			c.DisableColor()
		}
	}

	code := CodeOf(err)
	if code == "" {
		header.Fprintf(&sb, "error: ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		return sb.String()
	}
	header.Fprintf(&sb, "error[%s]: ", code)
	sb.WriteString(Title(code))
	sb.WriteString("\n")

	var pce *PatternCompileError
	var stf *RuleSelfTestFailure
	var rde *RuleDefinitionError
	switch {
	case stderrors.As(err, &pce):
		location := "rule " + pce.Rule
		if pce.Part != "" {
			location += fmt.Sprintf(" (part %q)", pce.Part)
		}
		arrow.Fprint(&sb, "  --> ")
		sb.WriteString(location + "\n")
		if pce.Pattern != "" {
			writeBlock(&sb, gutter, pce.Pattern)
		}
		sb.WriteString("   " + pce.Reason)
		if pce.Cause != nil {
			gray.Fprintf(&sb, " (%v)", pce.Cause)
		}
		sb.WriteString("\n")

	case stderrors.As(err, &stf):
		arrow.Fprint(&sb, "  --> ")
		fmt.Fprintf(&sb, "rule %s, %s example #%d\n", stf.Rule, stf.Kind, stf.Index+1)
		writeBlock(&sb, gutter, stf.Example)
		if stf.Cause != nil {
			fmt.Fprintf(&sb, "   %v\n", stf.Cause)
		}
		if stf.Expected != "" || stf.Actual != "" {
			sb.WriteString("   expected:\n")
			writeBlock(&sb, gutter, stf.Expected)
			sb.WriteString("   actual:\n")
			writeBlock(&sb, gutter, stf.Actual)
		}

	case stderrors.As(err, &rde):
		arrow.Fprint(&sb, "  --> ")
		if rde.Source != "" {
			fmt.Fprintf(&sb, "%s, ", rde.Source)
		}
		fmt.Fprintf(&sb, "rule %s\n", rde.Rule)
		sb.WriteString("   " + rde.Reason + "\n")

	default:
		sb.WriteString("   " + err.Error() + "\n")
	}

	return sb.String()
}

// writeBlock prints text with a numbered gutter, one line per source line
func writeBlock(sb *strings.Builder, gutter *color.Color, text string) {
	gutter.Fprint(sb, "   |\n")
	for i, line := range strings.Split(text, "\n") {
		gutter.Fprintf(sb, "%2d |", i+1)
		sb.WriteString(" " + line + "\n")
	}
	gutter.Fprint(sb, "   |\n")
}
