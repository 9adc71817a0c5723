package autocorrect

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// DiffResult is the difference between a file before and after correction
type DiffResult struct {
	Path      string
	Original  string
	Corrected string
	Changed   bool
}

// Diff compares original and corrected content of path
func Diff(path, original, corrected string) *DiffResult {
	return &DiffResult{
		Path:      path,
		Original:  original,
		Corrected: corrected,
		Changed:   original != corrected,
	}
}

// hunk is the single changed line range between two texts: everything
// outside it is a shared prefix or suffix.
type hunk struct {
	start   int // 0-based first differing line
	removed []string
	added   []string
}

func (d *DiffResult) hunk() hunk {
	before := strings.Split(d.Original, "\n")
	after := strings.Split(d.Corrected, "\n")

	prefix := 0
	for prefix < len(before) && prefix < len(after) && before[prefix] == after[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(before)-prefix && suffix < len(after)-prefix &&
		before[len(before)-1-suffix] == after[len(after)-1-suffix] {
		suffix++
	}
	return hunk{
		start:   prefix,
		removed: before[prefix : len(before)-suffix],
		added:   after[prefix : len(after)-suffix],
	}
}

// String returns a coloured, human-readable diff
func (d *DiffResult) String() string {
	if !d.Changed {
		return color.GreenString("No changes needed")
	}

	var buf bytes.Buffer
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	h := d.hunk()
	cyan.Fprintf(&buf, "@@ %s:%d @@\n", d.Path, h.start+1)
	for _, line := range h.removed {
		red.Fprintf(&buf, "- %s\n", line)
	}
	for _, line := range h.added {
		green.Fprintf(&buf, "+ %s\n", line)
	}
	return buf.String()
}

// UnifiedDiff returns the change in unified diff format
func (d *DiffResult) UnifiedDiff() string {
	if !d.Changed {
		return ""
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n", d.Path)
	fmt.Fprintf(&buf, "+++ b/%s\n", d.Path)

	h := d.hunk()
	fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", h.start+1, len(h.removed), h.start+1, len(h.added))
	for _, line := range h.removed {
		fmt.Fprintf(&buf, "-%s\n", line)
	}
	for _, line := range h.added {
		fmt.Fprintf(&buf, "+%s\n", line)
	}
	return buf.String()
}

// Stats summarises the change
func (d *DiffResult) Stats() string {
	if !d.Changed {
		return "No changes"
	}
	h := d.hunk()
	return fmt.Sprintf("%d lines removed, %d added", len(h.removed), len(h.added))
}
