package ui

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Context:      "unknown rule",
		Problem:      "No loaded rule is named 'X'.",
		Consequence:  "Nothing was linted.",
		Suggestions:  []string{"Y", "Z"},
		HelpCommands: []string{"List loaded rules: rulelint rules"},
		NoColor:      true,
	})

	want := "❌ UNKNOWN RULE\n" +
		"   No loaded rule is named 'X'.\n" +
		"\n   Nothing was linted.\n" +
		"\n   Did you mean: Y, Z?\n" +
		"\n   → List loaded rules: rulelint rules\n"
	if out != want {
		t.Errorf("FormatError() =\n%q\nwant\n%q", out, want)
	}
}

func TestFormatErrorLevels(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		prefix string
	}{
		{"warning", Warning("rule file is empty", true), "⚠️ rule file is empty"},
		{"info", Info("nothing to fix", true), "ℹ️ nothing to fix"},
		{"success", FormatSuccess("3 files corrected", true), "✓ 3 files corrected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.out, tt.prefix) {
				t.Errorf("got %q, want prefix %q", tt.out, tt.prefix)
			}
		})
	}
}

func TestUnknownRuleError(t *testing.T) {
	out := UnknownRuleError("EmptyMethodBdy", []string{"EmptyMethodBody", "ReadmeExistence"}, true)
	if !strings.Contains(out, "Did you mean: EmptyMethodBody?") {
		t.Errorf("expected suggestion, got %q", out)
	}
	if strings.Contains(out, "ReadmeExistence") {
		t.Errorf("unrelated rule suggested: %q", out)
	}
}

func TestRulesRejected(t *testing.T) {
	out := RulesRejected(true)
	for _, want := range []string{"RULES REJECTED", "No file was read or modified.", "rulelint verify"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	ids := []string{"EmptyTodo", "EmptyMethodBody", "EmptyType", "NilCoalescingOperator"}

	got := FindSimilar("emptytype", ids, nil)
	if want := []string{"EmptyType", "EmptyTodo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FindSimilar() = %v, want %v", got, want)
	}

	got = FindSimilar("EMPTYTYPE", ids, &FuzzyMatchOptions{CaseSensitive: true})
	if len(got) != 0 {
		t.Errorf("case-sensitive FindSimilar() = %v, want none", got)
	}

	got = FindSimilar("Empty", ids, &FuzzyMatchOptions{MaxDistance: 10, MaxSuggestions: 1})
	if want := []string{"EmptyTodo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FindSimilar() = %v, want %v", got, want)
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"ID", "Severity", "Kind"}, &TableOptions{NoColor: true})
	table.AddRow("EmptyMethodBody", "warning", "content")
	table.AddRow("Readme", "error", "path")
	table.Render()

	want := "ID               Severity  Kind\n" +
		"───────────────  ────────  ───────\n" +
		"EmptyMethodBody  warning   content\n" +
		"Readme           error     path\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", buf.String(), want)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestTableEmptyHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Rules", "4")
	kv.AddRow("Failed", "1")
	kv.Render()

	want := "Rules:  4\nFailed: 1\n"
	if buf.String() != want {
		t.Errorf("Render() = %q, want %q", buf.String(), want)
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Rules", true)
	if buf.String() != "Rules\n─────\n" {
		t.Errorf("Header() = %q", buf.String())
	}
}

func TestSpinner(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, SpinnerOptions{Message: "Linting", NoColor: true, Interval: 10 * time.Millisecond})

	s.Start()
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Success("done")
	s.Stop()

	out := buf.String()
	for _, want := range []string{"Linting", "\r\033[K", "✓ done\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	err := WithSpinner(&buf, "Verifying", true, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Verifying") {
		t.Errorf("missing success line in %q", buf.String())
	}

	buf.Reset()
	boom := errFixed("boom")
	if err := WithSpinner(&buf, "Verifying", true, func() error { return boom }); err != boom {
		t.Errorf("WithSpinner() error = %v, want %v", err, boom)
	}
	if !strings.Contains(buf.String(), "❌ Verifying failed") {
		t.Errorf("missing failure line in %q", buf.String())
	}
}

type errFixed string

func (e errFixed) Error() string { return string(e) }
