package autocorrect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/rulelint/internal/lint/pattern"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

func strPtr(s string) *string { return &s }

func build(t *testing.T, def rule.Definition) *rule.Rule {
	t.Helper()
	r, err := rule.Build(def, rule.BuildOptions{})
	require.NoError(t, err)
	return r
}

func emptyMethodBody(t *testing.T) *rule.Rule {
	return build(t, rule.Definition{
		ID: "EmptyMethodBody",
		Parts: []pattern.Part{
			{Name: "declaration", Pattern: `(init|func [^\(\s]+)\([^{}]*\)`},
			{Name: "spacing", Pattern: `\s*`},
			{Name: "body", Pattern: `\{\s+\}`},
		},
		Replacement: strPtr("$declaration {}"),
	})
}

func nilCoalescing(t *testing.T) *rule.Rule {
	return build(t, rule.Definition{
		ID:          "NilCoalescingOperator",
		Regex:       `(\w+)\s*!=\s*nil\s*\?\s*\1!\s*:\s*(.*)`,
		Replacement: strPtr("$1 ?? $2"),
	})
}

func TestText_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		rule   func(*testing.T) *rule.Rule
		before string
		after  string
	}{
		{name: "empty method body", rule: emptyMethodBody, before: "init() { }", after: "init() {}"},
		{name: "empty method body multi-line", rule: emptyMethodBody, before: "init(\n    x: Int,\n    y: Int\n) {\n    \n}", after: "init(\n    x: Int,\n    y: Int\n) {}"},
		{
			name:   "nil coalescing",
			rule:   nilCoalescing,
			before: "let message = errorMessage != nil ? errorMessage! : L10n.Global.Info.success\n",
			after:  "let message = errorMessage ?? L10n.Global.Info.success\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule(t)
			got, err := Text(r, tt.before)
			require.NoError(t, err)
			assert.Equal(t, tt.after, got)

			again, err := Text(r, got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "correction must be idempotent")
		})
	}
}

func TestCorrect_MultipleMatchesLeaveOtherBytesAlone(t *testing.T) {
	r := emptyMethodBody(t)
	content := "// header\ninit() { }\nlet x = 1\nfunc a()  {\n}\n// footer ü\n"

	res, err := Correct(r, "A.swift", content)
	require.NoError(t, err)
	require.Len(t, res.Applied, 2)
	assert.Empty(t, res.Residual)
	assert.True(t, res.Changed())
	assert.Equal(t, "// header\ninit() {}\nlet x = 1\nfunc a() {}\n// footer ü\n", res.Content)

	// Every byte outside the corrected ranges survives unchanged.
	assert.True(t, strings.HasPrefix(res.Content, content[:res.Applied[0].Start]))
	assert.True(t, strings.HasSuffix(res.Content, content[res.Applied[1].End:]))
	assert.Equal(t, 2, res.Applied[0].Line)
	assert.Equal(t, 4, res.Applied[1].Line)
}

func TestCorrect_ReportsResidual(t *testing.T) {
	// Doubling a character leaves a fresh match behind.
	r := build(t, rule.Definition{
		ID:          "Doubler",
		Regex:       `a+`,
		Replacement: strPtr("$0a"),
	})

	res, err := Correct(r, "x", "baab")
	require.NoError(t, err)
	assert.Equal(t, "baaab", res.Content)
	require.Len(t, res.Residual, 1)
	assert.Equal(t, "Doubler", res.Residual[0].Rule)
}

func TestSequence_RescanAfterEachRule(t *testing.T) {
	spaces := build(t, rule.Definition{ID: "Spaces", Regex: ` {2,}`, Replacement: strPtr(" ")})
	semicolon := build(t, rule.Definition{ID: "Semicolon", Regex: ` ;$`, Replacement: strPtr(";")})
	reportOnly := build(t, rule.Definition{ID: "Todo", Regex: `TODO`})

	res, err := Sequence([]*rule.Rule{spaces, reportOnly, semicolon}, "a", "x   = 1   ;\n// TODO\n")
	require.NoError(t, err)
	assert.Equal(t, "x = 1;\n// TODO\n", res.Content)
	require.Len(t, res.Applied, 3)
	assert.Equal(t, "Spaces", res.Applied[0].Rule)
	assert.Equal(t, "Semicolon", res.Applied[2].Rule)
	assert.Empty(t, res.Residual)
}

func TestSequence_AppliedOffsetsReferToOriginal(t *testing.T) {
	spaces := build(t, rule.Definition{ID: "Spaces", Regex: ` {2,}`, Replacement: strPtr(" ")})
	blankLines := build(t, rule.Definition{ID: "BlankLines", Regex: `\n{3,}`, Replacement: strPtr("\n\n")})
	semicolon := build(t, rule.Definition{ID: "Semicolon", Regex: ` ;$`, Replacement: strPtr(";")})
	expand := build(t, rule.Definition{ID: "Expand", Regex: `foo`, Replacement: strPtr("barbaz")})
	shrink := build(t, rule.Definition{ID: "Shrink", Regex: `rba`, Replacement: strPtr("X")})

	tests := []struct {
		name    string
		rules   []*rule.Rule
		content string
		want    string
		start   int
		end     int
		line    int
		column  int
	}{
		{
			name:    "earlier rule shortens the line",
			rules:   []*rule.Rule{spaces, semicolon},
			content: "a    b ;\n",
			want:    "a b;\n",
			start:   6, end: 8, line: 1, column: 7,
		},
		{
			name:    "earlier rule removes newlines",
			rules:   []*rule.Rule{blankLines, semicolon},
			content: "a\n\n\n\nb ;\n",
			want:    "a\n\nb;\n",
			start:   6, end: 8, line: 5, column: 2,
		},
		{
			name:    "earlier rule lengthens the line",
			rules:   []*rule.Rule{expand, semicolon},
			content: "foo ;\n",
			want:    "barbaz;\n",
			start:   3, end: 5, line: 1, column: 4,
		},
		{
			name:    "match inside replaced text",
			rules:   []*rule.Rule{expand, shrink},
			content: "x foo!",
			want:    "x baXz!",
			start:   2, end: 5, line: 1, column: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Sequence(tt.rules, "a", tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Content)
			require.Len(t, res.Applied, 2)

			last := res.Applied[1]
			assert.Equal(t, tt.start, last.Start)
			assert.Equal(t, tt.end, last.End)
			assert.Equal(t, tt.line, last.Line)
			assert.Equal(t, tt.column, last.Column)
		})
	}
}

func TestApply(t *testing.T) {
	content := "abcdef"

	out, err := Apply(content, []Correction{
		{Rule: "R", Start: 0, End: 1, Original: "a", Replacement: "AA"},
		{Rule: "R", Start: 4, End: 6, Original: "ef", Replacement: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAbcd", out)

	_, err = Apply(content, []Correction{
		{Rule: "R", Start: 0, End: 3, Original: "abc"},
		{Rule: "R", Start: 2, End: 4, Original: "cd"},
	})
	assert.Error(t, err, "overlapping corrections")

	_, err = Apply(content, []Correction{{Rule: "R", Start: 0, End: 2, Original: "zz"}})
	assert.Error(t, err, "stale correction")

	out, err = Apply(content, nil)
	require.NoError(t, err)
	assert.Equal(t, content, out)
}

func TestPreview(t *testing.T) {
	out := Preview([]Correction{{Rule: "R", Path: "a.swift", Line: 3, Original: "x", Replacement: "y"}})
	assert.Equal(t, "a.swift:3: R: \"x\" -> \"y\"\n", out)
}

func TestDiff(t *testing.T) {
	d := Diff("a.swift", "one\ntwo\nthree\n", "one\n2\nthree\n")
	assert.True(t, d.Changed)
	assert.Equal(t, "--- a/a.swift\n+++ b/a.swift\n@@ -2,1 +2,1 @@\n-two\n+2\n", d.UnifiedDiff())
	assert.Equal(t, "1 lines removed, 1 added", d.Stats())

	same := Diff("a.swift", "x", "x")
	assert.False(t, same.Changed)
	assert.Equal(t, "", same.UnifiedDiff())
	assert.Equal(t, "No changes", same.Stats())
}
