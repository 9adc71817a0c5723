package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
)

// renderFirst applies tmpl to the first match of text and splices the result
func renderFirst(t *testing.T, p *Pattern, tmpl *Template, text string) string {
	t.Helper()
	span, err := p.FindFirst(text)
	require.NoError(t, err)
	require.NotNil(t, span, "expected a match in %q", text)
	return text[:span.Start] + tmpl.Render(text, *span) + text[span.End:]
}

func TestTemplate_EmptyMethodBody(t *testing.T) {
	p := emptyMethodBody(t)
	tmpl, err := ParseTemplate("EmptyMethodBody", "$declaration {}", p)
	require.NoError(t, err)

	assert.Equal(t, "init() {}", renderFirst(t, p, tmpl, "init() { }"))
	assert.Equal(t, "func foo2bar() {}", renderFirst(t, p, tmpl, "func foo2bar()\n{\n    \n}"))
}

func TestTemplate_NilCoalescing(t *testing.T) {
	p, err := Compile("NilCoalescingOperator", Spec{Regex: `(\w+)\s*!=\s*nil\s*\?\s*\1!\s*:\s*(.*)`}, Options{})
	require.NoError(t, err)
	tmpl, err := ParseTemplate("NilCoalescingOperator", "$1 ?? $2", p)
	require.NoError(t, err)

	input := "let message = errorMessage != nil ? errorMessage! : L10n.Global.Info.success\n"
	want := "let message = errorMessage ?? L10n.Global.Info.success\n"
	assert.Equal(t, want, renderFirst(t, p, tmpl, input))
}

func TestTemplate_References(t *testing.T) {
	p, err := Compile("R", Spec{Parts: []Part{
		{Name: "a", Pattern: `(x)`},
		{Name: "ab", Pattern: `(y)?`},
		{Name: "tail", Pattern: `z`},
	}}, Options{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		template string
		input    string
		want     string
	}{
		{name: "whole match", template: "[$0]", input: "xyz", want: "[xyz]"},
		{name: "positional across parts", template: "$2-$4", input: "xyz", want: "x-y"},
		{name: "braced positional", template: "${2}0", input: "xyz", want: "x0"},
		{name: "named", template: "${tail}", input: "xyz", want: "z"},
		{name: "longest name prefix", template: "$abc", input: "xyz", want: "yc"},
		{name: "unmatched optional group", template: "<$ab>", input: "xz", want: "<>"},
		{name: "missing positional group", template: "<$9>", input: "xyz", want: "<>"},
		{name: "dollar escape", template: "$$1", input: "xyz", want: "$1"},
		{name: "backslash dollar", template: `\$1`, input: "xyz", want: "$1"},
		{name: "backslash backslash", template: `\\$2`, input: "xyz", want: `\x`},
		{name: "other backslash is literal", template: `\n$2`, input: "xyz", want: `\nx`},
		{name: "lone dollar", template: "$ $", input: "xyz", want: "$ $"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate("R", tt.template, p)
			require.NoError(t, err)

			span, err := p.FindFirst(tt.input)
			require.NoError(t, err)
			require.NotNil(t, span)
			assert.Equal(t, tt.want, tmpl.Render(tt.input, *span))
		})
	}
}

func TestParseTemplate_UnknownName(t *testing.T) {
	p := emptyMethodBody(t)

	for _, src := range []string{"$decl {}", "${nope}"} {
		_, err := ParseTemplate("EmptyMethodBody", src, p)
		require.Error(t, err, src)

		var pce *linterrors.PatternCompileError
		require.True(t, errors.As(err, &pce))
		assert.Equal(t, linterrors.ErrTemplateReference, pce.Code)
	}
}
