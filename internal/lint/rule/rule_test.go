package rule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
)

const swiftRules = `
rules:
  - check_info: "EmptyMethodBody@warning: Don't use whitespace or newlines for the body of empty methods."
    parts:
      declaration: '(init|func [^\(\s]+)\([^{}]*\)'
      spacing: '\s*'
      body: '\{\s+\}'
    include_filters: ['\.swift$']
    matching_examples: ['init() { }']
    non_matching_examples: ['init() {}']
    autocorrect_replacement: '$declaration {}'
    autocorrect_examples:
      - {before: 'init()  { }', after: 'init() {}'}

  - id: ReadmeExistence
    hint: Each project should have a README.md file.
    kind: path
    regex: '^README\.md$'
    violate_if_no_matches_found: true
`

func strPtr(s string) *string { return &s }

func TestParseCheckInfo(t *testing.T) {
	tests := []struct {
		input    string
		id       string
		severity string
		hint     string
	}{
		{input: "EmptyTodo: `// TODO:` comments should not be empty.", id: "EmptyTodo", hint: "`// TODO:` comments should not be empty."},
		{input: "DynamicStringReference@warning: Use SwiftGen.", id: "DynamicStringReference", severity: "warning", hint: "Use SwiftGen."},
		{input: "Bare", id: "Bare"},
		{input: "Sev@info", id: "Sev", severity: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			id, severity, hint := ParseCheckInfo(tt.input)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.severity, severity)
			assert.Equal(t, tt.hint, hint)
		})
	}
}

func TestParse_SwiftRules(t *testing.T) {
	rules, err := Parse([]byte(swiftRules), "swift.yml", BuildOptions{})
	require.NoError(t, err)
	require.Len(t, rules, 2)

	empty := rules[0]
	assert.Equal(t, "EmptyMethodBody", empty.ID)
	assert.Equal(t, linterrors.Warning, empty.Severity)
	assert.Equal(t, KindContent, empty.Kind)
	assert.Equal(t, "swift.yml", empty.Source)
	assert.True(t, empty.Correctable())
	assert.Equal(t, []string{"declaration", "spacing", "body"}, empty.Pattern.Parts())
	require.Len(t, empty.Include, 1)
	require.Len(t, empty.CorrectionExamples, 1)
	assert.Equal(t, "init() {}", empty.CorrectionExamples[0].After)

	readme := rules[1]
	assert.Equal(t, KindPath, readme.Kind)
	assert.Equal(t, linterrors.Error, readme.Severity)
	assert.True(t, readme.ExistenceCheck())
	assert.False(t, readme.Correctable())
	assert.Empty(t, readme.Include)
}

func TestParts_PreserveDeclarationOrder(t *testing.T) {
	src := `
rules:
  - id: Ordered
    parts:
      zeta: 'z'
      alpha: 'a'
      mid: 'm'
`
	rules, err := Parse([]byte(src), "ordered.yml", BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "(?<zeta>z)(?<alpha>a)(?<mid>m)", rules[0].Pattern.String())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		code string
	}{
		{name: "missing id", def: Definition{Regex: "a"}, code: linterrors.ErrMissingID},
		{name: "bad severity", def: Definition{ID: "R", Regex: "a", Severity: "fatal"}, code: linterrors.ErrInvalidSeverity},
		{name: "bad kind", def: Definition{ID: "R", Regex: "a", Kind: "ast"}, code: linterrors.ErrInvalidKind},
		{name: "both forms", def: Definition{ID: "R", Regex: "a", Parts: []pattern.Part{{Name: "p", Pattern: "b"}}}, code: linterrors.ErrPatternForm},
		{name: "neither form", def: Definition{ID: "R"}, code: linterrors.ErrPatternForm},
		{name: "path template", def: Definition{ID: "R", Kind: "path", Regex: "a", Replacement: strPtr("b")}, code: linterrors.ErrPathRuleTemplate},
		{name: "bad option", def: Definition{ID: "R", Regex: "a", Options: []string{"extended"}}, code: linterrors.ErrInvalidRegexOptions},
		{name: "bad pattern", def: Definition{ID: "R", Regex: "("}, code: linterrors.ErrUnbalancedGroup},
		{name: "bad filter", def: Definition{ID: "R", Regex: "a", IncludeFilters: []string{"[a-"}}, code: linterrors.ErrUnbalancedGroup},
		{name: "unknown template group", def: Definition{ID: "R", Regex: "(?<x>a)", Replacement: strPtr("$y")}, code: linterrors.ErrTemplateReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.def, BuildOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.code, linterrors.CodeOf(err))
			assert.True(t, linterrors.IsFatal(err))
		})
	}
}

func TestBuild_Options(t *testing.T) {
	r, err := Build(Definition{ID: "R", Regex: "a.b", Options: []string{"dotall", "IgnoreCase"}}, BuildOptions{})
	require.NoError(t, err)
	assert.True(t, r.Options.DotAll)
	assert.True(t, r.Options.IgnoreCase)

	ok, err := r.Pattern.MatchString("A\nB")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry(t *testing.T) {
	a, err := Build(Definition{ID: "A", Regex: "a"}, BuildOptions{})
	require.NoError(t, err)
	b, err := Build(Definition{ID: "B", Regex: "b"}, BuildOptions{})
	require.NoError(t, err)

	reg, err := NewRegistry(b, a)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 0, reg.Index("B"))
	assert.Equal(t, -1, reg.Index("C"))

	got, ok := reg.Get("A")
	require.True(t, ok)
	assert.Same(t, a, got)

	err = reg.Add(a)
	require.Error(t, err)
	var rde *linterrors.RuleDefinitionError
	require.True(t, errors.As(err, &rde))
	assert.Equal(t, linterrors.ErrDuplicateRule, rde.Code)

	sub, err := reg.Select([]string{"A", "B"})
	require.NoError(t, err)
	ids := []string{}
	for _, r := range sub.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"B", "A"}, ids)

	_, err = reg.Select([]string{"Z"})
	assert.Error(t, err)
}

func TestLoadRegistry_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.yml")
	second := filepath.Join(dir, "b.yml")
	require.NoError(t, os.WriteFile(first, []byte("rules:\n  - id: Dup\n    regex: 'x'\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("rules:\n  - id: Dup\n    regex: 'y'\n"), 0644))

	_, err := LoadRegistry([]string{first, second}, BuildOptions{})
	require.Error(t, err)
	assert.Equal(t, linterrors.ErrDuplicateRule, linterrors.CodeOf(err))
	assert.Contains(t, err.Error(), "a.yml")
}

func TestLoadRegistry_KeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.yml")
	second := filepath.Join(dir, "b.yml")
	require.NoError(t, os.WriteFile(first, []byte("rules:\n  - id: Zeta\n    regex: 'z'\n  - id: Alpha\n    regex: 'a'\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("rules:\n  - id: Mid\n    regex: 'm'\n"), 0644))

	reg, err := LoadRegistry([]string{first, second}, BuildOptions{})
	require.NoError(t, err)
	require.NotNil(t, reg)

	ids := []string{}
	for _, r := range reg.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, ids)

	empty, err := LoadRegistry(nil, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, empty.Rules())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"), BuildOptions{})
	require.Error(t, err)
	assert.False(t, linterrors.IsFatal(err))
}
