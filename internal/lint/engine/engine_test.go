package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
	"github.com/conduit-lang/rulelint/internal/lint/report"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
	"github.com/conduit-lang/rulelint/internal/lint/source"
)

func strPtr(s string) *string { return &s }

func registry(t *testing.T, defs ...rule.Definition) *rule.Registry {
	t.Helper()
	var rules []*rule.Rule
	for _, def := range defs {
		r, err := rule.Build(def, rule.BuildOptions{})
		require.NoError(t, err)
		rules = append(rules, r)
	}
	reg, err := rule.NewRegistry(rules...)
	require.NoError(t, err)
	return reg
}

func emptyMethodBody() rule.Definition {
	return rule.Definition{
		ID:       "EmptyMethodBody",
		Hint:     "Don't use whitespace or newlines for the body of empty methods.",
		Severity: "warning",
		Parts: []pattern.Part{
			{Name: "declaration", Pattern: `(init|func [^\(\s]+)\([^{}]*\)`},
			{Name: "spacing", Pattern: `\s*`},
			{Name: "body", Pattern: `\{\s+\}`},
		},
		IncludeFilters:      []string{`\.swift$`},
		MatchingExamples:    []string{"init() { }"},
		NonMatchingExamples: []string{"init() {}"},
		Replacement:         strPtr("$declaration {}"),
		CorrectionExamples:  []rule.CorrectionExample{{Before: "init()  { }", After: "init() {}"}},
	}
}

func nilCoalescing() rule.Definition {
	return rule.Definition{
		ID:             "NilCoalescingOperator",
		Hint:           "Use the nil coalescing operator.",
		Regex:          `(\w+)\s*!=\s*nil\s*\?\s*\1!\s*:\s*(.*)`,
		IncludeFilters: []string{`\.swift$`},
		Replacement:    strPtr("$1 ?? $2"),
		CorrectionExamples: []rule.CorrectionExample{{
			Before: "let message = errorMessage != nil ? errorMessage! : L10n.Global.Info.success\n",
			After:  "let message = errorMessage ?? L10n.Global.Info.success\n",
		}},
	}
}

func readmeExistence() rule.Definition {
	return rule.Definition{
		ID:                      "ReadmeExistence",
		Hint:                    "Each project should have a README.md file.",
		Kind:                    "path",
		Regex:                   `^README\.md$`,
		ViolateIfNoMatchesFound: true,
		MatchingExamples:        []string{"README.md"},
		NonMatchingExamples:     []string{"docs/README.md"},
	}
}

func todoComment() rule.Definition {
	return rule.Definition{
		ID:               "EmptyTodo",
		Hint:             "`// TODO:` comments should not be empty.",
		Severity:         "info",
		Regex:            `// TODO: *\n`,
		MatchingExamples: []string{"// TODO:\n"},
	}
}

const swiftSource = "class A {\n    init() { }\n    let m = e != nil ? e! : d\n}\n"

func TestRun_ExistenceScenario(t *testing.T) {
	eng := New(registry(t, readmeExistence()), Options{})

	missing, err := eng.Run(context.Background(), source.NewMemory(
		source.File{Path: "CHANGELOG.md", Content: "# changes"},
		source.File{Path: "src/main.x", Content: "main"},
	))
	require.NoError(t, err)
	require.Len(t, missing.Report.Violations, 1)
	v := missing.Report.Violations[0]
	assert.Equal(t, "ReadmeExistence", v.Rule)
	assert.Equal(t, "", v.Path)
	assert.Equal(t, 0, v.Line)
	assert.Equal(t, report.StatusFailure, missing.Report.Status)

	present, err := eng.Run(context.Background(), source.NewMemory(source.File{Path: "README.md", Content: "# hi"}))
	require.NoError(t, err)
	assert.Empty(t, present.Report.Violations)
	assert.Equal(t, report.StatusSuccess, present.Report.Status)
}

func TestRun_CheckMode(t *testing.T) {
	corpus := source.NewMemory(
		source.File{Path: "Sources/A.swift", Content: swiftSource},
		source.File{Path: "README.md", Content: "# A\n// TODO:\n"},
	)
	eng := New(registry(t, emptyMethodBody(), nilCoalescing(), readmeExistence(), todoComment()), Options{Mode: ModeCheck})

	res, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)

	rep := res.Report
	require.Len(t, rep.Violations, 3)
	assert.Equal(t, "EmptyTodo", rep.Violations[0].Rule)
	assert.Equal(t, "README.md", rep.Violations[0].Path)
	assert.Equal(t, 2, rep.Violations[0].Line)

	assert.Equal(t, "EmptyMethodBody", rep.Violations[1].Rule)
	assert.Equal(t, 2, rep.Violations[1].Line)
	assert.Equal(t, 5, rep.Violations[1].Column)
	require.NotNil(t, rep.Violations[1].Replacement)
	assert.Equal(t, "init() {}", *rep.Violations[1].Replacement)

	assert.Equal(t, "NilCoalescingOperator", rep.Violations[2].Rule)
	assert.Equal(t, linterrors.Error, rep.Violations[2].Severity)
	assert.Equal(t, "e ?? d", *rep.Violations[2].Replacement)
	assert.False(t, rep.Violations[2].Residual)

	assert.Equal(t, report.StatusFailure, rep.Status)
	assert.Equal(t, report.Summary{Errors: 1, Warnings: 1, Infos: 1, Files: 2, Rules: 4}, rep.Summary)

	assert.Equal(t, swiftSource, corpus.Content("Sources/A.swift"), "check mode never writes")
	assert.Empty(t, res.Changes)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_Autocorrect(t *testing.T) {
	corpus := source.NewMemory(
		source.File{Path: "Sources/A.swift", Content: swiftSource},
		source.File{Path: "Sources/B.swift", Content: "let clean = 1\n"},
		source.File{Path: "README.md", Content: "# A\n"},
	)
	eng := New(registry(t, emptyMethodBody(), nilCoalescing(), readmeExistence()), Options{Mode: ModeAutocorrect})

	res, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)

	assert.Equal(t, "class A {\n    init() {}\n    let m = e ?? d\n}\n", corpus.Content("Sources/A.swift"))
	assert.Equal(t, 1, corpus.Writes("Sources/A.swift"), "one atomic write per file")
	assert.Equal(t, 0, corpus.Writes("Sources/B.swift"))

	rep := res.Report
	assert.Equal(t, report.StatusSuccess, rep.Status)
	assert.Equal(t, 2, rep.Summary.Corrected)
	assert.Equal(t, 0, rep.Summary.Residual)
	for _, v := range rep.Violations {
		assert.True(t, v.Corrected, "unexpected finding %+v", v)
	}

	require.Len(t, res.Changes, 1)
	assert.True(t, res.Changes[0].Written)
	assert.Equal(t, swiftSource, res.Changes[0].Original)

	again, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)
	assert.Empty(t, again.Report.Violations, "corrected corpus is clean")
	assert.Equal(t, 1, corpus.Writes("Sources/A.swift"))
}

func TestRun_AutocorrectDryRun(t *testing.T) {
	corpus := source.NewMemory(source.File{Path: "A.swift", Content: swiftSource})
	eng := New(registry(t, emptyMethodBody(), nilCoalescing()), Options{Mode: ModeAutocorrect, DryRun: true})

	res, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)

	assert.Equal(t, swiftSource, corpus.Content("A.swift"))
	require.Len(t, res.Changes, 1)
	assert.False(t, res.Changes[0].Written)
	assert.Equal(t, "class A {\n    init() {}\n    let m = e ?? d\n}\n", res.Changes[0].Corrected)

	corrections := res.Changes[0].Corrections
	require.Len(t, corrections, 2)
	for _, c := range corrections {
		assert.Equal(t, c.Original, swiftSource[c.Start:c.End], "%s located in the uncorrected source", c.Rule)
	}
	assert.Equal(t, "NilCoalescingOperator", corrections[1].Rule)
	assert.Equal(t, 3, corrections[1].Line)
	assert.Len(t, res.Report.Findings(), 2)
	assert.Equal(t, 0, res.Report.Summary.Residual)
}

func TestRun_Residual(t *testing.T) {
	corpus := source.NewMemory(source.File{Path: "x.txt", Content: "baab\n"})
	eng := New(registry(t, rule.Definition{ID: "Doubler", Regex: `a+`, Replacement: strPtr("$0a")}), Options{Mode: ModeAutocorrect})

	res, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)
	assert.Equal(t, "baaab\n", corpus.Content("x.txt"))

	findings := res.Report.Findings()
	require.Len(t, findings, 1)
	assert.True(t, findings[0].Residual)
	assert.Equal(t, report.StatusFailure, res.Report.Status)
	assert.Equal(t, 1, res.Report.Summary.Residual)
}

func TestRun_ReadErrorIsRecovered(t *testing.T) {
	corpus := source.NewMemory(
		source.File{Path: "A.swift", Content: swiftSource},
		source.File{Path: "B.swift", Content: swiftSource},
	)
	corpus.FailRead("A.swift", errors.New("permission denied"))
	eng := New(registry(t, emptyMethodBody()), Options{})

	res, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)

	rep := res.Report
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, linterrors.ErrFileRead, rep.Diagnostics[0].Code)
	assert.Equal(t, "A.swift", rep.Diagnostics[0].Path)
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, "B.swift", rep.Violations[0].Path)
	assert.Equal(t, report.StatusWarning, rep.Status)
}

func TestRun_WriteErrorIsRecovered(t *testing.T) {
	corpus := source.NewMemory(
		source.File{Path: "A.swift", Content: swiftSource},
		source.File{Path: "B.swift", Content: "init() { }\n"},
	)
	corpus.FailWrite("A.swift", errors.New("read-only file system"))
	eng := New(registry(t, emptyMethodBody()), Options{Mode: ModeAutocorrect})

	res, err := eng.Run(context.Background(), corpus)
	require.NoError(t, err)

	assert.Equal(t, swiftSource, corpus.Content("A.swift"), "failed write leaves the file untouched")
	assert.Equal(t, "init() {}\n", corpus.Content("B.swift"))

	rep := res.Report
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, linterrors.ErrFileWrite, rep.Diagnostics[0].Code)

	findings := rep.Findings()
	require.Len(t, findings, 1)
	assert.Equal(t, "A.swift", findings[0].Path)
	assert.True(t, findings[0].Residual, "unapplied correction is reported")
	assert.Equal(t, 1, rep.Summary.Corrected)
}

type countingCorpus struct {
	*source.Memory
	reads atomic.Int32
}

func (c *countingCorpus) Read(path string) ([]byte, error) {
	c.reads.Add(1)
	return c.Memory.Read(path)
}

func TestRun_SelfTestFailureAbortsBeforeReading(t *testing.T) {
	broken := emptyMethodBody()
	broken.CorrectionExamples = []rule.CorrectionExample{{Before: "init()  { }", After: "init(){}"}}

	corpus := &countingCorpus{Memory: source.NewMemory(source.File{Path: "A.swift", Content: swiftSource})}
	eng := New(registry(t, nilCoalescing(), broken), Options{Mode: ModeAutocorrect})

	res, err := eng.Run(context.Background(), corpus)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, linterrors.IsFatal(err))

	var stf *linterrors.RuleSelfTestFailure
	require.True(t, errors.As(err, &stf))
	assert.Equal(t, "EmptyMethodBody", stf.Rule)
	assert.Equal(t, linterrors.ErrCorrectionExample, stf.Code)

	assert.Equal(t, int32(0), corpus.reads.Load())
	assert.Equal(t, swiftSource, corpus.Content("A.swift"))
}

func TestRun_DeterministicAcrossParallelism(t *testing.T) {
	files := []source.File{{Path: "README.md", Content: "# x\n// TODO:\n"}}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files = append(files, source.File{
			Path:    "Sources/" + name + ".swift",
			Content: "init() { }\n// TODO:\nlet v = x != nil ? x! : y\nfunc " + name + "() {\n}\n",
		})
	}
	reg := registry(t, emptyMethodBody(), nilCoalescing(), readmeExistence(), todoComment())

	render := func(parallelism int) string {
		res, err := New(reg, Options{Parallelism: parallelism}).Run(context.Background(), source.NewMemory(files...))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, report.WriteJSON(&buf, res.Report))
		return buf.String()
	}

	want := render(1)
	for _, p := range []int{2, 4, 16, 1} {
		assert.Equal(t, want, render(p), "parallelism %d", p)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(registry(t, emptyMethodBody()), Options{})
	_, err := eng.Run(ctx, source.NewMemory(source.File{Path: "A.swift", Content: swiftSource}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PathRule(t *testing.T) {
	eng := New(registry(t, rule.Definition{ID: "NoSpaces", Kind: "path", Regex: ` `, Severity: "warning"}), Options{})

	res, err := eng.Run(context.Background(), source.NewMemory(
		source.File{Path: "docs/my file.md"},
		source.File{Path: "docs/file.md"},
	))
	require.NoError(t, err)
	require.Len(t, res.Report.Violations, 1)
	assert.Equal(t, "docs/my file.md", res.Report.Violations[0].Path)
	assert.Equal(t, 0, res.Report.Violations[0].Line)
	assert.Equal(t, "docs/my file.md", res.Report.Violations[0].Location())
}

func TestLintDocument(t *testing.T) {
	eng := New(registry(t, emptyMethodBody(), nilCoalescing(), readmeExistence()), Options{})

	res := eng.LintDocument("A.swift", swiftSource)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, "EmptyMethodBody", res.Violations[0].Rule)
	assert.Equal(t, "NilCoalescingOperator", res.Violations[1].Rule)

	assert.Empty(t, eng.LintDocument("A.kt", swiftSource).Violations, "filters still apply")

	fixed, err := eng.FixDocument("A.swift", swiftSource)
	require.NoError(t, err)
	assert.Equal(t, "class A {\n    init() {}\n    let m = e ?? d\n}\n", fixed.Content)
	assert.Len(t, fixed.Applied, 2)
}

func TestPathLocks_SerializeOwners(t *testing.T) {
	locks := newPathLocks()
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("same.swift")
			defer unlock()
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, 0, locks.held())
}
