// Package engine runs a rule registry over a corpus as a strict two-phase
// pipeline: every rule is self-tested first, and only then are files read,
// scanned and (in autocorrect mode) rewritten.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/rulelint/internal/lint/autocorrect"
	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/matcher"
	"github.com/conduit-lang/rulelint/internal/lint/report"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
	"github.com/conduit-lang/rulelint/internal/lint/selector"
	"github.com/conduit-lang/rulelint/internal/lint/selftest"
	"github.com/conduit-lang/rulelint/internal/lint/source"
	"github.com/conduit-lang/rulelint/internal/logging"
)

// Mode selects whether a run only reports or also rewrites files
type Mode int

const (
	// ModeCheck reports violations without touching files
	ModeCheck Mode = iota
	// ModeAutocorrect applies corrections, then reports what is left
	ModeAutocorrect
)

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeAutocorrect {
		return "autocorrect"
	}
	return "check"
}

// Options configure an Engine
type Options struct {
	Mode Mode
	// DryRun computes corrections in autocorrect mode without writing them
	DryRun bool
	// Parallelism bounds concurrent work; 0 means runtime.NumCPU()
	Parallelism int
	Logger      *zap.Logger
}

// FileChange is the correction outcome of one file
type FileChange struct {
	Path      string
	Original  string
	Corrected string
	Written   bool

	Corrections []autocorrect.Correction // offsets refer to Original
}

// Result is the outcome of a run
type Result struct {
	Report  *report.Report
	Changes []FileChange // sorted by path; autocorrect mode only
	RunID   string
}

// Engine runs one immutable registry. It is safe for concurrent use.
type Engine struct {
	registry *rule.Registry
	opts     Options
	log      *zap.Logger
	locks    *pathLocks
}

// New creates an engine for registry
func New(registry *rule.Registry, opts Options) *Engine {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	return &Engine{
		registry: registry,
		opts:     opts,
		log:      logging.OrNop(opts.Logger).Named("engine"),
		locks:    newPathLocks(),
	}
}

// Registry returns the registry the engine runs
func (e *Engine) Registry() *rule.Registry {
	return e.registry
}

// Verify self-tests every rule. The first failure cancels the rest.
func (e *Engine) Verify(ctx context.Context) error {
	return selftest.CheckAll(ctx, e.registry.Rules(), e.opts.Parallelism)
}

// Run self-tests every rule and then lints corpus. A configuration defect
// is returned as the error before any file is read; recoverable problems
// end up as diagnostics in the report.
func (e *Engine) Run(ctx context.Context, corpus source.Corpus) (*Result, error) {
	runID := uuid.NewString()
	log := e.log.With(zap.String("run_id", runID))
	started := time.Now()
	rules := e.registry.Rules()

	log.Debug("self-testing rules", zap.Int("rules", len(rules)))
	if err := e.Verify(ctx); err != nil {
		log.Warn("rule self-test failed", zap.Error(err))
		return nil, err
	}

	paths := corpus.Paths()
	plan, err := selector.Build(rules, paths)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	log.Info("starting scan",
		zap.String("mode", e.opts.Mode.String()),
		zap.Int("rules", len(rules)),
		zap.Int("files", len(paths)),
		zap.Int("parallelism", e.opts.Parallelism))

	collector := report.NewCollector()
	r := &run{
		engine:    e,
		log:       log,
		corpus:    corpus,
		rules:     rules,
		plan:      plan,
		collector: collector,
		contents:  make(map[string]string, len(plan.Union)),
		attempts:  make(map[string]bool, len(plan.Union)),
	}

	if e.opts.Mode == ModeAutocorrect {
		if err := r.correct(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.read(ctx); err != nil {
		return nil, err
	}
	if err := r.scan(ctx); err != nil {
		return nil, err
	}

	rep := collector.Finalize(len(paths), len(rules))
	log.Info("scan finished",
		zap.String("status", rep.Status.String()),
		zap.Int("violations", len(rep.Violations)),
		zap.Int("diagnostics", len(rep.Diagnostics)),
		zap.Duration("elapsed", time.Since(started)))

	return &Result{Report: rep, Changes: r.changes, RunID: runID}, nil
}

// run is the state of one Engine.Run
type run struct {
	engine    *Engine
	log       *zap.Logger
	corpus    source.Corpus
	rules     []*rule.Rule
	plan      *selector.Plan
	collector *report.Collector

	mu       sync.Mutex
	contents map[string]string // final content of every readable file
	attempts map[string]bool   // paths whose read was already attempted
	changes  []FileChange
}

func (r *run) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.opts.Parallelism)
	return g, gctx
}

func (r *run) content(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contents[path]
	return c, ok
}

func (r *run) setContent(path, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents[path] = content
}

// readFile reads path once per run. A failed read becomes a diagnostic and
// the file is skipped by every rule.
func (r *run) readFile(path string) ([]byte, bool) {
	r.mu.Lock()
	r.attempts[path] = true
	r.mu.Unlock()

	data, err := r.corpus.Read(path)
	if err != nil {
		r.log.Debug("read failed", zap.String("path", path), zap.Error(err))
		r.collector.AddError(&linterrors.FileReadError{Path: path, Err: err})
		return nil, false
	}
	return data, true
}

func (r *run) attempted(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[path]
}

// correctable returns, per path, the correctable content rules selecting
// it, in declaration order
func (r *run) correctable() map[string][]*rule.Rule {
	byPath := make(map[string][]*rule.Rule)
	for i, rl := range r.rules {
		if !rl.Correctable() || rl.Kind != rule.KindContent {
			continue
		}
		for _, path := range r.plan.Files[i] {
			byPath[path] = append(byPath[path], rl)
		}
	}
	return byPath
}

// correct rewrites every file some correctable rule selects. Each file is
// owned by one worker: it is read, corrected rule by rule in memory and
// written back once.
func (r *run) correct(ctx context.Context) error {
	byPath := r.correctable()
	g, gctx := r.group(ctx)
	for _, path := range r.plan.Union {
		rules := byPath[path]
		if len(rules) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.correctFile(path, rules)
		})
	}
	return g.Wait()
}

func (r *run) correctFile(path string, rules []*rule.Rule) error {
	unlock := r.engine.locks.Lock(path)
	defer unlock()

	data, ok := r.readFile(path)
	if !ok {
		return nil
	}
	original := string(data)

	res, err := autocorrect.Sequence(rules, path, original)
	if err != nil {
		// A timed-out rule leaves the file untouched; the scan phase
		// reports the timeout again for the rule that caused it.
		r.log.Warn("correction skipped", zap.String("path", path), zap.Error(err))
		r.setContent(path, original)
		return nil
	}
	if !res.Changed() {
		r.setContent(path, original)
		return nil
	}

	change := FileChange{Path: path, Original: original, Corrected: res.Content, Corrections: res.Applied}
	if r.engine.opts.DryRun {
		r.setContent(path, original)
		r.addChange(change)
		return nil
	}

	if err := r.corpus.Write(path, data, []byte(res.Content)); err != nil {
		r.log.Warn("write failed", zap.String("path", path), zap.Error(err))
		r.collector.AddError(&linterrors.FileWriteError{Path: path, Err: err})
		r.setContent(path, original)
		return nil
	}

	change.Written = true
	r.addChange(change)
	r.setContent(path, res.Content)
	for _, c := range res.Applied {
		rl, _ := r.engine.registry.Get(c.Rule)
		replacement := c.Replacement
		r.collector.Add(report.Violation{
			Rule:        c.Rule,
			Severity:    rl.Severity,
			Path:        path,
			Line:        c.Line,
			Column:      c.Column,
			Start:       c.Start,
			End:         c.End,
			Hint:        rl.Hint,
			Matched:     c.Original,
			Replacement: &replacement,
			Corrected:   true,
		})
	}
	r.log.Debug("file corrected", zap.String("path", path), zap.Int("corrections", len(res.Applied)))
	return nil
}

func (r *run) addChange(c FileChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	for i := len(r.changes) - 1; i > 0 && r.changes[i].Path < r.changes[i-1].Path; i-- {
		r.changes[i], r.changes[i-1] = r.changes[i-1], r.changes[i]
	}
}

// read loads every file a content rule needs that the correction phase
// did not already load. Unreadable files are skipped with a diagnostic.
func (r *run) read(ctx context.Context) error {
	g, gctx := r.group(ctx)
	for _, path := range r.plan.Union {
		if r.attempted(path) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if data, ok := r.readFile(path); ok {
				r.setContent(path, string(data))
			}
			return nil
		})
	}
	return g.Wait()
}

// scan fans out over (rule, file) pairs. Existence rules and path rules
// are one task each.
func (r *run) scan(ctx context.Context) error {
	type task func(ctx context.Context) ([]report.Violation, []error, error)

	var tasks []task
	for i, rl := range r.rules {
		files := r.plan.Files[i]
		switch {
		case rl.ExistenceCheck():
			tasks = append(tasks, func(ctx context.Context) ([]report.Violation, []error, error) {
				return r.exists(ctx, rl, files)
			})
		case rl.Kind == rule.KindPath:
			tasks = append(tasks, func(context.Context) ([]report.Violation, []error, error) {
				return r.paths(rl, files)
			})
		default:
			for _, path := range files {
				tasks = append(tasks, func(context.Context) ([]report.Violation, []error, error) {
					return r.file(rl, path)
				})
			}
		}
	}

	type slot struct {
		violations []report.Violation
		errs       []error
	}
	results := make([]slot, len(tasks))

	g, gctx := r.group(ctx)
	for i, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vs, errs, err := t(gctx)
			results[i] = slot{violations: vs, errs: errs}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		r.collector.Add(res.violations...)
		for _, err := range res.errs {
			r.collector.AddError(err)
		}
	}
	return nil
}

func (r *run) file(rl *rule.Rule, path string) ([]report.Violation, []error, error) {
	content, ok := r.content(path)
	if !ok {
		return nil, nil, nil
	}
	matches, err := matcher.ScanContent(rl, path, content)
	if err != nil {
		return nil, []error{err}, nil
	}
	residual := r.engine.opts.Mode == ModeAutocorrect && !r.engine.opts.DryRun && rl.Correctable()
	vs := make([]report.Violation, 0, len(matches))
	for _, m := range matches {
		v := report.FromMatch(rl, m)
		v.Residual = residual
		vs = append(vs, v)
	}
	return vs, nil, nil
}

func (r *run) paths(rl *rule.Rule, files []string) ([]report.Violation, []error, error) {
	var vs []report.Violation
	var errs []error
	for _, path := range files {
		m, err := matcher.ScanPath(rl, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if m != nil {
			vs = append(vs, report.FromMatch(rl, *m))
		}
	}
	return vs, errs, nil
}

func (r *run) exists(ctx context.Context, rl *rule.Rule, files []string) ([]report.Violation, []error, error) {
	candidates := make([]matcher.Candidate, 0, len(files))
	for _, path := range files {
		c := matcher.Candidate{Path: path}
		if rl.Kind == rule.KindContent {
			content, ok := r.content(path)
			if !ok {
				continue
			}
			c.Content = content
		}
		candidates = append(candidates, c)
	}

	found, skipped, err := matcher.Exists(ctx, rl, candidates)
	if err != nil {
		return nil, nil, err
	}
	if found {
		return nil, skipped, nil
	}
	return []report.Violation{report.Missing(rl)}, skipped, nil
}
