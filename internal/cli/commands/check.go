package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/rulelint/internal/cli/config"
	"github.com/conduit-lang/rulelint/internal/cli/ui"
	"github.com/conduit-lang/rulelint/internal/lint/autocorrect"
	"github.com/conduit-lang/rulelint/internal/lint/engine"
	"github.com/conduit-lang/rulelint/internal/lint/report"
	"github.com/conduit-lang/rulelint/internal/lint/source"
)

type checkOptions struct {
	fix         bool
	dryRun      bool
	format      string
	reportFile  string
	rules       []string
	parallelism int
}

// NewCheckCommand creates the check command
func NewCheckCommand(g *globalOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Lint files against the configured rules",
		Long: `Self-test every configured rule, then scan the project.

Paths default to the "paths" entry of .rulelint.yml. With --fix every
correctable violation is rewritten in place and only what remains is
reported; --dry-run prints the corrections as a diff instead.

Exit codes:
  0  no violations, or only warnings and infos
  1  at least one error-severity violation
  2  invalid configuration or a rule failed its own examples

Examples:
  rulelint check
  rulelint check Sources/ --rules EmptyMethodBody,NilCoalescing
  rulelint check --fix
  rulelint check --format json --report-file lint.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fail(cmd, err, g.noColor)
			}
			if !cmd.Flags().Changed("format") {
				opts.format = cfg.Output
			}
			if !cmd.Flags().Changed("report-file") && cfg.ReportFile != "" {
				opts.reportFile = cfg.Resolve(cfg.ReportFile)
			}
			if !cmd.Flags().Changed("parallelism") {
				opts.parallelism = cfg.Parallelism
			}

			code, err := runCheck(cmd.Context(), cmd, g, cfg, opts, args)
			if err != nil {
				return err
			}
			if code != ExitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.fix, "fix", false, "Apply autocorrections before reporting")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "With --fix, print the corrections instead of writing them")
	flags.StringVarP(&opts.format, "format", "f", "text", "Report format (text, json, compact)")
	flags.StringVar(&opts.reportFile, "report-file", "", "Also write a JSON report to this file")
	flags.StringSliceVar(&opts.rules, "rules", nil, "Only run these rule IDs")
	flags.IntVarP(&opts.parallelism, "parallelism", "j", 0, "Concurrent workers (0 = number of CPUs)")
	_ = cmd.RegisterFlagCompletionFunc("rules", completeRuleIDs(g))

	return cmd
}

// runCheck performs one full run and returns the exit code it earns.
// Configuration defects are rendered and returned as an exitError.
func runCheck(ctx context.Context, cmd *cobra.Command, g *globalOptions, cfg *config.Config, opts *checkOptions, args []string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	noColor := g.colorless(cfg)
	log := g.logger(cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return ExitConfig, fail(cmd, err, noColor)
	}
	if opts.dryRun && !opts.fix {
		return ExitConfig, fail(cmd, fmt.Errorf("--dry-run requires --fix"), noColor)
	}

	reg, err := loadRegistry(cfg, opts.rules)
	if err != nil {
		return ExitConfig, fail(cmd, err, noColor)
	}

	root, targets, err := checkTargets(cfg, args)
	if err != nil {
		return ExitConfig, fail(cmd, err, noColor)
	}
	corpus, err := source.NewDir(root, source.DirOptions{Targets: targets, Exclude: cfg.Exclude})
	if err != nil {
		return ExitConfig, fail(cmd, err, noColor)
	}

	mode := engine.ModeCheck
	if opts.fix {
		mode = engine.ModeAutocorrect
	}
	eng := engine.New(reg, engine.Options{
		Mode:        mode,
		DryRun:      opts.dryRun,
		Parallelism: opts.parallelism,
		Logger:      log,
	})

	var res *engine.Result
	lint := func() error {
		var runErr error
		res, runErr = eng.Run(ctx, corpus)
		return runErr
	}
	if format == report.FormatText && !noColor && !color.NoColor {
		err = ui.WithSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Linting %d files", len(corpus.Paths())), noColor, lint)
	} else {
		err = lint()
	}
	if err != nil {
		return ExitConfig, fail(cmd, err, noColor)
	}
	log.Debug("run finished", zap.String("run_id", res.RunID), zap.Stringer("status", res.Report.Status))

	out := cmd.OutOrStdout()
	if opts.dryRun {
		if format == report.FormatText {
			writeDiffs(out, res.Changes, noColor)
		} else {
			// Keep stdout machine-readable; one line per pending correction.
			for _, c := range res.Changes {
				fmt.Fprint(cmd.ErrOrStderr(), autocorrect.Preview(c.Corrections))
			}
		}
	}

	if err := report.Write(out, res.Report, format, noColor); err != nil {
		return ExitConfig, &exitError{code: ExitConfig, err: err}
	}
	if opts.reportFile != "" {
		if err := writeReportFile(opts.reportFile, res.Report); err != nil {
			return ExitConfig, &exitError{code: ExitConfig, err: err}
		}
	}
	return res.Report.Status.ExitCode(), nil
}

// checkTargets returns the corpus root and the targets relative to it.
// Command-line paths are taken relative to the working directory.
func checkTargets(cfg *config.Config, args []string) (string, []string, error) {
	if len(args) == 0 {
		return cfg.Dir, cfg.Paths, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	targets := make([]string, len(args))
	for i, arg := range args {
		if filepath.IsAbs(arg) {
			rel, err := filepath.Rel(wd, arg)
			if err != nil {
				return "", nil, err
			}
			arg = rel
		}
		targets[i] = filepath.ToSlash(filepath.Clean(arg))
	}
	return wd, targets, nil
}

func writeDiffs(w io.Writer, changes []engine.FileChange, noColor bool) {
	for _, c := range changes {
		if c.Original == c.Corrected {
			continue
		}
		d := autocorrect.Diff(c.Path, c.Original, c.Corrected)
		if noColor {
			fmt.Fprint(w, d.UnifiedDiff())
		} else {
			fmt.Fprint(w, d.String())
		}
	}
}

func writeReportFile(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.WriteJSON(f, rep); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return f.Close()
}
