package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/rulelint/internal/cli/config"
	"github.com/conduit-lang/rulelint/internal/cli/ui"
	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
	"github.com/conduit-lang/rulelint/internal/logging"
)

// Process exit codes
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitConfig     = 2
)

// exitError carries an exit code out of a command. A nil err means the
// command already printed what went wrong.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	verbosity  int
	configPath string
	noColor    bool
}

// logger writes to w, normally the command's stderr
func (g *globalOptions) logger(w io.Writer) *zap.Logger {
	return logging.NewWithWriter(w, g.verbosity)
}

// loadConfig reads --config, or .rulelint.yml from the nearest project root
func (g *globalOptions) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	dir := "."
	if root, err := config.FindProjectRoot("."); err == nil {
		dir = root
	}
	return config.Load(dir)
}

func (g *globalOptions) colorless(cfg *config.Config) bool {
	return g.noColor || (cfg != nil && cfg.NoColor)
}

// loadRegistry loads every rule file of cfg and narrows it to ids
func loadRegistry(cfg *config.Config, ids []string) (*rule.Registry, error) {
	reg, err := rule.LoadRegistry(cfg.RuleFiles(), rule.BuildOptions{
		Options: pattern.Options{Timeout: cfg.MatchTimeout},
	})
	if err != nil {
		return nil, err
	}
	if id := unknownRule(reg, ids); id != "" {
		return nil, &unknownRuleError{id: id, known: ruleIDs(reg)}
	}
	return reg.Select(ids)
}

type unknownRuleError struct {
	id    string
	known []string
}

func (e *unknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule %q", e.id)
}

func unknownRule(reg *rule.Registry, ids []string) string {
	for _, id := range ids {
		if _, ok := reg.Get(id); !ok {
			return id
		}
	}
	return ""
}

func ruleIDs(reg *rule.Registry) []string {
	ids := make([]string, 0, reg.Len())
	for _, r := range reg.Rules() {
		ids = append(ids, r.ID)
	}
	return ids
}

// fail renders a setup error and turns it into exit code 2
func fail(cmd *cobra.Command, err error, noColor bool) error {
	renderError(cmd.ErrOrStderr(), err, noColor)
	return &exitError{code: ExitConfig}
}

func renderError(w io.Writer, err error, noColor bool) {
	if unknown, ok := err.(*unknownRuleError); ok {
		fmt.Fprint(w, ui.UnknownRuleError(unknown.id, unknown.known, noColor))
		return
	}
	if linterrors.IsFatal(err) {
		fmt.Fprint(w, linterrors.FormatForTerminal(err, noColor))
		fmt.Fprintln(w)
		fmt.Fprint(w, ui.RulesRejected(noColor))
		return
	}
	fmt.Fprint(w, ui.ConfigError(err.Error(), noColor))
}
