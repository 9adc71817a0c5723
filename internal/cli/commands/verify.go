package commands

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/rulelint/internal/cli/ui"
	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/selftest"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand(g *globalOptions) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Self-test rules against their declared examples",
		Long: `Run every rule's matching, non-matching and autocorrect examples
without reading any project file. Unlike check, verify reports every
failing rule instead of stopping at the first one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fail(cmd, err, g.noColor)
			}
			noColor := g.colorless(cfg)

			reg, err := loadRegistry(cfg, ids)
			if err != nil {
				return fail(cmd, err, noColor)
			}

			outcomes, err := selftest.VerifyAll(cmd.Context(), reg.Rules(), cfg.Parallelism)
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}

			out := cmd.OutOrStdout()
			ui.Header(out, fmt.Sprintf("Verifying %d rules", len(outcomes)), noColor)

			passed := color.New(color.FgGreen)
			failed := color.New(color.FgRed, color.Bold)
			if noColor {
				passed.DisableColor()
				failed.DisableColor()
			}

			table := ui.NewTable(out, []string{"Rule", "Examples", "Status"}, &ui.TableOptions{NoColor: noColor})
			var failures []error
			for _, o := range outcomes {
				status := passed.Sprint("passed")
				if !o.Passed() {
					status = failed.Sprint("failed")
					failures = append(failures, o.Err)
				}
				table.AddRow(o.Rule, strconv.Itoa(o.Examples), status)
			}
			table.Render()
			fmt.Fprintln(out)

			if len(failures) == 0 {
				ui.WriteSuccess(out, fmt.Sprintf("All %d rules passed their examples", len(outcomes)), noColor)
				return nil
			}

			errOut := cmd.ErrOrStderr()
			for _, err := range failures {
				fmt.Fprint(errOut, linterrors.FormatForTerminal(err, noColor))
				fmt.Fprintln(errOut)
			}
			fmt.Fprint(errOut, ui.Warning(fmt.Sprintf("%d of %d rules failed their examples", len(failures), len(outcomes)), noColor))
			return &exitError{code: ExitConfig}
		},
	}

	cmd.Flags().StringSliceVar(&ids, "rules", nil, "Only verify these rule IDs")
	_ = cmd.RegisterFlagCompletionFunc("rules", completeRuleIDs(g))
	return cmd
}
