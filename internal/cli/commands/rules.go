package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/rulelint/internal/cli/ui"
	"github.com/conduit-lang/rulelint/internal/lint/pattern"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// NewRulesCommand creates the rules command
func NewRulesCommand(g *globalOptions) *cobra.Command {
	var (
		ids     []string
		details bool
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the loaded rules",
		Long: `List every rule loaded from the configured rule files, in the order
they run. Rules are compiled but not self-tested; use verify for that.`,
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

			out := cmd.OutOrStdout()
			if details {
				for i, r := range reg.Rules() {
					if i > 0 {
						fmt.Fprintln(out)
					}
					writeRuleDetails(cmd, r, noColor)
				}
				return nil
			}

			table := ui.NewTable(out, []string{"ID", "Severity", "Kind", "Autocorrect", "Filters"}, &ui.TableOptions{NoColor: noColor})
			for _, r := range reg.Rules() {
				table.AddRow(r.ID, r.Severity.String(), kindLabel(r), yesNo(r.Correctable()), filterSummary(r))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "only", nil, "Only list these rule IDs")
	cmd.Flags().BoolVar(&details, "details", false, "Show pattern, filters and examples of each rule")
	_ = cmd.RegisterFlagCompletionFunc("only", completeRuleIDs(g))
	return cmd
}

func writeRuleDetails(cmd *cobra.Command, r *rule.Rule, noColor bool) {
	out := cmd.OutOrStdout()
	ui.Header(out, r.ID, noColor)

	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Severity", r.Severity.String())
	kv.AddRow("Kind", kindLabel(r))
	if r.Hint != "" {
		kv.AddRow("Hint", r.Hint)
	}
	kv.AddRow("Pattern", r.Pattern.String())
	if parts := r.Pattern.Parts(); len(parts) > 0 {
		kv.AddRow("Parts", strings.Join(parts, ", "))
	}
	if r.Pattern.NumGroups() > 0 {
		kv.AddRow("Groups", groupSummary(r.Pattern.GroupNames()))
	}
	if r.Correctable() {
		kv.AddRow("Autocorrect", r.Template.String())
	}
	if len(r.Include) > 0 {
		kv.AddRow("Include", joinPatterns(r.Include))
	}
	if len(r.Exclude) > 0 {
		kv.AddRow("Exclude", joinPatterns(r.Exclude))
	}
	kv.AddRow("Examples", fmt.Sprintf("%d matching, %d non-matching, %d autocorrect",
		len(r.MatchingExamples), len(r.NonMatchingExamples), len(r.CorrectionExamples)))
	if r.Source != "" {
		kv.AddRow("Source", r.Source)
	}
	kv.Render()
}

// groupSummary lists the references a replacement template can use
func groupSummary(names []string) string {
	refs := make([]string, len(names))
	for i, name := range names {
		refs[i] = fmt.Sprintf("$%d", i+1)
		if name != "" {
			refs[i] += " " + name
		}
	}
	return strings.Join(refs, ", ")
}

func kindLabel(r *rule.Rule) string {
	if r.ExistenceCheck() {
		return r.Kind.String() + " (existence)"
	}
	return r.Kind.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func filterSummary(r *rule.Rule) string {
	var parts []string
	if len(r.Include) > 0 {
		parts = append(parts, fmt.Sprintf("+%d", len(r.Include)))
	}
	if len(r.Exclude) > 0 {
		parts = append(parts, fmt.Sprintf("-%d", len(r.Exclude)))
	}
	if len(parts) == 0 {
		return "all files"
	}
	return strings.Join(parts, " ")
}

func joinPatterns(ps []*pattern.Pattern) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return strings.Join(out, "  ")
}
