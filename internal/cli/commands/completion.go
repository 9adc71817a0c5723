package commands

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// completionScripts maps a shell name to its script generator
var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	shells := make([]string, 0, len(completionScripts))
	for name := range completionScripts {
		shells = append(shells, name)
	}
	sort.Strings(shells)

	return &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Generate shell completion script",
		Long: `Print a completion script for rulelint to stdout.

Rule IDs given to --rules and --only complete from the rule files of the
current project.

  bash:        source <(rulelint completion bash)
  zsh:         rulelint completion zsh > "${fpath[1]}/_rulelint"
  fish:        rulelint completion fish | source
  powershell:  rulelint completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionScripts[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// completeRuleIDs completes a comma-separated list of rule IDs from the
// project's rule files. IDs already in the list are not offered again.
func completeRuleIDs(g *globalOptions) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := g.loadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		reg, err := loadRegistry(cfg, nil)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		prefix, partial := "", toComplete
		if i := strings.LastIndexByte(toComplete, ','); i >= 0 {
			prefix, partial = toComplete[:i+1], toComplete[i+1:]
		}
		listed := make(map[string]bool)
		for _, id := range strings.Split(prefix, ",") {
			listed[id] = true
		}

		var out []string
		for _, id := range ruleIDs(reg) {
			if !listed[id] && strings.HasPrefix(id, partial) {
				out = append(out, prefix+id)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
