package commands

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/rulelint/internal/cli/config"
	"github.com/conduit-lang/rulelint/internal/cli/ui"
	"github.com/conduit-lang/rulelint/internal/lint/report"
)

//go:embed templates/rules.yml
var starterRules []byte

type initAnswers struct {
	RulesFile string
	Paths     string
	Output    string
	Starter   bool
}

// NewInitCommand creates the init command
func NewInitCommand(g *globalOptions) *cobra.Command {
	var (
		yes   bool
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .rulelint.yml and a starter rule file",
		Long: `Scaffold a rulelint configuration in the current directory.

Without --yes you are asked for the rule file name, the paths to lint,
the report format and whether to write the starter rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noColor := g.noColor
			answers := initAnswers{
				RulesFile: "rules.yml",
				Paths:     ".",
				Output:    string(report.FormatText),
				Starter:   true,
			}

			configPath := filepath.Join(dir, config.FileName)
			if _, err := os.Stat(configPath); err == nil && !force {
				return fail(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", configPath), noColor)
			}

			if !yes {
				if err := askInit(&answers); err != nil {
					return err
				}
			}

			cfg := config.Default()
			cfg.Rules = []string{answers.RulesFile}
			cfg.Paths = splitList(answers.Paths)
			cfg.Output = answers.Output
			if err := cfg.Validate(); err != nil {
				return fail(cmd, err, noColor)
			}
			if err := cfg.Save(configPath); err != nil {
				return fail(cmd, err, noColor)
			}

			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, "Created "+configPath, noColor)

			if answers.Starter {
				rulesPath := filepath.Join(dir, answers.RulesFile)
				if _, err := os.Stat(rulesPath); err == nil && !force {
					fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("%s already exists, starter rules not written", rulesPath), noColor))
				} else {
					if err := os.WriteFile(rulesPath, starterRules, 0644); err != nil {
						return fail(cmd, fmt.Errorf("failed to write starter rules: %w", err), noColor)
					}
					ui.WriteSuccess(out, "Created "+rulesPath, noColor)
				}
			}

			next := color.New(color.FgCyan)
			if noColor {
				next.DisableColor()
			}
			fmt.Fprintln(out)
			next.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  rulelint verify   # self-test the rules")
			fmt.Fprintln(out, "  rulelint check    # lint the project")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept the defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")
	return cmd
}

func askInit(answers *initAnswers) error {
	questions := []*survey.Question{
		{
			Name: "rulesFile",
			Prompt: &survey.Input{
				Message: "Rule file:",
				Default: answers.RulesFile,
			},
			Validate: survey.Required,
		},
		{
			Name: "paths",
			Prompt: &survey.Input{
				Message: "Paths to lint:",
				Default: answers.Paths,
				Help:    "Comma-separated files, directories or globs relative to the project root",
			},
			Validate: survey.Required,
		},
		{
			Name: "output",
			Prompt: &survey.Select{
				Message: "Report format:",
				Options: []string{string(report.FormatText), string(report.FormatJSON), string(report.FormatCompact)},
				Default: answers.Output,
			},
		},
		{
			Name: "starter",
			Prompt: &survey.Confirm{
				Message: "Write starter rules?",
				Default: answers.Starter,
			},
		},
	}
	return survey.Ask(questions, answers)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
