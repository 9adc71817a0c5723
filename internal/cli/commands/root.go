package commands

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "rulelint",
		Short: "Declarative regex lint rules with self-tests and autocorrection",
		Long: color.CyanString(`rulelint - declarative lint rules for any text

Rules are regular expressions declared in YAML together with examples of
what they must and must not match. Every rule proves itself against its
examples before a single file is read.

Features:
  • Multi-part patterns with named, cross-referencing groups
  • Autocorrection templates verified for idempotence
  • File existence checks and path rules
  • Text, JSON and compact reports`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&g.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.StringVarP(&g.configPath, "config", "c", "", "Configuration file (default: .rulelint.yml in the project root)")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewCheckCommand(g))
	rootCmd.AddCommand(NewVerifyCommand(g))
	rootCmd.AddCommand(NewRulesCommand(g))
	rootCmd.AddCommand(NewWatchCommand(g))
	rootCmd.AddCommand(NewLSPCommand(g))
	rootCmd.AddCommand(NewInitCommand(g))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the rulelint version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "rulelint version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	return run(NewRootCommand(), nil)
}

func run(rootCmd *cobra.Command, args []string) int {
	if args != nil {
		rootCmd.SetArgs(args)
	}
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			printError(rootCmd.ErrOrStderr(), exit.err)
		}
		return exit.code
	}
	printError(rootCmd.ErrOrStderr(), err)
	return ExitConfig
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "Error: %v\n", err)
}
