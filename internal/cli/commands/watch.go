package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/rulelint/internal/cli/ui"
	"github.com/conduit-lang/rulelint/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(g *globalOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run check whenever project files change",
		Long: `Run check once, then again every time a file below the project root
changes. Rule and configuration files are reloaded on every run, so
editing a rule takes effect on save.

Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fail(cmd, err, g.noColor)
			}
			noColor := g.colorless(cfg)
			log := g.logger(cmd.ErrOrStderr()).Named("watch")
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var mu sync.Mutex
			check := func(changed []string) {
				mu.Lock()
				defer mu.Unlock()

				if len(changed) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s\n", color.New(color.FgYellow).Sprint("changed:"), strings.Join(changed, ", "))
				}
				current, err := g.loadConfig()
				if err != nil {
					_ = fail(cmd, err, noColor)
					return
				}
				run := *opts
				if !cmd.Flags().Changed("format") {
					run.format = current.Output
				}
				if !cmd.Flags().Changed("parallelism") {
					run.parallelism = current.Parallelism
				}
				if _, err := runCheck(ctx, cmd, g, current, &run, nil); err != nil {
					var exit *exitError
					if errors.As(err, &exit) && exit.err != nil {
						printError(cmd.ErrOrStderr(), exit.err)
					}
				}
			}

			check(nil)

			watcher, err := watch.NewFileWatcher(cfg.Dir, watch.Options{Exclude: cfg.Exclude, Logger: log}, func(files []string) error {
				if ctx.Err() == nil {
					check(files)
				}
				return nil
			})
			if err != nil {
				return fail(cmd, err, noColor)
			}
			if err := watcher.Start(); err != nil {
				return fail(cmd, err, noColor)
			}
			defer func() {
				if err := watcher.Stop(); err != nil {
					log.Warn("stopping watcher failed", zap.Error(err))
				}
			}()

			fmt.Fprint(cmd.ErrOrStderr(), ui.Info(fmt.Sprintf("Watching %s (Ctrl+C to stop)", cfg.Dir), noColor))
			<-ctx.Done()
			fmt.Fprintln(cmd.ErrOrStderr(), "\nStopped watching.")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.fix, "fix", false, "Apply autocorrections on every run")
	flags.StringVarP(&opts.format, "format", "f", "text", "Report format (text, json, compact)")
	flags.StringSliceVar(&opts.rules, "rules", nil, "Only run these rule IDs")
	flags.IntVarP(&opts.parallelism, "parallelism", "j", 0, "Concurrent workers (0 = number of CPUs)")
	_ = cmd.RegisterFlagCompletionFunc("rules", completeRuleIDs(g))

	return cmd
}
