package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/rulelint/internal/lint/engine"
	"github.com/conduit-lang/rulelint/internal/lsp"
)

// NewLSPCommand creates the LSP command
func NewLSPCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the rulelint Language Server Protocol (LSP) server.

The server lints open documents with the configured rules and provides:
  • Diagnostics on open, change and save
  • Quick fixes for correctable violations
  • A fix-all source action and document formatting

Rules are self-tested once at startup. The server communicates via
JSON-RPC over stdin/stdout and is typically started by your editor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLSP(cmd, g)
		},
	}
}

func runLSP(cmd *cobra.Command, g *globalOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return fail(cmd, err, true)
	}
	reg, err := loadRegistry(cfg, nil)
	if err != nil {
		return fail(cmd, err, true)
	}

	log := g.logger(cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	eng := engine.New(reg, engine.Options{Parallelism: cfg.Parallelism, Logger: log})
	if err := eng.Verify(cmd.Context()); err != nil {
		return fail(cmd, err, true)
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := lsp.NewServer(eng, lsp.Options{Root: cfg.Dir, Version: Version, Logger: log})
	return server.Run(ctx, lsp.Stdio())
}
