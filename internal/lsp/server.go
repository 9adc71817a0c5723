// Package lsp implements a Language Server Protocol server that lints open
// documents with a rule registry. It publishes violations as diagnostics,
// offers corrections as quick fixes and applies every correction as
// document formatting.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/conduit-lang/rulelint/internal/lint/engine"
	"github.com/conduit-lang/rulelint/internal/logging"
)

// Source is the diagnostic source shown by editors
const Source = "rulelint"

// Options configure a Server
type Options struct {
	// Root is the directory rule filters are evaluated against until the
	// client announces its workspace
	Root    string
	Version string
	Logger  *zap.Logger
}

// publisher is the part of protocol.Client the server uses
type publisher interface {
	PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error
}

type document struct {
	text    string
	version int32
}

// Server implements the LSP server
type Server struct {
	engine  *engine.Engine
	version string
	log     *zap.Logger

	// conn is the JSON-RPC connection
	conn   jsonrpc2.Conn
	client publisher

	mu   sync.Mutex
	root string
	docs map[protocol.DocumentURI]*document

	capabilities protocol.ServerCapabilities

	// cancel is used to signal server shutdown
	cancel context.CancelFunc
}

// NewServer creates a new LSP server linting with eng
func NewServer(eng *engine.Engine, opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		engine:  eng,
		version: version,
		log:     logging.OrNop(opts.Logger).Named("lsp"),
		root:    opts.Root,
		docs:    make(map[protocol.DocumentURI]*document),
		capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix, SourceFixAll},
			},
			DocumentFormattingProvider: &protocol.DocumentFormattingOptions{
				WorkDoneProgressOptions: protocol.WorkDoneProgressOptions{
					WorkDoneProgress: false,
				},
			},
		},
	}
}

// Run serves one client over rwc until it exits or ctx is cancelled
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.log.Info("starting language server", zap.String("root", s.root))

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn = conn
	s.client = protocol.ClientDispatcher(conn, s.log.Named("client"))

	conn.Go(ctx, s.handler())

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	s.log.Info("shutting down language server")
	return conn.Close()
}

// handler returns the JSON-RPC handler function
func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.log.Debug("received", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)
		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)
		case protocol.MethodExit:
			return s.handleExit(ctx, reply, req)
		case protocol.MethodTextDocumentDidOpen:
			return s.handleTextDocumentDidOpen(ctx, reply, req)
		case protocol.MethodTextDocumentDidChange:
			return s.handleTextDocumentDidChange(ctx, reply, req)
		case protocol.MethodTextDocumentDidClose:
			return s.handleTextDocumentDidClose(ctx, reply, req)
		case protocol.MethodTextDocumentDidSave:
			return s.handleTextDocumentDidSave(ctx, reply, req)
		case protocol.MethodTextDocumentCodeAction:
			return s.handleTextDocumentCodeAction(ctx, reply, req)
		case protocol.MethodTextDocumentFormatting:
			return s.handleTextDocumentFormatting(ctx, reply, req)
		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse initialize params")
	}

	var root string
	switch {
	case len(params.WorkspaceFolders) > 0:
		root = filename(uri.URI(params.WorkspaceFolders[0].URI))
	case params.RootURI != "":
		root = filename(params.RootURI)
	case params.RootPath != "":
		root = params.RootPath
	}
	if root != "" {
		s.mu.Lock()
		s.root = root
		s.mu.Unlock()
		s.log.Info("workspace root set", zap.String("root", root))
	}

	return reply(ctx, protocol.InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo: &protocol.ServerInfo{
			Name:    "rulelint-lsp",
			Version: s.version,
		},
	}, nil)
}

func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if err := reply(ctx, nil, nil); err != nil {
		s.log.Warn("reply to exit failed", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// replyWithError sends an LSP-compliant error response
func (s *Server) replyWithError(ctx context.Context, reply jsonrpc2.Replier, code jsonrpc2.Code, message string) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    code,
		Message: message,
	})
}

func (s *Server) open(u protocol.DocumentURI, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[u] = &document{text: text, version: version}
}

func (s *Server) document(u protocol.DocumentURI) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[u]
	return d, ok
}

func (s *Server) close(u protocol.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, u)
}

// path maps a document URI onto the slash-separated path rule filters see:
// relative to the workspace root when the document lives inside it
func (s *Server) path(u protocol.DocumentURI) string {
	name := filename(u)
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()

	if root != "" {
		if rel, err := filepath.Rel(root, name); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(name)
}

// filename returns the file path of a file URI and the raw URI otherwise
func filename(u uri.URI) string {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return string(u)
	}
	return u.Filename()
}

// stdrwc implements io.ReadWriteCloser for stdin/stdout
type stdrwc struct{}

// Stdio returns the process' stdin and stdout as one stream
func Stdio() io.ReadWriteCloser {
	return stdrwc{}
}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
